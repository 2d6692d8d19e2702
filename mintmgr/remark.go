package mintmgr

import (
	"fmt"
	"math/big"
	"path"
	"strconv"
	"strings"
)

// ParseAssetIDFromRemark extracts the asset id from a mint remark.
// The contracts emit the remark in several shapes:
//   - "12"
//   - "MintNFT#12"
//   - "12:tokenURL"
//   - "MintNFT#12:tokenURL"
func ParseAssetIDFromRemark(remark string) (uint64, error) {
	if id, err := strconv.ParseUint(remark, 10, 64); err == nil {
		return id, nil
	}

	s := remark
	if pos := strings.Index(s, "#"); pos >= 0 {
		s = s[pos+1:]
	}
	if pos := strings.Index(s, ":"); pos >= 0 {
		s = s[:pos]
	}

	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse asset id from remark %q: %w", remark, err)
	}
	return id, nil
}

// fileParam derives the uint256 safeMint argument from the asset's file
// name, e.g. "27.png" -> 27. Falls back to the asset id when the stem is
// not a number.
func fileParam(fileName string, assetID uint64) *big.Int {
	stem := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	if v, err := strconv.ParseUint(stem, 10, 64); err == nil {
		return new(big.Int).SetUint64(v)
	}
	return new(big.Int).SetUint64(assetID)
}
