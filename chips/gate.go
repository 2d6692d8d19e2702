package chips

import (
	logger "github.com/sirupsen/logrus"

	"github.com/hakulabs/mintd/common"
	"github.com/hakulabs/mintd/state"
)

// ChipGate is the eligibility check in front of every mint apply: the
// caller must own the asset, the asset must have been received, and the
// caller must hold every live chip of it.
type ChipGate struct {
	assets *state.StateDB
	chips  *SQLiteChipStorage
}

func NewChipGate(assets *state.StateDB, chips *SQLiteChipStorage) *ChipGate {
	return &ChipGate{assets: assets, chips: chips}
}

func (g *ChipGate) IsEligible(assetID uint64, owner string) (bool, error) {
	asset, found, err := g.assets.GetAsset(assetID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, state.ErrNotFound
	}

	if asset.Owner != common.LowerAddr(owner) {
		return false, nil
	}
	if !asset.Received {
		return false, nil
	}

	total, err := g.chips.CountByAsset(assetID)
	if err != nil {
		return false, err
	}
	owned, err := g.chips.CountOwned(assetID, owner)
	if err != nil {
		return false, err
	}

	eligible := total > 0 && owned == total
	if !eligible {
		logger.WithFields(logger.Fields{
			"asset": assetID,
			"owner": owner,
			"owned": owned,
			"total": total,
		}).Debug("not all chips collected")
	}

	return eligible, nil
}
