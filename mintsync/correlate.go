package mintsync

import (
	"github.com/ethereum/go-ethereum/core/types"
	logger "github.com/sirupsen/logrus"

	"github.com/hakulabs/mintd/nftman"
)

// CorrelatedEventSet holds the recognized events of a single receipt.
// Any field may be nil; a plain token transfer only fills Transfer.
type CorrelatedEventSet struct {
	Transfer *nftman.UserTransferEvent
	Minted   *nftman.NFTMintedEvent
	UserMint *nftman.UserMintEvent
}

// Correlate scans the receipt's logs and decodes every log matching one
// of the schemas. Log order does not matter and a log that fails to
// decode is skipped with a warning, the rest of the receipt is still
// processed. When the same event kind appears more than once the first
// occurrence wins. Failed receipts are correlated like successful ones;
// judging the receipt status is the caller's business.
func Correlate(receipt *types.Receipt, schemas []EventSchema) *CorrelatedEventSet {
	set := &CorrelatedEventSet{}
	if receipt == nil {
		return set
	}

	for _, vlog := range receipt.Logs {
		if vlog == nil {
			continue
		}
		schema, ok := matchSchema(schemas, *vlog)
		if !ok {
			continue
		}

		switch schema.Kind {
		case KindUserTransfer:
			if set.Transfer != nil {
				continue
			}
			ev, err := nftman.DecodeUserTransfer(*vlog)
			if err != nil {
				warnDecode(*vlog, "UserTransfer", err)
				continue
			}
			set.Transfer = ev
		case KindUserMint:
			if set.UserMint != nil {
				continue
			}
			ev, err := nftman.DecodeUserMint(*vlog)
			if err != nil {
				warnDecode(*vlog, "UserMint", err)
				continue
			}
			set.UserMint = ev
		case KindNFTMinted:
			if set.Minted != nil {
				continue
			}
			ev, err := nftman.DecodeNFTMinted(*vlog)
			if err != nil {
				warnDecode(*vlog, "HakuNFTMint", err)
				continue
			}
			set.Minted = ev
		}
	}

	if set.Transfer != nil && set.Minted != nil {
		set.Transfer.MintRemark = set.Minted.Remark
	}

	return set
}

func warnDecode(vlog types.Log, event string, err error) {
	logger.WithFields(logger.Fields{
		"event":  event,
		"txHash": vlog.TxHash.String(),
		"index":  vlog.Index,
		"err":    err,
	}).Warn("failed to decode event log")
}
