package mintsync

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	logger "github.com/sirupsen/logrus"

	"github.com/hakulabs/mintd/nftman"
)

const MinTickerDuration = 100 * time.Millisecond

// Synchronizer scans the chain for logs of the watched contracts and
// feeds the decoded events into the sink.
type Synchronizer struct {
	cfg        *Config
	node       *nftman.Nftman
	sink       Sink
	schemas    []EventSchema
	lastSynced uint64
}

func New(node *nftman.Nftman, sink Sink, cfg *Config) (*Synchronizer, error) {
	lastSynced := cfg.StartBlock
	if lastSynced == 0 {
		height, err := node.BlockNumber(context.Background())
		if err != nil {
			logger.Error("failed to get chain height when initializing synchronizer")
			return nil, err
		}
		lastSynced = height
	}

	return &Synchronizer{
		cfg:        cfg,
		node:       node,
		sink:       sink,
		schemas:    DefaultSchemas(node.TokenAddress(), node.NFTAddress()),
		lastSynced: lastSynced,
	}, nil
}

func (s *Synchronizer) Sync(ctx context.Context) error {
	logger.Debug("starting mint synchronization")
	defer func() {
		logger.Debug("stopping mint synchronization")
	}()

	freq := s.cfg.FrequencyToCheckNewBlocks
	if freq < MinTickerDuration {
		freq = MinTickerDuration
	}
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			height, err := s.node.BlockNumber(ctx)
			if err != nil {
				return err
			}
			if height <= s.lastSynced {
				continue
			}

			logs, err := s.node.FilterLogs(ctx,
				new(big.Int).SetUint64(s.lastSynced+1),
				new(big.Int).SetUint64(height))
			if err != nil {
				return err
			}

			for _, vlog := range logs {
				s.dispatch(ctx, vlog)
			}

			s.lastSynced = height
		}
	}
}

func (s *Synchronizer) dispatch(ctx context.Context, vlog types.Log) {
	schema, ok := matchSchema(s.schemas, vlog)
	if !ok {
		return
	}

	switch schema.Kind {
	case KindUserTransfer:
		ev, err := nftman.DecodeUserTransfer(vlog)
		if err != nil {
			warnDecode(vlog, "UserTransfer", err)
			return
		}
		s.fillMintRemark(ctx, ev)
		logger.WithFields(logger.Fields{
			"txHash":     ev.TxHash.String(),
			"from":       ev.From.String(),
			"to":         ev.To.String(),
			"value":      ev.Value,
			"mintRemark": ev.MintRemark,
		}).Debug("UserTransfer event")
		s.sink.GetUserTransferEventChannel() <- ev
	case KindUserMint:
		ev, err := nftman.DecodeUserMint(vlog)
		if err != nil {
			warnDecode(vlog, "UserMint", err)
			return
		}
		logger.WithFields(logger.Fields{
			"txHash":  ev.TxHash.String(),
			"tokenId": ev.TokenId,
			"user":    ev.User.String(),
			"remark":  ev.Remark,
		}).Debug("UserMint event")
		s.sink.GetUserMintEventChannel() <- ev
	case KindNFTMinted:
		ev, err := nftman.DecodeNFTMinted(vlog)
		if err != nil {
			warnDecode(vlog, "HakuNFTMint", err)
			return
		}
		logger.WithFields(logger.Fields{
			"txHash":  ev.TxHash.String(),
			"tokenId": ev.TokenId,
			"to":      ev.To.String(),
		}).Debug("HakuNFTMint event")
		s.sink.GetNFTMintedEventChannel() <- ev
	}
}

// fillMintRemark fetches the receipt of the transfer transaction and,
// when a HakuNFTMint event sits in the same receipt, copies its remark
// onto the transfer. A receipt that cannot be fetched leaves the remark
// empty, the transfer is still forwarded.
func (s *Synchronizer) fillMintRemark(ctx context.Context, ev *nftman.UserTransferEvent) {
	receipt, err := s.node.WaitForReceipt(ctx, ev.TxHash,
		s.cfg.ReceiptMaxAttempts, s.cfg.ReceiptBackoff, 0)
	if err != nil {
		logger.WithFields(logger.Fields{
			"txHash": ev.TxHash.String(),
			"err":    err,
		}).Warn("failed to fetch receipt for transfer event")
		return
	}

	set := Correlate(receipt, s.schemas)
	if set.Minted != nil {
		ev.MintRemark = set.Minted.Remark
	}
}
