package nftman

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	logger "github.com/sirupsen/logrus"
)

var ErrReceiptNotFound = errors.New("transaction receipt not found after retries")

// poll interval while waiting for confirmation depth
const confirmPollInterval = 500 * time.Millisecond

// WaitForReceipt polls the node until the receipt of txHash is indexed.
// A missing receipt is not an error, the node may simply lag behind; the
// wait between polls grows linearly (backoffBase * attempt) until
// maxAttempts polls have been spent, then ErrReceiptNotFound is returned.
//
// With minConfirmations > 0 the call additionally waits until the chain
// has grown minConfirmations blocks past the receipt's block. That wait
// has no attempt cap; the caller bounds it through ctx.
func (n *Nftman) WaitForReceipt(
	ctx context.Context,
	txHash ethcommon.Hash,
	maxAttempts uint,
	backoffBase time.Duration,
	minConfirmations uint64,
) (*types.Receipt, error) {
	for attempt := uint(1); attempt <= maxAttempts; attempt++ {
		receipt, err := n.ethClient.TransactionReceipt(ctx, txHash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		if receipt != nil {
			if minConfirmations > 0 {
				if err := n.waitForConfirmations(ctx, receipt.BlockNumber.Uint64(), minConfirmations); err != nil {
					return nil, err
				}
			}
			return receipt, nil
		}

		logger.WithFields(logger.Fields{
			"txHash":  txHash.String(),
			"attempt": attempt,
		}).Debug("receipt not yet indexed")

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoffBase * time.Duration(attempt)):
		}
	}

	return nil, ErrReceiptNotFound
}

func (n *Nftman) waitForConfirmations(ctx context.Context, receiptBlock, minConfirmations uint64) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		height, err := n.ethClient.BlockNumber(ctx)
		if err != nil {
			return err
		}
		if height >= receiptBlock && height-receiptBlock >= minConfirmations {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
