package mintmgr

import (
	"context"
	"errors"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	logger "github.com/sirupsen/logrus"

	"github.com/hakulabs/mintd/mintsync"
	"github.com/hakulabs/mintd/state"
)

var (
	ErrNotEligible       = errors.New("owner is not eligible to mint the asset")
	ErrTransactionFailed = errors.New("safeMint transaction reverted")
)

// Apply runs one server-paid mint attempt for the asset. The gate and
// the state machine reject definitively; a node that cannot be reached
// or a receipt that never shows up is retryable by the caller. Whatever
// goes wrong after BeginApply succeeded rolls the record back.
func (m *Manager) Apply(ctx context.Context, assetID uint64, owner string) (ethcommon.Hash, error) {
	if _, loaded := m.applyLock.LoadOrStore(assetID, true); loaded {
		return ethcommon.Hash{}, state.ErrAlreadyApplying
	}
	defer m.applyLock.Delete(assetID)

	newLogger := logger.WithFields(logger.Fields{
		"asset": assetID,
		"owner": owner,
	})

	eligible, err := m.gate.IsEligible(assetID, owner)
	if err != nil {
		return ethcommon.Hash{}, err
	}
	if !eligible {
		newLogger.Debug("mint apply rejected by eligibility gate")
		return ethcommon.Hash{}, ErrNotEligible
	}

	asset, found, err := m.statedb.GetAsset(assetID)
	if err != nil {
		return ethcommon.Hash{}, err
	}
	if !found {
		return ethcommon.Hash{}, state.ErrNotFound
	}

	if err := m.machine.BeginApply(assetID, owner); err != nil {
		return ethcommon.Hash{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ApplyTimeout)
	defer cancel()

	txHash, err := m.mint(ctx, asset)
	if err != nil {
		newLogger.Warnf("mint attempt failed, rolling back: err=%v", err)
		if rbErr := m.machine.Rollback(assetID, owner); rbErr != nil {
			newLogger.Warnf("rollback skipped: err=%v", rbErr)
		}
		return txHash, err
	}

	return txHash, nil
}

func (m *Manager) mint(ctx context.Context, asset *state.Asset) (ethcommon.Hash, error) {
	to := ethcommon.HexToAddress(asset.Owner)
	tokenID := strconv.FormatUint(asset.ID, 10)

	tx, err := m.node.SafeMint(ctx, to, tokenID, fileParam(asset.FileName, asset.ID))
	if err != nil {
		return ethcommon.Hash{}, err
	}

	newLogger := logger.WithFields(logger.Fields{
		"asset":  asset.ID,
		"mintTx": tx.Hash().String(),
	})
	newLogger.Debug("safeMint tx sent")

	receipt, err := m.node.WaitForReceipt(ctx, tx.Hash(),
		m.cfg.ReceiptMaxAttempts, m.cfg.ReceiptBackoff, m.cfg.MinConfirmations)
	if err != nil {
		return tx.Hash(), err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), ErrTransactionFailed
	}

	// The receipt usually carries the UserMint event already; confirm
	// right away instead of waiting for the synchronizer to replay it.
	set := mintsync.Correlate(receipt, m.schemas)
	if set.UserMint != nil {
		m.handleUserMint(set.UserMint)
	} else {
		newLogger.Debug("receipt carries no UserMint event, awaiting synchronizer")
	}

	return tx.Hash(), nil
}
