package mintmgr

import (
	"context"
	"sync"

	logger "github.com/sirupsen/logrus"

	"github.com/hakulabs/mintd/mintsync"
	"github.com/hakulabs/mintd/nftman"
	"github.com/hakulabs/mintd/state"
)

// Manager drives the mint life cycle: HTTP-triggered applies through
// Apply, chain-observed confirmations through the synchronizer channels
// it exposes as a mintsync.Sink.
type Manager struct {
	cfg     *Config
	node    NodeBackend
	machine *state.Machine
	statedb *state.StateDB
	gate    state.EligibilityGate
	chips   ChipRecycler
	schemas []mintsync.EventSchema

	// one in-flight apply per asset, on top of the db-level CAS
	applyLock sync.Map

	userTransferCh chan *nftman.UserTransferEvent
	userMintCh     chan *nftman.UserMintEvent
	nftMintedCh    chan *nftman.NFTMintedEvent
}

func New(
	cfg *Config,
	node NodeBackend,
	statedb *state.StateDB,
	gate state.EligibilityGate,
	chips ChipRecycler,
) *Manager {
	cfg = cfg.withDefaults()

	return &Manager{
		cfg:            cfg,
		node:           node,
		machine:        state.NewMachine(statedb),
		statedb:        statedb,
		gate:           gate,
		chips:          chips,
		schemas:        mintsync.DefaultSchemas(node.TokenAddress(), node.NFTAddress()),
		userTransferCh: make(chan *nftman.UserTransferEvent, cfg.ChannelSize),
		userMintCh:     make(chan *nftman.UserMintEvent, cfg.ChannelSize),
		nftMintedCh:    make(chan *nftman.NFTMintedEvent, cfg.ChannelSize),
	}
}

func (m *Manager) GetUserTransferEventChannel() chan<- *nftman.UserTransferEvent {
	return m.userTransferCh
}

func (m *Manager) GetUserMintEventChannel() chan<- *nftman.UserMintEvent {
	return m.userMintCh
}

func (m *Manager) GetNFTMintedEventChannel() chan<- *nftman.NFTMintedEvent {
	return m.nftMintedCh
}

// Machine exposes the state machine for the HTTP surface.
func (m *Manager) Machine() *state.Machine {
	return m.machine
}

func (m *Manager) StateDB() *state.StateDB {
	return m.statedb
}

// Start consumes the synchronizer's events until ctx ends.
func (m *Manager) Start(ctx context.Context) error {
	logger.Info("starting mint manager")
	defer logger.Info("stopping mint manager")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.userMintCh:
			m.handleUserMint(ev)
		case ev := <-m.userTransferCh:
			m.handleUserTransfer(ev)
		case ev := <-m.nftMintedCh:
			logger.WithFields(logger.Fields{
				"txHash":  ev.TxHash.String(),
				"tokenId": ev.TokenId,
				"to":      ev.To.String(),
				"remark":  ev.Remark,
			}).Debug("nft mint observed on chain")
		}
	}
}

// handleUserMint records a mint the chain reports as done. The UserMint
// event carries the asset id in its remark and the token fields to
// persist. An attempt that is already resolved is logged and dropped.
func (m *Manager) handleUserMint(ev *nftman.UserMintEvent) {
	newLogger := logger.WithFields(logger.Fields{
		"txHash":  ev.TxHash.String(),
		"tokenId": ev.TokenId,
		"user":    ev.User.String(),
		"remark":  ev.Remark,
	})

	assetID, err := ParseAssetIDFromRemark(ev.Remark)
	if err != nil {
		newLogger.Warnf("failed to parse asset id: err=%v", err)
		return
	}

	err = m.machine.ConfirmMint(assetID, ev.User.String(), &state.MintOutcome{
		TokenID:     ev.TokenId.Uint64(),
		BlockNumber: ev.BlockNumber,
		TokenURL:    ev.TokenUrl,
	})
	switch err {
	case nil:
	case state.ErrNotApplying:
		newLogger.Debug("mint already resolved, skip confirming")
		return
	case state.ErrNotFound:
		newLogger.Warn("mint confirmation for unknown asset")
		return
	default:
		newLogger.Errorf("failed to confirm mint: err=%v", err)
		return
	}

	m.recycleChips(assetID, ev.User.String(), newLogger)
}

// handleUserTransfer reacts to token transfers. A transfer carrying a
// mint remark paid for a self-served mint; its chips are spent here. A
// plain transfer is only logged.
func (m *Manager) handleUserTransfer(ev *nftman.UserTransferEvent) {
	newLogger := logger.WithFields(logger.Fields{
		"txHash": ev.TxHash.String(),
		"from":   ev.From.String(),
		"to":     ev.To.String(),
		"value":  ev.Value,
	})

	if ev.MintRemark == "" {
		newLogger.Debug("user transfer")
		return
	}

	assetID, err := ParseAssetIDFromRemark(ev.MintRemark)
	if err != nil {
		newLogger.Warnf("failed to parse asset id from mint remark: err=%v", err)
		return
	}

	m.recycleChips(assetID, ev.From.String(), newLogger)
}

func (m *Manager) recycleChips(assetID uint64, owner string, newLogger *logger.Entry) {
	if m.chips == nil {
		return
	}
	n, err := m.chips.RecycleForMint(assetID, owner)
	if err != nil {
		newLogger.Errorf("failed to recycle chips: asset=%d err=%v", assetID, err)
		return
	}
	newLogger.WithFields(logger.Fields{
		"asset": assetID,
		"chips": n,
	}).Info("chips recycled")
}
