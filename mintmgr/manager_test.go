package mintmgr

import (
	"context"
	"math/big"
	"strconv"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakulabs/mintd/chips"
	"github.com/hakulabs/mintd/common"
	"github.com/hakulabs/mintd/nftman"
	"github.com/hakulabs/mintd/state"
)

func ethToAddr(s string) ethcommon.Address {
	return ethcommon.HexToAddress(s)
}

type managerFixture struct {
	client  *nftman.SimNodeClient
	node    *nftman.Nftman
	statedb *state.StateDB
	chips   *chips.SQLiteChipStorage
	mgr     *Manager
}

func newManagerFixture(t *testing.T, cfg *Config) *managerFixture {
	db := state.GetMemoryDB()
	t.Cleanup(func() { db.Close() })

	statedb, err := state.NewStateDB(db)
	require.NoError(t, err)
	t.Cleanup(statedb.Close)

	chipStorage, err := chips.NewSQLiteChipStorage(db)
	require.NoError(t, err)

	client := nftman.NewSimNodeClient()
	sk, err := crypto.GenerateKey()
	require.NoError(t, err)
	auth, err := nftman.NewAuth(sk, big.NewInt(1337))
	require.NoError(t, err)

	node, err := nftman.NewNftmanWithClient(client,
		common.RandEthAddress(), common.RandEthAddress(), auth)
	require.NoError(t, err)

	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ReceiptBackoff = time.Millisecond
	mgr := New(cfg, node, statedb, chips.NewChipGate(statedb, chipStorage), chipStorage)

	return &managerFixture{
		client:  client,
		node:    node,
		statedb: statedb,
		chips:   chipStorage,
		mgr:     mgr,
	}
}

// insertMintableAsset stores an asset whose owner holds all its chips.
func (f *managerFixture) insertMintableAsset(t *testing.T, status state.MintStatus) *state.Asset {
	a := state.RandAsset(status)
	require.NoError(t, f.statedb.InsertAsset(a))
	for i := 0; i < 3; i++ {
		require.NoError(t, f.chips.AddChip(a.ID, a.Owner))
	}
	return a
}

func (f *managerFixture) userMintLogFor(a *state.Asset, tokenID uint64) types.Log {
	return nftman.NewUserMintLog(f.node.NFTAddress(), new(big.Int).SetUint64(tokenID),
		ethToAddr(a.Owner), strconv.FormatUint(a.ID, 10), "ipfs://QmToken")
}

func TestApplyMintsAndConfirms(t *testing.T) {
	f := newManagerFixture(t, nil)
	a := f.insertMintableAsset(t, state.StatusUnapplied)

	f.client.NextReceiptLogs = []types.Log{f.userMintLogFor(a, 7)}

	txHash, err := f.mgr.Apply(context.Background(), a.ID, a.Owner)
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, [32]byte(txHash))

	got, found, err := f.statedb.GetAsset(a.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, state.StatusMinted, got.Status)
	assert.Equal(t, uint64(7), got.TokenID)
	assert.Equal(t, "ipfs://QmToken", got.TokenURL)

	// mint spent the chips
	owned, err := f.chips.CountOwned(a.ID, a.Owner)
	require.NoError(t, err)
	assert.Zero(t, owned)
}

func TestApplyWithoutUserMintInReceiptStaysApplying(t *testing.T) {
	f := newManagerFixture(t, nil)
	a := f.insertMintableAsset(t, state.StatusUnapplied)

	// receipt succeeds but carries no logs; the synchronizer will
	// deliver the confirmation later
	_, err := f.mgr.Apply(context.Background(), a.ID, a.Owner)
	require.NoError(t, err)

	status, found, err := f.statedb.GetAssetStatus(a.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, state.StatusApplying, status)
}

func TestApplyRevertedTransactionRollsBack(t *testing.T) {
	f := newManagerFixture(t, nil)
	a := f.insertMintableAsset(t, state.StatusUnapplied)

	f.client.NextReceiptStatus = types.ReceiptStatusFailed

	_, err := f.mgr.Apply(context.Background(), a.ID, a.Owner)
	assert.ErrorIs(t, err, ErrTransactionFailed)

	status, found, err := f.statedb.GetAssetStatus(a.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, state.StatusUnapplied, status)
}

func TestApplyMissingReceiptRollsBack(t *testing.T) {
	f := newManagerFixture(t, &Config{ReceiptMaxAttempts: 2})
	a := f.insertMintableAsset(t, state.StatusUnapplied)

	f.client.NextReceiptVisibleAfter = 100

	_, err := f.mgr.Apply(context.Background(), a.ID, a.Owner)
	assert.ErrorIs(t, err, nftman.ErrReceiptNotFound)

	status, _, err := f.statedb.GetAssetStatus(a.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusUnapplied, status)
}

func TestApplyNotEligible(t *testing.T) {
	f := newManagerFixture(t, nil)

	// asset without chips
	a := state.RandAsset(state.StatusUnapplied)
	require.NoError(t, f.statedb.InsertAsset(a))

	_, err := f.mgr.Apply(context.Background(), a.ID, a.Owner)
	assert.ErrorIs(t, err, ErrNotEligible)

	assert.Empty(t, f.client.SentTransactions())
}

func TestApplyUnknownAsset(t *testing.T) {
	f := newManagerFixture(t, nil)

	_, err := f.mgr.Apply(context.Background(), 404, "0xabc")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestApplyWhileApplying(t *testing.T) {
	f := newManagerFixture(t, nil)
	a := f.insertMintableAsset(t, state.StatusApplying)

	_, err := f.mgr.Apply(context.Background(), a.ID, a.Owner)
	assert.ErrorIs(t, err, state.ErrAlreadyApplying)
}

func TestWorkerConfirmsMintFromChannel(t *testing.T) {
	f := newManagerFixture(t, nil)
	a := f.insertMintableAsset(t, state.StatusApplying)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = f.mgr.Start(ctx)
	}()

	ev, err := nftman.DecodeUserMint(f.userMintLogFor(a, 9))
	require.NoError(t, err)
	ev.BlockNumber = 42
	f.mgr.GetUserMintEventChannel() <- ev

	require.Eventually(t, func() bool {
		status, _, err := f.statedb.GetAssetStatus(a.ID)
		return err == nil && status == state.StatusMinted
	}, 2*time.Second, 10*time.Millisecond)

	got, _, err := f.statedb.GetAsset(a.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), got.TokenID)
	assert.Equal(t, uint64(42), got.BlockNumber)

	// replaying the event is dropped silently
	f.mgr.GetUserMintEventChannel() <- ev
	time.Sleep(50 * time.Millisecond)

	got, _, err = f.statedb.GetAsset(a.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusMinted, got.Status)
}

func TestWorkerRecyclesChipsOnSelfPaidMint(t *testing.T) {
	f := newManagerFixture(t, nil)
	a := f.insertMintableAsset(t, state.StatusApplying)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = f.mgr.Start(ctx)
	}()

	// transfer that paid for a self-served mint carries the remark
	transfer := nftman.NewUserTransferLog(f.node.TokenAddress(),
		ethToAddr(a.Owner), common.RandEthAddress(),
		big.NewInt(500), big.NewInt(1), big.NewInt(2), "buy nft")
	ev, err := nftman.DecodeUserTransfer(transfer)
	require.NoError(t, err)
	ev.MintRemark = "MintNFT#" + strconv.FormatUint(a.ID, 10)
	f.mgr.GetUserTransferEventChannel() <- ev

	require.Eventually(t, func() bool {
		owned, err := f.chips.CountOwned(a.ID, a.Owner)
		return err == nil && owned == 0
	}, 2*time.Second, 10*time.Millisecond)
}
