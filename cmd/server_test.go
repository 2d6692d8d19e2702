// End to end exercise of the assembled server: http surface -> mint
// manager -> simulated node, and simulated node -> synchronizer -> mint
// manager. The stack is wired by hand because NewMintServer dials a
// real json rpc url.

package cmd

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakulabs/mintd/chips"
	"github.com/hakulabs/mintd/common"
	"github.com/hakulabs/mintd/logconfig"
	"github.com/hakulabs/mintd/mintmgr"
	"github.com/hakulabs/mintd/mintsync"
	"github.com/hakulabs/mintd/nftman"
	"github.com/hakulabs/mintd/reporter"
	"github.com/hakulabs/mintd/state"
)

const (
	testHttpIp   = "127.0.0.1"
	testHttpPort = "18731"
)

func TestMain(m *testing.M) {
	logconfig.ConfigInfoLogger()
	os.Exit(m.Run())
}

type serverFixture struct {
	client  *nftman.SimNodeClient
	node    *nftman.Nftman
	statedb *state.StateDB
	chips   *chips.SQLiteChipStorage
	mgr     *mintmgr.Manager
	reader  *reporter.HttpReader
}

func newServerFixture(t *testing.T) *serverFixture {
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

	mgr := mintmgr.New(&mintmgr.Config{ReceiptBackoff: time.Millisecond},
		node, statedb, chips.NewChipGate(statedb, chipStorage), chipStorage)

	synchronizer, err := mintsync.New(node, mgr, &mintsync.Config{
		FrequencyToCheckNewBlocks: mintsync.MinTickerDuration,
		ReceiptMaxAttempts:        2,
		ReceiptBackoff:            time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = mgr.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = synchronizer.Sync(ctx)
	}()

	http_server := reporter.NewHttpReporter(testHttpIp, testHttpPort, mgr, statedb)
	go http_server.Run()

	// give the http server time to bind
	time.Sleep(200 * time.Millisecond)

	return &serverFixture{
		client:  client,
		node:    node,
		statedb: statedb,
		chips:   chipStorage,
		mgr:     mgr,
		reader:  reporter.NewHttpReader(testHttpIp, testHttpPort),
	}
}

func (f *serverFixture) insertMintableAsset(t *testing.T, status state.MintStatus) *state.Asset {
	a := state.RandAsset(status)
	require.NoError(t, f.statedb.InsertAsset(a))
	for i := 0; i < 3; i++ {
		require.NoError(t, f.chips.AddChip(a.ID, a.Owner))
	}
	return a
}

// One fixture for all the subtests, the http port is fixed.
func TestServerEndToEnd(t *testing.T) {
	f := newServerFixture(t)

	t.Run("hello", func(t *testing.T) {
		body, err := f.reader.GetHello()
		require.NoError(t, err)
		assert.Contains(t, body, "world")
	})

	t.Run("server paid mint over http", func(t *testing.T) {
		a := f.insertMintableAsset(t, state.StatusUnapplied)

		// the auto-created receipt carries the UserMint event
		f.client.NextReceiptLogs = []types.Log{
			nftman.NewUserMintLog(f.node.NFTAddress(), big.NewInt(77),
				ethToAddr(a.Owner), strconv.FormatUint(a.ID, 10), "ipfs://QmToken77"),
		}

		raw, err := json.Marshal(map[string]string{
			"user_address": a.Owner,
			"nft_id":       strconv.FormatUint(a.ID, 10),
		})
		require.NoError(t, err)

		body, err := f.reader.PostMint(raw)
		require.NoError(t, err)
		assert.Contains(t, body, `"success":true`)
		assert.Contains(t, body, "tx_hash")

		status, err := f.reader.GetMintStatus(strconv.FormatUint(a.ID, 10))
		require.NoError(t, err)
		assert.Contains(t, status, string(state.StatusMinted))

		minted, err := f.reader.GetMinted()
		require.NoError(t, err)
		assert.Contains(t, minted, a.Owner)

		f.client.NextReceiptLogs = nil
	})

	t.Run("self paid mint picked up by synchronizer", func(t *testing.T) {
		a := f.insertMintableAsset(t, state.StatusApplying)

		height, err := f.client.BlockNumber(context.Background())
		require.NoError(t, err)

		vlog := nftman.NewUserMintLog(f.node.NFTAddress(), big.NewInt(78),
			ethToAddr(a.Owner), strconv.FormatUint(a.ID, 10), "ipfs://QmToken78")
		vlog.BlockNumber = height + 1
		vlog.TxHash = common.RandTxHash()
		f.client.AddLog(vlog)
		f.client.AdvanceBlocks(1)

		require.Eventually(t, func() bool {
			status, _, err := f.statedb.GetAssetStatus(a.ID)
			return err == nil && status == state.StatusMinted
		}, 3*time.Second, 20*time.Millisecond)

		// chips are spent once the mint is confirmed
		owned, err := f.chips.CountOwned(a.ID, a.Owner)
		require.NoError(t, err)
		assert.Zero(t, owned)
	})

	t.Run("mint failed rollback over http", func(t *testing.T) {
		a := f.insertMintableAsset(t, state.StatusApplying)

		raw, err := json.Marshal(map[string]string{
			"user_address": a.Owner,
			"nft_id":       strconv.FormatUint(a.ID, 10),
			"error":        "user rejected in wallet",
		})
		require.NoError(t, err)

		body, err := f.reader.PostMintFailed(raw)
		require.NoError(t, err)
		assert.Contains(t, body, `"success":true`)

		status, _, err := f.statedb.GetAssetStatus(a.ID)
		require.NoError(t, err)
		assert.Equal(t, state.StatusUnapplied, status)
	})
}

func ethToAddr(s string) ethcommon.Address {
	return ethcommon.HexToAddress(s)
}
