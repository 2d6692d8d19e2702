// Mint server = chain-side components + db/state + http reporter.
// All components are configured via environment variables (strings!).

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	logger "github.com/sirupsen/logrus"

	"github.com/hakulabs/mintd/chips"
	"github.com/hakulabs/mintd/mintmgr"
	"github.com/hakulabs/mintd/mintsync"
	"github.com/hakulabs/mintd/nftman"
	"github.com/hakulabs/mintd/reporter"
	"github.com/hakulabs/mintd/state"
)

// Default params for server.
// More often we don't recommend users to tweak those.
// So we list them here.
const (
	// synchronizer config
	frequencyToCheckNewBlocks = 5 * time.Second

	// receipt fetch config, shared by manager and synchronizer
	receiptMaxAttempts = 10
	receiptBackoff     = 1 * time.Second
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type MintServerConfig struct {
	// eth side
	EthRpcUrl         string // json rpc url
	MinterAccountPriv string // private key of the server controlled minting account
	TokenContractAddr string // HakuToken ERC20 contract address
	NFTContractAddr   string // HakuNFT contract address
	StartBlock        uint64 // first block the synchronizer scans, 0 = current head

	// state side
	DbFilePath string // db file path

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// MintServer holds the objects that consists of the mint server.
type MintServer struct {
	// Chain side
	MyNode *nftman.Nftman
	MySync *mintsync.Synchronizer

	// State side
	MyStateDb     *state.StateDB
	MyChipStorage *chips.SQLiteChipStorage
	MyChipGate    *chips.ChipGate

	// Mint life cycle
	MyManager *mintmgr.Manager
}

// NewMintServer creates a new mint server.
// ctx is used for parental context to cancel the operation of the server.
// wg is used to wait for all the goroutines inside the server (manager, synchronizer) to finish.
func NewMintServer(msc *MintServerConfig, ctx context.Context, wg *sync.WaitGroup) (*MintServer, error) {
	// 0) connect to the eth node
	ethClient, err := ethclient.Dial(msc.EthRpcUrl)
	if err != nil {
		logger.Fatalf("cannot connect to eth rpc server %s: %v", msc.EthRpcUrl, err)
		return nil, err
	}

	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		logger.Fatalf("cannot fetch chain id from %s: %v", msc.EthRpcUrl, err)
		return nil, err
	}

	// 1) the minting account controlled by the server
	minterPriv, err := nftman.StringToPrivateKey(msc.MinterAccountPriv)
	if err != nil {
		logger.Fatalf("failed to create minter account controlled by server: %v", err)
		return nil, err
	}
	auth, err := nftman.NewAuth(minterPriv, chainID)
	if err != nil {
		logger.Fatalf("failed to create transactor: %v", err)
		return nil, err
	}

	// 2) Create the Nftman instance over the watched contracts.
	myNode, err := nftman.NewNftmanWithClient(
		ethClient,
		ethcommon.HexToAddress(msc.TokenContractAddr),
		ethcommon.HexToAddress(msc.NFTContractAddr),
		auth,
	)
	if err != nil {
		logger.Fatalf("failed to create nftman: %v", err)
		return nil, err
	}
	logger.WithField("address", myNode.TokenAddress().Hex()).Info("HakuToken contract address")
	logger.WithField("address", myNode.NFTAddress().Hex()).Info("HakuNFT contract address")

	// Create sql db, and related state_db, chip storage.
	sqldb, err := sql.Open("sqlite3", msc.DbFilePath)
	if err != nil {
		logger.Fatalf("failed to open db file: %v", err)
		return nil, err
	}

	// state_db
	myStateDb, err := state.NewStateDB(sqldb)
	if err != nil {
		logger.Fatalf("failed to create state db: %v", err)
		return nil, err
	}

	// chip storage + eligibility gate
	myChipStorage, err := chips.NewSQLiteChipStorage(sqldb)
	if err != nil {
		logger.Fatalf("failed to create chip storage: %v", err)
		return nil, err
	}
	myChipGate := chips.NewChipGate(myStateDb, myChipStorage)

	// mint manager
	myManager := mintmgr.New(
		&mintmgr.Config{
			ReceiptMaxAttempts: receiptMaxAttempts,
			ReceiptBackoff:     receiptBackoff,
		},
		myNode,
		myStateDb,
		myChipGate,
		myChipStorage,
	)

	// synchronizer, feeds the manager's channels
	mySynchronizer, err := mintsync.New(
		myNode,
		myManager,
		&mintsync.Config{
			FrequencyToCheckNewBlocks: frequencyToCheckNewBlocks,
			StartBlock:                msc.StartBlock,
			ReceiptMaxAttempts:        receiptMaxAttempts,
			ReceiptBackoff:            receiptBackoff,
		},
	)
	if err != nil {
		logger.Fatalf("failed to create synchronizer: %v", err)
		return nil, err
	}

	// Important: Turn on the chain-side components!
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := myManager.Start(ctx) // mint manager worker
		if err != nil {
			logger.Fatalf("failed to start mint manager: %v", err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := mySynchronizer.Sync(ctx) // chain synchronizer
		if err != nil {
			logger.Fatalf("failed to sync chain: %v", err)
		}
	}()
	// Don't forget to call wg.Wait() in the main routine.

	// *** Setup a http server to report status ***
	http_server := reporter.NewHttpReporter(
		msc.HttpIp,
		msc.HttpPort,
		myManager,
		myStateDb,
	)
	// Turn on the http server
	go http_server.Run()

	// Give it some time to start the http server
	time.Sleep(1 * time.Second)
	// *** End the setup of http server ***

	return &MintServer{
		MyNode:        myNode,
		MySync:        mySynchronizer,
		MyStateDb:     myStateDb,
		MyChipStorage: myChipStorage,
		MyChipGate:    myChipGate,
		MyManager:     myManager,
	}, nil
}

// Create, then start the mint server and wait.
// It contains a prepared mint server and context + waitgroup.
// Press Ctrl-C to kill the server.
func StartMintServerAndWait(msc *MintServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Launch a new goroutine to handle the signal
	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	_, err := NewMintServer(msc, ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to create mint server: %v", err)
		return
	}

	// wait for all routines to finish (which is forever)
	wg.Wait()
}
