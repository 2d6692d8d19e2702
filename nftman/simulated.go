package nftman

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var simulatedChainID = big.NewInt(1337)

// SimNodeClient is a scripted stand-in for an eth node. Receipts become
// visible only after a configurable number of polls, which is what the
// retry logic in WaitForReceipt is tested against.
type SimNodeClient struct {
	mu     sync.Mutex
	height uint64
	nonce  uint64

	logs     []types.Log
	receipts map[ethcommon.Hash]*scriptedReceipt
	sent     []*types.Transaction

	// status and logs attached to the receipt auto-created on the next
	// SendTransaction
	NextReceiptStatus       uint64
	NextReceiptLogs         []types.Log
	NextReceiptVisibleAfter uint
}

type scriptedReceipt struct {
	receipt      *types.Receipt
	visibleAfter uint
	polls        uint
}

func NewSimNodeClient() *SimNodeClient {
	return &SimNodeClient{
		height:            1,
		receipts:          make(map[ethcommon.Hash]*scriptedReceipt),
		NextReceiptStatus: types.ReceiptStatusSuccessful,
	}
}

func (c *SimNodeClient) SetHeight(height uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = height
}

func (c *SimNodeClient) AdvanceBlocks(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height += n
}

func (c *SimNodeClient) AddLog(vlog types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, vlog)
}

// ScriptReceipt makes the receipt of txHash appear after visibleAfter
// polls have returned not-found.
func (c *SimNodeClient) ScriptReceipt(txHash ethcommon.Hash, receipt *types.Receipt, visibleAfter uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	receipt.TxHash = txHash
	c.receipts[txHash] = &scriptedReceipt{receipt: receipt, visibleAfter: visibleAfter}
}

func (c *SimNodeClient) SentTransactions() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.Transaction{}, c.sent...)
}

func (c *SimNodeClient) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, nil
}

func (c *SimNodeClient) ChainID(ctx context.Context) (*big.Int, error) {
	return simulatedChainID, nil
}

func (c *SimNodeClient) TransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	entry.polls++
	if entry.polls <= entry.visibleAfter {
		return nil, ethereum.NotFound
	}
	return entry.receipt, nil
}

func (c *SimNodeClient) TransactionByHash(ctx context.Context, txHash ethcommon.Hash) (*types.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tx := range c.sent {
		if tx.Hash() == txHash {
			return tx, false, nil
		}
	}
	return nil, false, ethereum.NotFound
}

func (c *SimNodeClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res []types.Log
	for _, vlog := range c.logs {
		if q.FromBlock != nil && vlog.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && vlog.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, vlog.Address) {
			continue
		}
		res = append(res, vlog)
	}
	return res, nil
}

func (c *SimNodeClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}

func (c *SimNodeClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, tx)
	c.height++
	c.receipts[tx.Hash()] = &scriptedReceipt{
		receipt: &types.Receipt{
			Status:      c.NextReceiptStatus,
			TxHash:      tx.Hash(),
			BlockNumber: new(big.Int).SetUint64(c.height),
			Logs:        toLogPtrs(c.NextReceiptLogs, tx.Hash(), c.height),
		},
		visibleAfter: c.NextReceiptVisibleAfter,
	}
	return nil
}

func (c *SimNodeClient) CodeAt(ctx context.Context, contract ethcommon.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

func (c *SimNodeClient) PendingCodeAt(ctx context.Context, account ethcommon.Address) ([]byte, error) {
	return []byte{0x01}, nil
}

func (c *SimNodeClient) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (c *SimNodeClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// BaseFee left nil so transactors take the legacy gas price path
	return &types.Header{Number: new(big.Int).SetUint64(c.height)}, nil
}

func (c *SimNodeClient) PendingNonceAt(ctx context.Context, account ethcommon.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nonce := c.nonce
	c.nonce++
	return nonce, nil
}

func (c *SimNodeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *SimNodeClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *SimNodeClient) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 210000, nil
}

// NewUserTransferLog packs a UserTransfer log the way the token contract
// emits it.
func NewUserTransferLog(
	contract ethcommon.Address,
	from, to ethcommon.Address,
	value, timestamp, blockNumber *big.Int,
	remark string,
) types.Log {
	data, err := hakuABI.Events["UserTransfer"].Inputs.NonIndexed().Pack(value, timestamp, blockNumber, remark)
	if err != nil {
		panic(err)
	}
	return types.Log{
		Address: contract,
		Topics: []ethcommon.Hash{
			UserTransferSignatureHash,
			ethcommon.BytesToHash(from.Bytes()),
			ethcommon.BytesToHash(to.Bytes()),
		},
		Data: data,
	}
}

func NewUserMintLog(
	contract ethcommon.Address,
	tokenID *big.Int,
	user ethcommon.Address,
	remark, tokenURL string,
) types.Log {
	data, err := hakuABI.Events["UserMint"].Inputs.NonIndexed().Pack(remark, tokenURL)
	if err != nil {
		panic(err)
	}
	return types.Log{
		Address: contract,
		Topics: []ethcommon.Hash{
			UserMintSignatureHash,
			ethcommon.BigToHash(tokenID),
			ethcommon.BytesToHash(user.Bytes()),
		},
		Data: data,
	}
}

func NewNFTMintedLog(
	contract ethcommon.Address,
	from, to ethcommon.Address,
	value, tokenID *big.Int,
	remark string,
) types.Log {
	data, err := hakuABI.Events["HakuNFTMint"].Inputs.NonIndexed().Pack(value, remark)
	if err != nil {
		panic(err)
	}
	return types.Log{
		Address: contract,
		Topics: []ethcommon.Hash{
			NFTMintedSignatureHash,
			ethcommon.BytesToHash(from.Bytes()),
			ethcommon.BytesToHash(to.Bytes()),
			ethcommon.BigToHash(tokenID),
		},
		Data: data,
	}
}

func containsAddress(addrs []ethcommon.Address, addr ethcommon.Address) bool {
	for _, a := range addrs {
		if a == addr {
			return true
		}
	}
	return false
}

func toLogPtrs(logs []types.Log, txHash ethcommon.Hash, blockNumber uint64) []*types.Log {
	res := make([]*types.Log, 0, len(logs))
	for i := range logs {
		vlog := logs[i]
		vlog.TxHash = txHash
		vlog.BlockNumber = blockNumber
		res = append(res, &vlog)
	}
	return res
}
