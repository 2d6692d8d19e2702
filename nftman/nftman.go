package nftman

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ABI of the only function the server calls on the NFT contract.
// Signature: safeMint(address to, string tokenId, uint256 param)
const safeMintABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "string", "name": "tokenId", "type": "string"},
			{"internalType": "uint256", "name": "param", "type": "uint256"}
		],
		"name": "safeMint",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

type ethereumClient interface {
	ethereum.TransactionReader
	ethereum.LogFilterer

	bind.ContractBackend

	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

type Nftman struct {
	ethClient    ethereumClient
	tokenAddress ethcommon.Address
	nftAddress   ethcommon.Address
	nftContract  *bind.BoundContract
	auth         *bind.TransactOpts
}

func NewNftman(cfg *Config, auth *bind.TransactOpts) (*Nftman, error) {
	ethClient, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	return newNftman(
		ethClient,
		ethcommon.HexToAddress(cfg.TokenContractAddress),
		ethcommon.HexToAddress(cfg.NFTContractAddress),
		auth,
	)
}

// NewNftmanWithClient wires a pre-built client, e.g. the scripted node in
// simulated.go.
func NewNftmanWithClient(
	client ethereumClient,
	tokenAddress, nftAddress ethcommon.Address,
	auth *bind.TransactOpts,
) (*Nftman, error) {
	return newNftman(client, tokenAddress, nftAddress, auth)
}

func newNftman(
	client ethereumClient,
	tokenAddress, nftAddress ethcommon.Address,
	auth *bind.TransactOpts,
) (*Nftman, error) {
	parsed, err := abi.JSON(strings.NewReader(safeMintABI))
	if err != nil {
		return nil, err
	}

	return &Nftman{
		ethClient:    client,
		tokenAddress: tokenAddress,
		nftAddress:   nftAddress,
		nftContract:  bind.NewBoundContract(nftAddress, parsed, client, client, client),
		auth:         auth,
	}, nil
}

// WatchAddresses returns the contract addresses whose logs the
// synchronizer filters on.
func (n *Nftman) WatchAddresses() []ethcommon.Address {
	return []ethcommon.Address{n.tokenAddress, n.nftAddress}
}

func (n *Nftman) TokenAddress() ethcommon.Address {
	return n.tokenAddress
}

func (n *Nftman) NFTAddress() ethcommon.Address {
	return n.nftAddress
}

func (n *Nftman) BlockNumber(ctx context.Context) (uint64, error) {
	return n.ethClient.BlockNumber(ctx)
}

// FilterLogs fetches all logs of the watched contracts in [fromBlock, toBlock].
func (n *Nftman) FilterLogs(ctx context.Context, fromBlock, toBlock *big.Int) ([]types.Log, error) {
	return n.ethClient.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: n.WatchAddresses(),
	})
}

// SafeMint sends the safeMint transaction for the given asset. tokenID is
// the asset id as a decimal string; param is the on-chain uint256 argument
// derived from the asset's file name.
func (n *Nftman) SafeMint(
	ctx context.Context,
	to ethcommon.Address,
	tokenID string,
	param *big.Int,
) (*types.Transaction, error) {
	opts := *n.auth
	opts.Context = ctx

	return n.nftContract.Transact(&opts, "safeMint", to, tokenID, param)
}
