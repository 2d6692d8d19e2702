package nftman

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// Events
	UserTransferSignatureHash = crypto.Keccak256Hash([]byte("UserTransfer(address,address,uint256,uint256,uint256,string)"))
	UserMintSignatureHash     = crypto.Keccak256Hash([]byte("UserMint(uint256,address,string,string)"))
	NFTMintedSignatureHash    = crypto.Keccak256Hash([]byte("HakuNFTMint(address,address,uint256,uint256,string)"))

	ErrTooFewTopics = errors.New("log has fewer topics than the event requires")
)

// Event ABI of the two watched contracts. Only the events the server
// decodes are listed.
const hakuEventsABI = `[
	{
		"type": "event", "name": "UserTransfer", "anonymous": false,
		"inputs": [
			{"name": "from", "type": "address", "indexed": true},
			{"name": "to", "type": "address", "indexed": true},
			{"name": "value", "type": "uint256", "indexed": false},
			{"name": "timestamp", "type": "uint256", "indexed": false},
			{"name": "blockNumber", "type": "uint256", "indexed": false},
			{"name": "remark", "type": "string", "indexed": false}
		]
	},
	{
		"type": "event", "name": "UserMint", "anonymous": false,
		"inputs": [
			{"name": "tokenId", "type": "uint256", "indexed": true},
			{"name": "user", "type": "address", "indexed": true},
			{"name": "remark", "type": "string", "indexed": false},
			{"name": "tokenUrl", "type": "string", "indexed": false}
		]
	},
	{
		"type": "event", "name": "HakuNFTMint", "anonymous": false,
		"inputs": [
			{"name": "from", "type": "address", "indexed": true},
			{"name": "to", "type": "address", "indexed": true},
			{"name": "value", "type": "uint256", "indexed": false},
			{"name": "tokenId", "type": "uint256", "indexed": true},
			{"name": "remark", "type": "string", "indexed": false}
		]
	}
]`

var hakuABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(hakuEventsABI))
	if err != nil {
		panic(err)
	}
	hakuABI = parsed
}

// UserTransfer is emitted by the token contract on every transfer.
type UserTransferEvent struct {
	From        ethcommon.Address
	To          ethcommon.Address
	Value       *big.Int
	Timestamp   *big.Int
	BlockNumber *big.Int
	Remark      string
	TxHash      ethcommon.Hash

	// Remark of the HakuNFTMint event found in the same receipt, empty
	// for a plain transfer. Filled by the correlator, not the decoder.
	MintRemark string
}

// HakuNFTMint is emitted by the NFT contract inside the safeMint
// transaction, alongside the token transfer that pays for it.
type NFTMintedEvent struct {
	From    ethcommon.Address
	To      ethcommon.Address
	Value   *big.Int
	TokenId *big.Int
	Remark  string
	TxHash  ethcommon.Hash
}

// UserMint is emitted by the NFT contract once the mint itself succeeded.
type UserMintEvent struct {
	TokenId     *big.Int
	User        ethcommon.Address
	Remark      string
	TokenUrl    string
	BlockNumber uint64
	TxHash      ethcommon.Hash
}

func DecodeUserTransfer(vlog types.Log) (*UserTransferEvent, error) {
	if len(vlog.Topics) < 3 {
		return nil, ErrTooFewTopics
	}

	ev := new(UserTransferEvent)
	if err := hakuABI.UnpackIntoInterface(ev, "UserTransfer", vlog.Data); err != nil {
		return nil, err
	}
	ev.From = ethcommon.BytesToAddress(vlog.Topics[1].Bytes())
	ev.To = ethcommon.BytesToAddress(vlog.Topics[2].Bytes())
	ev.TxHash = vlog.TxHash

	return ev, nil
}

func DecodeNFTMinted(vlog types.Log) (*NFTMintedEvent, error) {
	if len(vlog.Topics) < 4 {
		return nil, ErrTooFewTopics
	}

	ev := new(NFTMintedEvent)
	if err := hakuABI.UnpackIntoInterface(ev, "HakuNFTMint", vlog.Data); err != nil {
		return nil, err
	}
	ev.From = ethcommon.BytesToAddress(vlog.Topics[1].Bytes())
	ev.To = ethcommon.BytesToAddress(vlog.Topics[2].Bytes())
	ev.TokenId = new(big.Int).SetBytes(vlog.Topics[3].Bytes())
	ev.TxHash = vlog.TxHash

	return ev, nil
}

func DecodeUserMint(vlog types.Log) (*UserMintEvent, error) {
	if len(vlog.Topics) < 3 {
		return nil, ErrTooFewTopics
	}

	ev := new(UserMintEvent)
	if err := hakuABI.UnpackIntoInterface(ev, "UserMint", vlog.Data); err != nil {
		return nil, err
	}
	ev.TokenId = new(big.Int).SetBytes(vlog.Topics[1].Bytes())
	ev.User = ethcommon.BytesToAddress(vlog.Topics[2].Bytes())
	ev.BlockNumber = vlog.BlockNumber
	ev.TxHash = vlog.TxHash

	return ev, nil
}
