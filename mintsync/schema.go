package mintsync

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/hakulabs/mintd/nftman"
)

type EventKind int

const (
	KindUserTransfer EventKind = iota
	KindUserMint
	KindNFTMinted
)

// EventSchema binds an emitting contract and a topic0 hash to the event
// kind decoded from matching logs. Logs matching no schema are ignored.
type EventSchema struct {
	Address ethcommon.Address
	Topic0  ethcommon.Hash
	Kind    EventKind
}

func DefaultSchemas(tokenAddress, nftAddress ethcommon.Address) []EventSchema {
	return []EventSchema{
		{Address: tokenAddress, Topic0: nftman.UserTransferSignatureHash, Kind: KindUserTransfer},
		{Address: nftAddress, Topic0: nftman.UserMintSignatureHash, Kind: KindUserMint},
		{Address: nftAddress, Topic0: nftman.NFTMintedSignatureHash, Kind: KindNFTMinted},
	}
}

func matchSchema(schemas []EventSchema, vlog types.Log) (EventSchema, bool) {
	if len(vlog.Topics) == 0 {
		return EventSchema{}, false
	}
	for _, schema := range schemas {
		if schema.Address == vlog.Address && schema.Topic0 == vlog.Topics[0] {
			return schema, true
		}
	}
	return EventSchema{}, false
}
