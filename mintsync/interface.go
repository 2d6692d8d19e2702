package mintsync

import (
	"github.com/hakulabs/mintd/nftman"
)

// Sink receives the decoded events the synchronizer extracts from the
// chain. The mint manager implements it.
type Sink interface {
	GetUserTransferEventChannel() chan<- *nftman.UserTransferEvent
	GetUserMintEventChannel() chan<- *nftman.UserMintEvent
	GetNFTMintedEventChannel() chan<- *nftman.NFTMintedEvent
}
