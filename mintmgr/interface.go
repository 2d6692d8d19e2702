package mintmgr

import (
	"context"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// NodeBackend is the slice of the node gateway the manager needs.
// Satisfied by nftman.Nftman.
type NodeBackend interface {
	SafeMint(ctx context.Context, to ethcommon.Address, tokenID string, param *big.Int) (*types.Transaction, error)
	WaitForReceipt(ctx context.Context, txHash ethcommon.Hash, maxAttempts uint, backoffBase time.Duration, minConfirmations uint64) (*types.Receipt, error)
	TokenAddress() ethcommon.Address
	NFTAddress() ethcommon.Address
}

// ChipRecycler spends the chips backing a confirmed mint. Satisfied by
// chips.SQLiteChipStorage.
type ChipRecycler interface {
	RecycleForMint(assetID uint64, owner string) (int64, error)
}
