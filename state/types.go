package state

// MintStatus is the life cycle stage of an asset. The only legal edges
// are unapplied -> applying, applying -> minted and applying -> unapplied.
type MintStatus string

const (
	StatusUnapplied MintStatus = "unapplied"
	StatusApplying  MintStatus = "applying"
	StatusMinted    MintStatus = "minted"
)

// Asset is the off-chain record of one NFT.
type Asset struct {
	ID       uint64
	Owner    string // hex address, stored lowercase
	FileName string
	Received bool
	Status   MintStatus

	// set once the mint is confirmed on chain
	TokenID     uint64
	BlockNumber uint64
	TokenURL    string
}

// MintOutcome carries the on-chain result recorded when an asset moves
// to minted.
type MintOutcome struct {
	TokenID     uint64
	BlockNumber uint64
	TokenURL    string
}

// EligibilityGate decides whether an owner may apply for the mint of an
// asset. Implemented by the chips package.
type EligibilityGate interface {
	IsEligible(assetID uint64, owner string) (bool, error)
}
