package nftman

type Config struct {
	// json rpc url of the eth node
	URL string
	// HakuToken ERC20 contract (emits UserTransfer)
	TokenContractAddress string
	// HakuNFT contract (emits UserMint / HakuNFTMint, receives safeMint calls)
	NFTContractAddress string
}
