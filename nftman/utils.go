package nftman

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hakulabs/mintd/common"
)

func StringToPrivateKey(hexkey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(common.Trim0xPrefix(hexkey))
}

func NewAuth(sk *ecdsa.PrivateKey, chainID *big.Int) (*bind.TransactOpts, error) {
	return bind.NewKeyedTransactorWithChainID(sk, chainID)
}
