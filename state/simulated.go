package state

import (
	"database/sql"
	"math/rand"

	_ "github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/hakulabs/mintd/common"
)

func RandAsset(status MintStatus) *Asset {
	a := &Asset{
		ID:       uint64(rand.Intn(1_000_000) + 1),
		Owner:    common.LowerAddr(common.RandEthAddress().String()),
		FileName: "haku_0001.png",
		Received: true,
		Status:   status,
	}
	if status == StatusMinted {
		a.TokenID = a.ID
		a.BlockNumber = uint64(rand.Intn(10_000) + 1)
		a.TokenURL = "ipfs://QmToken"
	}
	return a
}

func GetMemoryDB() *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		logger.Fatal(err)
	}
	// every pooled connection would otherwise see its own empty in-memory db
	db.SetMaxOpenConns(1)
	return db
}
