/*
SQLiteChipStorage tracks the chips of each NFT and who owns them.

A user collects chips of an NFT by buying them with the token; once the
user holds every chip the NFT becomes mintable. Minting recycles the
chips so they cannot back a second mint.
*/
package chips

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hakulabs/mintd/common"
)

type SQLiteChipStorage struct {
	db *sql.DB
}

func NewSQLiteChipStorage(db *sql.DB) (*SQLiteChipStorage, error) {
	storage := &SQLiteChipStorage{db: db}
	if err := storage.init(); err != nil {
		return nil, err
	}
	return storage, nil
}

func (s *SQLiteChipStorage) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS chips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id INTEGER NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		recycled BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_chips_asset_id ON chips(asset_id);
	CREATE INDEX IF NOT EXISTS idx_chips_owner ON chips(owner);
	`
	_, err := s.db.Exec(query)
	return err
}

// AddChip registers one chip of an asset. An empty owner means the chip
// has not been sold yet.
func (s *SQLiteChipStorage) AddChip(assetID uint64, owner string) error {
	if owner != "" {
		owner = common.LowerAddr(owner)
	}
	query := `INSERT INTO chips (asset_id, owner) VALUES (?, ?)`
	_, err := s.db.Exec(query, assetID, owner)
	return err
}

// SetChipOwner records a chip changing hands. Recycled chips are off the
// market.
func (s *SQLiteChipStorage) SetChipOwner(chipID uint64, owner string) error {
	query := `UPDATE chips SET owner = ? WHERE id = ? AND recycled = 0`
	_, err := s.db.Exec(query, common.LowerAddr(owner), chipID)
	return err
}

// CountByAsset returns the number of live chips of the asset.
func (s *SQLiteChipStorage) CountByAsset(assetID uint64) (int, error) {
	query := `SELECT COUNT(*) FROM chips WHERE asset_id = ? AND recycled = 0`
	var n int
	if err := s.db.QueryRow(query, assetID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountOwned returns how many live chips of the asset the owner holds.
func (s *SQLiteChipStorage) CountOwned(assetID uint64, owner string) (int, error) {
	query := `SELECT COUNT(*) FROM chips WHERE asset_id = ? AND LOWER(owner) = ? AND recycled = 0`
	var n int
	if err := s.db.QueryRow(query, assetID, common.LowerAddr(owner)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// RecycleForMint marks the owner's chips of the asset as spent. Called
// once the mint is confirmed on chain.
func (s *SQLiteChipStorage) RecycleForMint(assetID uint64, owner string) (int64, error) {
	query := `UPDATE chips SET recycled = 1 WHERE asset_id = ? AND LOWER(owner) = ? AND recycled = 0`
	res, err := s.db.Exec(query, assetID, common.LowerAddr(owner))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
