package state

import (
	"database/sql"

	"github.com/hakulabs/mintd/common"
	"github.com/hakulabs/mintd/database"
)

const assetParamList = " id, owner, fileName, received, status, tokenId, blockNumber, tokenUrl "

type StateDB struct {
	stmtCache *database.StmtCache
}

func NewStateDB(db *sql.DB) (*StateDB, error) {
	// 1. Create the tables.
	if _, err := db.Exec(assetTable); err != nil {
		return nil, err
	}

	// 2. A stmt cache + db.
	return &StateDB{
		stmtCache: database.NewStmtCache(db),
	}, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

func (st *StateDB) InsertAsset(a *Asset) error {
	query := `INSERT INTO assets (` + assetParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}

	s := new(sqlAsset).encode(a)
	_, err = stmt.Exec(s.ID, s.Owner, s.FileName, s.Received, s.Status,
		s.TokenID, s.BlockNumber, s.TokenURL)
	return err
}

func (st *StateDB) GetAsset(id uint64) (*Asset, bool, error) {
	query := `SELECT` + assetParamList + `FROM assets WHERE id = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}

	var s sqlAsset
	if err := stmt.QueryRow(id).Scan(&s.ID, &s.Owner, &s.FileName, &s.Received,
		&s.Status, &s.TokenID, &s.BlockNumber, &s.TokenURL); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	return s.decode(), true, nil
}

func (st *StateDB) GetAssetStatus(id uint64) (MintStatus, bool, error) {
	query := `SELECT status FROM assets WHERE id = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return "", false, err
	}

	var status string
	if err := stmt.QueryRow(id).Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}

	return MintStatus(status), true, nil
}

// CompareAndSetStatus moves the asset from the expected status to the
// next one in a single conditional UPDATE scoped by id, lowercased owner
// and expected status. It returns false when the row did not match, which
// is how every caller detects a lost race. There is no read before the
// write.
func (st *StateDB) CompareAndSetStatus(
	id uint64,
	owner string,
	expected, next MintStatus,
	outcome *MintOutcome,
) (bool, error) {
	var (
		query string
		args  []interface{}
	)
	if outcome != nil {
		query = `UPDATE assets SET status = ?, tokenId = ?, blockNumber = ?, tokenUrl = ?
			WHERE id = ? AND LOWER(owner) = ? AND status = ?`
		args = []interface{}{string(next), outcome.TokenID, outcome.BlockNumber,
			outcome.TokenURL, id, common.LowerAddr(owner), string(expected)}
	} else {
		query = `UPDATE assets SET status = ? WHERE id = ? AND LOWER(owner) = ? AND status = ?`
		args = []interface{}{string(next), id, common.LowerAddr(owner), string(expected)}
	}

	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return false, err
	}

	res, err := stmt.Exec(args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// GetMintedAssets returns the most recently minted assets, newest block
// first.
func (st *StateDB) GetMintedAssets(limit int) ([]*Asset, error) {
	query := `SELECT` + assetParamList + `FROM assets
		WHERE status = 'minted' ORDER BY blockNumber DESC LIMIT ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		var s sqlAsset
		if err := rows.Scan(&s.ID, &s.Owner, &s.FileName, &s.Received,
			&s.Status, &s.TokenID, &s.BlockNumber, &s.TokenURL); err != nil {
			return nil, err
		}
		assets = append(assets, s.decode())
	}

	return assets, rows.Err()
}
