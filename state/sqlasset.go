package state

import (
	"database/sql"

	"github.com/hakulabs/mintd/common"
)

type sqlAsset struct {
	ID          uint64
	Owner       string
	FileName    string
	Received    bool
	Status      string
	TokenID     sql.NullInt64
	BlockNumber sql.NullInt64
	TokenURL    sql.NullString
}

func (s *sqlAsset) encode(a *Asset) *sqlAsset {
	s.ID = a.ID
	s.Owner = common.LowerAddr(a.Owner)
	s.FileName = a.FileName
	s.Received = a.Received
	s.Status = string(a.Status)
	if a.Status == StatusMinted {
		s.TokenID = sql.NullInt64{Int64: int64(a.TokenID), Valid: true}
		s.BlockNumber = sql.NullInt64{Int64: int64(a.BlockNumber), Valid: true}
		s.TokenURL = sql.NullString{String: a.TokenURL, Valid: true}
	}
	return s
}

func (s *sqlAsset) decode() *Asset {
	a := &Asset{
		ID:       s.ID,
		Owner:    s.Owner,
		FileName: s.FileName,
		Received: s.Received,
		Status:   MintStatus(s.Status),
	}
	if s.TokenID.Valid {
		a.TokenID = uint64(s.TokenID.Int64)
	}
	if s.BlockNumber.Valid {
		a.BlockNumber = uint64(s.BlockNumber.Int64)
	}
	if s.TokenURL.Valid {
		a.TokenURL = s.TokenURL.String
	}
	return a
}
