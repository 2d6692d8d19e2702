package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateDB(t *testing.T) *StateDB {
	db := GetMemoryDB()
	st, err := NewStateDB(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Close()
		db.Close()
	})
	return st
}

func TestInsertAndGetAsset(t *testing.T) {
	st := newTestStateDB(t)

	a := RandAsset(StatusUnapplied)
	require.NoError(t, st.InsertAsset(a))

	got, found, err := st.GetAsset(a.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Owner, got.Owner)
	assert.Equal(t, a.FileName, got.FileName)
	assert.True(t, got.Received)
	assert.Equal(t, StatusUnapplied, got.Status)
	assert.Zero(t, got.TokenID)
	assert.Empty(t, got.TokenURL)
}

func TestGetAssetNotFound(t *testing.T) {
	st := newTestStateDB(t)

	_, found, err := st.GetAsset(404)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = st.GetAssetStatus(404)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOwnerStoredLowercase(t *testing.T) {
	st := newTestStateDB(t)

	a := RandAsset(StatusUnapplied)
	a.Owner = strings.ToUpper(a.Owner)
	require.NoError(t, st.InsertAsset(a))

	got, found, err := st.GetAsset(a.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, strings.ToLower(a.Owner), got.Owner)
}

func TestCompareAndSetStatus(t *testing.T) {
	st := newTestStateDB(t)

	a := RandAsset(StatusUnapplied)
	require.NoError(t, st.InsertAsset(a))

	// wrong expected status
	ok, err := st.CompareAndSetStatus(a.ID, a.Owner, StatusApplying, StatusMinted, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// wrong owner
	ok, err = st.CompareAndSetStatus(a.ID, "0x0000000000000000000000000000000000000001",
		StatusUnapplied, StatusApplying, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// owner compared case-insensitively
	ok, err = st.CompareAndSetStatus(a.ID, strings.ToUpper(a.Owner),
		StatusUnapplied, StatusApplying, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	status, found, err := st.GetAssetStatus(a.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusApplying, status)
}

func TestCompareAndSetStatusWithOutcome(t *testing.T) {
	st := newTestStateDB(t)

	a := RandAsset(StatusApplying)
	require.NoError(t, st.InsertAsset(a))

	ok, err := st.CompareAndSetStatus(a.ID, a.Owner, StatusApplying, StatusMinted,
		&MintOutcome{TokenID: 12, BlockNumber: 99, TokenURL: "ipfs://QmToken12"})
	require.NoError(t, err)
	require.True(t, ok)

	got, found, err := st.GetAsset(a.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusMinted, got.Status)
	assert.Equal(t, uint64(12), got.TokenID)
	assert.Equal(t, uint64(99), got.BlockNumber)
	assert.Equal(t, "ipfs://QmToken12", got.TokenURL)
}

func TestGetMintedAssets(t *testing.T) {
	st := newTestStateDB(t)

	older := RandAsset(StatusMinted)
	older.ID = 1
	older.BlockNumber = 10
	newer := RandAsset(StatusMinted)
	newer.ID = 2
	newer.BlockNumber = 20
	pending := RandAsset(StatusApplying)
	pending.ID = 3

	for _, a := range []*Asset{older, newer, pending} {
		require.NoError(t, st.InsertAsset(a))
	}

	minted, err := st.GetMintedAssets(10)
	require.NoError(t, err)
	require.Len(t, minted, 2)
	assert.Equal(t, newer.ID, minted[0].ID)
	assert.Equal(t, older.ID, minted[1].ID)

	minted, err = st.GetMintedAssets(1)
	require.NoError(t, err)
	require.Len(t, minted, 1)
	assert.Equal(t, newer.ID, minted[0].ID)
}

func TestSchemaRejectsUnknownStatus(t *testing.T) {
	db := GetMemoryDB()
	defer db.Close()
	_, err := NewStateDB(db)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO assets (id, owner, status) VALUES (1, '0xabc', 'bogus')`)
	assert.Error(t, err)
}
