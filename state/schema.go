package state

// table that stores the life cycle of an asset
var assetTable = `CREATE TABLE IF NOT EXISTS assets (
	id BIGINT UNSIGNED PRIMARY KEY NOT NULL,
	owner CHAR(42) NOT NULL,
	fileName VARCHAR(255) NOT NULL DEFAULT '',
	received BOOLEAN NOT NULL DEFAULT 0,
	status VARCHAR(10) NOT NULL,
	tokenId BIGINT UNSIGNED,
	blockNumber BIGINT UNSIGNED,
	tokenUrl TEXT,
	CONSTRAINT chk_status CHECK (status IN ('unapplied', 'applying', 'minted')),
	CONSTRAINT chk_owner CHECK (owner != '')
);`
