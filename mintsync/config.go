package mintsync

import "time"

type Config struct {
	// how often the chain head is checked for new blocks
	FrequencyToCheckNewBlocks time.Duration

	// first block to scan; 0 means start from the current head
	StartBlock uint64

	// receipt fetch parameters used while correlating transfer events
	ReceiptMaxAttempts uint
	ReceiptBackoff     time.Duration
}
