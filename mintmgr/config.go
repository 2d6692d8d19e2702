package mintmgr

import "time"

const (
	DefaultApplyTimeout       = 15 * time.Second
	DefaultReceiptMaxAttempts = 5
	DefaultReceiptBackoff     = 500 * time.Millisecond
	DefaultChannelSize        = 64
)

type Config struct {
	// Number of receipt polls before the fetch is given up
	ReceiptMaxAttempts uint

	// Base wait between receipt polls; the actual wait grows linearly
	// with the attempt number
	ReceiptBackoff time.Duration

	// Confirmation depth required before a receipt counts
	MinConfirmations uint64

	// Overall deadline of one Apply call, safeMint send included
	ApplyTimeout time.Duration

	// Buffer size of the event channels fed by the synchronizer
	ChannelSize int
}

func (cfg *Config) withDefaults() *Config {
	out := *cfg
	if out.ReceiptMaxAttempts == 0 {
		out.ReceiptMaxAttempts = DefaultReceiptMaxAttempts
	}
	if out.ReceiptBackoff == 0 {
		out.ReceiptBackoff = DefaultReceiptBackoff
	}
	if out.ApplyTimeout == 0 {
		out.ApplyTimeout = DefaultApplyTimeout
	}
	if out.ChannelSize == 0 {
		out.ChannelSize = DefaultChannelSize
	}
	return &out
}
