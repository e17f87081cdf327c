package pagination

import (
	"github.com/canopy-network/addrhistory/pkg/hypersync"
)

// Timestamps maps block number to block timestamp in seconds, for one batch only.
type Timestamps map[uint64]uint64

// JoinTimestamps indexes the blocks shipped with a batch. Blocks without a number
// are ignored; a block without a timestamp maps to zero.
func JoinTimestamps(blocks []hypersync.Block) Timestamps {
	ts := make(Timestamps, len(blocks))
	for _, b := range blocks {
		if b.Number == nil {
			continue
		}
		n, ok := b.Number.Uint64()
		if !ok {
			continue
		}
		var sec uint64
		if b.Timestamp != nil {
			sec, _ = b.Timestamp.Uint64()
		}
		ts[n] = sec
	}
	return ts
}

// Millis returns the block's timestamp in milliseconds, or 0 when the batch did
// not ship that block.
func (t Timestamps) Millis(block uint64) uint64 {
	return t[block] * 1000
}
