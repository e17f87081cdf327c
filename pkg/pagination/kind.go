package pagination

import (
	"github.com/canopy-network/addrhistory/pkg/hypersync"
	"github.com/ethereum/go-ethereum/common"
)

// Record is a normalized record positioned at a block.
type Record interface {
	Block() uint64
}

// Kind is the capability set that specialises the engine to one record kind:
// how to filter by address, which fields to select, how to hint the stream and
// how to map a batch into normalized records.
type Kind[R Record] struct {
	Name   string
	Fields hypersync.FieldSelection
	// Filter adds the address predicates and the result cap to q.
	Filter func(q *hypersync.Query, address common.Address, limit uint64)
	// Hint sets the per-kind record hint of the stream.
	Hint func(cfg *hypersync.StreamConfig, limit uint64)
	// Records maps the kind's raw records of b, in stream order.
	Records func(b *hypersync.Batch, ts Timestamps) ([]R, error)
}
