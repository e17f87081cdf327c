package pagination

import (
	"github.com/canopy-network/addrhistory/pkg/hypersync"
)

// BuildQuery translates a page request into a bounded block-range query. Exactly one
// bound comes from the cursor: the lower one when ascending, the upper one when
// descending. The other stays at the natural end of the chain (0 or unbounded).
func BuildQuery[R Record](kind Kind[R], req Request) hypersync.Query {
	q := hypersync.Query{FieldSelection: kind.Fields}
	if req.Sort == SortDesc {
		if req.Cursor != nil {
			to := *req.Cursor
			q.ToBlock = &to
		}
	} else if req.Cursor != nil {
		q.FromBlock = *req.Cursor
	}
	kind.Filter(&q, req.Address, uint64(req.Limit))
	return q
}

// StreamConfigFor returns the stream direction and record hint of req.
func StreamConfigFor[R Record](kind Kind[R], req Request) hypersync.StreamConfig {
	cfg := hypersync.StreamConfig{Reverse: req.Sort == SortDesc}
	kind.Hint(&cfg, uint64(req.Limit))
	return cfg
}
