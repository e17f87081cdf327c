package pagination

import (
	"context"
	"fmt"

	"github.com/canopy-network/addrhistory/pkg/hypersync"
)

// Batches is a pull-based stream of indexer batches. Recv returns nil, nil when
// the stream is exhausted. Close releases the stream without draining it.
type Batches interface {
	Recv(ctx context.Context) (*hypersync.Batch, error)
	Close()
}

// Consumption is what a consumer accumulated before it stopped.
type Consumption[R Record] struct {
	Records []R
	// Height is the archive height of the last batch that reported one.
	Height  *uint64
	Batches int
}

// Consume pulls batches until limit records are collected or the stream ends.
// Records past limit in the final batch are discarded. The stream is always
// closed on return, including when the page filled before exhaustion.
func Consume[R Record](ctx context.Context, batches Batches, kind Kind[R], limit int) (*Consumption[R], error) {
	defer batches.Close()

	out := &Consumption[R]{Records: make([]R, 0, max(limit, 0))}
	for len(out.Records) < limit {
		b, err := batches.Recv(ctx)
		if err != nil {
			return nil, fmt.Errorf("receive batch %d: %w", out.Batches+1, err)
		}
		if b == nil {
			// a stream that ends under a cancelled ctx was cut short
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("receive batch %d: %w", out.Batches+1, err)
			}
			break
		}
		out.Batches++

		records, err := kind.Records(b, JoinTimestamps(b.Blocks))
		if err != nil {
			return nil, fmt.Errorf("map batch %d: %w", out.Batches, err)
		}
		if room := limit - len(out.Records); len(records) > room {
			records = records[:room]
		}
		out.Records = append(out.Records, records...)

		// every batch overwrites the height; a missing or zero height reads as unknown
		out.Height = nil
		if b.ArchiveHeight != nil && *b.ArchiveHeight > 0 {
			h := *b.ArchiveHeight
			out.Height = &h
		}
	}
	return out, nil
}

// NextCursor derives the continuation cursor of a page: one below the block of
// the last record when the page is full, NoCursor otherwise.
func NextCursor[R Record](records []R, limit int) int64 {
	if limit <= 0 || len(records) < limit || len(records) == 0 {
		return NoCursor
	}
	return int64(records[len(records)-1].Block()) - 1
}
