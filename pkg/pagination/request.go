package pagination

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
)

// Sort is the chronological direction of a page.
type Sort string

const (
	SortAsc  Sort = "asc"
	SortDesc Sort = "desc"
)

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid page request")

// ParseSort accepts "asc" or "desc".
func ParseSort(s string) (Sort, error) {
	switch Sort(s) {
	case SortAsc, SortDesc:
		return Sort(s), nil
	}
	return "", fmt.Errorf("%w: sort must be 'asc' or 'desc', got %q", ErrInvalidRequest, s)
}

// Request selects one page of records touching Address on ChainID.
type Request struct {
	ChainID uint64
	Address common.Address
	// Cursor is the block to resume from; nil starts at the natural end of the range.
	Cursor *uint64
	Limit  int
	Sort   Sort
}

// Validate checks the invariants the engine relies on.
func (r Request) Validate() error {
	if r.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidRequest)
	}
	if _, err := ParseSort(string(r.Sort)); err != nil {
		return err
	}
	if r.Cursor != nil && *r.Cursor > math.MaxInt64 {
		return fmt.Errorf("%w: cursor %d does not fit a page cursor", ErrInvalidRequest, *r.Cursor)
	}
	return nil
}

// Pagination is the cursor block of a page. Cursor is NoCursor when no further
// page exists; Height is the indexer's archive height, nil if never observed.
type Pagination struct {
	Cursor int64   `json:"cursor"`
	Height *uint64 `json:"height"`
}

// NoCursor marks the last page.
const NoCursor int64 = -1

// Page is one assembled page of normalized records.
type Page[R Record] struct {
	Records    []R
	Pagination Pagination
	// Batches is the number of stream batches consumed to build the page.
	Batches int
}
