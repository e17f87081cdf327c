package hypersync

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrInvalidRange is returned when a query's ToBlock lies below its FromBlock.
var ErrInvalidRange = errors.New("to block is below from block")

// StreamConfig controls how a stream walks the range.
type StreamConfig struct {
	// Reverse emits newest blocks first.
	Reverse bool
	// MaxNumTransactions / MaxNumLogs end the stream once that many records were
	// produced. Zero means no hint.
	MaxNumTransactions uint64
	MaxNumLogs         uint64
}

func (c StreamConfig) satisfied(txs, logs uint64) bool {
	if c.MaxNumTransactions > 0 && txs >= c.MaxNumTransactions {
		return true
	}
	if c.MaxNumLogs > 0 && logs >= c.MaxNumLogs {
		return true
	}
	return false
}

type result struct {
	batch *Batch
	err   error
}

// Receiver is a pull-based iterator over the batches of one query. A single
// producer goroutine fetches ahead by at most one batch.
type Receiver struct {
	results   chan result
	cancel    context.CancelFunc
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Recv blocks for the next batch. It returns nil, nil once the stream is exhausted.
// After an error the stream is finished. A cancelled ctx is always an error, never
// the end of the stream.
func (r *Receiver) Recv(ctx context.Context) (*Batch, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, ok := <-r.results:
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return res.batch, res.err
	}
}

// Close stops the producer without draining the stream and waits for it to exit.
// It is safe to call more than once.
func (r *Receiver) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
		r.cancel()
		<-r.done
	})
}

func (r *Receiver) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

type producer func(ctx context.Context, emit func(*Batch) bool) error

func startReceiver(ctx context.Context, produce producer) *Receiver {
	sctx, cancel := context.WithCancel(ctx)
	r := &Receiver{
		results: make(chan result, 1),
		cancel:  cancel,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	emit := func(b *Batch) bool {
		select {
		case r.results <- result{batch: b}:
			return true
		case <-sctx.Done():
			return false
		}
	}

	go func() {
		defer close(r.done)
		defer close(r.results)
		err := produce(sctx, emit)
		if r.stopped() {
			return
		}
		// Cancellation of the caller's ctx aborts the stream; it is not an end.
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err == nil {
			return
		}
		select {
		case r.results <- result{err: err}:
		case <-r.stop:
		}
	}()
	return r
}

// Stream opens a stream over q. For a reverse stream without an upper bound the
// archive height is resolved first, so an unreachable indexer fails here.
func (c *Client) Stream(ctx context.Context, q Query, cfg StreamConfig) (*Receiver, error) {
	if q.ToBlock != nil && *q.ToBlock < q.FromBlock {
		return nil, fmt.Errorf("%w: %d < %d", ErrInvalidRange, *q.ToBlock, q.FromBlock)
	}
	if q.ToBlock != nil && *q.ToBlock == math.MaxUint64 {
		q.ToBlock = nil
	}

	if !cfg.Reverse {
		return startReceiver(ctx, func(ctx context.Context, emit func(*Batch) bool) error {
			return c.forward(ctx, q, cfg, emit)
		}), nil
	}

	var upper uint64
	if q.ToBlock != nil {
		upper = *q.ToBlock
	} else {
		h, err := c.Height(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve archive height: %w", err)
		}
		upper = h
	}
	return startReceiver(ctx, func(ctx context.Context, emit func(*Batch) bool) error {
		return c.reverse(ctx, q, cfg, upper, emit)
	}), nil
}

// forward follows next_block until the range, the archive or the hint is exhausted.
func (c *Client) forward(ctx context.Context, q Query, cfg StreamConfig, emit func(*Batch) bool) error {
	from := q.FromBlock
	var txs, logs uint64
	for {
		page := q
		page.FromBlock = from
		resp, err := c.Query(ctx, page)
		if err != nil {
			return fmt.Errorf("query from block %d: %w", from, err)
		}

		batch := resp.batch()
		txs += uint64(len(batch.Transactions))
		logs += uint64(len(batch.Logs))
		if !emit(batch) {
			return nil
		}

		switch {
		case resp.NextBlock <= from:
			// no progress: the indexer has nothing past from yet
			return nil
		case q.ToBlock != nil && resp.NextBlock > *q.ToBlock:
			return nil
		case q.ToBlock == nil && resp.ArchiveHeight != nil && resp.NextBlock > *resp.ArchiveHeight:
			return nil
		case cfg.satisfied(txs, logs):
			return nil
		}
		from = resp.NextBlock
	}
}

// reverse walks [q.FromBlock, upper] downward in windows. Each window is fetched
// completely with forward sub-queries and emitted newest first.
func (c *Client) reverse(ctx context.Context, q Query, cfg StreamConfig, upper uint64, emit func(*Batch) bool) error {
	if upper < q.FromBlock {
		return nil
	}

	step := c.reverseStep
	end := upper + 1 // exclusive
	var txs, logs uint64
	hint := cfg.MaxNumTransactions + cfg.MaxNumLogs
	for end > q.FromBlock {
		start := q.FromBlock
		if end-q.FromBlock > step {
			start = end - step
		}

		batch, err := c.window(ctx, q, start, end)
		if err != nil {
			return err
		}
		batch.reverse()
		txs += uint64(len(batch.Transactions))
		logs += uint64(len(batch.Logs))
		if !emit(batch) {
			return nil
		}
		if cfg.satisfied(txs, logs) {
			return nil
		}

		n := uint64(batch.Records())
		switch {
		case n == 0 && step < c.reverseMaxStep:
			step *= 2
			if step > c.reverseMaxStep {
				step = c.reverseMaxStep
			}
		case hint > 0 && n > 4*hint && step > 1:
			step /= 2
		}
		end = start
	}
	return nil
}

// window fetches all of [start, end) and merges the responses in ascending order.
func (c *Client) window(ctx context.Context, q Query, start, end uint64) (*Batch, error) {
	sub := q
	last := end - 1
	sub.ToBlock = &last

	out := &Batch{}
	from := start
	for {
		sub.FromBlock = from
		resp, err := c.Query(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("query window [%d, %d) from block %d: %w", start, end, from, err)
		}
		b := resp.batch()
		out.Blocks = append(out.Blocks, b.Blocks...)
		out.Transactions = append(out.Transactions, b.Transactions...)
		out.Logs = append(out.Logs, b.Logs...)
		out.ArchiveHeight = b.ArchiveHeight

		if resp.NextBlock >= end || resp.NextBlock <= from {
			break
		}
		from = resp.NextBlock
	}
	next := start
	out.NextBlock = &next
	return out, nil
}
