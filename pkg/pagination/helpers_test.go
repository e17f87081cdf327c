package pagination_test

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/canopy-network/addrhistory/pkg/hypersync"
	"github.com/canopy-network/addrhistory/pkg/pagination"
	"github.com/ethereum/go-ethereum/common"
)

var (
	subject = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	other   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

// scriptedBatches replays a fixed list of batches, optionally failing at one position.
type scriptedBatches struct {
	batches []*hypersync.Batch
	failAt  int
	err     error
	pos     int
	closed  bool
}

func (s *scriptedBatches) Recv(ctx context.Context) (*hypersync.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, errors.New("recv after close")
	}
	s.pos++
	if s.failAt > 0 && s.pos == s.failAt {
		return nil, s.err
	}
	if s.pos > len(s.batches) {
		return nil, nil
	}
	return s.batches[s.pos-1], nil
}

func (s *scriptedBatches) Close() { s.closed = true }

// scriptedSource hands out one scripted stream and records the query it was opened with.
type scriptedSource struct {
	stream  *scriptedBatches
	openErr error
	query   hypersync.Query
	cfg     hypersync.StreamConfig
}

func (s *scriptedSource) Open(_ context.Context, q hypersync.Query, cfg hypersync.StreamConfig) (pagination.Batches, error) {
	s.query, s.cfg = q, cfg
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.stream, nil
}

// endingSource yields one batch, then cancels the caller and ends the stream
// cleanly, like a producer that stopped on cancellation without reporting it.
type endingSource struct {
	batch  *hypersync.Batch
	cancel context.CancelFunc
}

func (e *endingSource) Open(context.Context, hypersync.Query, hypersync.StreamConfig) (pagination.Batches, error) {
	return &endingBatches{batch: e.batch, cancel: e.cancel}, nil
}

type endingBatches struct {
	batch  *hypersync.Batch
	cancel context.CancelFunc
	sent   bool
}

func (e *endingBatches) Recv(context.Context) (*hypersync.Batch, error) {
	if !e.sent {
		e.sent = true
		return e.batch, nil
	}
	e.cancel()
	return nil, nil
}

func (e *endingBatches) Close() {}

// chainSource serves transactions from an in-memory chain, one batch per block,
// honouring the query bounds, the address filter and the stream direction.
type chainSource struct {
	txs    []hypersync.Transaction
	height uint64
	opened int
}

func (c *chainSource) Open(_ context.Context, q hypersync.Query, cfg hypersync.StreamConfig) (pagination.Batches, error) {
	c.opened++
	upper := c.height
	if q.ToBlock != nil {
		upper = *q.ToBlock
	}
	byBlock := map[uint64][]hypersync.Transaction{}
	for _, tx := range c.txs {
		n, _ := tx.BlockNumber.Uint64()
		if n < q.FromBlock || n > upper || !selected(q, tx) {
			continue
		}
		byBlock[n] = append(byBlock[n], tx)
	}
	blocks := make([]uint64, 0, len(byBlock))
	for n := range byBlock {
		blocks = append(blocks, n)
	}
	sort.Slice(blocks, func(i, j int) bool {
		if cfg.Reverse {
			return blocks[i] > blocks[j]
		}
		return blocks[i] < blocks[j]
	})

	h := c.height
	stream := &scriptedBatches{}
	for _, n := range blocks {
		txs := byBlock[n]
		if cfg.Reverse {
			for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
				txs[i], txs[j] = txs[j], txs[i]
			}
		}
		stream.batches = append(stream.batches, &hypersync.Batch{
			Blocks:        []hypersync.Block{block(n, 1_700_000_000+n)},
			Transactions:  txs,
			ArchiveHeight: &h,
		})
	}
	return stream, nil
}

func selected(q hypersync.Query, tx hypersync.Transaction) bool {
	for _, sel := range q.Transactions {
		for _, a := range sel.From {
			if tx.From != nil && *tx.From == a {
				return true
			}
		}
		for _, a := range sel.To {
			if tx.To != nil && *tx.To == a {
				return true
			}
		}
	}
	return false
}

func block(n, ts uint64) hypersync.Block {
	return hypersync.Block{Number: hypersync.NewQuantity(n), Timestamp: hypersync.NewQuantity(ts)}
}

func rawTx(n, idx uint64, from, to common.Address) hypersync.Transaction {
	h := common.HexToHash(fmt.Sprintf("0x%x%04x", n, idx))
	return hypersync.Transaction{
		BlockNumber:      hypersync.NewQuantity(n),
		TransactionIndex: hypersync.NewQuantity(idx),
		Hash:             &h,
		From:             &from,
		To:               &to,
		Value:            hypersync.NewQuantity(n * 10),
		GasPrice:         hypersync.NewQuantity(1),
		Status:           hypersync.NewQuantity(1),
	}
}

func ptr(v uint64) *uint64 { return &v }
