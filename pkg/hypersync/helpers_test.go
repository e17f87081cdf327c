package hypersync_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/canopy-network/addrhistory/pkg/hypersync"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestConfig(handler http.Handler) hypersync.Config {
	return hypersync.Config{
		URLTemplate: "http://{chain}.mock",
		BearerToken: "secret",
		ReverseStep: 4,
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				resp := rec.Result()
				if resp.Body == nil {
					resp.Body = http.NoBody
				}
				return resp, nil
			}),
			Timeout: 5 * time.Second,
		},
	}
}

type fakeTx struct {
	block uint64
	index uint64
	from  string
	to    string
}

// fakeIndexer serves /height and /query over an in-memory chain. Each response
// scans at most span blocks, mimicking an indexer that answers in chunks.
type fakeIndexer struct {
	height   uint64
	span     uint64
	txs      []fakeTx
	requests atomic.Int64
	failAt   int64 // fail the n-th query request (1-based), 0 = never
}

type fakeQuery struct {
	FromBlock          uint64  `json:"from_block"`
	ToBlock            *uint64 `json:"to_block"`
	MaxNumTransactions *uint64 `json:"max_num_transactions"`
	Transactions       []struct {
		From []string `json:"from"`
		To   []string `json:"to"`
	} `json:"transactions"`
}

func (f *fakeIndexer) matches(q fakeQuery, tx fakeTx) bool {
	for _, sel := range q.Transactions {
		for _, a := range sel.From {
			if strings.EqualFold(a, tx.from) {
				return true
			}
		}
		for _, a := range sel.To {
			if strings.EqualFold(a, tx.to) {
				return true
			}
		}
	}
	return false
}

func (f *fakeIndexer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/height":
		_ = json.NewEncoder(w).Encode(map[string]uint64{"height": f.height})
		return
	case "/query":
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	n := f.requests.Add(1)
	if f.failAt > 0 && n == f.failAt {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
		return
	}

	var q fakeQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	end := f.height + 1
	if q.ToBlock != nil && *q.ToBlock < end {
		end = *q.ToBlock
	}
	span := f.span
	if span == 0 {
		span = 1 << 62
	}

	type wireTx struct {
		BlockNumber      uint64 `json:"block_number"`
		TransactionIndex uint64 `json:"transaction_index"`
		Hash             string `json:"hash"`
		From             string `json:"from"`
		To               string `json:"to"`
		Value            string `json:"value"`
		GasPrice         string `json:"gas_price"`
		Status           uint64 `json:"status"`
	}
	type wireBlock struct {
		Number    uint64 `json:"number"`
		Timestamp string `json:"timestamp"`
	}

	var txs []wireTx
	blocks := map[uint64]bool{}
	next := q.FromBlock
	for b := q.FromBlock; b < end && b-q.FromBlock < span; b++ {
		for _, tx := range f.txs {
			if tx.block == b && f.matches(q, tx) {
				txs = append(txs, wireTx{
					BlockNumber:      tx.block,
					TransactionIndex: tx.index,
					Hash:             hashFor(tx.block, tx.index),
					From:             tx.from,
					To:               tx.to,
					Value:            "0xde0b6b3a7640000",
					GasPrice:         "0x3b9aca00",
					Status:           1,
				})
				blocks[b] = true
			}
		}
		next = b + 1
		if q.MaxNumTransactions != nil && uint64(len(txs)) >= *q.MaxNumTransactions {
			break
		}
	}

	var bl []wireBlock
	keys := make([]uint64, 0, len(blocks))
	for b := range blocks {
		keys = append(keys, b)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, b := range keys {
		bl = append(bl, wireBlock{Number: b, Timestamp: "0x" + strings.TrimLeft(hex64(1_700_000_000+b), "0")})
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":           []any{map[string]any{"blocks": bl, "transactions": txs}},
		"archive_height": f.height,
		"next_block":     next,
	})
}

func hex64(v uint64) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = digits[v&0xf]
		v >>= 4
	}
	return string(out)
}

func hashFor(block, index uint64) string {
	return "0x" + strings.Repeat("0", 32) + hex64(block) + hex64(index)
}
