package pagination

import (
	"github.com/canopy-network/addrhistory/pkg/hypersync"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Log is the normalized output shape of an event log. Topics holds only the
// populated topic slots, in order.
type Log struct {
	BlockNumber     uint64   `json:"blockNumber"`
	BlockTimestamp  uint64   `json:"blockTimestamp"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        uint64   `json:"logIndex"`
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
}

func (l Log) Block() uint64 { return l.BlockNumber }

// Logs matches logs emitted by the address.
var Logs = Kind[Log]{
	Name: "logs",
	Fields: hypersync.FieldSelection{
		Block: []hypersync.BlockField{hypersync.BlockNumber, hypersync.BlockTimestamp},
		Log: []hypersync.LogField{
			hypersync.LogIndex,
			hypersync.LogTransactionHash,
			hypersync.LogBlockNumber,
			hypersync.LogAddress,
			hypersync.LogData,
			hypersync.LogTopic0,
			hypersync.LogTopic1,
			hypersync.LogTopic2,
			hypersync.LogTopic3,
		},
	},
	Filter: func(q *hypersync.Query, address common.Address, limit uint64) {
		q.Logs = []hypersync.LogSelection{{Address: []common.Address{address}}}
		q.MaxNumLogs = limit
	},
	Hint: func(cfg *hypersync.StreamConfig, limit uint64) {
		cfg.MaxNumLogs = limit
	},
	Records: func(b *hypersync.Batch, ts Timestamps) ([]Log, error) {
		out := make([]Log, 0, len(b.Logs))
		for i := range b.Logs {
			l, err := mapLog(&b.Logs[i], ts, i)
			if err != nil {
				return nil, err
			}
			out = append(out, l)
		}
		return out, nil
	},
}

func mapLog(raw *hypersync.Log, ts Timestamps, pos int) (Log, error) {
	missing := func(field string) error {
		return &MappingError{Kind: "log", Field: field, Position: pos}
	}
	if raw.BlockNumber == nil {
		return Log{}, missing("block_number")
	}
	block, ok := raw.BlockNumber.Uint64()
	if !ok {
		return Log{}, missing("block_number")
	}
	if raw.TransactionHash == nil {
		return Log{}, missing("transaction_hash")
	}
	if raw.Address == nil {
		return Log{}, missing("address")
	}

	l := Log{
		BlockNumber:     block,
		BlockTimestamp:  ts.Millis(block),
		TransactionHash: raw.TransactionHash.Hex(),
		Address:         addressHex(*raw.Address),
		Data:            hexutil.Encode(raw.Data),
		Topics:          make([]string, 0, 4),
	}
	if raw.LogIndex != nil {
		idx, ok := raw.LogIndex.Uint64()
		if !ok {
			return Log{}, missing("log_index")
		}
		l.LogIndex = idx
	}
	for _, topic := range raw.Topics() {
		if topic != nil {
			l.Topics = append(l.Topics, topic.Hex())
		}
	}
	return l, nil
}
