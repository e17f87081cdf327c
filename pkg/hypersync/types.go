package hypersync

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockField names a block column in a field selection.
type BlockField string

const (
	BlockNumber    BlockField = "number"
	BlockTimestamp BlockField = "timestamp"
)

// TransactionField names a transaction column in a field selection.
type TransactionField string

const (
	TransactionBlockNumber TransactionField = "block_number"
	TransactionIndex       TransactionField = "transaction_index"
	TransactionHash        TransactionField = "hash"
	TransactionFrom        TransactionField = "from"
	TransactionTo          TransactionField = "to"
	TransactionInput       TransactionField = "input"
	TransactionValue       TransactionField = "value"
	TransactionGasPrice    TransactionField = "gas_price"
	TransactionStatus      TransactionField = "status"
)

// LogField names a log column in a field selection.
type LogField string

const (
	LogIndex           LogField = "log_index"
	LogTransactionHash LogField = "transaction_hash"
	LogBlockNumber     LogField = "block_number"
	LogAddress         LogField = "address"
	LogData            LogField = "data"
	LogTopic0          LogField = "topic0"
	LogTopic1          LogField = "topic1"
	LogTopic2          LogField = "topic2"
	LogTopic3          LogField = "topic3"
)

// FieldSelection is the explicit list of columns the indexer should return.
type FieldSelection struct {
	Block       []BlockField       `json:"block,omitempty"`
	Transaction []TransactionField `json:"transaction,omitempty"`
	Log         []LogField         `json:"log,omitempty"`
}

// TransactionSelection matches transactions whose sender is in From AND whose
// recipient is in To. Separate selections in one query are OR'd.
type TransactionSelection struct {
	From []common.Address `json:"from,omitempty"`
	To   []common.Address `json:"to,omitempty"`
}

// LogSelection matches logs emitted by any of Address.
type LogSelection struct {
	Address []common.Address `json:"address,omitempty"`
}

// Query is a bounded block-range query. ToBlock is inclusive; nil means unbounded.
type Query struct {
	FromBlock          uint64
	ToBlock            *uint64
	Transactions       []TransactionSelection
	Logs               []LogSelection
	FieldSelection     FieldSelection
	MaxNumTransactions uint64
	MaxNumLogs         uint64
}

// wireQuery is the body of POST /query. to_block is exclusive on the wire.
type wireQuery struct {
	FromBlock          uint64                 `json:"from_block"`
	ToBlock            *uint64                `json:"to_block,omitempty"`
	Transactions       []TransactionSelection `json:"transactions,omitempty"`
	Logs               []LogSelection         `json:"logs,omitempty"`
	FieldSelection     FieldSelection         `json:"field_selection"`
	MaxNumTransactions *uint64                `json:"max_num_transactions,omitempty"`
	MaxNumLogs         *uint64                `json:"max_num_logs,omitempty"`
}

func (q Query) wire() wireQuery {
	w := wireQuery{
		FromBlock:      q.FromBlock,
		Transactions:   q.Transactions,
		Logs:           q.Logs,
		FieldSelection: q.FieldSelection,
	}
	// The last block number has no exclusive bound; it reads as unbounded.
	if q.ToBlock != nil && *q.ToBlock < math.MaxUint64 {
		end := *q.ToBlock + 1
		w.ToBlock = &end
	}
	if q.MaxNumTransactions > 0 {
		n := q.MaxNumTransactions
		w.MaxNumTransactions = &n
	}
	if q.MaxNumLogs > 0 {
		n := q.MaxNumLogs
		w.MaxNumLogs = &n
	}
	return w
}

// Block is the block metadata shipped with each response chunk.
type Block struct {
	Number    *Quantity `json:"number"`
	Timestamp *Quantity `json:"timestamp"`
}

// Transaction as returned by the indexer. Absent columns stay nil.
type Transaction struct {
	BlockNumber      *Quantity       `json:"block_number"`
	TransactionIndex *Quantity       `json:"transaction_index"`
	Hash             *common.Hash    `json:"hash"`
	From             *common.Address `json:"from"`
	To               *common.Address `json:"to"`
	Input            hexutil.Bytes   `json:"input"`
	Value            *Quantity       `json:"value"`
	GasPrice         *Quantity       `json:"gas_price"`
	Status           *Quantity       `json:"status"`
}

// Log as returned by the indexer. Unused topic slots are null.
type Log struct {
	BlockNumber     *Quantity       `json:"block_number"`
	LogIndex        *Quantity       `json:"log_index"`
	TransactionHash *common.Hash    `json:"transaction_hash"`
	Address         *common.Address `json:"address"`
	Data            hexutil.Bytes   `json:"data"`
	Topic0          *common.Hash    `json:"topic0"`
	Topic1          *common.Hash    `json:"topic1"`
	Topic2          *common.Hash    `json:"topic2"`
	Topic3          *common.Hash    `json:"topic3"`
}

// Topics returns the four topic slots in order, nil for empty slots.
func (l *Log) Topics() [4]*common.Hash {
	return [4]*common.Hash{l.Topic0, l.Topic1, l.Topic2, l.Topic3}
}

// ResponseData is one chunk of a query response.
type ResponseData struct {
	Blocks       []Block       `json:"blocks"`
	Transactions []Transaction `json:"transactions"`
	Logs         []Log         `json:"logs"`
}

type dataList []ResponseData

// UnmarshalJSON accepts both a list of chunks and a single chunk object.
func (d *dataList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one ResponseData
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return err
		}
		*d = dataList{one}
		return nil
	}
	var many []ResponseData
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return err
	}
	*d = many
	return nil
}

// Response is the body returned by POST /query.
type Response struct {
	Data               dataList `json:"data"`
	ArchiveHeight      *uint64  `json:"archive_height"`
	NextBlock          uint64   `json:"next_block"`
	TotalExecutionTime uint64   `json:"total_execution_time"`
}

// Batch is one unit of a stream: the blocks and records of one response
// (or one reverse window), in emission order.
type Batch struct {
	Blocks        []Block
	Transactions  []Transaction
	Logs          []Log
	ArchiveHeight *uint64
	NextBlock     *uint64
}

func (r *Response) batch() *Batch {
	b := &Batch{ArchiveHeight: r.ArchiveHeight}
	next := r.NextBlock
	b.NextBlock = &next
	for _, d := range r.Data {
		b.Blocks = append(b.Blocks, d.Blocks...)
		b.Transactions = append(b.Transactions, d.Transactions...)
		b.Logs = append(b.Logs, d.Logs...)
	}
	return b
}

// Records returns the number of transactions plus logs in the batch.
func (b *Batch) Records() int {
	return len(b.Transactions) + len(b.Logs)
}

// reverse flips blocks and records in place so a window reads newest first.
func (b *Batch) reverse() {
	for i, j := 0, len(b.Blocks)-1; i < j; i, j = i+1, j-1 {
		b.Blocks[i], b.Blocks[j] = b.Blocks[j], b.Blocks[i]
	}
	for i, j := 0, len(b.Transactions)-1; i < j; i, j = i+1, j-1 {
		b.Transactions[i], b.Transactions[j] = b.Transactions[j], b.Transactions[i]
	}
	for i, j := 0, len(b.Logs)-1; i < j; i, j = i+1, j-1 {
		b.Logs[i], b.Logs[j] = b.Logs[j], b.Logs[i]
	}
}

type heightResponse struct {
	Height *uint64 `json:"height"`
}
