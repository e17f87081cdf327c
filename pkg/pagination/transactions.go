package pagination

import (
	"github.com/canopy-network/addrhistory/pkg/hypersync"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Transaction is the normalized output shape of a transaction record.
type Transaction struct {
	BlockNumber      uint64  `json:"blockNumber"`
	BlockTimestamp   uint64  `json:"blockTimestamp"`
	From             string  `json:"from"`
	GasPrice         Amount  `json:"gasPrice"`
	Hash             string  `json:"hash"`
	Input            string  `json:"input"`
	To               *string `json:"to"`
	TransactionIndex uint64  `json:"transactionIndex"`
	Value            Amount  `json:"value"`
	Status           *uint64 `json:"status"`
}

func (t Transaction) Block() uint64 { return t.BlockNumber }

// Transactions matches transactions sent from OR to the address.
var Transactions = Kind[Transaction]{
	Name: "transactions",
	Fields: hypersync.FieldSelection{
		Block: []hypersync.BlockField{hypersync.BlockNumber, hypersync.BlockTimestamp},
		Transaction: []hypersync.TransactionField{
			hypersync.TransactionBlockNumber,
			hypersync.TransactionIndex,
			hypersync.TransactionHash,
			hypersync.TransactionFrom,
			hypersync.TransactionTo,
			hypersync.TransactionInput,
			hypersync.TransactionValue,
			hypersync.TransactionGasPrice,
			hypersync.TransactionStatus,
		},
	},
	Filter: func(q *hypersync.Query, address common.Address, limit uint64) {
		q.Transactions = []hypersync.TransactionSelection{
			{From: []common.Address{address}},
			{To: []common.Address{address}},
		}
		q.MaxNumTransactions = limit
	},
	Hint: func(cfg *hypersync.StreamConfig, limit uint64) {
		cfg.MaxNumTransactions = limit
	},
	Records: func(b *hypersync.Batch, ts Timestamps) ([]Transaction, error) {
		out := make([]Transaction, 0, len(b.Transactions))
		for i := range b.Transactions {
			tx, err := mapTransaction(&b.Transactions[i], ts, i)
			if err != nil {
				return nil, err
			}
			out = append(out, tx)
		}
		return out, nil
	},
}

func mapTransaction(raw *hypersync.Transaction, ts Timestamps, pos int) (Transaction, error) {
	missing := func(field string) error {
		return &MappingError{Kind: "transaction", Field: field, Position: pos}
	}
	if raw.BlockNumber == nil {
		return Transaction{}, missing("block_number")
	}
	block, ok := raw.BlockNumber.Uint64()
	if !ok {
		return Transaction{}, missing("block_number")
	}
	if raw.Hash == nil {
		return Transaction{}, missing("hash")
	}
	if raw.From == nil {
		return Transaction{}, missing("from")
	}

	tx := Transaction{
		BlockNumber:    block,
		BlockTimestamp: ts.Millis(block),
		From:           addressHex(*raw.From),
		Hash:           raw.Hash.Hex(),
		Input:          hexutil.Encode(raw.Input),
	}
	if raw.TransactionIndex != nil {
		idx, ok := raw.TransactionIndex.Uint64()
		if !ok {
			return Transaction{}, missing("transaction_index")
		}
		tx.TransactionIndex = idx
	}
	if raw.To != nil {
		to := addressHex(*raw.To)
		tx.To = &to
	}
	if raw.Value != nil {
		tx.Value = NewAmount(raw.Value.Big())
	}
	if raw.GasPrice != nil {
		tx.GasPrice = NewAmount(raw.GasPrice.Big())
	}
	if raw.Status != nil {
		if s, ok := raw.Status.Uint64(); ok {
			tx.Status = &s
		}
	}
	return tx, nil
}

// addressHex renders the lowercase 0x form the indexer itself uses.
func addressHex(a common.Address) string {
	return hexutil.Encode(a.Bytes())
}
