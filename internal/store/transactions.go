package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"QuorumCert/internal/entities"
)

// errStopIteration ends a prefix scan early without reporting an error.
var errStopIteration = errors.New("stop iteration")

// TransactionStore persists observed chain transactions keyed by block number
// and hash, so a range scan yields transactions in block order.
type TransactionStore struct {
	store *Store
}

// NewTransactionStore creates a transaction store over the given Store.
func NewTransactionStore(s *Store) *TransactionStore {
	return &TransactionStore{store: s}
}

// Save persists a batch of transactions.
func (ts *TransactionStore) Save(txs []entities.Transaction) error {
	for _, tx := range txs {
		data, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("marshal transaction %s:\n%w", tx.Hash, err)
		}

		if err := ts.store.Set(transactionKey(tx), data); err != nil {
			return fmt.Errorf("store transaction %s:\n%w", tx.Hash, err)
		}
	}

	return nil
}

// GetUpTo returns all transactions with block number <= upTo, in block order.
func (ts *TransactionStore) GetUpTo(upTo entities.BlockNumber) ([]entities.Transaction, error) {
	var txs []entities.Transaction

	err := ts.store.IteratePrefix(prefixTransaction, func(key, value []byte) error {
		if blockFromKey(key) > upTo {
			return errStopIteration // keys are block-ordered, nothing further matches
		}

		var tx entities.Transaction
		if err := json.Unmarshal(value, &tx); err != nil {
			return fmt.Errorf("unmarshal transaction %s:\n%w", key, err)
		}

		txs = append(txs, tx)

		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}

	return txs, nil
}

// HighestBlock returns the highest block number among stored transactions.
// Returns 0 when the store is empty.
func (ts *TransactionStore) HighestBlock() (entities.BlockNumber, error) {
	var highest entities.BlockNumber

	err := ts.store.IteratePrefix(prefixTransaction, func(key, _ []byte) error {
		if block := blockFromKey(key); block > highest {
			highest = block
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return highest, nil
}

// transactionKey builds the storage key for a transaction.
// Format: t:<block be8><hash> so keys sort by block number.
func transactionKey(tx entities.Transaction) []byte {
	key := append(append([]byte{}, prefixTransaction...), make([]byte, 8)...)
	binary.BigEndian.PutUint64(key[len(prefixTransaction):], uint64(tx.BlockNumber))

	return append(key, tx.Hash...)
}

// blockFromKey extracts the block number from a transaction key.
func blockFromKey(key []byte) entities.BlockNumber {
	return entities.BlockNumber(binary.BigEndian.Uint64(key[len(prefixTransaction):]))
}
