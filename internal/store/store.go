package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/klauspost/compress/zstd"
)

const (
	// defaultSyncInterval is the interval between WAL syncs.
	defaultSyncInterval = 100 * time.Millisecond
)

// Store is a key-value store backed by Pebble.
// Writes are non-blocking (NoSync) and a background goroutine periodically
// syncs the WAL to disk for durability. Values written through the
// compressed accessors are zstd-compressed at rest.
type Store struct {
	db       *pebble.DB    // db is the underlying Pebble database
	encoder  *zstd.Encoder // encoder compresses values at rest
	decoder  *zstd.Decoder // decoder decompresses values on read
	stopSync chan struct{} // stopSync signals the sync goroutine to stop
	wg       sync.WaitGroup
}

// Open creates a Store at the given path.
// It starts a background goroutine that syncs the WAL periodically.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(32 << 20), // 32 MB cache
		MemTableSize:                16 << 20,                  // 16 MB memtable
		MemTableStopWritesThreshold: 2,
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s:\n%w", path, err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder:\n%w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd decoder:\n%w", err)
	}

	s := &Store{
		db:       db,
		encoder:  encoder,
		decoder:  decoder,
		stopSync: make(chan struct{}),
	}

	s.startSyncLoop()

	return s, nil
}

// Get retrieves the value for the given key.
// Returns nil if the key does not exist.
func (s *Store) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// Copy the value since it's invalid after closer.Close()
	result := make([]byte, len(value))
	copy(result, value)

	return result, nil
}

// Set stores a key-value pair.
// The write is buffered and synced periodically by the background goroutine.
func (s *Store) Set(key, value []byte) error {
	return s.db.Set(key, value, pebble.NoSync)
}

// Delete removes a key from the store.
func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, pebble.NoSync)
}

// SetCompressed stores a key-value pair with the value zstd-compressed.
func (s *Store) SetCompressed(key, value []byte) error {
	return s.Set(key, s.encoder.EncodeAll(value, nil))
}

// GetCompressed retrieves and decompresses the value for the given key.
// Returns nil if the key does not exist.
func (s *Store) GetCompressed(key []byte) ([]byte, error) {
	compressed, err := s.Get(key)
	if err != nil || compressed == nil {
		return nil, err
	}

	value, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress value:\n%w", err)
	}

	return value, nil
}

// IteratePrefix calls fn for each key-value pair with the given prefix.
// Keys are visited in lexicographic order; if fn returns an error, iteration
// stops and the error is returned. Values are passed raw (not decompressed).
func (s *Store) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		if err := fn(key, value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// Decompress decompresses a value read through IteratePrefix.
func (s *Store) Decompress(value []byte) ([]byte, error) {
	return s.decoder.DecodeAll(value, nil)
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Increments the last byte; returns nil if prefix is all 0xFF (full range).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper
		}
	}

	return nil // all 0xFF → unbounded
}

// Close stops the sync goroutine and closes the database.
// It performs a final sync before closing; a sync failure is reported only
// after the encoder, decoder and database handles have been released.
func (s *Store) Close() error {
	close(s.stopSync)
	s.wg.Wait()

	syncErr := s.sync()

	s.encoder.Close()
	s.decoder.Close()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close pebble:\n%w", err)
	}

	return syncErr
}

// startSyncLoop starts the background goroutine that periodically syncs the WAL.
func (s *Store) startSyncLoop() {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(defaultSyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = s.sync()
			case <-s.stopSync:
				return
			}
		}
	}()
}

// sync forces a WAL sync to disk.
func (s *Store) sync() error {
	return s.db.LogData(nil, pebble.Sync)
}
