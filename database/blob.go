// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/core"
	badger "github.com/dgraph-io/badger/v4"
)

const (
	blobGcInterval      = 5 * time.Minute
	blobGcDiscardRatio  = 0.5
	blobConfigKeyPrefix = "cfg:"
)

// BlobStore stores canonical configuration bytes in badger, keyed by
// content hash. Puts are idempotent by construction: the same content
// always maps to the same key.
type BlobStore struct {
	db       *badger.DB
	logger   *slog.Logger
	dataDir  string
	gcTicker *time.Ticker
	gcStopCh chan struct{}
	gcWg     sync.WaitGroup
}

// NewBlobStore creates a badger-backed blob store. An empty dataDir
// selects an in-memory database, useful for testing.
func NewBlobStore(dataDir string, logger *slog.Logger) (*BlobStore, error) {
	var blobDb *badger.DB
	var err error
	if dataDir == "" {
		badgerOpts := badger.DefaultOptions("").
			WithLogger(newBadgerLogger(logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		blobDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		blobDir := filepath.Join(dataDir, "blob")
		badgerOpts := badger.DefaultOptions(blobDir).
			WithLogger(newBadgerLogger(logger)).
			WithLoggingLevel(badger.WARNING)
		blobDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	}
	b := &BlobStore{
		db:      blobDb,
		logger:  logger,
		dataDir: dataDir,
	}
	// Badger value log GC only applies to disk-backed stores
	if dataDir != "" {
		b.gcTicker = time.NewTicker(blobGcInterval)
		b.gcStopCh = make(chan struct{})
		b.gcWg.Add(1)
		go b.gcLoop()
	}
	return b, nil
}

func (b *BlobStore) gcLoop() {
	defer b.gcWg.Done()
	for {
		select {
		case <-b.gcStopCh:
			return
		case <-b.gcTicker.C:
			// Run GC until it reports there's nothing more to collect
			for {
				if err := b.db.RunValueLogGC(blobGcDiscardRatio); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						b.logger.Warn(
							"blob value log GC failed",
							"component", "database",
							"error", err,
						)
					}
					break
				}
			}
		}
	}
}

// DB returns the underlying badger database handle
func (b *BlobStore) DB() *badger.DB {
	return b.db
}

// NewTransaction starts a new badger transaction
func (b *BlobStore) NewTransaction(readWrite bool) *badger.Txn {
	return b.db.NewTransaction(readWrite)
}

// Close stops background GC and closes the database
func (b *BlobStore) Close() error {
	if b.gcTicker != nil {
		b.gcTicker.Stop()
		close(b.gcStopCh)
		b.gcWg.Wait()
	}
	return b.db.Close()
}

func blobConfigKey(hash core.Hash) []byte {
	return append([]byte(blobConfigKeyPrefix), hash.Bytes()...)
}

// getConfigBlob reads canonical configuration bytes within a badger txn
func getConfigBlob(txn *badger.Txn, hash core.Hash) ([]byte, error) {
	item, err := txn.Get(blobConfigKey(hash))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// setConfigBlob writes canonical configuration bytes within a badger
// txn. A no-op when the key already exists (content addressing).
func setConfigBlob(txn *badger.Txn, hash core.Hash, data []byte) error {
	key := blobConfigKey(hash)
	if _, err := txn.Get(key); err == nil {
		return nil
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return txn.Set(key, data)
}
