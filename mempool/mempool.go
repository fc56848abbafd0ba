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

package mempool

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/core"
	"github.com/blinklabs-io/gavel/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	AddTransactionEventType event.EventType = "mempool.add_tx"
)

// AddTransactionEvent is published when a transaction is accepted into
// the mempool
type AddTransactionEvent struct {
	Hash core.Hash
	Type core.TxType
	Raw  []byte
}

// MempoolTransaction is an accepted transaction waiting for block
// inclusion
type MempoolTransaction struct {
	LastSeen time.Time
	Hash     core.Hash
	Type     core.TxType
	Raw      []byte
}

// MempoolConfig contains the options used to create a Mempool
type MempoolConfig struct {
	PromRegistry    prometheus.Registerer
	Logger          *slog.Logger
	EventBus        *event.EventBus
	MempoolCapacity int64
}

// Mempool is the transaction dispatch channel: it accepts signed
// transactions for eventual block inclusion and returns the
// transaction hash immediately. It provides no delivery guarantee
// beyond "accepted for consideration"; stateful validation happens at
// block application.
type Mempool struct {
	config  MempoolConfig
	metrics struct {
		txsProcessedNum prometheus.Counter
		txsInMempool    prometheus.Gauge
		mempoolBytes    prometheus.Gauge
	}
	logger       *slog.Logger
	eventBus     *event.EventBus
	transactions []*MempoolTransaction
	sync.Mutex
}

// MempoolFullError is returned when a transaction would exceed the
// configured mempool capacity
type MempoolFullError struct {
	CurrentSize int
	TxSize      int
	Capacity    int64
}

func (e *MempoolFullError) Error() string {
	return fmt.Sprintf(
		"mempool full: current size=%d bytes, tx size=%d bytes, capacity=%d bytes",
		e.CurrentSize,
		e.TxSize,
		e.Capacity,
	)
}

// NewMempool creates a Mempool
func NewMempool(config MempoolConfig) *Mempool {
	m := &Mempool{
		config:   config,
		eventBus: config.EventBus,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		m.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		m.logger = config.Logger
	}
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	m.metrics.txsProcessedNum = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_mempool_txs_processed_total",
			Help: "total transactions processed",
		},
	)
	m.metrics.txsInMempool = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "gavel_mempool_txs",
		Help: "current count of mempool transactions",
	})
	m.metrics.mempoolBytes = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "gavel_mempool_bytes",
		Help: "current size of mempool transactions in bytes",
	})
	return m
}

// AddTransaction performs stateless checks (decoding and signature
// verification) on an encoded transaction and queues it for block
// inclusion, returning its hash. Re-submitting a queued transaction
// updates its last-seen time and returns the same hash.
func (m *Mempool) AddTransaction(raw []byte) (core.Hash, error) {
	tx, err := core.DecodeTx(raw)
	if err != nil {
		return core.Hash{}, err
	}
	if err := core.VerifyTx(tx); err != nil {
		return core.Hash{}, err
	}
	txHash, err := tx.TxHash()
	if err != nil {
		return core.Hash{}, err
	}
	m.Lock()
	defer m.Unlock()
	// Update last seen for existing TX
	if existingTx := m.getTransaction(txHash); existingTx != nil {
		existingTx.LastSeen = time.Now()
		m.logger.Debug(
			"updated last seen for transaction",
			"component", "mempool",
			"tx_hash", txHash.String(),
		)
		return txHash, nil
	}
	// Enforce mempool capacity
	currentSize := 0
	for _, existing := range m.transactions {
		currentSize += len(existing.Raw)
	}
	if m.config.MempoolCapacity > 0 &&
		currentSize+len(raw) > int(m.config.MempoolCapacity) {
		return core.Hash{}, &MempoolFullError{
			CurrentSize: currentSize,
			TxSize:      len(raw),
			Capacity:    m.config.MempoolCapacity,
		}
	}
	entry := &MempoolTransaction{
		LastSeen: time.Now(),
		Hash:     txHash,
		Type:     tx.TxType(),
		Raw:      raw,
	}
	m.transactions = append(m.transactions, entry)
	m.logger.Debug(
		"added transaction",
		"component", "mempool",
		"tx_hash", txHash.String(),
	)
	m.metrics.txsProcessedNum.Inc()
	m.metrics.txsInMempool.Set(float64(len(m.transactions)))
	m.metrics.mempoolBytes.Set(float64(currentSize + len(raw)))
	// Async publish since the mempool lock is held here
	if m.eventBus != nil {
		m.eventBus.PublishAsync(
			AddTransactionEventType,
			event.NewEvent(
				AddTransactionEventType,
				AddTransactionEvent{
					Hash: txHash,
					Type: tx.TxType(),
					Raw:  raw,
				},
			),
		)
	}
	return txHash, nil
}

// Drain removes and returns up to max queued transactions in FIFO
// order for inclusion in the next block
func (m *Mempool) Drain(max int) []*MempoolTransaction {
	m.Lock()
	defer m.Unlock()
	if max <= 0 || max > len(m.transactions) {
		max = len(m.transactions)
	}
	if max == 0 {
		return nil
	}
	drained := m.transactions[:max]
	m.transactions = append(
		[]*MempoolTransaction{},
		m.transactions[max:]...,
	)
	remainingSize := 0
	for _, tx := range m.transactions {
		remainingSize += len(tx.Raw)
	}
	m.metrics.txsInMempool.Set(float64(len(m.transactions)))
	m.metrics.mempoolBytes.Set(float64(remainingSize))
	return drained
}

// Transactions returns a copy of the current queue contents
func (m *Mempool) Transactions() []*MempoolTransaction {
	m.Lock()
	defer m.Unlock()
	ret := make([]*MempoolTransaction, len(m.transactions))
	copy(ret, m.transactions)
	return ret
}

func (m *Mempool) getTransaction(txHash core.Hash) *MempoolTransaction {
	for _, tx := range m.transactions {
		if tx.Hash == txHash {
			return tx
		}
	}
	return nil
}
