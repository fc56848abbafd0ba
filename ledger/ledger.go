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

package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/core"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/governance"
	"github.com/blinklabs-io/gavel/mempool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	BlockEventType    event.EventType = "ledger.block"
	TxResultEventType event.EventType = "ledger.tx_result"

	DefaultBlockInterval = 1 * time.Second
	DefaultTxsBlockLimit = 100
)

// BlockEvent is published after a block has been applied
type BlockEvent struct {
	Height   uint64
	TxCount  int
	Applied  int
	Rejected int
}

// TxResultEvent reports the outcome of a single applied transaction.
// Error is empty for accepted transactions.
type TxResultEvent struct {
	Hash   core.Hash
	Height uint64
	Error  string
}

// LedgerStateConfig contains the options used to create a LedgerState
type LedgerStateConfig struct {
	Logger        *slog.Logger
	PromRegistry  prometheus.Registerer
	EventBus      *event.EventBus
	Database      *database.Database
	State         *governance.State
	Mempool       *mempool.Mempool
	BlockInterval time.Duration
	TxsBlockLimit int
}

// LedgerState drives block application: a single goroutine drains the
// mempool on a fixed interval and applies the drained transactions one
// at a time, in order, through the governance state machine. This is
// the only write path; there are never two transactions applied
// concurrently.
type LedgerState struct {
	config  LedgerStateConfig
	metrics struct {
		blockHeight prometheus.Gauge
		txsApplied  prometheus.Counter
		txsRejected prometheus.Counter
	}
	logger   *slog.Logger
	db       *database.Database
	state    *governance.State
	mempool  *mempool.Mempool
	eventBus *event.EventBus
	height   uint64
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// NewLedgerState creates a LedgerState
func NewLedgerState(cfg LedgerStateConfig) *LedgerState {
	if cfg.BlockInterval <= 0 {
		cfg.BlockInterval = DefaultBlockInterval
	}
	if cfg.TxsBlockLimit <= 0 {
		cfg.TxsBlockLimit = DefaultTxsBlockLimit
	}
	l := &LedgerState{
		config:   cfg,
		db:       cfg.Database,
		state:    cfg.State,
		mempool:  cfg.Mempool,
		eventBus: cfg.EventBus,
		stopCh:   make(chan struct{}),
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		l.logger = cfg.Logger
	}
	promautoFactory := promauto.With(cfg.PromRegistry)
	l.metrics.blockHeight = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "gavel_block_height",
		Help: "height of the last applied block",
	})
	l.metrics.txsApplied = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "gavel_txs_applied_total",
		Help: "total transactions applied",
	})
	l.metrics.txsRejected = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "gavel_txs_rejected_total",
		Help: "total transactions rejected during block application",
	})
	return l
}

// Start restores the tip height and launches the block production loop
func (l *LedgerState) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	height, _, err := l.db.GetTip(nil)
	if err != nil {
		return fmt.Errorf("restore tip: %w", err)
	}
	l.height = height
	l.metrics.blockHeight.Set(float64(height))
	l.started = true
	l.wg.Add(1)
	go l.blockLoop()
	return nil
}

// Stop halts the block production loop and waits for it to exit
func (l *LedgerState) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return
	}
	close(l.stopCh)
	l.wg.Wait()
	l.started = false
}

// Height returns the height of the last applied block
func (l *LedgerState) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

func (l *LedgerState) blockLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(l.config.BlockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if err := l.ApplyBlock(); err != nil {
				l.logger.Error(
					"block application failed",
					"component", "ledger",
					"error", err,
				)
			}
		}
	}
}

// ApplyBlock drains the mempool and applies the drained transactions
// as the next block. All writes for the block happen in one database
// transaction; a per-transaction validation failure is recorded as
// that transaction's outcome and never aborts the block, since a
// rejected transaction writes nothing.
func (l *LedgerState) ApplyBlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	txs := l.mempool.Drain(l.config.TxsBlockLimit)
	height := l.height + 1
	var applied, rejected int
	results := make([]TxResultEvent, 0, len(txs))
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		for _, memTx := range txs {
			tx, err := core.DecodeTx(memTx.Raw)
			if err != nil {
				// Mempool only accepts decodable transactions, but a
				// decode failure here must not poison the block
				rejected++
				results = append(results, TxResultEvent{
					Hash:   memTx.Hash,
					Height: height,
					Error:  err.Error(),
				})
				continue
			}
			if err := l.state.ApplyTx(txn, height, tx); err != nil {
				rejected++
				results = append(results, TxResultEvent{
					Hash:   memTx.Hash,
					Height: height,
					Error:  err.Error(),
				})
				l.logger.Debug(
					"transaction rejected",
					"component", "ledger",
					"tx_hash", memTx.Hash.String(),
					"height", height,
					"error", err,
				)
				continue
			}
			applied++
			results = append(results, TxResultEvent{
				Hash:   memTx.Hash,
				Height: height,
			})
		}
		return l.db.SetTip(height, txn)
	})
	if err != nil {
		// The block never committed, so the drained transactions would
		// otherwise vanish without a trace. Return them to the pool for
		// the next block.
		for _, memTx := range txs {
			if _, addErr := l.mempool.AddTransaction(memTx.Raw); addErr != nil {
				l.logger.Error(
					"failed to requeue transaction after block failure",
					"component", "ledger",
					"tx_hash", memTx.Hash.String(),
					"error", addErr,
				)
			}
		}
		return err
	}
	l.height = height
	l.metrics.blockHeight.Set(float64(height))
	l.metrics.txsApplied.Add(float64(applied))
	l.metrics.txsRejected.Add(float64(rejected))
	// Async publish so a slow subscriber can never stall block production
	if l.eventBus != nil {
		for _, result := range results {
			l.eventBus.PublishAsync(
				TxResultEventType,
				event.NewEvent(TxResultEventType, result),
			)
		}
		l.eventBus.PublishAsync(
			BlockEventType,
			event.NewEvent(
				BlockEventType,
				BlockEvent{
					Height:   height,
					TxCount:  len(txs),
					Applied:  applied,
					Rejected: rejected,
				},
			),
		)
	}
	return nil
}
