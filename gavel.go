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

package gavel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/api"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/governance"
	"github.com/blinklabs-io/gavel/keystore"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/blinklabs-io/gavel/mempool"
)

type Node struct {
	config        Config
	eventBus      *event.EventBus
	db            *database.Database
	keyStore      *keystore.KeyStore
	state         *governance.State
	query         *governance.Query
	mempool       *mempool.Mempool
	ledgerState   *ledger.LedgerState
	api           *api.Api
	shutdownFuncs []func(context.Context) error
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

func (n *Node) configValidate() error {
	if n.config.blockInterval < 0 {
		return errors.New("block interval must not be negative")
	}
	if n.config.mempoolCapacity < 0 {
		return errors.New("mempool capacity must not be negative")
	}
	return nil
}

func (n *Node) Run() error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(database.Config{
		DataDir:      n.config.dataDir,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	// Load node key
	n.keyStore = keystore.NewKeyStore(keystore.KeyStoreConfig{
		DataDir:     n.config.dataDir,
		KeyPath:     n.config.keyPath,
		SopsEnabled: n.config.sopsKeys,
		Logger:      n.config.logger,
	})
	if err := n.keyStore.Load(); err != nil {
		return fmt.Errorf("failed to load node key: %w", err)
	}
	// Governance state machine and read view
	n.state = governance.NewState(governance.StateConfig{
		Database: n.db,
		EventBus: n.eventBus,
		Logger:   n.config.logger,
	})
	n.query = governance.NewQuery(n.db)
	// Bootstrap genesis when configured
	if n.config.genesisConfig != nil {
		if _, err := n.state.BootstrapGenesis(n.config.genesisConfig); err != nil {
			return err
		}
	}
	// Initialize mempool
	n.mempool = mempool.NewMempool(mempool.MempoolConfig{
		MempoolCapacity: n.config.mempoolCapacity,
		Logger:          n.config.logger,
		EventBus:        n.eventBus,
		PromRegistry:    n.config.promRegistry,
	})
	// Start block applier
	n.ledgerState = ledger.NewLedgerState(ledger.LedgerStateConfig{
		Logger:        n.config.logger,
		PromRegistry:  n.config.promRegistry,
		EventBus:      n.eventBus,
		Database:      n.db,
		State:         n.state,
		Mempool:       n.mempool,
		BlockInterval: n.config.blockInterval,
		TxsBlockLimit: n.config.txsBlockLimit,
	})
	if err := n.ledgerState.Start(); err != nil {
		return fmt.Errorf("failed to start ledger: %w", err)
	}
	// Start API server
	if n.config.apiListenAddress != "" {
		privKey, err := n.keyStore.PrivateKey()
		if err != nil {
			return err
		}
		n.api = api.New(api.ApiConfig{
			Logger:        n.config.logger,
			ListenAddress: n.config.apiListenAddress,
			Query:         n.query,
			Mempool:       n.mempool,
			Height:        n.ledgerState.Height,
			PrivKey:       privKey,
		})
		if err := n.api.Start(context.Background()); err != nil {
			return err
		}
	}

	// Wait for shutdown signal
	<-n.done
	return nil
}

// Query returns the read-only governance view
func (n *Node) Query() *governance.Query {
	return n.query
}

// Mempool returns the transaction dispatch channel
func (n *Node) Mempool() *mempool.Mempool {
	return n.mempool
}

// Height returns the height of the last applied block
func (n *Node) Height() uint64 {
	return n.ledgerState.Height()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Stop block production
	if n.ledgerState != nil {
		n.ledgerState.Stop()
	}

	// Phase 3: Flush state and close database
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
