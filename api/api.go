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

package api

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/governance"
	"github.com/blinklabs-io/gavel/mempool"
)

// ApiConfig contains the options used to create an Api server
type ApiConfig struct {
	Logger        *slog.Logger
	ListenAddress string
	Query         *governance.Query
	Mempool       *mempool.Mempool
	Height        func() uint64
	PrivKey       ed25519.PrivateKey
}

// Api is the HTTP query and submission server. Reads go through the
// governance query view; submissions are signed with the node key and
// handed to the mempool.
type Api struct {
	config     ApiConfig
	logger     *slog.Logger
	httpServer *http.Server
	mu         sync.Mutex
}

// New creates an Api server instance
func New(cfg ApiConfig) *Api {
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8090"
	}
	return &Api{
		config: cfg,
		logger: cfg.Logger.With("component", "api"),
	}
}

// serveMux builds the route table for the API server
func (a *Api) serveMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/configs/actual", a.handleActual)
	mux.HandleFunc("GET /v1/configs/following", a.handleFollowing)
	mux.HandleFunc("GET /v1/configs/proposed", a.handleProposed)
	mux.HandleFunc("GET /v1/configs/committed", a.handleCommitted)
	mux.HandleFunc("GET /v1/configs/{hash}", a.handleConfigByHash)
	mux.HandleFunc("GET /v1/configs/{hash}/votes", a.handleVotes)
	mux.HandleFunc("POST /v1/configs/postpropose", a.handlePostPropose)
	mux.HandleFunc("POST /v1/configs/{hash}/postvote", a.handlePostVote)
	return mux
}

// Start starts the HTTP server in a background goroutine
func (a *Api) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}

	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.serveMux(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	// Bind the listening socket first so port conflicts surface
	// immediately, then serve in a background goroutine
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()

	a.logger.Info(
		"API listener started on " + a.config.ListenAddress,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		srv := a.httpServer
		a.httpServer = nil
		a.mu.Unlock()

		if srv != nil {
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(
					"failed to shutdown API server on context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (a *Api) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv != nil {
		a.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}
	return nil
}
