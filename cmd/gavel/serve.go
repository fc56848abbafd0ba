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

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveRun(_ *cobra.Command, _ []string, cfg *config.Config) {
	logger := commonRun()

	genesisConfig, err := cfg.LoadGenesisConfig()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	shutdownTimeout, err := time.ParseDuration(cfg.ShutdownTimeout)
	if err != nil {
		slog.Error(fmt.Sprintf("invalid shutdown timeout: %s", err))
		os.Exit(1)
	}

	// Metrics listener
	promRegistry := prometheus.NewRegistry()
	if cfg.MetricsPort > 0 {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(
			"/metrics",
			promhttp.HandlerFor(
				promRegistry,
				promhttp.HandlerOpts{},
			),
		)
		metricsServer := &http.Server{
			Addr: fmt.Sprintf(
				"%s:%d",
				cfg.BindAddr,
				cfg.MetricsPort,
			),
			Handler:           metricsMux,
			ReadHeaderTimeout: 60 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				err != http.ErrServerClosed {
				slog.Error(
					"metrics listener error: " + err.Error(),
				)
				os.Exit(1)
			}
		}()
		logger.Info(
			fmt.Sprintf("metrics listener started on %s", metricsServer.Addr),
			"component", programName,
		)
	}

	node, err := gavel.New(gavel.NewConfig(
		gavel.WithLogger(logger),
		gavel.WithDatabasePath(cfg.DatabasePath),
		gavel.WithGenesisConfig(genesisConfig),
		gavel.WithKeyPath(cfg.KeyPath),
		gavel.WithSopsKeys(cfg.SopsKeys),
		gavel.WithApiListenAddress(
			fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
		),
		gavel.WithMempoolCapacity(cfg.MempoolCapacity),
		gavel.WithBlockInterval(
			time.Duration(cfg.BlockIntervalMs)*time.Millisecond,
		),
		gavel.WithTxsBlockLimit(cfg.TxsBlockLimit),
		gavel.WithPrometheusRegistry(promRegistry),
		gavel.WithTracing(cfg.Tracing),
		gavel.WithTracingStdout(cfg.TracingStdout),
		gavel.WithShutdownTimeout(shutdownTimeout),
	))
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	// Shut down cleanly on SIGINT/SIGTERM
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		logger.Info(
			fmt.Sprintf("received signal: %s, initiating shutdown", sig),
			"component", programName,
		)
		if err := node.Stop(); err != nil {
			logger.Error(
				"failed to stop node: " + err.Error(),
			)
		}
		os.Exit(0)
	}()

	if err := node.Run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as a node",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			serveRun(cmd, args, cfg)
		},
	}
	return cmd
}
