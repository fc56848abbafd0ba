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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/gavel/core"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "gavel.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	BindAddr        string `yaml:"bindAddr"                                   split_words:"true"`
	DatabasePath    string `yaml:"databasePath"                               split_words:"true"`
	GenesisFile     string `yaml:"genesisFile"                                split_words:"true"`
	KeyPath         string `yaml:"keyPath"                                    split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout"                            split_words:"true"`
	MempoolCapacity int64  `yaml:"mempoolCapacity"                            split_words:"true"`
	BlockIntervalMs uint   `yaml:"blockIntervalMs"                            split_words:"true"`
	TxsBlockLimit   int    `yaml:"txsBlockLimit"                              split_words:"true"`
	ApiPort         uint   `yaml:"apiPort"                                    split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"                                split_words:"true"`
	SopsKeys        bool   `yaml:"sopsKeys"        envconfig:"GAVEL_SOPS_KEYS"`
	Tracing         bool   `yaml:"tracing"                                    split_words:"true"`
	TracingStdout   bool   `yaml:"tracingStdout"                              split_words:"true"`
}

var globalConfig = &Config{
	BindAddr:        "0.0.0.0",
	DatabasePath:    ".gavel",
	GenesisFile:     "",
	KeyPath:         "",
	ShutdownTimeout: DefaultShutdownTimeout,
	MempoolCapacity: 1048576,
	BlockIntervalMs: 1000,
	TxsBlockLimit:   100,
	ApiPort:         8090,
	MetricsPort:     12790,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.gavel/gavel.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".gavel", "gavel.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/gavel/gavel.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/gavel/gavel.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("gavel", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// LoadGenesisConfig reads a genesis configuration document (JSON) from
// the configured file. Returns nil when no genesis file is configured,
// which is valid for a store that has already been bootstrapped.
func (c *Config) LoadGenesisConfig() (*core.Configuration, error) {
	if c.GenesisFile == "" {
		return nil, nil
	}
	buf, err := os.ReadFile(c.GenesisFile)
	if err != nil {
		return nil, fmt.Errorf("error reading genesis file: %w", err)
	}
	var cfg core.Configuration
	if err := json.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing genesis file: %w", err)
	}
	if !cfg.PreviousCfgHash.IsZero() {
		return nil, fmt.Errorf(
			"genesis previous config hash must be zero, got %s",
			cfg.PreviousCfgHash,
		)
	}
	if len(cfg.Validators) == 0 {
		return nil, errors.New("genesis validator set is empty")
	}
	return &cfg, nil
}
