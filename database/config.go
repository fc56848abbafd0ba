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

	"github.com/blinklabs-io/gavel/core"
	"github.com/blinklabs-io/gavel/database/models"
	"gorm.io/gorm"
)

// ErrNoGenesisConfig signals a bootstrap invariant violation: an
// active-configuration lookup found no committed configuration at all.
// This is fatal and must not be silently defaulted.
var ErrNoGenesisConfig = errors.New("no genesis configuration present")

// SetConfig inserts a committed configuration keyed by its content
// hash and maintains the activation-height and ordinal indices. A
// no-op when the hash already exists (content addressing makes the
// insert idempotent).
func (d *Database) SetConfig(
	cfg *models.Config,
	cfgBytes []byte,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		return txn.Do(func(txn *Txn) error {
			return d.SetConfig(cfg, cfgBytes, txn)
		})
	}
	// Existing entry wins: a configuration is immutable once committed
	var existing models.Config
	result := txn.Metadata().Where("hash = ?", cfg.Hash).First(&existing)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup config: %w", result.Error)
	}
	var count int64
	if result := txn.Metadata().Model(&models.Config{}).Count(&count); result.Error != nil {
		return fmt.Errorf("count configs: %w", result.Error)
	}
	cfg.Ordinal = uint64(count) //nolint:gosec
	cfgHash, err := core.HashFromBytes(cfg.Hash)
	if err != nil {
		return err
	}
	if err := setConfigBlob(txn.Blob(), cfgHash, cfgBytes); err != nil {
		return fmt.Errorf("store config blob: %w", err)
	}
	if result := txn.Metadata().Create(cfg); result.Error != nil {
		return fmt.Errorf("store config: %w", result.Error)
	}
	return nil
}

// GetConfig returns a committed configuration by content hash, or nil
// when the hash is unknown
func (d *Database) GetConfig(
	hash core.Hash,
	txn *Txn,
) (*models.Config, []byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var cfg models.Config
	if result := txn.Metadata().Where("hash = ?", hash.Bytes()).First(&cfg); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("lookup config: %w", result.Error)
	}
	cfgBytes, err := getConfigBlob(txn.Blob(), hash)
	if err != nil {
		return nil, nil, fmt.Errorf("read config blob: %w", err)
	}
	return &cfg, cfgBytes, nil
}

// GetActiveConfig returns the configuration with the greatest
// activation height at or below the given height. Returns
// ErrNoGenesisConfig when no configuration qualifies.
func (d *Database) GetActiveConfig(
	height uint64,
	txn *Txn,
) (*models.Config, []byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var cfg models.Config
	if result := txn.Metadata().
		Where("actual_from <= ?", height).
		Order("actual_from DESC").
		First(&cfg); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNoGenesisConfig
		}
		return nil, nil, fmt.Errorf("lookup active config: %w", result.Error)
	}
	return d.finishConfigLookup(&cfg, txn)
}

// GetNextConfig returns the configuration with the smallest activation
// height strictly above the given height, or nil when no future change
// is scheduled
func (d *Database) GetNextConfig(
	height uint64,
	txn *Txn,
) (*models.Config, []byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var cfg models.Config
	if result := txn.Metadata().
		Where("actual_from > ?", height).
		Order("actual_from ASC").
		First(&cfg); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("lookup next config: %w", result.Error)
	}
	return d.finishConfigLookup(&cfg, txn)
}

// GetMaxActualFrom returns the greatest committed activation height.
// The bool return is false when no configuration has been committed.
func (d *Database) GetMaxActualFrom(txn *Txn) (uint64, bool, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var cfg models.Config
	if result := txn.Metadata().
		Order("actual_from DESC").
		First(&cfg); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup max activation height: %w", result.Error)
	}
	return cfg.ActualFrom, true, nil
}

// ListConfigs returns all committed configurations in commit (chain)
// order
func (d *Database) ListConfigs(txn *Txn) ([]*models.Config, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var configs []*models.Config
	if result := txn.Metadata().
		Order("ordinal ASC").
		Find(&configs); result.Error != nil {
		return nil, fmt.Errorf("list configs: %w", result.Error)
	}
	return configs, nil
}

func (d *Database) finishConfigLookup(
	cfg *models.Config,
	txn *Txn,
) (*models.Config, []byte, error) {
	cfgHash, err := core.HashFromBytes(cfg.Hash)
	if err != nil {
		return nil, nil, err
	}
	cfgBytes, err := getConfigBlob(txn.Blob(), cfgHash)
	if err != nil {
		return nil, nil, fmt.Errorf("read config blob: %w", err)
	}
	if cfgBytes == nil {
		return nil, nil, fmt.Errorf(
			"config blob missing for committed hash %s",
			cfgHash,
		)
	}
	return cfg, cfgBytes, nil
}
