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

// SetProposal stores a new proposal record and the canonical bytes of
// the proposed configuration. The caller is responsible for rejecting
// duplicates before calling; a conflicting insert surfaces as an error
// from the unique index.
func (d *Database) SetProposal(
	proposal *models.Proposal,
	cfgBytes []byte,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		return txn.Do(func(txn *Txn) error {
			return d.SetProposal(proposal, cfgBytes, txn)
		})
	}
	var count int64
	if result := txn.Metadata().Model(&models.Proposal{}).Count(&count); result.Error != nil {
		return fmt.Errorf("count proposals: %w", result.Error)
	}
	proposal.Ordinal = uint64(count) //nolint:gosec
	cfgHash, err := core.HashFromBytes(proposal.CfgHash)
	if err != nil {
		return err
	}
	if err := setConfigBlob(txn.Blob(), cfgHash, cfgBytes); err != nil {
		return fmt.Errorf("store proposal config blob: %w", err)
	}
	if result := txn.Metadata().Create(proposal); result.Error != nil {
		return fmt.Errorf("store proposal: %w", result.Error)
	}
	return nil
}

// GetProposal returns the proposal for a configuration hash along with
// the proposed configuration's canonical bytes, or nil when no
// proposal exists
func (d *Database) GetProposal(
	cfgHash core.Hash,
	txn *Txn,
) (*models.Proposal, []byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var proposal models.Proposal
	if result := txn.Metadata().
		Where("cfg_hash = ?", cfgHash.Bytes()).
		First(&proposal); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("lookup proposal: %w", result.Error)
	}
	cfgBytes, err := getConfigBlob(txn.Blob(), cfgHash)
	if err != nil {
		return nil, nil, fmt.Errorf("read proposal config blob: %w", err)
	}
	if cfgBytes == nil {
		return nil, nil, fmt.Errorf(
			"config blob missing for proposed hash %s",
			cfgHash,
		)
	}
	return &proposal, cfgBytes, nil
}

// ListProposals returns all proposals in submission order
func (d *Database) ListProposals(txn *Txn) ([]*models.Proposal, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var proposals []*models.Proposal
	if result := txn.Metadata().
		Order("ordinal ASC").
		Find(&proposals); result.Error != nil {
		return nil, fmt.Errorf("list proposals: %w", result.Error)
	}
	return proposals, nil
}
