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

// SetVote fills one vote slot for a proposal. Slots are never
// overwritten; the unique (cfg_hash, slot) index backstops the
// duplicate check done by the caller.
func (d *Database) SetVote(vote *models.Vote, txn *Txn) error {
	if txn == nil {
		txn = d.Transaction(true)
		return txn.Do(func(txn *Txn) error {
			return d.SetVote(vote, txn)
		})
	}
	if result := txn.Metadata().Create(vote); result.Error != nil {
		return fmt.Errorf("store vote: %w", result.Error)
	}
	return nil
}

// GetVote returns the vote occupying a given slot for a proposal, or
// nil when the slot is empty
func (d *Database) GetVote(
	cfgHash core.Hash,
	slot uint32,
	txn *Txn,
) (*models.Vote, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var vote models.Vote
	if result := txn.Metadata().
		Where("cfg_hash = ? AND slot = ?", cfgHash.Bytes(), slot).
		First(&vote); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup vote: %w", result.Error)
	}
	return &vote, nil
}

// GetVotes returns the full slot array for a proposal, including empty
// slots as nil entries. Partial participation stays visible to
// auditors rather than being collapsed into a count.
func (d *Database) GetVotes(
	cfgHash core.Hash,
	numSlots uint32,
	txn *Txn,
) ([]*models.Vote, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var votes []*models.Vote
	if result := txn.Metadata().
		Where("cfg_hash = ?", cfgHash.Bytes()).
		Find(&votes); result.Error != nil {
		return nil, fmt.Errorf("list votes: %w", result.Error)
	}
	slots := make([]*models.Vote, numSlots)
	for _, vote := range votes {
		if vote.Slot >= numSlots {
			return nil, fmt.Errorf(
				"vote slot %d out of range for proposal %s (%d slots)",
				vote.Slot,
				cfgHash,
				numSlots,
			)
		}
		slots[vote.Slot] = vote
	}
	return slots, nil
}

// CountVotes returns the number of filled slots for a proposal
func (d *Database) CountVotes(cfgHash core.Hash, txn *Txn) (int, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var count int64
	if result := txn.Metadata().
		Model(&models.Vote{}).
		Where("cfg_hash = ?", cfgHash.Bytes()).
		Count(&count); result.Error != nil {
		return 0, fmt.Errorf("count votes: %w", result.Error)
	}
	return int(count), nil
}
