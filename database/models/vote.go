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

package models

// Vote fills one validator slot for one proposal. The (cfg_hash, slot)
// pair is unique: a slot is filled exactly once and never overwritten.
type Vote struct {
	ID          uint   `gorm:"primarykey"`
	CfgHash     []byte `gorm:"uniqueIndex:idx_vote_slot,priority:1;size:32;not null"`
	Slot        uint32 `gorm:"uniqueIndex:idx_vote_slot,priority:2;not null"`
	Voter       []byte `gorm:"size:32;not null"`
	TxHash      []byte `gorm:"size:32;not null"`
	Signature   []byte `gorm:"size:64;not null"`
	AddedHeight uint64 `gorm:"not null"`
}

// TableName returns the table name
func (Vote) TableName() string {
	return "vote"
}
