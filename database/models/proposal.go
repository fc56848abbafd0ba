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

// Proposal records a configuration proposal, keyed by the proposed
// configuration's content hash. At most one proposal exists per hash.
// VotersCbor is the CBOR-encoded ordered validator key list captured
// at proposal time; vote slots are indexed by position in that list.
type Proposal struct {
	ID          uint   `gorm:"primarykey"`
	CfgHash     []byte `gorm:"uniqueIndex;size:32;not null"`
	PrevCfgHash []byte `gorm:"index;size:32"`
	ActualFrom  uint64 `gorm:"index;not null"`
	Proposer    []byte `gorm:"size:32;not null"`
	TxHash      []byte `gorm:"size:32;not null"`
	VotersCbor  []byte `gorm:"not null"`
	NumSlots    uint32 `gorm:"not null"`
	Ordinal     uint64 `gorm:"uniqueIndex;not null"`
	AddedHeight uint64 `gorm:"not null"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}
