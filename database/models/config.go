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

// Config indexes a committed configuration. The canonical bytes live
// in the blob store keyed by Hash; this row carries the secondary
// indices: activation height and commit ordinal, both unique because
// the chain is strictly ordered.
type Config struct {
	ID          uint   `gorm:"primarykey"`
	Hash        []byte `gorm:"uniqueIndex;size:32;not null"`
	PrevHash    []byte `gorm:"index;size:32"`
	ActualFrom  uint64 `gorm:"uniqueIndex;not null"`
	Ordinal     uint64 `gorm:"uniqueIndex;not null"`
	AddedHeight uint64 `gorm:"not null"`
}

// TableName returns the table name
func (Config) TableName() string {
	return "config"
}
