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

	"github.com/blinklabs-io/gavel/database/models"
	"gorm.io/gorm"
)

// GetTip returns the height of the last applied block. The bool return
// is false when no block has been applied yet.
func (d *Database) GetTip(txn *Txn) (uint64, bool, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	var tip models.Tip
	if result := txn.Metadata().First(&tip); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup tip: %w", result.Error)
	}
	return tip.Height, true, nil
}

// SetTip records the height of the last applied block
func (d *Database) SetTip(height uint64, txn *Txn) error {
	if txn == nil {
		txn = d.Transaction(true)
		return txn.Do(func(txn *Txn) error {
			return d.SetTip(height, txn)
		})
	}
	var tip models.Tip
	if result := txn.Metadata().First(&tip); result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup tip: %w", result.Error)
		}
		tip = models.Tip{Height: height}
		if result := txn.Metadata().Create(&tip); result.Error != nil {
			return fmt.Errorf("store tip: %w", result.Error)
		}
		return nil
	}
	tip.Height = height
	if result := txn.Metadata().Save(&tip); result.Error != nil {
		return fmt.Errorf("update tip: %w", result.Error)
	}
	return nil
}
