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

package governance

import (
	"github.com/blinklabs-io/gavel/core"
)

// ActiveAt resolves the configuration active at the given height: the
// committed configuration with the greatest activation height at or
// below it. Exactly one configuration satisfies this for any height at
// or above the genesis activation; a missing genesis surfaces as
// database.ErrNoGenesisConfig.
func (q *Query) ActiveAt(height uint64) (core.Hash, *core.Configuration, error) {
	txn := q.db.Transaction(false)
	defer txn.Release()
	cfgModel, cfgBytes, err := q.db.GetActiveConfig(height, txn)
	if err != nil {
		return core.Hash{}, nil, err
	}
	cfgHash, err := core.HashFromBytes(cfgModel.Hash)
	if err != nil {
		return core.Hash{}, nil, err
	}
	cfg, err := core.DecodeConfiguration(cfgBytes)
	if err != nil {
		return core.Hash{}, nil, err
	}
	return cfgHash, cfg, nil
}

// FollowingAfter resolves the next configuration scheduled to activate
// strictly after the given height, or nil when no future change is
// scheduled
func (q *Query) FollowingAfter(
	height uint64,
) (*core.Hash, *core.Configuration, error) {
	txn := q.db.Transaction(false)
	defer txn.Release()
	cfgModel, cfgBytes, err := q.db.GetNextConfig(height, txn)
	if err != nil {
		return nil, nil, err
	}
	if cfgModel == nil {
		return nil, nil, nil
	}
	cfgHash, err := core.HashFromBytes(cfgModel.Hash)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := core.DecodeConfiguration(cfgBytes)
	if err != nil {
		return nil, nil, err
	}
	return &cfgHash, cfg, nil
}
