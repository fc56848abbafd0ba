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
	"github.com/blinklabs-io/gavel/event"
)

const (
	ProposalEventType event.EventType = "governance.proposal"
	VoteEventType     event.EventType = "governance.vote"
	CommitEventType   event.EventType = "governance.commit"
)

// ProposalEvent is published when a proposal is accepted into the
// propose ledger
type ProposalEvent struct {
	ConfigHash core.Hash
	TxHash     core.Hash
	Proposer   core.PubKey
	ActualFrom uint64
	Height     uint64
}

// VoteEvent is published when a vote fills a slot
type VoteEvent struct {
	ConfigHash core.Hash
	TxHash     core.Hash
	Voter      core.PubKey
	Slot       uint32
	Filled     int
	NumSlots   uint32
	Height     uint64
}

// CommitEvent is published when a proposal reaches quorum and its
// configuration is committed
type CommitEvent struct {
	ConfigHash core.Hash
	ActualFrom uint64
	Height     uint64
}
