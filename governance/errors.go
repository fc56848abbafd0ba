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
	"errors"

	"github.com/blinklabs-io/gavel/core"
)

// Transaction rejection reasons. All are local, deterministic
// validation failures detected before any state mutation: a rejected
// transaction leaves every table untouched and the ledger keeps
// processing subsequent transactions.
var (
	// ErrDuplicateProposal is returned when a proposal already exists
	// for the proposed configuration's hash
	ErrDuplicateProposal = errors.New("duplicate proposal")

	// ErrNonMonotonicActivation is returned when a proposed
	// configuration does not activate strictly after its predecessor
	ErrNonMonotonicActivation = errors.New("non-monotonic activation height")

	// ErrUnknownPredecessor is returned when the proposed
	// configuration references a previous configuration hash that has
	// never been committed
	ErrUnknownPredecessor = errors.New("unknown predecessor configuration")

	// ErrUnknownProposal is returned when a vote targets a
	// configuration hash with no recorded proposal
	ErrUnknownProposal = errors.New("unknown proposal")

	// ErrNotAValidator is returned when the transaction signer is not
	// a member of the voting validator set
	ErrNotAValidator = errors.New("signer is not a validator")

	// ErrDuplicateVote is returned when the voter's slot is already
	// filled. The existing vote is never overwritten.
	ErrDuplicateVote = errors.New("duplicate vote")

	// ErrActivationConflict is returned when committing a
	// configuration would violate the single-active-configuration
	// invariant: its activation height is not strictly greater than
	// every already-committed activation height
	ErrActivationConflict = errors.New("activation height conflict")

	// ErrSignatureInvalid is returned when a transaction signature
	// does not verify against its signer
	ErrSignatureInvalid = errors.New("invalid signature")

	// ErrMalformedConfiguration is returned when embedded
	// configuration bytes fail canonical decoding
	ErrMalformedConfiguration = core.ErrMalformedConfiguration
)
