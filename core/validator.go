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

package core

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	// MaxValidators bounds the validator set size. Vote slots are
	// indexed by validator position, so the bound keeps slot arrays
	// small and index arithmetic safe.
	MaxValidators = 65535
)

var (
	ErrEmptyValidatorSet  = errors.New("empty validator set")
	ErrTooManyValidators  = errors.New("too many validators")
	ErrDuplicateValidator = errors.New("duplicate validator")
	ErrInvalidValidator   = errors.New("invalid validator public key")
)

// ValidatorSet is an ordered set of validator public keys. The order
// is significant: a validator's position is its vote slot index, and
// the mapping is captured once at proposal time so later validator-set
// changes cannot shift slots.
type ValidatorSet struct {
	validators []PubKey
	byKey      map[string]int
}

// NewValidatorSet builds a validator set from an ordered key list
func NewValidatorSet(validators []PubKey) (*ValidatorSet, error) {
	if len(validators) == 0 {
		return nil, ErrEmptyValidatorSet
	}
	if len(validators) > MaxValidators {
		return nil, fmt.Errorf(
			"%w: %d (max %d)",
			ErrTooManyValidators,
			len(validators),
			MaxValidators,
		)
	}
	vs := &ValidatorSet{
		validators: make([]PubKey, len(validators)),
		byKey:      make(map[string]int),
	}
	for i, v := range validators {
		if len(v) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: validator %d", ErrInvalidValidator, i)
		}
		if _, exists := vs.byKey[string(v)]; exists {
			return nil, fmt.Errorf("%w: validator %d", ErrDuplicateValidator, i)
		}
		vs.validators[i] = v
		vs.byKey[string(v)] = i
	}
	return vs, nil
}

// Size returns the number of validators in the set
func (vs *ValidatorSet) Size() int {
	return len(vs.validators)
}

// Keys returns the ordered validator keys
func (vs *ValidatorSet) Keys() []PubKey {
	ret := make([]PubKey, len(vs.validators))
	copy(ret, vs.validators)
	return ret
}

// Index returns the slot index for a validator key
func (vs *ValidatorSet) Index(pub PubKey) (int, bool) {
	idx, ok := vs.byKey[string(pub)]
	return idx, ok
}

// Contains returns true if the key belongs to the set
func (vs *ValidatorSet) Contains(pub PubKey) bool {
	_, ok := vs.byKey[string(pub)]
	return ok
}

// EncodeValidatorKeys canonically encodes an ordered validator key
// list, used to snapshot the voting set at proposal time
func EncodeValidatorKeys(keys []PubKey) ([]byte, error) {
	data, err := cborEncMode.Marshal(keys)
	if err != nil {
		return nil, fmt.Errorf("encode validator keys: %w", err)
	}
	return data, nil
}

// DecodeValidatorKeys decodes an ordered validator key list
func DecodeValidatorKeys(data []byte) ([]PubKey, error) {
	var keys []PubKey
	if err := cbor.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("decode validator keys: %w", err)
	}
	return keys, nil
}

// QuorumThreshold returns the smallest vote count that constitutes a
// byzantine-fault-tolerant quorum: strictly more than two-thirds of
// the set
func (vs *ValidatorSet) QuorumThreshold() int {
	return len(vs.validators)*2/3 + 1
}

// HasQuorum reports whether the given filled-slot count is strictly
// more than two-thirds of the set
func (vs *ValidatorSet) HasQuorum(filled int) bool {
	return filled*3 > len(vs.validators)*2
}
