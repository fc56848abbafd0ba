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
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var ErrMalformedConfiguration = errors.New("malformed configuration")

// cborEncMode is the canonical (deterministic) encoding used for
// content addressing. Identical content must always produce identical
// bytes, and therefore an identical hash.
var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encode mode: %s", err))
	}
}

// ConsensusParams holds the consensus-level knobs carried by every
// configuration
type ConsensusParams struct {
	RoundTimeoutMs   uint64 `cbor:"0,keyasint" json:"round_timeout_ms"`
	StatusTimeoutMs  uint64 `cbor:"1,keyasint" json:"status_timeout_ms"`
	PeersTimeoutMs   uint64 `cbor:"2,keyasint" json:"peers_timeout_ms"`
	TxsBlockLimit    uint32 `cbor:"3,keyasint" json:"txs_block_limit"`
	MaxMessageLength uint32 `cbor:"4,keyasint" json:"max_message_len"`
}

// Configuration is the versioned object under governance. It is
// created immutable at proposal time and never mutated afterwards.
type Configuration struct {
	PreviousCfgHash Hash                       `cbor:"0,keyasint" json:"previous_cfg_hash"`
	ActualFrom      uint64                     `cbor:"1,keyasint" json:"actual_from"`
	Validators      []PubKey                   `cbor:"2,keyasint" json:"validators"`
	Consensus       ConsensusParams            `cbor:"3,keyasint" json:"consensus"`
	Services        map[string]cbor.RawMessage `cbor:"4,keyasint" json:"services,omitempty"`
}

// Bytes returns the canonical serialization of the configuration
func (c *Configuration) Bytes() ([]byte, error) {
	data, err := cborEncMode.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}
	return data, nil
}

// Hash returns the content hash of the canonical serialization
func (c *Configuration) Hash() (Hash, error) {
	data, err := c.Bytes()
	if err != nil {
		return Hash{}, err
	}
	return NewHash(data), nil
}

// DecodeConfiguration decodes canonical configuration bytes
func DecodeConfiguration(data []byte) (*Configuration, error) {
	var cfg Configuration
	if err := cbor.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedConfiguration, err)
	}
	return &cfg, nil
}
