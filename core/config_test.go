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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationHashDeterministic(t *testing.T) {
	keys := testValidatorKeys(t, 3)
	cfg1 := &Configuration{
		PreviousCfgHash: ZeroHash,
		ActualFrom:      100,
		Validators:      keys,
		Consensus: ConsensusParams{
			RoundTimeoutMs: 3000,
		},
	}
	cfg2 := &Configuration{
		PreviousCfgHash: ZeroHash,
		ActualFrom:      100,
		Validators:      keys,
		Consensus: ConsensusParams{
			RoundTimeoutMs: 3000,
		},
	}
	hash1, err := cfg1.Hash()
	require.NoError(t, err)
	hash2, err := cfg2.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)

	// Any content change must change the hash
	cfg2.ActualFrom = 101
	hash3, err := cfg2.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash3)
}

func TestConfigurationRoundTrip(t *testing.T) {
	cfg := &Configuration{
		PreviousCfgHash: NewHash([]byte("previous")),
		ActualFrom:      500,
		Validators:      testValidatorKeys(t, 2),
		Consensus: ConsensusParams{
			RoundTimeoutMs:   3000,
			StatusTimeoutMs:  5000,
			PeersTimeoutMs:   10000,
			TxsBlockLimit:    1000,
			MaxMessageLength: 1048576,
		},
	}
	data, err := cfg.Bytes()
	require.NoError(t, err)
	decoded, err := DecodeConfiguration(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.PreviousCfgHash, decoded.PreviousCfgHash)
	assert.Equal(t, cfg.ActualFrom, decoded.ActualFrom)
	assert.Equal(t, cfg.Consensus, decoded.Consensus)
	require.Len(t, decoded.Validators, len(cfg.Validators))

	// Re-encoding the decoded form must reproduce the canonical bytes
	reencoded, err := decoded.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, reencoded)
}

func TestDecodeConfigurationMalformed(t *testing.T) {
	_, err := DecodeConfiguration([]byte{0xff, 0x00})
	require.ErrorIs(t, err, ErrMalformedConfiguration)
}
