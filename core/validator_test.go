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

func testValidatorKeys(t *testing.T, count int) []PubKey {
	t.Helper()
	keys := make([]PubKey, count)
	for i := range keys {
		pub, _, err := GenerateKeyPair()
		require.NoError(t, err)
		keys[i] = pub
	}
	return keys
}

func TestNewValidatorSet(t *testing.T) {
	keys := testValidatorKeys(t, 4)
	vs, err := NewValidatorSet(keys)
	require.NoError(t, err)
	assert.Equal(t, 4, vs.Size())
	for i, key := range keys {
		idx, ok := vs.Index(key)
		require.True(t, ok)
		assert.Equal(t, i, idx)
		assert.True(t, vs.Contains(key))
	}
	outsider, _, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, vs.Contains(outsider))
}

func TestNewValidatorSetEmpty(t *testing.T) {
	_, err := NewValidatorSet(nil)
	require.ErrorIs(t, err, ErrEmptyValidatorSet)
}

func TestNewValidatorSetDuplicate(t *testing.T) {
	keys := testValidatorKeys(t, 2)
	keys = append(keys, keys[0])
	_, err := NewValidatorSet(keys)
	require.ErrorIs(t, err, ErrDuplicateValidator)
}

func TestNewValidatorSetInvalidKey(t *testing.T) {
	keys := testValidatorKeys(t, 2)
	keys[1] = keys[1][:8]
	_, err := NewValidatorSet(keys)
	require.ErrorIs(t, err, ErrInvalidValidator)
}

func TestQuorum(t *testing.T) {
	testDefs := []struct {
		size      int
		threshold int
	}{
		{size: 1, threshold: 1},
		{size: 2, threshold: 2},
		{size: 3, threshold: 3},
		{size: 4, threshold: 3},
		{size: 6, threshold: 5},
		{size: 7, threshold: 5},
		{size: 10, threshold: 7},
	}
	for _, testDef := range testDefs {
		vs, err := NewValidatorSet(testValidatorKeys(t, testDef.size))
		require.NoError(t, err)
		assert.Equal(
			t,
			testDef.threshold,
			vs.QuorumThreshold(),
			"size %d",
			testDef.size,
		)
		assert.False(
			t,
			vs.HasQuorum(testDef.threshold-1),
			"size %d below threshold",
			testDef.size,
		)
		assert.True(
			t,
			vs.HasQuorum(testDef.threshold),
			"size %d at threshold",
			testDef.size,
		)
	}
}

func TestValidatorKeysRoundTrip(t *testing.T) {
	keys := testValidatorKeys(t, 5)
	data, err := EncodeValidatorKeys(keys)
	require.NoError(t, err)
	decoded, err := DecodeValidatorKeys(data)
	require.NoError(t, err)
	require.Len(t, decoded, len(keys))
	for i := range keys {
		assert.True(t, keys[i].Equal(decoded[i]))
	}
}
