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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHashDeterministic(t *testing.T) {
	h1 := NewHash([]byte("test data"))
	h2 := NewHash([]byte("test data"))
	h3 := NewHash([]byte("other data"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestHashHexRoundTrip(t *testing.T) {
	h := NewHash([]byte("test data"))
	parsed, err := HashFromHex(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestHashFromBytesLength(t *testing.T) {
	_, err := HashFromBytes([]byte("too short"))
	require.ErrorIs(t, err, ErrInvalidHashLength)
	h := NewHash([]byte("test data"))
	parsed, err := HashFromBytes(h.Bytes())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestHashZeroSentinel(t *testing.T) {
	assert.True(t, ZeroHash.IsZero())
	assert.False(t, NewHash([]byte("x")).IsZero())
}

func TestHashJSONRoundTrip(t *testing.T) {
	h := NewHash([]byte("test data"))
	data, err := json.Marshal(h)
	require.NoError(t, err)
	var decoded Hash
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, h, decoded)
}
