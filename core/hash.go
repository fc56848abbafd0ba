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
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the width of a content hash in bytes
const HashSize = 32

var ErrInvalidHashLength = errors.New("invalid hash length")

// Hash is a blake2b-256 digest used for content addressing. The zero
// value is the sentinel previous-config reference for the genesis
// configuration.
type Hash [HashSize]byte

// ZeroHash is the genesis sentinel
var ZeroHash = Hash{}

// NewHash computes the blake2b-256 digest of the given bytes
func NewHash(data []byte) Hash {
	return Hash(blake2b.Sum256(data))
}

// HashFromBytes converts a raw byte slice into a Hash
func HashFromBytes(data []byte) (Hash, error) {
	if len(data) != HashSize {
		return Hash{}, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidHashLength,
			HashSize,
			len(data),
		)
	}
	var h Hash
	copy(h[:], data)
	return h, nil
}

// HashFromHex parses a hex-encoded hash
func HashFromHex(s string) (Hash, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("decode hash hex: %w", err)
	}
	return HashFromBytes(data)
}

// Bytes returns the hash as a byte slice
func (h Hash) Bytes() []byte {
	return h[:]
}

// IsZero returns true for the genesis sentinel value
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tmpHash, err := HashFromHex(s)
	if err != nil {
		return err
	}
	*h = tmpHash
	return nil
}
