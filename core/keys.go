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
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PubKey is an ed25519 public key identifying a validator
type PubKey []byte

// GenerateKeyPair creates a new ed25519 keypair
func GenerateKeyPair() (PubKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate keypair: %w", err)
	}
	return PubKey(pub), priv, nil
}

// PubKeyFromHex parses a hex-encoded public key
func PubKeyFromHex(s string) (PubKey, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key hex: %w", err)
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf(
			"invalid public key length: expected %d bytes, got %d",
			ed25519.PublicKeySize,
			len(data),
		)
	}
	return PubKey(data), nil
}

// Equal compares two public keys
func (p PubKey) Equal(other PubKey) bool {
	return bytes.Equal(p, other)
}

func (p PubKey) String() string {
	return hex.EncodeToString(p)
}

func (p PubKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PubKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tmpKey, err := PubKeyFromHex(s)
	if err != nil {
		return err
	}
	*p = tmpKey
	return nil
}

// Sign signs the given message with an ed25519 private key
func Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Verify checks an ed25519 signature
func Verify(pub PubKey, msg []byte, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}
