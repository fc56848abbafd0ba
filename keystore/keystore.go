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

// Package keystore manages the node identity keypair used to sign
// governance transactions.
package keystore

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blinklabs-io/gavel/core"
)

const keyFileName = "node.key"

var (
	ErrKeyNotLoaded     = errors.New("node key not loaded")
	ErrInsecureFileMode = errors.New("insecure file permissions")
)

// KeyStoreConfig holds configuration for the KeyStore
type KeyStoreConfig struct {
	// DataDir is the directory holding the key file. An empty DataDir
	// creates an ephemeral in-memory keypair.
	DataDir string
	// KeyPath overrides the default key file location
	KeyPath string
	// SopsEnabled encrypts the key file at rest with sops
	SopsEnabled bool
	// Logger for keystore events
	Logger *slog.Logger
}

// KeyStore holds the node ed25519 identity keypair. The key file
// stores the hex-encoded private key seed, optionally sops-encrypted.
type KeyStore struct {
	config  KeyStoreConfig
	logger  *slog.Logger
	privKey ed25519.PrivateKey
	mu      sync.RWMutex
}

// NewKeyStore creates a KeyStore
func NewKeyStore(config KeyStoreConfig) *KeyStore {
	ks := &KeyStore{
		config: config,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		ks.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		ks.logger = config.Logger.With("component", "keystore")
	}
	return ks
}

// Load reads the node key from disk, generating and persisting a new
// keypair when no key file exists yet
func (ks *KeyStore) Load() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.config.DataDir == "" && ks.config.KeyPath == "" {
		// Ephemeral identity
		_, privKey, err := core.GenerateKeyPair()
		if err != nil {
			return err
		}
		ks.privKey = privKey
		ks.logger.Info(
			"generated ephemeral node key",
			"pubkey", ks.publicKeyUnsafe().String(),
		)
		return nil
	}
	keyPath := ks.keyPath()
	f, err := os.Open(keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ks.generate(keyPath)
		}
		return fmt.Errorf("failed to open key file: %w", err)
	}
	defer f.Close()
	if err := checkOpenFilePermissions(f); err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}
	if ks.config.SopsEnabled {
		data, err = Decrypt(data)
		if err != nil {
			return fmt.Errorf("failed to decrypt key file: %w", err)
		}
	}
	seed, err := hex.DecodeString(string(bytes.TrimSpace(data)))
	if err != nil {
		return fmt.Errorf("failed to decode key file: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf(
			"invalid key seed size: expected %d bytes, got %d",
			ed25519.SeedSize,
			len(seed),
		)
	}
	ks.privKey = ed25519.NewKeyFromSeed(seed)
	ks.logger.Info(
		"node key loaded",
		"path", keyPath,
		"pubkey", ks.publicKeyUnsafe().String(),
	)
	return nil
}

// IsLoaded returns true when a keypair is available
func (ks *KeyStore) IsLoaded() bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.privKey != nil
}

// PrivateKey returns a copy of the node private key
func (ks *KeyStore) PrivateKey() (ed25519.PrivateKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.privKey == nil {
		return nil, ErrKeyNotLoaded
	}
	return bytes.Clone(ks.privKey), nil
}

// PublicKey returns the node public key
func (ks *KeyStore) PublicKey() (core.PubKey, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.privKey == nil {
		return nil, ErrKeyNotLoaded
	}
	return ks.publicKeyUnsafe(), nil
}

func (ks *KeyStore) publicKeyUnsafe() core.PubKey {
	return core.PubKey(ks.privKey.Public().(ed25519.PublicKey))
}

func (ks *KeyStore) keyPath() string {
	if ks.config.KeyPath != "" {
		return ks.config.KeyPath
	}
	return filepath.Join(ks.config.DataDir, keyFileName)
}

// generate creates a new keypair and persists it at the given path
// with owner-only permissions
func (ks *KeyStore) generate(keyPath string) error {
	_, privKey, err := core.GenerateKeyPair()
	if err != nil {
		return err
	}
	data := []byte(hex.EncodeToString(privKey.Seed()) + "\n")
	if ks.config.SopsEnabled {
		data, err = Encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt key file: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	ks.privKey = privKey
	ks.logger.Info(
		"generated node key",
		"path", keyPath,
		"pubkey", ks.publicKeyUnsafe().String(),
	)
	return nil
}
