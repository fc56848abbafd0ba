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

package keystore

import (
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEphemeral(t *testing.T) {
	ks := NewKeyStore(KeyStoreConfig{})
	require.False(t, ks.IsLoaded())
	require.NoError(t, ks.Load())
	require.True(t, ks.IsLoaded())
	privKey, err := ks.PrivateKey()
	require.NoError(t, err)
	assert.Len(t, privKey, ed25519.PrivateKeySize)
	pubKey, err := ks.PublicKey()
	require.NoError(t, err)
	assert.Len(t, pubKey, ed25519.PublicKeySize)
}

func TestLoadGeneratesKeyFile(t *testing.T) {
	dataDir := t.TempDir()
	ks := NewKeyStore(KeyStoreConfig{
		DataDir: dataDir,
	})
	require.NoError(t, ks.Load())
	keyPath := filepath.Join(dataDir, "node.key")
	fi, err := os.Stat(keyPath)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}
	// File holds the hex-encoded seed for the loaded key
	data, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	privKey, err := ks.PrivateKey()
	require.NoError(t, err)
	assert.Equal(
		t,
		hex.EncodeToString(privKey.Seed())+"\n",
		string(data),
	)
}

func TestLoadRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	ks1 := NewKeyStore(KeyStoreConfig{DataDir: dataDir})
	require.NoError(t, ks1.Load())
	pub1, err := ks1.PublicKey()
	require.NoError(t, err)

	// A second keystore over the same directory loads the same identity
	ks2 := NewKeyStore(KeyStoreConfig{DataDir: dataDir})
	require.NoError(t, ks2.Load())
	pub2, err := ks2.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2)
}

func TestLoadKeyPathOverride(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "custom", "identity.key")
	ks := NewKeyStore(KeyStoreConfig{KeyPath: keyPath})
	require.NoError(t, ks.Load())
	_, err := os.Stat(keyPath)
	require.NoError(t, err)
}

func TestLoadInsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permissions not checked on windows")
	}
	dataDir := t.TempDir()
	ks1 := NewKeyStore(KeyStoreConfig{DataDir: dataDir})
	require.NoError(t, ks1.Load())
	keyPath := filepath.Join(dataDir, "node.key")
	require.NoError(t, os.Chmod(keyPath, 0o644))

	ks2 := NewKeyStore(KeyStoreConfig{DataDir: dataDir})
	err := ks2.Load()
	require.ErrorIs(t, err, ErrInsecureFileMode)
	assert.False(t, ks2.IsLoaded())
}

func TestLoadMalformedKeyFile(t *testing.T) {
	dataDir := t.TempDir()
	keyPath := filepath.Join(dataDir, "node.key")
	require.NoError(
		t,
		os.WriteFile(keyPath, []byte("not hex\n"), 0o600),
	)
	ks := NewKeyStore(KeyStoreConfig{DataDir: dataDir})
	require.Error(t, ks.Load())

	// Valid hex but wrong seed length
	require.NoError(
		t,
		os.WriteFile(keyPath, []byte("abcd\n"), 0o600),
	)
	err := ks.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key seed size")
}

func TestKeyNotLoaded(t *testing.T) {
	ks := NewKeyStore(KeyStoreConfig{})
	_, err := ks.PrivateKey()
	require.ErrorIs(t, err, ErrKeyNotLoaded)
	_, err = ks.PublicKey()
	require.ErrorIs(t, err, ErrKeyNotLoaded)
}
