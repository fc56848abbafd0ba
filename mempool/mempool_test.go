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

package mempool

import (
	"testing"

	"github.com/blinklabs-io/gavel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVoteTxBytes(t *testing.T, seed string) []byte {
	t.Helper()
	_, priv, err := core.GenerateKeyPair()
	require.NoError(t, err)
	tx, err := core.NewVoteTx(priv, core.NewHash([]byte(seed)))
	require.NoError(t, err)
	raw, err := core.EncodeTx(tx)
	require.NoError(t, err)
	return raw
}

func TestAddTransaction(t *testing.T) {
	m := NewMempool(MempoolConfig{})
	raw := testVoteTxBytes(t, "config A")
	txHash, err := m.AddTransaction(raw)
	require.NoError(t, err)
	assert.False(t, txHash.IsZero())
	txs := m.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, txHash, txs[0].Hash)
	assert.Equal(t, core.TxTypeVote, txs[0].Type)
}

func TestAddTransactionMalformed(t *testing.T) {
	m := NewMempool(MempoolConfig{})
	_, err := m.AddTransaction([]byte{0xde, 0xad})
	require.ErrorIs(t, err, core.ErrMalformedTx)
	assert.Empty(t, m.Transactions())
}

func TestAddTransactionBadSignature(t *testing.T) {
	m := NewMempool(MempoolConfig{})
	_, priv, err := core.GenerateKeyPair()
	require.NoError(t, err)
	tx, err := core.NewVoteTx(priv, core.NewHash([]byte("config")))
	require.NoError(t, err)
	tx.Sig[0] ^= 0xff
	raw, err := core.EncodeTx(tx)
	require.NoError(t, err)
	_, err = m.AddTransaction(raw)
	require.ErrorIs(t, err, core.ErrTxSignature)
}

func TestAddTransactionDuplicate(t *testing.T) {
	m := NewMempool(MempoolConfig{})
	raw := testVoteTxBytes(t, "config A")
	hash1, err := m.AddTransaction(raw)
	require.NoError(t, err)
	hash2, err := m.AddTransaction(raw)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)
	assert.Len(t, m.Transactions(), 1)
}

func TestAddTransactionCapacity(t *testing.T) {
	raw := testVoteTxBytes(t, "config A")
	m := NewMempool(MempoolConfig{
		MempoolCapacity: int64(len(raw)),
	})
	_, err := m.AddTransaction(raw)
	require.NoError(t, err)
	_, err = m.AddTransaction(testVoteTxBytes(t, "config B"))
	var fullErr *MempoolFullError
	require.ErrorAs(t, err, &fullErr)
}

func TestDrain(t *testing.T) {
	m := NewMempool(MempoolConfig{})
	var hashes []core.Hash
	for _, seed := range []string{"a", "b", "c"} {
		txHash, err := m.AddTransaction(testVoteTxBytes(t, seed))
		require.NoError(t, err)
		hashes = append(hashes, txHash)
	}

	// FIFO order, bounded by max
	drained := m.Drain(2)
	require.Len(t, drained, 2)
	assert.Equal(t, hashes[0], drained[0].Hash)
	assert.Equal(t, hashes[1], drained[1].Hash)
	assert.Len(t, m.Transactions(), 1)

	drained = m.Drain(10)
	require.Len(t, drained, 1)
	assert.Equal(t, hashes[2], drained[0].Hash)
	assert.Empty(t, m.Transactions())
	assert.Nil(t, m.Drain(10))
}
