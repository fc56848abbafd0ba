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

package ledger

import (
	"crypto/ed25519"
	"testing"

	"github.com/blinklabs-io/gavel/core"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/governance"
	"github.com/blinklabs-io/gavel/mempool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNode struct {
	db       *database.Database
	state    *governance.State
	query    *governance.Query
	mempool  *mempool.Mempool
	ledger   *LedgerState
	privKeys []ed25519.PrivateKey
	pubKeys  []core.PubKey
	genesis  core.Hash
}

func setupTestNode(t *testing.T) *testNode {
	t.Helper()
	db, err := database.New(database.Config{
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	n := &testNode{
		db:      db,
		state:   governance.NewState(governance.StateConfig{Database: db}),
		query:   governance.NewQuery(db),
		mempool: mempool.NewMempool(mempool.MempoolConfig{}),
	}
	for range 4 {
		pub, priv, err := core.GenerateKeyPair()
		require.NoError(t, err)
		n.privKeys = append(n.privKeys, priv)
		n.pubKeys = append(n.pubKeys, pub)
	}
	n.genesis, err = n.state.BootstrapGenesis(&core.Configuration{
		PreviousCfgHash: core.ZeroHash,
		ActualFrom:      0,
		Validators:      n.pubKeys,
	})
	require.NoError(t, err)
	n.ledger = NewLedgerState(LedgerStateConfig{
		Database: db,
		State:    n.state,
		Mempool:  n.mempool,
	})
	return n
}

func (n *testNode) submit(t *testing.T, tx core.SignedTx) {
	t.Helper()
	raw, err := core.EncodeTx(tx)
	require.NoError(t, err)
	_, err = n.mempool.AddTransaction(raw)
	require.NoError(t, err)
}

func TestApplyBlockAdvancesHeight(t *testing.T) {
	n := setupTestNode(t)
	require.NoError(t, n.ledger.ApplyBlock())
	require.NoError(t, n.ledger.ApplyBlock())
	assert.Equal(t, uint64(2), n.ledger.Height())

	// Height is persisted as the tip
	height, ok, err := n.db.GetTip(nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), height)
}

func TestApplyBlockDrainsMempool(t *testing.T) {
	n := setupTestNode(t)
	cfg := &core.Configuration{
		PreviousCfgHash: n.genesis,
		ActualFrom:      100,
		Validators:      n.pubKeys,
	}
	cfgBytes, err := cfg.Bytes()
	require.NoError(t, err)
	cfgHash := core.NewHash(cfgBytes)
	proposeTx, err := core.NewProposeTx(n.privKeys[0], cfgBytes)
	require.NoError(t, err)
	n.submit(t, proposeTx)
	for i := range 3 {
		voteTx, err := core.NewVoteTx(n.privKeys[i], cfgHash)
		require.NoError(t, err)
		n.submit(t, voteTx)
	}

	require.NoError(t, n.ledger.ApplyBlock())
	assert.Empty(t, n.mempool.Transactions())

	// Proposal and quorum votes landed in one block
	status, err := n.query.ConfigByHash(cfgHash)
	require.NoError(t, err)
	require.NotNil(t, status.CommittedConfig)
	assert.Equal(t, uint64(100), status.CommittedConfig.ActualFrom)
}

func TestApplyBlockRejectionDoesNotAbort(t *testing.T) {
	n := setupTestNode(t)
	cfg := &core.Configuration{
		PreviousCfgHash: n.genesis,
		ActualFrom:      100,
		Validators:      n.pubKeys,
	}
	cfgBytes, err := cfg.Bytes()
	require.NoError(t, err)
	cfgHash := core.NewHash(cfgBytes)

	// A vote for an unknown proposal is rejected, but the propose
	// transaction after it in the same block still applies
	voteTx, err := core.NewVoteTx(
		n.privKeys[0],
		core.NewHash([]byte("never proposed")),
	)
	require.NoError(t, err)
	n.submit(t, voteTx)
	proposeTx, err := core.NewProposeTx(n.privKeys[0], cfgBytes)
	require.NoError(t, err)
	n.submit(t, proposeTx)

	require.NoError(t, n.ledger.ApplyBlock())
	status, err := n.query.ConfigByHash(cfgHash)
	require.NoError(t, err)
	require.NotNil(t, status.Proposal)
	assert.Equal(t, uint64(1), n.ledger.Height())
}

func TestApplyBlockFailureRequeuesTransactions(t *testing.T) {
	n := setupTestNode(t)
	cfg := &core.Configuration{
		PreviousCfgHash: n.genesis,
		ActualFrom:      100,
		Validators:      n.pubKeys,
	}
	cfgBytes, err := cfg.Bytes()
	require.NoError(t, err)
	proposeTx, err := core.NewProposeTx(n.privKeys[0], cfgBytes)
	require.NoError(t, err)
	n.submit(t, proposeTx)
	txHash, err := proposeTx.TxHash()
	require.NoError(t, err)

	// Break the metadata store so the block transaction cannot commit
	require.NoError(t, n.db.Metadata().Close())
	require.Error(t, n.ledger.ApplyBlock())

	// The drained transaction is back in the pool and the height did
	// not advance
	txs := n.mempool.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, txHash, txs[0].Hash)
	assert.Equal(t, uint64(0), n.ledger.Height())
}

func TestStartRestoresTip(t *testing.T) {
	n := setupTestNode(t)
	require.NoError(t, n.db.SetTip(17, nil))
	require.NoError(t, n.ledger.Start())
	defer n.ledger.Stop()
	assert.Equal(t, uint64(17), n.ledger.Height())
}
