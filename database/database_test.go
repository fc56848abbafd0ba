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

package database

import (
	"testing"

	"github.com/blinklabs-io/gavel/core"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := New(Config{
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db
}

func testConfigBytes(t *testing.T, prevHash core.Hash, actualFrom uint64) (core.Hash, []byte) {
	t.Helper()
	pub, _, err := core.GenerateKeyPair()
	require.NoError(t, err)
	cfg := &core.Configuration{
		PreviousCfgHash: prevHash,
		ActualFrom:      actualFrom,
		Validators:      []core.PubKey{pub},
	}
	cfgBytes, err := cfg.Bytes()
	require.NoError(t, err)
	return core.NewHash(cfgBytes), cfgBytes
}

func storeConfig(t *testing.T, db *Database, prevHash core.Hash, actualFrom uint64) core.Hash {
	t.Helper()
	cfgHash, cfgBytes := testConfigBytes(t, prevHash, actualFrom)
	err := db.SetConfig(
		&models.Config{
			Hash:       cfgHash.Bytes(),
			PrevHash:   prevHash.Bytes(),
			ActualFrom: actualFrom,
		},
		cfgBytes,
		nil,
	)
	require.NoError(t, err)
	return cfgHash
}

func TestSetConfigIdempotent(t *testing.T) {
	db := setupTestDatabase(t)
	cfgHash, cfgBytes := testConfigBytes(t, core.ZeroHash, 100)
	for range 2 {
		err := db.SetConfig(
			&models.Config{
				Hash:       cfgHash.Bytes(),
				PrevHash:   core.ZeroHash.Bytes(),
				ActualFrom: 100,
			},
			cfgBytes,
			nil,
		)
		require.NoError(t, err)
	}
	configs, err := db.ListConfigs(nil)
	require.NoError(t, err)
	assert.Len(t, configs, 1)
}

func TestGetConfig(t *testing.T) {
	db := setupTestDatabase(t)

	// Unknown hash returns no error and no result
	cfgModel, cfgBytes, err := db.GetConfig(
		core.NewHash([]byte("unknown")),
		nil,
	)
	require.NoError(t, err)
	assert.Nil(t, cfgModel)
	assert.Nil(t, cfgBytes)

	cfgHash := storeConfig(t, db, core.ZeroHash, 100)
	cfgModel, cfgBytes, err = db.GetConfig(cfgHash, nil)
	require.NoError(t, err)
	require.NotNil(t, cfgModel)
	assert.Equal(t, cfgHash.Bytes(), cfgModel.Hash)
	assert.Equal(t, cfgHash, core.NewHash(cfgBytes))
}

func TestActiveAndNextConfigResolution(t *testing.T) {
	db := setupTestDatabase(t)

	// Empty store has no genesis
	_, _, err := db.GetActiveConfig(100, nil)
	require.ErrorIs(t, err, ErrNoGenesisConfig)

	genesisHash := storeConfig(t, db, core.ZeroHash, 0)
	secondHash := storeConfig(t, db, genesisHash, 100)
	thirdHash := storeConfig(t, db, secondHash, 200)

	testDefs := []struct {
		height uint64
		active core.Hash
	}{
		{height: 0, active: genesisHash},
		{height: 99, active: genesisHash},
		{height: 100, active: secondHash},
		{height: 150, active: secondHash},
		{height: 200, active: thirdHash},
		{height: 10000, active: thirdHash},
	}
	for _, testDef := range testDefs {
		cfgModel, _, err := db.GetActiveConfig(testDef.height, nil)
		require.NoError(t, err)
		assert.Equal(
			t,
			testDef.active.Bytes(),
			cfgModel.Hash,
			"height %d",
			testDef.height,
		)
	}

	// Next scheduled change after a height
	nextModel, _, err := db.GetNextConfig(50, nil)
	require.NoError(t, err)
	require.NotNil(t, nextModel)
	assert.Equal(t, secondHash.Bytes(), nextModel.Hash)

	nextModel, _, err = db.GetNextConfig(200, nil)
	require.NoError(t, err)
	assert.Nil(t, nextModel)

	maxActualFrom, ok, err := db.GetMaxActualFrom(nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(200), maxActualFrom)
}

func TestListConfigsOrder(t *testing.T) {
	db := setupTestDatabase(t)
	genesisHash := storeConfig(t, db, core.ZeroHash, 0)
	secondHash := storeConfig(t, db, genesisHash, 100)
	configs, err := db.ListConfigs(nil)
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, genesisHash.Bytes(), configs[0].Hash)
	assert.Equal(t, secondHash.Bytes(), configs[1].Hash)
}

func TestProposalStore(t *testing.T) {
	db := setupTestDatabase(t)
	cfgHash, cfgBytes := testConfigBytes(t, core.ZeroHash, 100)
	pub, _, err := core.GenerateKeyPair()
	require.NoError(t, err)
	votersCbor, err := core.EncodeValidatorKeys([]core.PubKey{pub})
	require.NoError(t, err)
	err = db.SetProposal(
		&models.Proposal{
			CfgHash:     cfgHash.Bytes(),
			PrevCfgHash: core.ZeroHash.Bytes(),
			ActualFrom:  100,
			Proposer:    pub,
			TxHash:      core.NewHash([]byte("tx")).Bytes(),
			VotersCbor:  votersCbor,
			NumSlots:    1,
			AddedHeight: 5,
		},
		cfgBytes,
		nil,
	)
	require.NoError(t, err)

	proposal, proposalBytes, err := db.GetProposal(cfgHash, nil)
	require.NoError(t, err)
	require.NotNil(t, proposal)
	assert.Equal(t, cfgBytes, proposalBytes)
	assert.Equal(t, uint32(1), proposal.NumSlots)
	assert.Equal(t, uint64(5), proposal.AddedHeight)

	proposals, err := db.ListProposals(nil)
	require.NoError(t, err)
	assert.Len(t, proposals, 1)
}

func TestVoteStore(t *testing.T) {
	db := setupTestDatabase(t)
	cfgHash := core.NewHash([]byte("config"))
	pub, _, err := core.GenerateKeyPair()
	require.NoError(t, err)

	// Empty slot reads back as nil
	vote, err := db.GetVote(cfgHash, 0, nil)
	require.NoError(t, err)
	assert.Nil(t, vote)

	err = db.SetVote(
		&models.Vote{
			CfgHash:     cfgHash.Bytes(),
			Slot:        1,
			Voter:       pub,
			TxHash:      core.NewHash([]byte("tx")).Bytes(),
			Signature:   []byte("sig"),
			AddedHeight: 7,
		},
		nil,
	)
	require.NoError(t, err)

	vote, err = db.GetVote(cfgHash, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, []byte(pub), vote.Voter)

	// Full slot array preserves empty slots as nils
	votes, err := db.GetVotes(cfgHash, 3, nil)
	require.NoError(t, err)
	require.Len(t, votes, 3)
	assert.Nil(t, votes[0])
	require.NotNil(t, votes[1])
	assert.Nil(t, votes[2])

	count, err := db.CountVotes(cfgHash, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTipStore(t *testing.T) {
	db := setupTestDatabase(t)
	height, ok, err := db.GetTip(nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(0), height)

	require.NoError(t, db.SetTip(42, nil))
	require.NoError(t, db.SetTip(43, nil))

	height, ok, err = db.GetTip(nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(43), height)
}

func TestTransactionRollback(t *testing.T) {
	db := setupTestDatabase(t)
	cfgHash, cfgBytes := testConfigBytes(t, core.ZeroHash, 100)
	txn := db.Transaction(true)
	err := txn.Do(func(txn *Txn) error {
		err := db.SetConfig(
			&models.Config{
				Hash:       cfgHash.Bytes(),
				PrevHash:   core.ZeroHash.Bytes(),
				ActualFrom: 100,
			},
			cfgBytes,
			txn,
		)
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	// Metadata row must not survive the rollback
	configs, err := db.ListConfigs(nil)
	require.NoError(t, err)
	assert.Empty(t, configs)
}
