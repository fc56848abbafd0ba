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

package governance

import (
	"encoding/hex"
	"fmt"

	"github.com/blinklabs-io/gavel/core"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
)

// VoteInfo describes one filled vote slot
type VoteInfo struct {
	TxHash    core.Hash   `json:"tx_hash"`
	Voter     core.PubKey `json:"voter"`
	Signature string      `json:"signature"`
}

// ConfigInfo is a committed configuration with its proof trail: the
// propose transaction hash and the full vote tally. Votes is nil when
// the configuration was committed without a proposal (genesis); empty
// slots stay visible as nil entries.
type ConfigInfo struct {
	Hash          core.Hash           `json:"hash"`
	Config        *core.Configuration `json:"config"`
	ProposeTxHash *core.Hash          `json:"propose,omitempty"`
	Votes         []*VoteInfo         `json:"votes"`
}

// ProposalInfo describes a recorded proposal
type ProposalInfo struct {
	Hash        core.Hash           `json:"hash"`
	TxHash      core.Hash           `json:"tx_hash"`
	Proposer    core.PubKey         `json:"proposer"`
	Config      *core.Configuration `json:"config"`
	NumSlots    uint32              `json:"num_slots"`
	AddedHeight uint64              `json:"added_height"`
}

// ConfigStatus reports everything known about a configuration hash:
// its committed form (nil when not committed) and its proposal (nil
// when never proposed)
type ConfigStatus struct {
	CommittedConfig *core.Configuration `json:"committed_config"`
	Proposal        *ProposalInfo       `json:"propose"`
}

// Filter is a conjunctive predicate over configurations. Omitted (nil)
// fields are unconstrained.
type Filter struct {
	PreviousCfgHash *core.Hash
	ActualFrom      *uint64
}

// Match reports whether the configuration passes every supplied filter
func (f Filter) Match(cfg *core.Configuration) bool {
	if f.PreviousCfgHash != nil && cfg.PreviousCfgHash != *f.PreviousCfgHash {
		return false
	}
	if f.ActualFrom != nil && cfg.ActualFrom < *f.ActualFrom {
		return false
	}
	return true
}

// Query is the read-only view over governance state. Every call runs
// against a single storage snapshot; reads never mix snapshots and
// never observe in-flight transactions.
type Query struct {
	db *database.Database
}

// NewQuery creates a read-only governance view
func NewQuery(db *database.Database) *Query {
	return &Query{db: db}
}

// ActiveInfo returns the configuration active at the given height with
// its proof trail. Fails with database.ErrNoGenesisConfig when the
// store was never bootstrapped.
func (q *Query) ActiveInfo(height uint64) (*ConfigInfo, error) {
	txn := q.db.Transaction(false)
	defer txn.Release()
	cfgModel, cfgBytes, err := q.db.GetActiveConfig(height, txn)
	if err != nil {
		return nil, err
	}
	return q.configInfo(txn, cfgModel, cfgBytes)
}

// FollowingInfo returns the next configuration scheduled to activate
// after the given height, or nil when no change is scheduled
func (q *Query) FollowingInfo(height uint64) (*ConfigInfo, error) {
	txn := q.db.Transaction(false)
	defer txn.Release()
	cfgModel, cfgBytes, err := q.db.GetNextConfig(height, txn)
	if err != nil {
		return nil, err
	}
	if cfgModel == nil {
		return nil, nil
	}
	return q.configInfo(txn, cfgModel, cfgBytes)
}

// ConfigByHash returns the committed and/or proposed state of a
// configuration hash
func (q *Query) ConfigByHash(hash core.Hash) (*ConfigStatus, error) {
	txn := q.db.Transaction(false)
	defer txn.Release()
	ret := &ConfigStatus{}
	_, cfgBytes, err := q.db.GetConfig(hash, txn)
	if err != nil {
		return nil, err
	}
	if cfgBytes != nil {
		cfg, err := core.DecodeConfiguration(cfgBytes)
		if err != nil {
			return nil, err
		}
		ret.CommittedConfig = cfg
	}
	proposal, proposalBytes, err := q.db.GetProposal(hash, txn)
	if err != nil {
		return nil, err
	}
	if proposal != nil {
		info, err := proposalInfo(proposal, proposalBytes)
		if err != nil {
			return nil, err
		}
		ret.Proposal = info
	}
	return ret, nil
}

// VotesFor returns the full vote slot array for a proposal, or nil
// when no proposal exists for the hash
func (q *Query) VotesFor(hash core.Hash) ([]*VoteInfo, error) {
	txn := q.db.Transaction(false)
	defer txn.Release()
	proposal, _, err := q.db.GetProposal(hash, txn)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, nil
	}
	return q.voteTally(txn, hash, proposal.NumSlots)
}

// ListProposals returns all recorded proposals in submission order,
// filtered by the conjunctive predicate
func (q *Query) ListProposals(filter Filter) ([]*ProposalInfo, error) {
	txn := q.db.Transaction(false)
	defer txn.Release()
	proposals, err := q.db.ListProposals(txn)
	if err != nil {
		return nil, err
	}
	ret := []*ProposalInfo{}
	for _, proposal := range proposals {
		cfgHash, err := core.HashFromBytes(proposal.CfgHash)
		if err != nil {
			return nil, err
		}
		_, cfgBytes, err := q.db.GetProposal(cfgHash, txn)
		if err != nil {
			return nil, err
		}
		info, err := proposalInfo(proposal, cfgBytes)
		if err != nil {
			return nil, err
		}
		if !filter.Match(info.Config) {
			continue
		}
		ret = append(ret, info)
	}
	return ret, nil
}

// ListCommitted returns all committed configurations in chain order
// with their proof trails, filtered by the conjunctive predicate
func (q *Query) ListCommitted(filter Filter) ([]*ConfigInfo, error) {
	txn := q.db.Transaction(false)
	defer txn.Release()
	configs, err := q.db.ListConfigs(txn)
	if err != nil {
		return nil, err
	}
	ret := []*ConfigInfo{}
	for _, cfgModel := range configs {
		cfgHash, err := core.HashFromBytes(cfgModel.Hash)
		if err != nil {
			return nil, err
		}
		_, cfgBytes, err := q.db.GetConfig(cfgHash, txn)
		if err != nil {
			return nil, err
		}
		if cfgBytes == nil {
			return nil, fmt.Errorf(
				"config blob missing for committed hash %s",
				cfgHash,
			)
		}
		cfg, err := core.DecodeConfiguration(cfgBytes)
		if err != nil {
			return nil, err
		}
		if !filter.Match(cfg) {
			continue
		}
		info, err := q.configInfo(txn, cfgModel, cfgBytes)
		if err != nil {
			return nil, err
		}
		ret = append(ret, info)
	}
	return ret, nil
}

// configInfo assembles a committed configuration with its proof trail
// from a single snapshot
func (q *Query) configInfo(
	txn *database.Txn,
	cfgModel *models.Config,
	cfgBytes []byte,
) (*ConfigInfo, error) {
	cfgHash, err := core.HashFromBytes(cfgModel.Hash)
	if err != nil {
		return nil, err
	}
	cfg, err := core.DecodeConfiguration(cfgBytes)
	if err != nil {
		return nil, err
	}
	ret := &ConfigInfo{
		Hash:   cfgHash,
		Config: cfg,
	}
	proposal, _, err := q.db.GetProposal(cfgHash, txn)
	if err != nil {
		return nil, err
	}
	if proposal != nil {
		proposeTxHash, err := core.HashFromBytes(proposal.TxHash)
		if err != nil {
			return nil, err
		}
		ret.ProposeTxHash = &proposeTxHash
		tally, err := q.voteTally(txn, cfgHash, proposal.NumSlots)
		if err != nil {
			return nil, err
		}
		ret.Votes = tally
	}
	return ret, nil
}

func (q *Query) voteTally(
	txn *database.Txn,
	cfgHash core.Hash,
	numSlots uint32,
) ([]*VoteInfo, error) {
	votes, err := q.db.GetVotes(cfgHash, numSlots, txn)
	if err != nil {
		return nil, err
	}
	tally := make([]*VoteInfo, len(votes))
	for i, vote := range votes {
		if vote == nil {
			continue
		}
		txHash, err := core.HashFromBytes(vote.TxHash)
		if err != nil {
			return nil, err
		}
		tally[i] = &VoteInfo{
			TxHash:    txHash,
			Voter:     core.PubKey(vote.Voter),
			Signature: hex.EncodeToString(vote.Signature),
		}
	}
	return tally, nil
}

func proposalInfo(
	proposal *models.Proposal,
	cfgBytes []byte,
) (*ProposalInfo, error) {
	cfgHash, err := core.HashFromBytes(proposal.CfgHash)
	if err != nil {
		return nil, err
	}
	txHash, err := core.HashFromBytes(proposal.TxHash)
	if err != nil {
		return nil, err
	}
	cfg, err := core.DecodeConfiguration(cfgBytes)
	if err != nil {
		return nil, err
	}
	return &ProposalInfo{
		Hash:        cfgHash,
		TxHash:      txHash,
		Proposer:    core.PubKey(proposal.Proposer),
		Config:      cfg,
		NumSlots:    proposal.NumSlots,
		AddedHeight: proposal.AddedHeight,
	}, nil
}
