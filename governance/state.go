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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/gavel/core"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/event"
)

// State is the governance state machine. It exclusively owns write
// access to the config, proposal and vote tables; every other
// component reads through snapshots. Transactions are applied one at a
// time in block order, so no locking happens here.
//
// Per-proposal lifecycle: Proposed -> QuorumReached -> Committed.
// QuorumReached is evaluated synchronously while applying the vote
// that crosses the threshold, and the commit happens in the same
// database transaction. Committed is terminal: later votes are
// recorded for audit but trigger no further transition.
type State struct {
	db       *database.Database
	eventBus *event.EventBus
	logger   *slog.Logger
}

// StateConfig contains the options used to create a State
type StateConfig struct {
	Database *database.Database
	EventBus *event.EventBus
	Logger   *slog.Logger
}

// NewState creates a governance state machine
func NewState(cfg StateConfig) *State {
	s := &State{
		db:       cfg.Database,
		eventBus: cfg.EventBus,
		logger:   cfg.Logger,
	}
	if s.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return s
}

// BootstrapGenesis commits the genesis configuration directly, without
// a proposal. Genesis only applies to an empty store: when the store is
// already bootstrapped nothing is written and the hash of the committed
// genesis configuration is returned, which may differ from the hash of
// the passed configuration.
func (s *State) BootstrapGenesis(cfg *core.Configuration) (core.Hash, error) {
	cfgBytes, err := cfg.Bytes()
	if err != nil {
		return core.Hash{}, err
	}
	cfgHash := core.NewHash(cfgBytes)
	committedHash := cfgHash
	var committed bool
	txn := s.db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		_, ok, err := s.db.GetMaxActualFrom(txn)
		if err != nil {
			return err
		}
		if ok {
			// Already bootstrapped: report the committed genesis, found
			// by its zero predecessor hash
			configs, err := s.db.ListConfigs(txn)
			if err != nil {
				return err
			}
			for _, existing := range configs {
				prevHash, err := core.HashFromBytes(existing.PrevHash)
				if err != nil {
					return err
				}
				if prevHash.IsZero() {
					committedHash, err = core.HashFromBytes(existing.Hash)
					if err != nil {
						return err
					}
					break
				}
			}
			return nil
		}
		committed = true
		return s.db.SetConfig(
			&models.Config{
				Hash:       cfgHash.Bytes(),
				PrevHash:   cfg.PreviousCfgHash.Bytes(),
				ActualFrom: cfg.ActualFrom,
			},
			cfgBytes,
			txn,
		)
	})
	if err != nil {
		return core.Hash{}, fmt.Errorf("bootstrap genesis: %w", err)
	}
	if committed {
		s.logger.Info(
			"genesis configuration committed",
			"component", "governance",
			"cfg_hash", cfgHash.String(),
			"actual_from", cfg.ActualFrom,
		)
	} else if committedHash != cfgHash {
		s.logger.Warn(
			"genesis configuration ignored, store already bootstrapped",
			"component", "governance",
			"cfg_hash", cfgHash.String(),
			"committed_cfg_hash", committedHash.String(),
		)
	}
	return committedHash, nil
}

// ApplyTx validates and applies a single governance transaction at the
// given block height inside the given transaction. Validation is
// all-or-nothing: every check runs before the first write, so a
// rejection leaves all tables untouched.
func (s *State) ApplyTx(
	txn *database.Txn,
	height uint64,
	tx core.SignedTx,
) error {
	switch t := tx.(type) {
	case *core.ProposeTx:
		return s.applyPropose(txn, height, t)
	case *core.VoteTx:
		return s.applyVote(txn, height, t)
	default:
		return fmt.Errorf("%w: %T", core.ErrUnknownTxType, tx)
	}
}

func (s *State) applyPropose(
	txn *database.Txn,
	height uint64,
	tx *core.ProposeTx,
) error {
	if err := core.VerifyTx(tx); err != nil {
		if errors.Is(err, core.ErrTxSignature) ||
			errors.Is(err, core.ErrTxSignerLength) {
			return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
		}
		return err
	}
	cfg, err := tx.Configuration()
	if err != nil {
		return err
	}
	cfgHash := tx.ConfigHash()
	// At most one proposal per configuration hash
	existing, _, err := s.db.GetProposal(cfgHash, txn)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateProposal, cfgHash)
	}
	// The predecessor determines both the voting validator set and the
	// activation floor
	prevCfg, prevBytes, err := s.db.GetConfig(cfg.PreviousCfgHash, txn)
	if err != nil {
		return err
	}
	if prevCfg == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPredecessor, cfg.PreviousCfgHash)
	}
	if cfg.ActualFrom <= prevCfg.ActualFrom {
		return fmt.Errorf(
			"%w: %d does not follow %d",
			ErrNonMonotonicActivation,
			cfg.ActualFrom,
			prevCfg.ActualFrom,
		)
	}
	prevConfig, err := core.DecodeConfiguration(prevBytes)
	if err != nil {
		return err
	}
	voterSet, err := core.NewValidatorSet(prevConfig.Validators)
	if err != nil {
		return err
	}
	if !voterSet.Contains(tx.From) {
		return fmt.Errorf("%w: proposer %s", ErrNotAValidator, tx.From)
	}
	txHash, err := tx.TxHash()
	if err != nil {
		return err
	}
	votersCbor, err := core.EncodeValidatorKeys(voterSet.Keys())
	if err != nil {
		return err
	}
	err = s.db.SetProposal(
		&models.Proposal{
			CfgHash:     cfgHash.Bytes(),
			PrevCfgHash: cfg.PreviousCfgHash.Bytes(),
			ActualFrom:  cfg.ActualFrom,
			Proposer:    tx.From,
			TxHash:      txHash.Bytes(),
			VotersCbor:  votersCbor,
			NumSlots:    uint32(voterSet.Size()), //nolint:gosec
			AddedHeight: height,
		},
		tx.Cfg,
		txn,
	)
	if err != nil {
		return err
	}
	s.logger.Info(
		"configuration proposed",
		"component", "governance",
		"cfg_hash", cfgHash.String(),
		"proposer", tx.From.String(),
		"actual_from", cfg.ActualFrom,
	)
	if s.eventBus != nil {
		s.eventBus.PublishAsync(
			ProposalEventType,
			event.NewEvent(
				ProposalEventType,
				ProposalEvent{
					ConfigHash: cfgHash,
					TxHash:     txHash,
					Proposer:   tx.From,
					ActualFrom: cfg.ActualFrom,
					Height:     height,
				},
			),
		)
	}
	return nil
}

func (s *State) applyVote(
	txn *database.Txn,
	height uint64,
	tx *core.VoteTx,
) error {
	if err := core.VerifyTx(tx); err != nil {
		if errors.Is(err, core.ErrTxSignature) ||
			errors.Is(err, core.ErrTxSignerLength) {
			return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
		}
		return err
	}
	proposal, cfgBytes, err := s.db.GetProposal(tx.CfgHash, txn)
	if err != nil {
		return err
	}
	if proposal == nil {
		return fmt.Errorf("%w: %s", ErrUnknownProposal, tx.CfgHash)
	}
	voters, err := core.DecodeValidatorKeys(proposal.VotersCbor)
	if err != nil {
		return err
	}
	voterSet, err := core.NewValidatorSet(voters)
	if err != nil {
		return err
	}
	slot, ok := voterSet.Index(tx.From)
	if !ok {
		return fmt.Errorf("%w: voter %s", ErrNotAValidator, tx.From)
	}
	existing, err := s.db.GetVote(tx.CfgHash, uint32(slot), txn) //nolint:gosec
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf(
			"%w: slot %d for %s",
			ErrDuplicateVote,
			slot,
			tx.CfgHash,
		)
	}
	// A committed proposal is terminal: the vote is still recorded for
	// audit completeness, but triggers no further transition
	committed, _, err := s.db.GetConfig(tx.CfgHash, txn)
	if err != nil {
		return err
	}
	filled, err := s.db.CountVotes(tx.CfgHash, txn)
	if err != nil {
		return err
	}
	reachesQuorum := committed == nil && voterSet.HasQuorum(filled+1)
	cfg, err := core.DecodeConfiguration(cfgBytes)
	if err != nil {
		return err
	}
	if reachesQuorum {
		// The commit must keep activation heights strictly increasing
		// across committed configurations; checked before any write so
		// a conflicting vote leaves the vote ledger untouched as well
		maxActualFrom, ok, err := s.db.GetMaxActualFrom(txn)
		if err != nil {
			return err
		}
		if ok && cfg.ActualFrom <= maxActualFrom {
			return fmt.Errorf(
				"%w: activation %d not above committed %d",
				ErrActivationConflict,
				cfg.ActualFrom,
				maxActualFrom,
			)
		}
	}
	txHash, err := tx.TxHash()
	if err != nil {
		return err
	}
	err = s.db.SetVote(
		&models.Vote{
			CfgHash:     tx.CfgHash.Bytes(),
			Slot:        uint32(slot), //nolint:gosec
			Voter:       tx.From,
			TxHash:      txHash.Bytes(),
			Signature:   tx.Sig,
			AddedHeight: height,
		},
		txn,
	)
	if err != nil {
		return err
	}
	s.logger.Info(
		"vote recorded",
		"component", "governance",
		"cfg_hash", tx.CfgHash.String(),
		"voter", tx.From.String(),
		"slot", slot,
		"filled", filled+1,
		"slots", proposal.NumSlots,
	)
	if s.eventBus != nil {
		s.eventBus.PublishAsync(
			VoteEventType,
			event.NewEvent(
				VoteEventType,
				VoteEvent{
					ConfigHash: tx.CfgHash,
					TxHash:     txHash,
					Voter:      tx.From,
					Slot:       uint32(slot), //nolint:gosec
					Filled:     filled + 1,
					NumSlots:   proposal.NumSlots,
					Height:     height,
				},
			),
		)
	}
	if !reachesQuorum {
		return nil
	}
	// Quorum reached: commit in the same transaction. A proposal whose
	// activation height has already passed still commits; voting
	// latency must not invalidate an otherwise-valid decision.
	err = s.db.SetConfig(
		&models.Config{
			Hash:        tx.CfgHash.Bytes(),
			PrevHash:    cfg.PreviousCfgHash.Bytes(),
			ActualFrom:  cfg.ActualFrom,
			AddedHeight: height,
		},
		cfgBytes,
		txn,
	)
	if err != nil {
		return err
	}
	s.logger.Info(
		"configuration committed",
		"component", "governance",
		"cfg_hash", tx.CfgHash.String(),
		"actual_from", cfg.ActualFrom,
		"height", height,
	)
	if s.eventBus != nil {
		s.eventBus.PublishAsync(
			CommitEventType,
			event.NewEvent(
				CommitEventType,
				CommitEvent{
					ConfigHash: tx.CfgHash,
					ActualFrom: cfg.ActualFrom,
					Height:     height,
				},
			),
		)
	}
	return nil
}
