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

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/gavel/core"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/governance"
	"github.com/blinklabs-io/gavel/mempool"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Message:    message,
	})
}

// submitStatus maps a submission failure to an HTTP status code.
// Stateless validation failures are the client's fault; a full mempool
// is a temporary server-side condition.
func submitStatus(err error) int {
	var fullErr *mempool.MempoolFullError
	if errors.As(err, &fullErr) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

// handleActual handles GET /v1/configs/actual and returns the
// configuration active at the current height with its proof trail
func (a *Api) handleActual(w http.ResponseWriter, _ *http.Request) {
	info, err := a.config.Query.ActiveInfo(a.config.Height())
	if err != nil {
		if errors.Is(err, database.ErrNoGenesisConfig) {
			writeError(w, http.StatusNotFound, "no active configuration")
			return
		}
		a.logger.Error(
			"failed to get active configuration",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"failed to retrieve active configuration",
		)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleFollowing handles GET /v1/configs/following and returns the
// next scheduled configuration, or null when no change is scheduled
func (a *Api) handleFollowing(w http.ResponseWriter, _ *http.Request) {
	info, err := a.config.Query.FollowingInfo(a.config.Height())
	if err != nil {
		a.logger.Error(
			"failed to get following configuration",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"failed to retrieve following configuration",
		)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleConfigByHash handles GET /v1/configs/{hash} and returns the
// committed and/or proposed state of a configuration hash
func (a *Api) handleConfigByHash(w http.ResponseWriter, r *http.Request) {
	cfgHash, err := core.HashFromHex(r.PathValue("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid configuration hash")
		return
	}
	status, err := a.config.Query.ConfigByHash(cfgHash)
	if err != nil {
		a.logger.Error(
			"failed to get configuration by hash",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"failed to retrieve configuration",
		)
		return
	}
	if status.CommittedConfig == nil && status.Proposal == nil {
		writeError(w, http.StatusNotFound, "unknown configuration hash")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleVotes handles GET /v1/configs/{hash}/votes and returns the
// full vote slot array, empty slots included as nulls
func (a *Api) handleVotes(w http.ResponseWriter, r *http.Request) {
	cfgHash, err := core.HashFromHex(r.PathValue("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid configuration hash")
		return
	}
	votes, err := a.config.Query.VotesFor(cfgHash)
	if err != nil {
		a.logger.Error(
			"failed to get votes",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"failed to retrieve votes",
		)
		return
	}
	if votes == nil {
		writeError(w, http.StatusNotFound, "unknown proposal hash")
		return
	}
	writeJSON(w, http.StatusOK, votes)
}

// parseFilter builds a governance filter from the request query params
func parseFilter(r *http.Request) (governance.Filter, error) {
	var filter governance.Filter
	if v := r.URL.Query().Get("previous_cfg_hash"); v != "" {
		prevHash, err := core.HashFromHex(v)
		if err != nil {
			return filter, errors.New("invalid previous_cfg_hash")
		}
		filter.PreviousCfgHash = &prevHash
	}
	if v := r.URL.Query().Get("actual_from"); v != "" {
		actualFrom, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return filter, errors.New("invalid actual_from")
		}
		filter.ActualFrom = &actualFrom
	}
	return filter, nil
}

// handleProposed handles GET /v1/configs/proposed and returns all
// recorded proposals matching the optional filters
func (a *Api) handleProposed(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	proposals, err := a.config.Query.ListProposals(filter)
	if err != nil {
		a.logger.Error(
			"failed to list proposals",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"failed to retrieve proposals",
		)
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}

// handleCommitted handles GET /v1/configs/committed and returns all
// committed configurations matching the optional filters
func (a *Api) handleCommitted(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	configs, err := a.config.Query.ListCommitted(filter)
	if err != nil {
		a.logger.Error(
			"failed to list committed configurations",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"failed to retrieve committed configurations",
		)
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

// handlePostPropose handles POST /v1/configs/postpropose. The body is
// a Configuration JSON document; the server signs a propose
// transaction with the node key and queues it. Acceptance means
// "queued for consideration", not committed.
func (a *Api) handlePostPropose(w http.ResponseWriter, r *http.Request) {
	var cfg core.Configuration
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid configuration body")
		return
	}
	cfgBytes, err := cfg.Bytes()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid configuration body")
		return
	}
	tx, err := core.NewProposeTx(a.config.PrivKey, cfgBytes)
	if err != nil {
		a.logger.Error(
			"failed to sign propose transaction",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"failed to sign transaction",
		)
		return
	}
	raw, err := core.EncodeTx(tx)
	if err != nil {
		a.logger.Error(
			"failed to encode propose transaction",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"failed to encode transaction",
		)
		return
	}
	txHash, err := a.config.Mempool.AddTransaction(raw)
	if err != nil {
		writeError(w, submitStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PostProposeResponse{
		TxHash:  txHash,
		CfgHash: tx.ConfigHash(),
	})
}

// handlePostVote handles POST /v1/configs/{hash}/postvote. The server
// signs a vote transaction for the given configuration hash with the
// node key and queues it.
func (a *Api) handlePostVote(w http.ResponseWriter, r *http.Request) {
	cfgHash, err := core.HashFromHex(r.PathValue("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid configuration hash")
		return
	}
	tx, err := core.NewVoteTx(a.config.PrivKey, cfgHash)
	if err != nil {
		a.logger.Error(
			"failed to sign vote transaction",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"failed to sign transaction",
		)
		return
	}
	raw, err := core.EncodeTx(tx)
	if err != nil {
		a.logger.Error(
			"failed to encode vote transaction",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"failed to encode transaction",
		)
		return
	}
	txHash, err := a.config.Mempool.AddTransaction(raw)
	if err != nil {
		writeError(w, submitStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PostVoteResponse{
		TxHash: txHash,
	})
}
