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
	"github.com/blinklabs-io/gavel/core"
)

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// PostProposeResponse is returned after a propose transaction has been
// queued
type PostProposeResponse struct {
	TxHash  core.Hash `json:"tx_hash"`
	CfgHash core.Hash `json:"cfg_hash"`
}

// PostVoteResponse is returned after a vote transaction has been
// queued
type PostVoteResponse struct {
	TxHash core.Hash `json:"tx_hash"`
}
