/*
 * Copyright © 2025 Kaleido, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
 * an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
 * specific language governing permissions and limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */
package vdconf

import "github.com/veridict-io/veridict/pkg/confutil"

type OracleManagerConfig struct {
	// minimum number of distinct sources that must report before a verdict forms
	MinSources *int `json:"minSources"`
	// percentage of responding sources that must agree for consensus
	ConsensusThreshold *float64 `json:"consensusThreshold"`
	// how long attestations for settled conditions are retained before pruning
	AttestationRetention *string `json:"attestationRetention"`
	PruneInterval        *string `json:"pruneInterval"`
	// compiled trigger criteria are cached per criteria hash
	CriteriaCache CacheConfig `json:"criteriaCache"`
	// cost limit applied to each criteria evaluation
	EvalCostLimit *int64                `json:"evalCostLimit"`
	Sources       []*OracleSourceConfig `json:"sources"`
}

// OracleSourceConfig bootstraps an authorized source at startup. The persisted
// source registry takes over after first start
type OracleSourceConfig struct {
	Name string `json:"name"`
	// the address the source signs attestations with
	Address string `json:"address"`
}

var OracleManagerDefaults = &OracleManagerConfig{
	MinSources:           confutil.P(2),
	ConsensusThreshold:   confutil.P(67.0),
	AttestationRetention: confutil.P("24h"),
	PruneInterval:        confutil.P("1h"),
	CriteriaCache: CacheConfig{
		Capacity: confutil.P(100),
	},
	EvalCostLimit: confutil.P(int64(1000000)),
}
