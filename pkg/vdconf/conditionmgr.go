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

type ConditionManagerConfig struct {
	// how often the scanner looks for conditions past expiration or deadline
	ExpiryScanInterval *string `json:"expiryScanInterval"`
	ExpiryScanPageSize *int    `json:"expiryScanPageSize"`
	// how old an unconfirmed stake lock must be before the scanner re-places it
	StakeRepairAge *string     `json:"stakeRepairAge"`
	ConditionCache CacheConfig `json:"conditionCache"`
	// batch writer recording per-ledger replication state as broadcasts are queued
	MirrorWriter    FlushWriterConfig `json:"mirrorWriter"`
	MirrorSyncRetry RetryConfig       `json:"mirrorSyncRetry"`
}

var ConditionManagerDefaults = &ConditionManagerConfig{
	ExpiryScanInterval: confutil.P("5s"),
	ExpiryScanPageSize: confutil.P(50),
	StakeRepairAge:     confutil.P("1m"),
	ConditionCache: CacheConfig{
		Capacity: confutil.P(1000),
	},
	MirrorWriter: FlushWriterConfig{
		WorkerCount:  confutil.P(4),
		BatchTimeout: confutil.P("75ms"),
		BatchMaxSize: confutil.P(50),
	},
	MirrorSyncRetry: GenericRetryDefaults.RetryConfig,
}
