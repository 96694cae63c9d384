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

type SettlementManagerConfig struct {
	DispatchRetry RetryConfigWithMax `json:"dispatchRetry"`
	// a leg with no progress for this long is marked stalled and surfaced for intervention
	StallTimeout *string `json:"stallTimeout"`
	// how often stalled and deferred legs are re-examined
	RecheckInterval *string           `json:"recheckInterval"`
	RecordWriter    FlushWriterConfig `json:"recordWriter"`
}

var SettlementManagerDefaults = &SettlementManagerConfig{
	DispatchRetry: RetryConfigWithMax{
		RetryConfig: RetryConfig{
			InitialDelay: confutil.P("100ms"),
			MaxDelay:     confutil.P("5s"),
			Factor:       confutil.P(2.0),
		},
		MaxAttempts: confutil.P(5),
	},
	StallTimeout:    confutil.P("1m"),
	RecheckInterval: confutil.P("10s"),
	RecordWriter: FlushWriterConfig{
		WorkerCount:  confutil.P(2),
		BatchTimeout: confutil.P("75ms"),
		BatchMaxSize: confutil.P(50),
	},
}
