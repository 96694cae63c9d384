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

type LedgerConfig struct {
	// 'embedded' runs an in-process ledger simulation, 'remote' connects to another node
	Type string `json:"type"`
	// number of blocks that must build on top of a transaction before it is final
	FinalityDepth *int `json:"finalityDepth"`
	// how often to poll for confirmation of in-flight submissions
	StatusPollInterval *string              `json:"statusPollInterval"`
	SubmitRetry        RetryConfigWithMax   `json:"submitRetry"`
	Embedded           EmbeddedLedgerConfig `json:"embedded"`
	Remote             RemoteLedgerConfig   `json:"remote"`
}

type EmbeddedLedgerConfig struct {
	// interval at which the embedded ledger seals a new block
	BlockInterval *string `json:"blockInterval"`
	// account -> token -> opening balance
	InitialBalances map[string]map[string]string `json:"initialBalances"`
}

type RemoteLedgerConfig struct {
	HTTPClientConfig `json:",inline"`
}

var LedgerDefaults = &LedgerConfig{
	FinalityDepth:      confutil.P(6),
	StatusPollInterval: confutil.P("100ms"),
	// SubmitRetry defaults are deliberately short
	SubmitRetry: RetryConfigWithMax{
		RetryConfig: RetryConfig{
			InitialDelay: confutil.P("50ms"),
			MaxDelay:     confutil.P("1s"),
			Factor:       confutil.P(2.0),
		},
		MaxAttempts: confutil.P(3),
	},
	Embedded: EmbeddedLedgerConfig{
		BlockInterval: confutil.P("50ms"),
	},
}
