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

type GovernorConfig struct {
	// the sliding window over which per-ledger stake volume is accumulated
	VolumeWindow *string `json:"volumeWindow"`
	// ledger -> maximum total stake accepted in the window, as a base 10 amount (unset means uncapped)
	VolumeCaps map[string]string `json:"volumeCaps"`
	// addresses blocked from staking or receiving at startup (persisted entries take over after first start)
	Denylist []*DenylistEntryConfig `json:"denylist"`
}

type DenylistEntryConfig struct {
	Ledger  string `json:"ledger"`
	Address string `json:"address"`
	Reason  string `json:"reason,omitempty"`
}

var GovernorDefaults = &GovernorConfig{
	VolumeWindow: confutil.P("1h"),
}
