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

// NodeKeyConfig supplies the secp256k1 key the node signs relay envelopes with.
// Exactly one of Seed, Mnemonic or KeystoreFile must be set
type NodeKeyConfig struct {
	// 32 bytes of hex entropy
	Seed *string `json:"seed,omitempty"`
	// BIP-39 mnemonic phrase
	Mnemonic *string `json:"mnemonic,omitempty"`
	// Ethereum keystore v3 file
	KeystoreFile *string `json:"keystoreFile,omitempty"`
	// passphrase for the keystore file, directly or from a file
	Passphrase     *string `json:"passphrase,omitempty"`
	PassphraseFile *string `json:"passphraseFile,omitempty"`
}
