// Copyright © 2025 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
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

package vdconf

type TLSConfig struct {
	Enabled bool `json:"enabled"`
	// Whether a client certificate is required on mutual TLS connections
	ClientAuth bool `json:"clientAuth"`
	// CA certificates file in PEM format
	CAFile string `json:"caFile,omitempty"`
	// CA certificates in PEM format
	CA string `json:"ca,omitempty"`
	// Certificate file in PEM format
	CertFile string `json:"certFile,omitempty"`
	// Certificate in PEM format
	Cert string `json:"cert,omitempty"`
	// Private key file in PEM format
	KeyFile string `json:"keyFile,omitempty"`
	// Private key in PEM format
	Key string `json:"key,omitempty"`
	// Disables certificate hostname checking on client connections
	InsecureSkipHostVerify bool `json:"insecureSkipHostVerify,omitempty"`
	// Each entry is a subject DN attribute (such as "cn"), with a regular expression that must match
	// against the value of that attribute in the certificate, for the connection to be accepted
	RequiredDNAttributes map[string]string `json:"requiredDNAttributes,omitempty"`
}
