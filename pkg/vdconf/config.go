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

import (
	"context"
	"os"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/veridict-io/veridict/internal/msgs"

	"sigs.k8s.io/yaml" // because it supports JSON tags, so one set of field tags serves both
)

type VeridictConfig struct {
	NodeName   string                   `json:"nodeName"`
	Log        LogConfig                `json:"log"`
	DB         DBConfig                 `json:"db"`
	RPCServer  RPCServerConfig          `json:"rpcServer"`
	NodeKey    NodeKeyConfig            `json:"nodeKey"`
	Ledgers    map[string]*LedgerConfig `json:"ledgers"`
	Relay      RelayManagerConfig       `json:"relay"`
	Oracle     OracleManagerConfig      `json:"oracle"`
	Conditions ConditionManagerConfig   `json:"conditions"`
	Settlement SettlementManagerConfig  `json:"settlement"`
	Governor   GovernorConfig           `json:"governor"`
	TempDir    *string                  `json:"tempDir"`
}

func ReadAndParseYAMLFile(ctx context.Context, filePath string, config interface{}) error {
	// Note we use the YAML parser (like Kubernetes) that handles json tags
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return i18n.NewError(ctx, msgs.MsgConfigFileMissing, filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return i18n.NewError(ctx, msgs.MsgConfigFileReadError, filePath, err.Error())
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return i18n.NewError(ctx, msgs.MsgConfigFileParseError, filePath, err.Error())
	}

	return nil
}
