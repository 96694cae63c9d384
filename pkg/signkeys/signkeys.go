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

package signkeys

import (
	"context"
	"encoding/hex"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/hyperledger/firefly-signer/pkg/keystorev3"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
	"github.com/tyler-smith/go-bip39"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// Mnemonic-supplied keys resolve at the standard Ethereum account path m/44'/60'/0'/0/0
var bip44DerivationPath = []uint32{
	0x80000000 + 44, 0x80000000 + 60, 0x80000000, 0, 0,
}

// NodeKey is the secp256k1 identity a node signs relay envelopes with.
// The key material never leaves this package after load.
type NodeKey struct {
	keyPair *secp256k1.KeyPair
}

// NewNodeKey loads the node signing key from exactly one of the configured
// sources - a 32 byte hex seed, a BIP-39 mnemonic, or an Ethereum keystore v3
// file.
func NewNodeKey(ctx context.Context, conf *vdconf.NodeKeyConfig) (*NodeKey, error) {
	seed := confutil.StringOrEmpty(conf.Seed, "")
	mnemonic := confutil.StringOrEmpty(conf.Mnemonic, "")
	keystoreFile := confutil.StringOrEmpty(conf.KeystoreFile, "")

	var privateKey []byte
	var err error
	switch {
	case seed != "":
		privateKey, err = hex.DecodeString(strings.TrimPrefix(seed, "0x"))
		if err != nil || len(privateKey) != 32 {
			return nil, i18n.NewError(ctx, msgs.MsgSignKeyBadSeed)
		}
	case mnemonic != "":
		privateKey, err = deriveMnemonicKey(ctx, mnemonic)
	case keystoreFile != "":
		privateKey, err = readKeystoreV3(ctx, conf, keystoreFile)
	default:
		return nil, i18n.NewError(ctx, msgs.MsgSignKeyNoSource)
	}
	if err != nil {
		return nil, err
	}

	nk := &NodeKey{keyPair: secp256k1.KeyPairFromBytes(privateKey)}
	log.L(ctx).Infof("Node signing key loaded (address=%s)", nk.Address())
	return nk, nil
}

func deriveMnemonicKey(ctx context.Context, mnemonic string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSignKeyBadMnemonic)
	}
	pos, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	for _, derivation := range bip44DerivationPath {
		if err == nil {
			pos, err = pos.Derive(derivation)
		}
	}
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSignKeyBadMnemonic)
	}
	ecPrivKey, err := pos.ECPrivKey()
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSignKeyBadMnemonic)
	}
	pkBytes := ecPrivKey.Key.Bytes()
	return pkBytes[:], nil
}

func readKeystoreV3(ctx context.Context, conf *vdconf.NodeKeyConfig, keystoreFile string) ([]byte, error) {
	keyData, err := os.ReadFile(keystoreFile)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSignKeyKeystoreReadFailed, keystoreFile)
	}
	passData := []byte(confutil.StringOrEmpty(conf.Passphrase, ""))
	if passphraseFile := confutil.StringOrEmpty(conf.PassphraseFile, ""); passphraseFile != "" {
		passData, err = os.ReadFile(passphraseFile)
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgSignKeyKeystoreReadFailed, passphraseFile)
		}
	}
	wf, err := keystorev3.ReadWalletFile(keyData, passData)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSignKeyKeystoreInvalid, keystoreFile)
	}
	return wf.PrivateKey(), nil
}

// Address is the lower case 0x form of the key's public identity - the string
// peers hold in their registries to verify this node's envelopes.
func (nk *NodeKey) Address() string {
	return ethtypes.Address0xHex(nk.keyPair.Address).String()
}

// Sign produces a 65 byte compact R/S/V signature over the payload.
func (nk *NodeKey) Sign(ctx context.Context, payload []byte) (vdtypes.HexBytes, error) {
	sig, err := nk.keyPair.SignDirect(payload)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgSignKeySignFailed)
	}
	return sig.CompactRSV(), nil
}

// Verify checks a compact R/S/V signature recovers to the expected address.
// Comparison is case insensitive so checksummed registry entries match.
func Verify(ctx context.Context, payload []byte, signature vdtypes.HexBytes, expected string) error {
	sig, err := secp256k1.DecodeCompactRSV(ctx, signature)
	if err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgSignKeyVerifyFailed)
	}
	addr, err := sig.RecoverDirect(payload, 0)
	if err != nil {
		return i18n.WrapError(ctx, err, msgs.MsgSignKeyVerifyFailed)
	}
	if !strings.EqualFold(addr.String(), expected) {
		return i18n.NewError(ctx, msgs.MsgSignKeyWrongSigner, addr, expected)
	}
	return nil
}
