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

package governor

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"gorm.io/gorm/clause"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// pauseLedger suspends admission and settlement release on a ledger. Pausing
// an already-paused ledger updates the reason.
func (g *governor) pauseLedger(ctx context.Context, ledger, reason string) (*vdapi.PausedLedger, error) {
	paused := &vdapi.PausedLedger{
		Ledger: ledger,
		Reason: reason,
		Paused: vdtypes.TimestampNow(),
	}
	err := g.p.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ledger"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason", "paused"}),
		}).
		Create(paused).
		Error
	if err != nil {
		return nil, err
	}
	log.L(ctx).Warnf("Ledger %s PAUSED by governance: %s", ledger, reason)
	return paused, nil
}

// resumeLedger lifts a pause and nudges the settlement dispatcher, so legs
// stalled behind the pause pick up without waiting for the recheck interval.
func (g *governor) resumeLedger(ctx context.Context, ledger string) (*vdapi.PausedLedger, error) {
	paused, err := g.PausedLedger(ctx, ledger)
	if err != nil {
		return nil, err
	}
	if paused == nil {
		return nil, i18n.NewError(ctx, msgs.MsgGovernorNotPaused, ledger)
	}
	err = g.p.DB().WithContext(ctx).
		Where("ledger = ?", ledger).
		Delete(&vdapi.PausedLedger{}).
		Error
	if err != nil {
		return nil, err
	}
	log.L(ctx).Warnf("Ledger %s resumed by governance", ledger)
	g.settlement.RecheckNow()
	return paused, nil
}

// updateParameter records a governance parameter with its effective time
// (defaulting to now). History is retained - a new row does not replace the
// old one, it outranks it once its effective time passes.
func (g *governor) updateParameter(ctx context.Context, key, value string, effective *vdtypes.Timestamp) (*vdapi.GovParam, error) {
	if err := validateParameter(ctx, key, value); err != nil {
		return nil, err
	}
	now := vdtypes.TimestampNow()
	param := &vdapi.GovParam{
		Param:     key,
		Value:     value,
		Effective: now,
		Created:   now,
	}
	if effective != nil {
		param.Effective = *effective
	}
	err := g.p.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "param"}, {Name: "effective"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "created"}),
		}).
		Create(param).
		Error
	if err != nil {
		return nil, err
	}
	log.L(ctx).Infof("Governance parameter %s = %s (effective %s)", key, value, param.Effective)
	return param, nil
}

func (g *governor) listParameters(ctx context.Context) ([]*vdapi.GovParam, error) {
	params := []*vdapi.GovParam{}
	err := g.p.DB().WithContext(ctx).
		Order("param").
		Order("effective DESC").
		Find(&params).
		Error
	return params, err
}

// validateParameter bounds-checks a parameter write. Keys are the base names
// with an optional scope suffix - a condition type for consensus parameters,
// a ledger for volume caps.
func validateParameter(ctx context.Context, key, value string) error {
	base, scope, scoped := strings.Cut(key, ".")
	switch base {
	case vdapi.ParamConsensusThreshold:
		if scoped {
			if _, err := vdapi.ConditionType(scope).Enum().Validate(); err != nil {
				return i18n.NewError(ctx, msgs.MsgGovernorUnknownParameter, key)
			}
		}
		if v, ok := parseFloatValue(value); !ok || v < 50 || v > 100 {
			return i18n.NewError(ctx, msgs.MsgGovernorParameterOutOfRange, value, key, "50-100")
		}
	case vdapi.ParamMinSources:
		minAllowed := 1
		if scoped {
			condType, err := vdapi.ConditionType(scope).Enum().Validate()
			if err != nil {
				return i18n.NewError(ctx, msgs.MsgGovernorUnknownParameter, key)
			}
			// time-locked conditions take no attestations at all
			if condType == vdapi.ConditionTypeTimeLocked {
				minAllowed = 0
			}
		}
		if v, ok := parseIntValue(value); !ok || v < minAllowed {
			return i18n.NewError(ctx, msgs.MsgGovernorParameterOutOfRange, value, key, ">= "+strconv.Itoa(minAllowed))
		}
	case vdapi.ParamVolumeCap:
		if !scoped || scope == "" {
			return i18n.NewError(ctx, msgs.MsgGovernorUnknownParameter, key)
		}
		if v, ok := new(big.Int).SetString(value, 10); !ok || v.Sign() < 0 {
			return i18n.NewError(ctx, msgs.MsgGovernorParameterOutOfRange, value, key, ">= 0")
		}
	default:
		return i18n.NewError(ctx, msgs.MsgGovernorUnknownParameter, key)
	}
	return nil
}

func parseIntValue(value string) (int, bool) {
	v, err := strconv.Atoi(value)
	return v, err == nil
}

func parseFloatValue(value string) (float64, bool) {
	v, err := strconv.ParseFloat(value, 64)
	return v, err == nil
}

// addOracleSource registers (or re-activates) a data-source identity. The
// aggregator only reads this registry.
func (g *governor) addOracleSource(ctx context.Context, identity, description string) (*vdapi.OracleSource, error) {
	addr, err := ethtypes.NewAddress(identity)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgGovernorBadIdentity, identity)
	}
	now := vdtypes.TimestampNow()
	source := &vdapi.OracleSource{
		Identity:    addr.String(),
		Description: description,
		Status:      vdapi.OracleSourceActive.Enum(),
		Created:     now,
		Updated:     now,
	}
	err = g.p.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "status", "updated"}),
		}).
		Create(source).
		Error
	if err != nil {
		return nil, err
	}
	log.L(ctx).Infof("Oracle source %s active (%s)", source.Identity, description)
	return source, nil
}

// revokeOracleSource stops a source's attestations being accepted from now
// on. Attestations it submitted while active keep counting - revocation gates
// ingestion, not history.
func (g *governor) revokeOracleSource(ctx context.Context, identity string) (*vdapi.OracleSource, error) {
	addr, err := ethtypes.NewAddress(identity)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgGovernorBadIdentity, identity)
	}
	res := g.p.DB().WithContext(ctx).
		Model(&vdapi.OracleSource{}).
		Where("identity = ?", addr.String()).
		Updates(map[string]any{
			"status":  vdapi.OracleSourceRevoked.Enum(),
			"updated": vdtypes.TimestampNow(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, i18n.NewError(ctx, msgs.MsgGovernorSourceUnknown, identity)
	}
	log.L(ctx).Warnf("Oracle source %s REVOKED by governance", addr)
	var sources []*vdapi.OracleSource
	err = g.p.DB().WithContext(ctx).
		Where("identity = ?", addr.String()).
		Limit(1).
		Find(&sources).
		Error
	if err != nil || len(sources) == 0 {
		return nil, err
	}
	return sources[0], nil
}

func (g *governor) denylistAddress(ctx context.Context, ledger, address, reason string) (*vdapi.DenylistEntry, error) {
	entry := &vdapi.DenylistEntry{
		Ledger:  ledger,
		Address: strings.ToLower(address),
		Reason:  reason,
		Created: vdtypes.TimestampNow(),
	}
	err := g.p.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ledger"}, {Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason"}),
		}).
		Create(entry).
		Error
	if err != nil {
		return nil, err
	}
	log.L(ctx).Warnf("Address %s denylisted on %s: %s", entry.Address, ledger, reason)
	return entry, nil
}

// allowlistAddress removes a denylist entry and nudges the settlement
// dispatcher, so legs held at the release gate re-check immediately.
func (g *governor) allowlistAddress(ctx context.Context, ledger, address string) (bool, error) {
	res := g.p.DB().WithContext(ctx).
		Where("ledger = ?", ledger).
		Where("address = ?", strings.ToLower(address)).
		Delete(&vdapi.DenylistEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, i18n.NewError(ctx, msgs.MsgGovernorNotDenylisted, address, ledger)
	}
	log.L(ctx).Infof("Address %s allowlisted on %s", strings.ToLower(address), ledger)
	g.settlement.RecheckNow()
	return true, nil
}

func (g *governor) listDenylist(ctx context.Context) ([]*vdapi.DenylistEntry, error) {
	entries := []*vdapi.DenylistEntry{}
	err := g.p.DB().WithContext(ctx).
		Order("ledger").
		Order("address").
		Find(&entries).
		Error
	return entries, err
}

func (g *governor) listPaused(ctx context.Context) ([]*vdapi.PausedLedger, error) {
	paused := []*vdapi.PausedLedger{}
	err := g.p.DB().WithContext(ctx).
		Order("ledger").
		Find(&paused).
		Error
	return paused, err
}
