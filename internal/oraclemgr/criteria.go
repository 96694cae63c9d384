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

package oraclemgr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/cache"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

// criteriaEvaluator compiles CEL trigger criteria and evaluates them against
// attestation claims. Programs are cached by the keccak hash of the criteria
// text - the same hash that pins the text to the condition row.
type criteriaEvaluator struct {
	env       *cel.Env
	programs  cache.Cache[vdtypes.Bytes32, cel.Program]
	costLimit uint64
}

func newCriteriaEvaluator(ctx context.Context, conf *vdconf.OracleManagerConfig) (*criteriaEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("claim", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("observed", cel.TimestampType),
		cel.Variable("now", cel.TimestampType),
	)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgOracleBadCriteria, "environment")
	}
	return &criteriaEvaluator{
		env:       env,
		programs:  cache.NewCache[vdtypes.Bytes32, cel.Program](&conf.CriteriaCache, &vdconf.OracleManagerDefaults.CriteriaCache),
		costLimit: uint64(confutil.Int64Min(conf.EvalCostLimit, 1, *vdconf.OracleManagerDefaults.EvalCostLimit)),
	}, nil
}

// compile returns the program for the criteria text, along with the hash
// callers compare against the condition's pinned criteria_hash.
func (ce *criteriaEvaluator) compile(ctx context.Context, criteria string) (cel.Program, vdtypes.Bytes32, error) {
	hash := vdtypes.Bytes32Keccak([]byte(criteria))
	if prg, cached := ce.programs.Get(hash); cached {
		return prg, hash, nil
	}
	ast, issues := ce.env.Compile(criteria)
	if issues != nil && issues.Err() != nil {
		return nil, hash, i18n.NewError(ctx, msgs.MsgOracleBadCriteria, issues.Err())
	}
	prg, err := ce.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(ce.costLimit),
	)
	if err != nil {
		return nil, hash, i18n.NewError(ctx, msgs.MsgOracleBadCriteria, err)
	}
	ce.programs.Set(hash, prg)
	return prg, hash, nil
}

// evalOutcome runs the program over one claim, mapping the result to an
// outcome label. Booleans map to the canonical fired/not_fired pair; strings
// are free-form labels for prediction-market style criteria. Anything else
// is an evaluation failure.
func (ce *criteriaEvaluator) evalOutcome(ctx context.Context, prg cel.Program, claim map[string]any, observed vdtypes.Timestamp, now time.Time) (string, error) {
	if claim == nil {
		claim = map[string]any{}
	}
	out, _, err := prg.Eval(map[string]any{
		"claim":    claim,
		"observed": observed.Time(),
		"now":      now,
	})
	if err != nil {
		return "", i18n.NewError(ctx, msgs.MsgOracleEvalFailed, err)
	}
	switch v := out.Value().(type) {
	case bool:
		if v {
			return vdapi.OutcomeFired, nil
		}
		return vdapi.OutcomeNotFired, nil
	case string:
		if v == "" {
			return "", i18n.NewError(ctx, msgs.MsgOracleEvalFailed, "empty outcome label")
		}
		return v, nil
	default:
		return "", i18n.NewError(ctx, msgs.MsgOracleEvalFailed, fmt.Sprintf("expression returned %T (must be bool or string)", v))
	}
}

// ValidateCriteria compiles the criteria, and for time-locked conditions also
// trial-evaluates it - those criteria run with no attestations at all, so an
// expression that needs claim data (or returns a label) has to be rejected at
// creation rather than discovered when the unlock scanner fires.
func (om *oracleManager) ValidateCriteria(ctx context.Context, conditionType vdapi.ConditionType, criteria string) error {
	prg, _, err := om.evaluator.compile(ctx, criteria)
	if err != nil {
		return err
	}
	if conditionType == vdapi.ConditionTypeTimeLocked {
		outcome, err := om.evaluator.evalOutcome(ctx, prg, nil, vdtypes.TimestampNow(), time.Now())
		if err != nil {
			return err
		}
		if outcome != vdapi.OutcomeFired && outcome != vdapi.OutcomeNotFired {
			return i18n.NewError(ctx, msgs.MsgOracleEvalFailed, "time-locked criteria must evaluate to a boolean")
		}
	}
	return nil
}

// claimMap parses claim JSON, requiring an object so the criteria can bind it
// as a map.
func claimMap(ctx context.Context, claim vdtypes.RawJSON) (map[string]any, error) {
	if claim.IsNil() {
		return nil, i18n.NewError(ctx, msgs.MsgOracleClaimInvalid)
	}
	var m map[string]any
	if err := json.Unmarshal(claim, &m); err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgOracleClaimInvalid)
	}
	return m, nil
}
