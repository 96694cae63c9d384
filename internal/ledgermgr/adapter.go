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

package ledgermgr

import (
	"context"
	"errors"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/confutil"
	"github.com/veridict-io/veridict/pkg/retry"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdconf"
)

const (
	LedgerTypeEmbedded = "embedded"
	LedgerTypeRemote   = "remote"
)

// ledgerAdapter is the uniform surface the manager drives for one ledger,
// regardless of where the ledger actually runs.
type ledgerAdapter interface {
	ledgerType() string
	blockHeight(ctx context.Context) (uint64, error)
	// submit must be idempotent on ref - resubmitting the same ref returns
	// the original transaction reference without moving value again
	submit(ctx context.Context, intent *vdapi.LedgerIntent, ref string) (txRef string, err error)
	txStatus(ctx context.Context, txRef string) (*vdapi.LedgerTxStatus, error)
	start()
	stop()
}

// permanentError marks a submission failure that retrying cannot fix, such
// as an insufficient balance. The tracker fails the submission immediately
// rather than burning its retry budget.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

func isPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// ledger is the per-ledger runtime state - the adapter plus the tracking
// parameters resolved from its config section.
type ledger struct {
	name          string
	adapter       ledgerAdapter
	finalityDepth int
	pollInterval  time.Duration
	submitRetry   *retry.Retry
}

func (lm *ledgerManager) newLedger(name string, conf *vdconf.LedgerConfig) (*ledger, error) {
	l := &ledger{
		name:          name,
		finalityDepth: confutil.IntMin(conf.FinalityDepth, 1, *vdconf.LedgerDefaults.FinalityDepth),
		pollInterval:  confutil.DurationMin(conf.StatusPollInterval, 1*time.Millisecond, *vdconf.LedgerDefaults.StatusPollInterval),
		submitRetry:   retry.NewRetryLimited(&conf.SubmitRetry, &vdconf.LedgerDefaults.SubmitRetry),
	}
	switch conf.Type {
	case "", LedgerTypeEmbedded:
		el, err := newEmbeddedLedger(lm.bgCtx, name, &conf.Embedded)
		if err != nil {
			return nil, err
		}
		l.adapter = el
	case LedgerTypeRemote:
		ra, err := newRemoteAdapter(lm.bgCtx, name, &conf.Remote)
		if err != nil {
			return nil, err
		}
		l.adapter = ra
	default:
		return nil, i18n.NewError(lm.bgCtx, msgs.MsgLedgerBadAdapterType, conf.Type, name)
	}
	return l, nil
}

func (l *ledger) info(ctx context.Context) (*vdapi.LedgerInfo, error) {
	height, err := l.adapter.blockHeight(ctx)
	if err != nil {
		return nil, err
	}
	return &vdapi.LedgerInfo{
		Ledger:        l.name,
		LedgerType:    l.adapter.ledgerType(),
		BlockHeight:   height,
		FinalityDepth: l.finalityDepth,
	}, nil
}
