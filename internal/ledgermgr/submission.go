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
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/veridict-io/veridict/internal/msgs"
	"github.com/veridict-io/veridict/pkg/log"
	"github.com/veridict-io/veridict/pkg/persistence"
	"github.com/veridict-io/veridict/pkg/vdapi"
	"github.com/veridict-io/veridict/pkg/vdtypes"
)

func (lm *ledgerManager) SubmitAndTrack(ctx context.Context, dbTX persistence.DBTX, intent *vdapi.LedgerIntent) (*vdapi.LedgerSubmission, error) {
	if !lm.started.Load() {
		return nil, i18n.NewError(ctx, msgs.MsgLedgerNotStarted)
	}
	l, err := lm.getLedger(ctx, intent.Ledger)
	if err != nil {
		return nil, err
	}
	if intent.Amount == nil || intent.Amount.Sign() <= 0 {
		return nil, i18n.NewError(ctx, msgs.MsgTypesNegativeAmount)
	}

	now := vdtypes.TimestampNow()
	sub := &vdapi.LedgerSubmission{
		ID:         uuid.New(),
		Ledger:     intent.Ledger,
		IntentType: intent.Type,
		Intent:     intent,
		Status:     vdapi.SubmissionPending.Enum(),
		Created:    now,
		Updated:    now,
	}
	if intent.Ref == "" {
		// callers wanting idempotency across their own replays must set the ref -
		// a generated one only dedupes crash-recovery resubmission of this row
		intent.Ref = sub.ID.String()
	}
	if err := dbTX.DB().WithContext(ctx).Create(sub).Error; err != nil {
		return nil, err
	}
	dbTX.AddPostCommit(func(ctx context.Context) {
		lm.trackSubmission(sub, l)
	})
	return sub, nil
}

func (lm *ledgerManager) WaitFinal(ctx context.Context, submissionID uuid.UUID) (*vdapi.LedgerSubmission, error) {
	// register the waiter before reading, so a tracker completing in between
	// cannot be missed
	req := lm.finalityWaiters.AddInflight(ctx, submissionID)
	defer req.Cancel()

	var subs []*vdapi.LedgerSubmission
	if err := lm.p.DB().WithContext(ctx).Where("id = ?", submissionID).Limit(1).Find(&subs).Error; err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, i18n.NewError(ctx, msgs.MsgLedgerSubmissionNotFound, submissionID)
	}
	switch subs[0].Status.V() {
	case vdapi.SubmissionConfirmed, vdapi.SubmissionFailed:
		return subs[0], nil
	}
	return req.Wait()
}

func (lm *ledgerManager) recoverInflightSubmissions(ctx context.Context) error {
	var inflightSubs []*vdapi.LedgerSubmission
	err := lm.p.DB().WithContext(ctx).
		Where("status IN (?)", []string{string(vdapi.SubmissionPending), string(vdapi.SubmissionSubmitted)}).
		Order("created ASC").
		Find(&inflightSubs).Error
	if err != nil {
		return err
	}
	for _, sub := range inflightSubs {
		l := lm.ledgers[sub.Ledger]
		if l == nil {
			log.L(ctx).Errorf("Submission %s references unconfigured ledger '%s'", sub.ID, sub.Ledger)
			continue
		}
		log.L(ctx).Infof("Recovering in-flight submission %s on '%s' (status=%s)", sub.ID, sub.Ledger, sub.Status)
		lm.trackSubmission(sub, l)
	}
	return nil
}

func (lm *ledgerManager) trackSubmission(sub *vdapi.LedgerSubmission, l *ledger) {
	lm.trackers.Add(1)
	go func() {
		defer lm.trackers.Done()
		lm.runSubmission(lm.bgCtx, l, sub)
	}()
}

// runSubmission owns one submission from (re)submission through to finality.
// It is the only writer of the row once the creating transaction commits.
func (lm *ledgerManager) runSubmission(ctx context.Context, l *ledger, sub *vdapi.LedgerSubmission) {
	log.L(ctx).Debugf("Tracking %s submission %s on '%s'", sub.IntentType, sub.ID, l.name)

	if sub.TxRef == "" {
		err := l.submitRetry.Do(ctx, func(attempt int) (bool, error) {
			txRef, err := l.adapter.submit(ctx, sub.Intent, sub.Intent.Ref)
			if err != nil {
				return !isPermanent(err), err
			}
			sub.TxRef = txRef
			return false, nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return // shutdown - recovery resubmits with the same ref
			}
			lm.finalizeSubmission(ctx, sub, vdapi.SubmissionFailed,
				i18n.WrapError(ctx, err, msgs.MsgLedgerSubmitFailed, l.name).Error())
			return
		}
		sub.Status = vdapi.SubmissionSubmitted.Enum()
		lm.updateSubmission(ctx, sub)
	}

	for {
		status, err := l.adapter.txStatus(ctx, sub.TxRef)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.L(ctx).Warnf("Status poll for %s on '%s' failed: %s", sub.TxRef, l.name, err)
		} else {
			switch status.State.V() {
			case vdapi.LedgerTxFailed:
				lm.finalizeSubmission(ctx, sub, vdapi.SubmissionFailed,
					i18n.NewError(ctx, msgs.MsgLedgerSubmitPermanent, l.name, status.RevertReason).Error())
				return
			case vdapi.LedgerTxConfirmed:
				if status.Confirmations != sub.Confirmations {
					sub.Confirmations = status.Confirmations
					lm.updateSubmission(ctx, sub)
				}
				if status.Confirmations >= l.finalityDepth {
					lm.finalizeSubmission(ctx, sub, vdapi.SubmissionConfirmed, "")
					return
				}
			}
		}
		select {
		case <-time.After(l.pollInterval):
		case <-ctx.Done():
			return
		}
	}
}

func (lm *ledgerManager) finalizeSubmission(ctx context.Context, sub *vdapi.LedgerSubmission, status vdapi.SubmissionStatus, errMsg string) {
	sub.Status = status.Enum()
	sub.Error = errMsg
	lm.updateSubmission(ctx, sub)
	if status == vdapi.SubmissionFailed {
		log.L(ctx).Errorf("Submission %s (%s) on '%s' failed: %s", sub.ID, sub.IntentType, sub.Ledger, errMsg)
	} else {
		log.L(ctx).Debugf("Submission %s final on '%s' (tx=%s confirmations=%d)", sub.ID, sub.Ledger, sub.TxRef, sub.Confirmations)
	}
	if req := lm.finalityWaiters.GetInflight(sub.ID); req != nil {
		req.Complete(sub)
	}
}

func (lm *ledgerManager) updateSubmission(ctx context.Context, sub *vdapi.LedgerSubmission) {
	sub.Updated = vdtypes.TimestampNow()
	err := lm.p.DB().WithContext(ctx).
		Model(&vdapi.LedgerSubmission{}).
		Where("id = ?", sub.ID).
		Updates(map[string]any{
			"status":        sub.Status,
			"tx_ref":        sub.TxRef,
			"confirmations": sub.Confirmations,
			"error":         sub.Error,
			"updated":       sub.Updated,
		}).Error
	if err != nil {
		// the next recovery scan re-drives from the last committed state
		log.L(ctx).Errorf("Failed to update submission %s: %s", sub.ID, err)
	}
}
