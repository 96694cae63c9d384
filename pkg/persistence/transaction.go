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

package persistence

import (
	"context"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/veridict-io/veridict/internal/msgs"
	"gorm.io/gorm"
)

type DBTX interface {
	// False for the NOTX() pseudo-transaction, where no pre/post commit handling is available
	FullTransaction() bool
	// Access the Gorm DB object for the transaction
	DB() *gorm.DB
	// Functions to be run at the end of the transaction, before it has committed. An error from these will cause a rollback of the transaction itself
	AddPreCommit(func(txCtx context.Context, tx DBTX) error)
	// Only called after a transaction is successfully committed - useful for triggering other actions that are conditional on new data
	AddPostCommit(func(txCtx context.Context))
	// Called after the transaction rolls back, with the opportunity to replace (or wrap) the error that is returned
	AddPostRollback(func(txCtx context.Context, err error) error)
	// Called in all cases (including panic cases) after the transaction completes, to release resources. An error indicates the transaction rolled back. Can be used as a post-commit too by checking err==nil.
	AddFinalizer(func(txCtx context.Context, err error))
	// Gives a component the ability to bind a piece of state to the lifecycle of the transaction, shared with any other code that uses the same key in the same transaction
	Singleton(key any, newFn func(txCtx context.Context) any) any
}

type transaction struct {
	txCtx         context.Context
	gdb           *gorm.DB
	singletons    map[any]any
	preCommits    []func(txCtx context.Context, tx DBTX) error
	postCommits   []func(txCtx context.Context)
	postRollbacks []func(txCtx context.Context, err error) error
	finalizers    []func(txCtx context.Context, err error)
}

func (t *transaction) FullTransaction() bool {
	return true
}

func (t *transaction) DB() *gorm.DB {
	return t.gdb
}

func (t *transaction) AddPreCommit(fn func(txCtx context.Context, tx DBTX) error) {
	t.preCommits = append(t.preCommits, fn)
}

func (t *transaction) AddPostCommit(fn func(txCtx context.Context)) {
	t.postCommits = append(t.postCommits, fn)
}

func (t *transaction) AddPostRollback(fn func(txCtx context.Context, err error) error) {
	t.postRollbacks = append(t.postRollbacks, fn)
}

func (t *transaction) AddFinalizer(fn func(txCtx context.Context, err error)) {
	t.finalizers = append(t.finalizers, fn)
}

func (t *transaction) Singleton(key any, newFn func(txCtx context.Context) any) any {
	if t.singletons == nil {
		t.singletons = make(map[any]any)
	}
	v, found := t.singletons[key]
	if !found {
		v = newFn(t.txCtx)
		t.singletons[key] = v
	}
	return v
}

// Deliberately not a full transaction, so that code paths that only need query access
// can share functions with transactional code paths.
type noTX struct {
	gdb *gorm.DB
}

func newNOTX(gdb *gorm.DB) DBTX {
	return &noTX{gdb: gdb}
}

func (t *noTX) FullTransaction() bool {
	return false
}

func (t *noTX) DB() *gorm.DB {
	return t.gdb
}

func (t *noTX) AddPreCommit(func(txCtx context.Context, tx DBTX) error) {
	panic(i18n.NewError(context.Background(), msgs.MsgPersistenceRequiresTransaction))
}

func (t *noTX) AddPostCommit(func(txCtx context.Context)) {
	panic(i18n.NewError(context.Background(), msgs.MsgPersistenceRequiresTransaction))
}

func (t *noTX) AddPostRollback(func(txCtx context.Context, err error) error) {
	panic(i18n.NewError(context.Background(), msgs.MsgPersistenceRequiresTransaction))
}

func (t *noTX) AddFinalizer(func(txCtx context.Context, err error)) {
	panic(i18n.NewError(context.Background(), msgs.MsgPersistenceRequiresTransaction))
}

func (t *noTX) Singleton(key any, newFn func(txCtx context.Context) any) any {
	panic(i18n.NewError(context.Background(), msgs.MsgPersistenceRequiresTransaction))
}
