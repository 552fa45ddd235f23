/*
 * Copyright 2019 The QuorumNet Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ledger

import (
	"context"
	"database/sql"

	"github.com/quorumnet/ledgercore/crypto/hash"
	"github.com/quorumnet/ledgercore/types"
)

// Executor is the statement surface the storage engine hands to external
// command execution and validation code. It is the transactional slice of
// *sql.Tx: everything executed through it stays inside the staging
// transaction until the owning storage commits or discards.
type Executor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var _ Executor = (*sql.Tx)(nil)

// ApplyPredicate gates a candidate block during Apply. It receives the block
// itself, the staging transaction for command execution, and the hash the
// staged chain currently ends at. Returning false rejects the block without
// touching the staged sequence. The engine treats the predicate as opaque.
type ApplyPredicate func(block *types.Block, exec Executor, topHash hash.Hash) bool
