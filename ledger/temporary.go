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
	"database/sql"
	"sync"

	"github.com/quorumnet/ledgercore/storage"
	"github.com/quorumnet/ledgercore/types"
	"github.com/quorumnet/ledgercore/utils/log"
)

// TemporaryWsv is a single-use speculative view of the world state. Proposal
// validation runs candidate transactions through it to probe whether they
// are consistent with current ledger state; every statement executed through
// a TemporaryWsv is rolled back when the view is closed. It never commits.
type TemporaryWsv struct {
	pool *storage.Pool
	slot int
	tx   *sql.Tx

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func newTemporaryWsv(pool *storage.Pool, slot int, tx *sql.Tx) *TemporaryWsv {
	return &TemporaryWsv{pool: pool, slot: slot, tx: tx}
}

// Execute runs one speculative statement inside the rollback-only
// transaction.
func (t *TemporaryWsv) Execute(query string, args ...interface{}) (sql.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTemporaryClosed
	}
	return t.tx.Exec(query, args...)
}

// Validate evaluates a proposal transaction against the speculative view by
// handing the caller's check the staging executor. The boolean outcome is
// the caller's; state touched by the check stays confined to this view.
func (t *TemporaryWsv) Validate(tx *types.Transaction, check func(tx *types.Transaction, exec Executor) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	return check(tx, t.tx)
}

// Close rolls back everything executed through the view and returns the
// session to the pool. Close is idempotent and releases the session exactly
// once on any path.
func (t *TemporaryWsv) Close() {
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.WithError(err).Warn("rollback temporary wsv")
		}
		t.pool.Release(t.slot)
	})
}
