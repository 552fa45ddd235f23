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

	"github.com/quorumnet/ledgercore/crypto/hash"
	"github.com/quorumnet/ledgercore/storage"
	"github.com/quorumnet/ledgercore/types"
	"github.com/quorumnet/ledgercore/utils/log"
)

type stagedBlock struct {
	height uint64
	block  *types.Block
}

// MutableStorage is the transactional staging area for candidate blocks. It
// owns one leased backend session with an open transaction plus an ordered
// in-memory log of the blocks applied so far. It ends in exactly one of two
// terminal states: promoted to durable state by Storage.Commit, or thrown
// away by Discard, which rolls the transaction back leaving no trace.
//
// A MutableStorage is single-owner; its methods are not meant for concurrent
// use by multiple goroutines.
type MutableStorage struct {
	pool *storage.Pool
	slot int
	tx   *sql.Tx

	staged  []stagedBlock
	topHash hash.Hash

	mu        sync.Mutex
	committed bool
	done      bool
}

func newMutableStorage(pool *storage.Pool, slot int, tx *sql.Tx, top hash.Hash) *MutableStorage {
	return &MutableStorage{
		pool:    pool,
		slot:    slot,
		tx:      tx,
		topHash: top,
	}
}

// Apply offers a candidate block to the staging area. The predicate is
// evaluated against the block, the staging transaction and the currently
// staged top hash; on approval the block joins the staged sequence keyed by
// its height and the staged top hash advances to the block's hash. A
// rejected block leaves the staging area untouched.
//
// Apply does not short-circuit across calls: callers staging a sequence of
// blocks fold the per-block results themselves.
func (m *MutableStorage) Apply(block *types.Block, predicate ApplyPredicate) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done {
		log.WithField("height", block.Height()).Warn("apply on terminal mutable storage")
		return false
	}

	if !predicate(block, m.tx, m.topHash) {
		return false
	}

	m.staged = append(m.staged, stagedBlock{height: block.Height(), block: block})
	m.topHash = block.Hash()
	return true
}

// TopHash returns the hash the staged chain currently ends at: the snapshot
// taken at creation time until a block is applied, then the last applied
// block's hash.
func (m *MutableStorage) TopHash() hash.Hash {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.topHash
}

// StagedCount returns the number of successfully applied blocks.
func (m *MutableStorage) StagedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.staged)
}

// Committed reports whether this storage reached the committed terminal
// state.
func (m *MutableStorage) Committed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed
}

// Discard rolls the staging transaction back and returns the session to the
// pool. Discarding an already terminal storage is a no-op.
func (m *MutableStorage) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discardLocked()
}

func (m *MutableStorage) discardLocked() {
	if m.done {
		return
	}
	m.done = true
	if err := m.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		log.WithError(err).Warn("rollback staged transaction")
	}
	m.pool.Release(m.slot)
}

// promote runs fn under the storage lock and, when fn succeeds, marks the
// storage committed and returns the session. On failure the storage is
// discarded instead. Only the facade calls this, from Storage.Commit.
func (m *MutableStorage) promote(fn func(tx *sql.Tx, staged []stagedBlock) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done {
		return ErrTerminated
	}

	if err := fn(m.tx, m.staged); err != nil {
		m.discardLocked()
		return err
	}

	m.committed = true
	m.done = true
	m.pool.Release(m.slot)
	return nil
}
