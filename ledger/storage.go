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

// Package ledger implements the durable storage engine of the permissioned
// ledger: the storage facade owning the block store, the backend session
// pool and the commit notification bus, the transactional staging area for
// candidate blocks, the rollback-only speculative view used by proposal
// validation, and the pooled read query services.
package ledger

import (
	"context"
	"database/sql"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/quorumnet/ledgercore/blockstore"
	"github.com/quorumnet/ledgercore/chainbus"
	"github.com/quorumnet/ledgercore/crypto/hash"
	"github.com/quorumnet/ledgercore/storage"
	"github.com/quorumnet/ledgercore/types"
	"github.com/quorumnet/ledgercore/utils/log"
)

// ConnectionContext pairs an initialized block store with a verified backend
// DSN. It is produced by initConnections and consumed once during facade
// construction.
type ConnectionContext struct {
	BlockStore *blockstore.FlatFile
	DSN        *storage.DSN
}

// Storage is the process-wide owner of the ledger's durable state: the
// append-only block store, the fixed size backend session pool and the
// commit bus. It is the only component that may promote a MutableStorage
// into durable state.
//
// The pool reference is the one piece of shared mutable state: it is guarded
// by a readers-writer drop guard. Operations that lease a session hold the
// guard in shared mode for the lease-acquisition step only; DropStorage and
// Close take it exclusively, so teardown waits for in-flight acquisitions
// and no new acquisition can start mid-teardown.
type Storage struct {
	blockStoreDir string
	dsn           *storage.DSN
	blockStore    *blockstore.FlatFile
	factory       types.ObjectFactory
	bus           *chainbus.ChainBus

	dropMu sync.RWMutex
	pool   *storage.Pool // nil once dropped or closed
}

// NewStorage creates the storage facade: ensures the target database exists
// (idempotent, postgres only), initializes the block store directory, opens
// the fixed size session pool and runs the schema DDL once. On any failure
// no partial facade is returned; the first error wins in the order database
// creation, block store, pool.
func NewStorage(blockStoreDir, dsnString string, poolSize int, factory types.ObjectFactory) (*Storage, error) {
	dsn, err := storage.NewDSN(dsnString)
	if err != nil {
		return nil, err
	}

	created, err := storage.CreateDatabaseIfNotExist(dsn)
	if err != nil {
		return nil, err
	}
	if created {
		dbname, _ := dsn.Database()
		log.WithField("database", dbname).Info("created backend database")
	}

	ctx, err := initConnections(blockStoreDir, dsn)
	if err != nil {
		return nil, err
	}

	pool, err := storage.NewPool(context.Background(), dsn, poolSize)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		blockStoreDir: blockStoreDir,
		dsn:           ctx.DSN,
		blockStore:    ctx.BlockStore,
		factory:       factory,
		bus:           chainbus.New(),
		pool:          pool,
	}
	if err = s.initSchema(); err != nil {
		pool.Close()
		return nil, err
	}

	log.WithFields(log.Fields{
		"blockStore": blockStoreDir,
		"poolSize":   poolSize,
	}).Info("storage created")
	return s, nil
}

// initConnections prepares the block store and bundles it with the backend
// DSN for facade construction.
func initConnections(blockStoreDir string, dsn *storage.DSN) (*ConnectionContext, error) {
	store, err := blockstore.New(blockStoreDir)
	if err != nil {
		return nil, err
	}
	return &ConnectionContext{BlockStore: store, DSN: dsn}, nil
}

func (s *Storage) initSchema() error {
	return s.execSequence(initDDL[:], "init schema")
}

// execSequence leases one session and runs every statement on it in order.
func (s *Storage) execSequence(stmts []string, op string) error {
	slot, sess, err := s.leaseSession()
	if err != nil {
		return err
	}
	defer s.releaseSession(slot)

	for _, stmt := range stmts {
		if _, err := sess.ExecContext(context.Background(), stmt); err != nil {
			return errors.Wrap(err, op)
		}
	}
	return nil
}

// leaseSession acquires one pooled session under the shared drop guard. The
// guard covers only the acquisition step, never the session lifetime.
func (s *Storage) leaseSession() (int, *storage.Session, error) {
	s.dropMu.RLock()
	defer s.dropMu.RUnlock()
	if s.pool == nil {
		return 0, nil, ErrConnClosed
	}
	slot, sess, err := s.pool.Lease(context.Background())
	if err == storage.ErrPoolClosed {
		return 0, nil, ErrConnClosed
	}
	return slot, sess, err
}

func (s *Storage) releaseSession(slot int) {
	s.dropMu.RLock()
	defer s.dropMu.RUnlock()
	if s.pool != nil {
		s.pool.Release(slot)
	}
}

// CreateTemporaryWsv opens a rollback-only speculative view for proposal
// validation. Fails with ErrConnClosed once the pool is gone.
func (s *Storage) CreateTemporaryWsv() (*TemporaryWsv, error) {
	s.dropMu.RLock()
	defer s.dropMu.RUnlock()
	if s.pool == nil {
		return nil, ErrConnClosed
	}

	slot, sess, err := s.pool.Lease(context.Background())
	if err == storage.ErrPoolClosed {
		return nil, ErrConnClosed
	}
	if err != nil {
		return nil, err
	}
	tx, err := sess.BeginTx(context.Background(), nil)
	if err != nil {
		s.pool.Release(slot)
		return nil, errors.Wrap(err, "begin speculative transaction")
	}
	return newTemporaryWsv(s.pool, slot, tx), nil
}

// CreateMutableStorage opens a staging area for candidate blocks. The
// current top-of-chain hash is snapshotted at creation; an empty or
// unreadable chain degrades to the zero sentinel hash. Fails with
// ErrConnClosed once the pool is gone.
func (s *Storage) CreateMutableStorage() (*MutableStorage, error) {
	s.dropMu.RLock()
	defer s.dropMu.RUnlock()
	if s.pool == nil {
		return nil, ErrConnClosed
	}

	top := s.topHash()

	slot, sess, err := s.pool.Lease(context.Background())
	if err == storage.ErrPoolClosed {
		return nil, ErrConnClosed
	}
	if err != nil {
		return nil, err
	}
	tx, err := sess.BeginTx(context.Background(), nil)
	if err != nil {
		s.pool.Release(slot)
		return nil, errors.Wrap(err, "begin staging transaction")
	}
	return newMutableStorage(s.pool, slot, tx, top), nil
}

// topHash reads the current top block's hash, degrading to the zero
// sentinel when the chain is empty or the top entry cannot be decoded.
func (s *Storage) topHash() hash.Hash {
	last := s.blockStore.Last()
	if last == 0 {
		return hash.ZeroHash
	}
	raw, err := s.blockStore.Get(last)
	if err != nil {
		log.WithError(err).WithField("height", last).Warn("top block unreadable")
		return hash.ZeroHash
	}
	block, err := types.DeserializeBlock(raw)
	if err != nil {
		log.WithError(err).WithField("height", last).Warn("top block undecodable")
		return hash.ZeroHash
	}
	return block.Hash()
}

// GetWsvQuery opens a world state read accessor holding one pooled session
// until closed.
func (s *Storage) GetWsvQuery() (*WsvQuery, error) {
	s.dropMu.RLock()
	defer s.dropMu.RUnlock()
	if s.pool == nil {
		return nil, ErrConnClosed
	}
	slot, sess, err := s.pool.Lease(context.Background())
	if err == storage.ErrPoolClosed {
		return nil, ErrConnClosed
	}
	if err != nil {
		return nil, err
	}
	return newWsvQuery(s.pool, slot, sess, s.factory), nil
}

// GetBlockQuery opens a block read accessor holding one pooled session until
// closed.
func (s *Storage) GetBlockQuery() (*BlockQuery, error) {
	s.dropMu.RLock()
	defer s.dropMu.RUnlock()
	if s.pool == nil {
		return nil, ErrConnClosed
	}
	slot, sess, err := s.pool.Lease(context.Background())
	if err == storage.ErrPoolClosed {
		return nil, ErrConnClosed
	}
	if err != nil {
		return nil, err
	}
	return newBlockQuery(s.pool, slot, sess, s.blockStore), nil
}

// Commit promotes a mutable storage into durable state. The staging
// transaction is committed first; only then is each staged block written to
// the block store in ascending height order and published on the commit bus
// in the same order. Observers therefore never see a block the relational
// view did not durably record. The storage ends terminal either way:
// committed on success, discarded on failure.
func (s *Storage) Commit(m *MutableStorage) error {
	return m.promote(func(tx *sql.Tx, staged []stagedBlock) error {
		for _, sb := range staged {
			if err := s.indexBlock(tx, sb.block); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrap(err, "commit staging transaction")
		}
		for _, sb := range staged {
			raw, err := sb.block.Serialize()
			if err != nil {
				return err
			}
			if err := s.blockStore.Add(sb.height, raw); err != nil {
				// The relational commit already happened; surface the
				// divergence loudly instead of notifying a block the
				// store does not hold.
				log.WithError(err).WithField("height", sb.height).
					Error("block store write failed after backend commit")
				return err
			}
			s.bus.Publish(sb.block)
		}
		return nil
	})
}

// indexBlock records the block's relational side indices inside the staging
// transaction, so they commit atomically with the command mutations.
func (s *Storage) indexBlock(tx *sql.Tx, b *types.Block) error {
	height := strconv.FormatUint(b.Height(), 10)
	if _, err := tx.Exec(
		"INSERT INTO height_by_hash (hash, height) VALUES ($1, $2)",
		b.Hash().String(), height,
	); err != nil {
		return errors.Wrapf(err, "index block %d by hash", b.Height())
	}
	for i, t := range b.Transactions {
		if t.Creator == "" {
			continue
		}
		if _, err := tx.Exec(
			"INSERT INTO index_by_creator_height (creator_id, height, index_in_block) VALUES ($1, $2, $3)",
			t.Creator, height, strconv.Itoa(i),
		); err != nil {
			return errors.Wrapf(err, "index tx %d of block %d", i, b.Height())
		}
	}
	return nil
}

// InsertBlock stages one trusted block with an always-accepting predicate
// and commits it. Failures are logged, not propagated; callers needing the
// cause use CreateMutableStorage/Apply/Commit directly.
func (s *Storage) InsertBlock(b *types.Block) bool {
	log.Debug("create mutable storage")
	m, err := s.CreateMutableStorage()
	if err != nil {
		log.WithError(err).Error("insert block")
		return false
	}
	inserted := m.Apply(b, acceptAll)
	log.WithFields(log.Fields{
		"height":   b.Height(),
		"inserted": inserted,
	}).Info("block inserted")
	if err = s.Commit(m); err != nil {
		log.WithError(err).Error("insert block commit")
		return false
	}
	return inserted
}

// InsertBlocks stages the given trusted blocks in order and commits whatever
// staged. The result is the logical AND of the per-block outcomes: one
// failed block makes the overall result false, yet the successfully staged
// blocks are still committed. Callers must expect partial application.
func (s *Storage) InsertBlocks(blocks []*types.Block) bool {
	log.Debug("create mutable storage")
	inserted := true
	m, err := s.CreateMutableStorage()
	if err != nil {
		log.WithError(err).Error("insert blocks")
		return false
	}
	for _, b := range blocks {
		inserted = m.Apply(b, acceptAll) && inserted
	}
	if err = s.Commit(m); err != nil {
		log.WithError(err).Error("insert blocks commit")
		return false
	}
	log.Debug("insert blocks finished")
	return inserted
}

func acceptAll(*types.Block, Executor, hash.Hash) bool { return true }

// Reset deletes every row from the world state view while keeping the
// schema, the session pool and the block store.
func (s *Storage) Reset() error {
	log.Info("reset world state view")
	return s.execSequence(resetDDL(), "reset")
}

// DropStorage tears the whole storage down: waits for in-flight session
// acquisitions, closes the pool, destroys the backend database (dropping the
// named database on postgres, dropping tables and removing the file on
// sqlite) and wipes the block store. Afterwards every construction call on
// this facade fails with ErrConnClosed.
func (s *Storage) DropStorage() error {
	log.Info("drop storage")
	s.dropMu.Lock()
	defer s.dropMu.Unlock()

	if s.pool == nil {
		log.Warn("tried to drop storage without active connection")
		return nil
	}

	if _, ok := s.dsn.Database(); !ok {
		// No per-database identity: clear the schema through a session
		// while the pool is still alive.
		if slot, sess, err := s.pool.Lease(context.Background()); err == nil {
			for _, stmt := range dropDDL() {
				if _, err := sess.ExecContext(context.Background(), stmt); err != nil {
					log.WithError(err).Warn("drop table")
				}
			}
			s.pool.Release(slot)
		}
	}

	if err := s.pool.Close(); err != nil {
		log.WithError(err).Warn("close session pool")
	}
	s.pool = nil

	if err := storage.DropDatabase(s.dsn); err != nil {
		return err
	}

	log.Info("drop block store")
	return s.blockStore.DropAll()
}

// Close releases the session pool without destroying durable state. After
// Close, construction calls fail with ErrConnClosed. Idempotent.
func (s *Storage) Close() error {
	s.dropMu.Lock()
	defer s.dropMu.Unlock()
	if s.pool == nil {
		return nil
	}
	err := s.pool.Close()
	s.pool = nil
	return err
}

// OnCommit subscribes fn to the commit stream: it is invoked synchronously
// on the committing goroutine, once per committed block, in commit order.
// The returned cancel detaches the subscription.
func (s *Storage) OnCommit(fn chainbus.BlockHandler) (cancel func()) {
	return s.bus.Subscribe(fn)
}
