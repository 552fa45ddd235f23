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
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/quorumnet/ledgercore/blockstore"
	"github.com/quorumnet/ledgercore/crypto/hash"
	"github.com/quorumnet/ledgercore/storage"
	"github.com/quorumnet/ledgercore/types"
)

// leasedSession carries the session a query service holds for its lifetime
// and guarantees the slot is returned exactly once however the service is
// shut down.
type leasedSession struct {
	pool *storage.Pool
	slot int
	sess *storage.Session

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func (l *leasedSession) session() (*storage.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrQueryClosed
	}
	return l.sess, nil
}

func (l *leasedSession) close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		l.pool.Release(l.slot)
	})
}

// WsvQuery is a read accessor over the relational world state view. It holds
// one leased session from creation until Close; a missed Close permanently
// shrinks the pool, so callers defer it immediately.
type WsvQuery struct {
	leasedSession
	factory types.ObjectFactory
}

func newWsvQuery(pool *storage.Pool, slot int, sess *storage.Session, factory types.ObjectFactory) *WsvQuery {
	return &WsvQuery{
		leasedSession: leasedSession{pool: pool, slot: slot, sess: sess},
		factory:       factory,
	}
}

// Close releases the leased session back to the pool. Idempotent.
func (q *WsvQuery) Close() {
	q.close()
}

// GetAccount fetches one account by id; absent accounts yield (nil, nil).
func (q *WsvQuery) GetAccount(ctx context.Context, accountID string) (*types.Account, error) {
	sess, err := q.session()
	if err != nil {
		return nil, err
	}
	var (
		domainID string
		quorum   uint32
		data     sql.NullString
	)
	err = sess.QueryRowContext(ctx,
		"SELECT domain_id, quorum, data FROM account WHERE account_id = $1", accountID,
	).Scan(&domainID, &quorum, &data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get account %s", accountID)
	}
	return q.factory.NewAccount(accountID, domainID, quorum, data.String)
}

// GetSignatories fetches the signatory keys attached to an account.
func (q *WsvQuery) GetSignatories(ctx context.Context, accountID string) ([]string, error) {
	sess, err := q.session()
	if err != nil {
		return nil, err
	}
	rows, err := sess.QueryContext(ctx,
		"SELECT public_key FROM account_has_signatory WHERE account_id = $1", accountID)
	if err != nil {
		return nil, errors.Wrapf(err, "get signatories of %s", accountID)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err = rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, "scan signatory")
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// GetPeers fetches every registered peer.
func (q *WsvQuery) GetPeers(ctx context.Context) ([]*types.Peer, error) {
	sess, err := q.session()
	if err != nil {
		return nil, err
	}
	rows, err := sess.QueryContext(ctx, "SELECT public_key, address FROM peer")
	if err != nil {
		return nil, errors.Wrap(err, "get peers")
	}
	defer rows.Close()

	var peers []*types.Peer
	for rows.Next() {
		var key, address string
		if err = rows.Scan(&key, &address); err != nil {
			return nil, errors.Wrap(err, "scan peer")
		}
		peer, err := q.factory.NewPeer(key, address)
		if err != nil {
			return nil, err
		}
		peers = append(peers, peer)
	}
	return peers, rows.Err()
}

// GetRoles fetches every declared role.
func (q *WsvQuery) GetRoles(ctx context.Context) ([]*types.Role, error) {
	sess, err := q.session()
	if err != nil {
		return nil, err
	}
	rows, err := sess.QueryContext(ctx, "SELECT role_id FROM role")
	if err != nil {
		return nil, errors.Wrap(err, "get roles")
	}
	defer rows.Close()

	var roles []*types.Role
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan role")
		}
		role, err := q.factory.NewRole(id)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetAsset fetches one asset by id; absent assets yield (nil, nil).
func (q *WsvQuery) GetAsset(ctx context.Context, assetID string) (*types.Asset, error) {
	sess, err := q.session()
	if err != nil {
		return nil, err
	}
	var (
		domainID  string
		precision int
	)
	err = sess.QueryRowContext(ctx,
		"SELECT domain_id, precision FROM asset WHERE asset_id = $1", assetID,
	).Scan(&domainID, &precision)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get asset %s", assetID)
	}
	return q.factory.NewAsset(assetID, domainID, precision)
}

// GetAccountAsset fetches one balance row; absent balances yield (nil, nil).
func (q *WsvQuery) GetAccountAsset(ctx context.Context, accountID, assetID string) (*types.AccountAsset, error) {
	sess, err := q.session()
	if err != nil {
		return nil, err
	}
	var amount string
	err = sess.QueryRowContext(ctx,
		"SELECT amount FROM account_has_asset WHERE account_id = $1 AND asset_id = $2",
		accountID, assetID,
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get balance %s/%s", accountID, assetID)
	}
	return q.factory.NewAccountAsset(accountID, assetID, amount)
}

// GetDomain fetches one domain by id; absent domains yield (nil, nil).
func (q *WsvQuery) GetDomain(ctx context.Context, domainID string) (*types.Domain, error) {
	sess, err := q.session()
	if err != nil {
		return nil, err
	}
	var defaultRole string
	err = sess.QueryRowContext(ctx,
		"SELECT default_role FROM domain WHERE domain_id = $1", domainID,
	).Scan(&defaultRole)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get domain %s", domainID)
	}
	return q.factory.NewDomain(domainID, defaultRole)
}

// BlockQuery is a read accessor over committed blocks. Block payloads come
// from the flat file store; the leased session serves the height-by-hash
// index kept in the relational view.
type BlockQuery struct {
	leasedSession
	store *blockstore.FlatFile
}

func newBlockQuery(pool *storage.Pool, slot int, sess *storage.Session, store *blockstore.FlatFile) *BlockQuery {
	return &BlockQuery{
		leasedSession: leasedSession{pool: pool, slot: slot, sess: sess},
		store:         store,
	}
}

// Close releases the leased session back to the pool. Idempotent.
func (q *BlockQuery) Close() {
	q.close()
}

// Height returns the current top height of the chain, zero when empty.
func (q *BlockQuery) Height() uint64 {
	return q.store.Last()
}

// BlockByHeight loads and decodes the block stored at height.
func (q *BlockQuery) BlockByHeight(height uint64) (*types.Block, error) {
	raw, err := q.store.Get(height)
	if err != nil {
		return nil, err
	}
	return types.DeserializeBlock(raw)
}

// TopBlock loads the block at the current top height. An empty chain yields
// blockstore.ErrNotFound.
func (q *BlockQuery) TopBlock() (*types.Block, error) {
	last := q.store.Last()
	if last == 0 {
		return nil, blockstore.ErrNotFound
	}
	return q.BlockByHeight(last)
}

// HeightByHash resolves a block hash to its height through the relational
// index; unknown hashes yield (0, nil).
func (q *BlockQuery) HeightByHash(ctx context.Context, h hash.Hash) (uint64, error) {
	sess, err := q.session()
	if err != nil {
		return 0, err
	}
	var heightText string
	err = sess.QueryRowContext(ctx,
		"SELECT height FROM height_by_hash WHERE hash = $1", h.String(),
	).Scan(&heightText)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "resolve height of %s", h)
	}
	height, err := strconv.ParseUint(heightText, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed height index entry for %s", h)
	}
	return height, nil
}
