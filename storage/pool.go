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

package storage

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrPoolClosed is returned by Lease once the pool has been closed. Leasing
// from a closed pool fails fast instead of blocking forever.
var ErrPoolClosed = errors.New("session pool closed")

// Session is one exclusively leased backend session. Statements and
// transactions issued through it run on a single dedicated connection, so
// session-scoped state like an open transaction behaves the way a
// direct-socket client would expect.
type Session = sql.Conn

// Pool is a fixed capacity set of live backend sessions. Lease blocks the
// caller until a session is free; Release returns a session by its slot
// index. Both are safe for concurrent use.
type Pool struct {
	db       *sql.DB
	sessions []*Session
	freeCh   chan int
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewPool opens the backend addressed by dsn and eagerly establishes size
// dedicated sessions. Construction fails if any of them cannot be opened.
func NewPool(ctx context.Context, dsn *DSN, size int) (*Pool, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid pool size %d", size)
	}

	db, err := sql.Open(dsn.Driver(), dsn.Format())
	if err != nil {
		return nil, errors.Wrap(err, "open backend")
	}
	// database/sql keeps its own elastic pool; pin it to our fixed session
	// count so the slots below are the only live connections.
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)

	p := &Pool{
		db:       db,
		sessions: make([]*Session, size),
		freeCh:   make(chan int, size),
		done:     make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		sess, err := db.Conn(ctx)
		if err != nil {
			p.Close()
			return nil, errors.Wrapf(err, "open session %d", i)
		}
		p.sessions[i] = sess
		p.freeCh <- i
	}
	return p, nil
}

// Size returns the fixed session capacity.
func (p *Pool) Size() int {
	return len(p.sessions)
}

// Lease blocks until a free session slot exists and returns its index plus
// the session bound to it. It fails with ErrPoolClosed once the pool is
// closed, and with the context error when ctx is done first.
func (p *Pool) Lease(ctx context.Context) (slot int, sess *Session, err error) {
	select {
	case <-p.done:
		return 0, nil, ErrPoolClosed
	default:
	}

	select {
	case slot = <-p.freeCh:
		return slot, p.sessions[slot], nil
	case <-p.done:
		return 0, nil, ErrPoolClosed
	case <-ctx.Done():
		return 0, nil, errors.Wrap(ctx.Err(), "lease session")
	}
}

// Release returns a leased slot to the free set. It never blocks: the free
// list is sized to the session count and each slot is released at most once
// per lease. Releases arriving after Close are dropped.
func (p *Pool) Release(slot int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if slot < 0 || slot >= len(p.sessions) {
		return
	}
	p.freeCh <- slot
}

// Free returns the number of currently unleased sessions.
func (p *Pool) Free() int {
	return len(p.freeCh)
}

// Close tears the pool down: pending and future Lease calls fail fast with
// ErrPoolClosed, every session is closed and the backend handle released.
// Close is idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	var errmsgs []string
	for _, sess := range p.sessions {
		if sess == nil {
			continue
		}
		if err := sess.Close(); err != nil && err != sql.ErrConnDone {
			errmsgs = append(errmsgs, err.Error())
		}
	}
	if err := p.db.Close(); err != nil {
		errmsgs = append(errmsgs, err.Error())
	}
	if len(errmsgs) > 0 {
		return errors.Wrap(errors.New(strings.Join(errmsgs, ", ")), "close session pool")
	}
	return nil
}
