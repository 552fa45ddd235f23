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

// Package chainbus carries committed blocks from the storage facade to its
// observers. Publication is synchronous and happens on the committing
// goroutine: by the time Publish returns, every subscriber has seen the
// block, and each committed block is delivered exactly once, in commit
// order.
package chainbus

import (
	"sync"

	"github.com/quorumnet/ledgercore/types"
)

// BlockHandler consumes one committed block.
type BlockHandler func(*types.Block)

// BlockSuber defines the subscribing side of the bus.
type BlockSuber interface {
	Subscribe(handler BlockHandler) (cancel func())
}

// BlockPuber defines the publishing side of the bus.
type BlockPuber interface {
	Publish(block *types.Block)
}

// Bus is the commit notification stream: subscribe-only for observers, with
// the storage facade as its single publisher.
type Bus interface {
	BlockSuber
	BlockPuber
}

type subscriber struct {
	id      uint64
	handler BlockHandler
}

// ChainBus is the default Bus implementation.
type ChainBus struct {
	lock   sync.Mutex // guards subscribers and ordering of publications
	nextID uint64
	subs   []subscriber
}

// New returns a new ChainBus with no subscribers.
func New() *ChainBus {
	return &ChainBus{}
}

// Subscribe registers handler for every subsequently committed block. The
// returned cancel function removes the subscription; past deliveries are
// never replayed.
func (bus *ChainBus) Subscribe(handler BlockHandler) (cancel func()) {
	bus.lock.Lock()
	defer bus.lock.Unlock()

	id := bus.nextID
	bus.nextID++
	bus.subs = append(bus.subs, subscriber{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { bus.unsubscribe(id) })
	}
}

func (bus *ChainBus) unsubscribe(id uint64) {
	bus.lock.Lock()
	defer bus.lock.Unlock()
	for i, s := range bus.subs {
		if s.id == id {
			bus.subs = append(bus.subs[:i], bus.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers block to every current subscriber before returning.
// Holding the lock across delivery serializes publications, so subscribers
// observe blocks in exactly the order they were committed.
func (bus *ChainBus) Publish(block *types.Block) {
	bus.lock.Lock()
	defer bus.lock.Unlock()
	for _, s := range bus.subs {
		s.handler(block)
	}
}

// HasSubscribers reports whether any observer is currently attached.
func (bus *ChainBus) HasSubscribers() bool {
	bus.lock.Lock()
	defer bus.lock.Unlock()
	return len(bus.subs) > 0
}
