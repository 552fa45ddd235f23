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

package chainbus

import (
	"sync"
	"testing"
	"time"

	"github.com/quorumnet/ledgercore/crypto/hash"
	"github.com/quorumnet/ledgercore/types"
)

func testBlock(height uint64) *types.Block {
	return types.NewBlock(height, hash.ZeroHash, time.Unix(0, 0), nil)
}

func TestNew(t *testing.T) {
	bus := New()
	if bus == nil {
		t.Fatal("New ChainBus not created!")
	}
	if bus.HasSubscribers() {
		t.Fatal("fresh bus must have no subscribers")
	}
}

func TestPublishOrderAndExactlyOnce(t *testing.T) {
	bus := New()

	var got []uint64
	bus.Subscribe(func(b *types.Block) {
		got = append(got, b.Height())
	})

	for h := uint64(1); h <= 5; h++ {
		bus.Publish(testBlock(h))
	}

	if len(got) != 5 {
		t.Fatalf("expected 5 deliveries, got %d", len(got))
	}
	for i, h := range got {
		if h != uint64(i+1) {
			t.Fatalf("out of order delivery at %d: %d", i, h)
		}
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := New()

	counts := make([]int, 3)
	for i := 0; i < 3; i++ {
		i := i
		bus.Subscribe(func(*types.Block) { counts[i]++ })
	}

	bus.Publish(testBlock(1))
	bus.Publish(testBlock(2))

	for i, c := range counts {
		if c != 2 {
			t.Fatalf("subscriber %d saw %d blocks, want 2", i, c)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New()

	var n int
	cancel := bus.Subscribe(func(*types.Block) { n++ })
	bus.Publish(testBlock(1))
	cancel()
	bus.Publish(testBlock(2))

	if n != 1 {
		t.Fatalf("cancelled subscriber saw %d blocks, want 1", n)
	}
	if bus.HasSubscribers() {
		t.Fatal("bus must be empty after cancel")
	}

	// Double cancel is harmless.
	cancel()
}

func TestSynchronousDelivery(t *testing.T) {
	bus := New()

	delivered := false
	bus.Subscribe(func(*types.Block) { delivered = true })
	bus.Publish(testBlock(1))
	if !delivered {
		t.Fatal("delivery must complete before Publish returns")
	}
}

func TestConcurrentPublishers(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	seen := map[uint64]int{}
	bus.Subscribe(func(b *types.Block) {
		mu.Lock()
		seen[b.Height()]++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for h := uint64(1); h <= 16; h++ {
		wg.Add(1)
		go func(h uint64) {
			defer wg.Done()
			bus.Publish(testBlock(h))
		}(h)
	}
	wg.Wait()

	if len(seen) != 16 {
		t.Fatalf("expected 16 distinct blocks, got %d", len(seen))
	}
	for h, c := range seen {
		if c != 1 {
			t.Fatalf("block %d delivered %d times", h, c)
		}
	}
}
