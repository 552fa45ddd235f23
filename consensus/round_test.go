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

package consensus

import (
	"sort"
	"testing"
)

func TestRoundTotalOrder(t *testing.T) {
	rounds := []Round{
		{0, 0},
		{0, 1},
		{1, 0},
		{1, 1},
		{1, 2},
		{2, 0},
		{^uint64(0), ^uint32(0)},
	}

	for i, a := range rounds {
		for j, b := range rounds {
			lt := a.Less(b)
			gt := b.Less(a)
			eq := a.Equal(b)

			// Exactly one of a<b, a==b, b<a must hold.
			var holds int
			for _, v := range []bool{lt, gt, eq} {
				if v {
					holds++
				}
			}
			if holds != 1 {
				t.Errorf("order trichotomy violated for %v vs %v", a, b)
			}

			if (i == j) != eq {
				t.Errorf("equality mismatch for %v vs %v", a, b)
			}
			if eq != (a == b) {
				t.Errorf("Equal disagrees with == for %v vs %v", a, b)
			}
			if (i < j) != lt {
				t.Errorf("Less disagrees with fixture order for %v vs %v", a, b)
			}
		}
	}
}

func TestRoundSortAndMapKey(t *testing.T) {
	rounds := []Round{{2, 0}, {0, 1}, {1, 2}, {0, 0}, {1, 0}}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Less(rounds[j]) })

	want := []Round{{0, 0}, {0, 1}, {1, 0}, {1, 2}, {2, 0}}
	for i := range want {
		if rounds[i] != want[i] {
			t.Fatalf("sorted order mismatch at %d: %v", i, rounds[i])
		}
	}

	seen := make(map[Round]int)
	for i, r := range want {
		seen[r] = i
	}
	if len(seen) != len(want) {
		t.Fatalf("map key collision: %d entries", len(seen))
	}
	if seen[Round{1, 2}] != 3 {
		t.Fatal("map lookup by value failed")
	}
}

func TestRoundHash(t *testing.T) {
	a := Round{BlockRound: 7, RejectRound: 3}
	b := Round{BlockRound: 7, RejectRound: 3}
	if a.Hash() != b.Hash() {
		t.Fatal("equal rounds must hash equally")
	}

	// Field swap must not collide: (7,3) vs (3,7).
	c := Round{BlockRound: 3, RejectRound: 7}
	if a.Hash() == c.Hash() {
		t.Fatal("hash ignores field positions")
	}

	distinct := map[uint64]struct{}{}
	for br := uint64(0); br < 32; br++ {
		for rr := uint32(0); rr < 32; rr++ {
			distinct[Round{br, rr}.Hash()] = struct{}{}
		}
	}
	if len(distinct) != 32*32 {
		t.Fatalf("hash collisions in small domain: %d of %d distinct", len(distinct), 32*32)
	}
}
