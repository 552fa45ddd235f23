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

// Package consensus declares the round addressing key shared between the
// voting protocol and the storage engine. The storage engine uses Round only
// to order and index candidate proposals and blocks; the voting semantics
// live in the consensus collaborator.
package consensus

import "fmt"

// BlockRound indexes rounds by committed blocks.
type BlockRound = uint64

// RejectRound indexes reject rounds before a new block commit. It is expected
// to reset to zero whenever the block round advances; the consensus driver,
// not this type, maintains that.
type RejectRound = uint32

// Round is the total ordering key of a consensus attempt. It is a plain
// comparable value and may be used directly as a map key.
type Round struct {
	BlockRound  BlockRound
	RejectRound RejectRound
}

// Less reports whether r orders strictly before rhs, comparing
// lexicographically on (BlockRound, RejectRound).
func (r Round) Less(rhs Round) bool {
	if r.BlockRound != rhs.BlockRound {
		return r.BlockRound < rhs.BlockRound
	}
	return r.RejectRound < rhs.RejectRound
}

// Equal reports whether r and rhs denote the same round.
func (r Round) Equal(rhs Round) bool {
	return r == rhs
}

// Hash returns a well distributed 64-bit digest of the round, for callers
// keeping their own round-indexed hash structures.
func (r Round) Hash() uint64 {
	// FNV-1a over the two fields, low to high byte.
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := uint(0); i < 64; i += 8 {
		h ^= (r.BlockRound >> i) & 0xff
		h *= prime64
	}
	for i := uint(0); i < 32; i += 8 {
		h ^= uint64((r.RejectRound >> i) & 0xff)
		h *= prime64
	}
	return h
}

// String implements fmt.Stringer.
func (r Round) String() string {
	return fmt.Sprintf("round(%d, %d)", r.BlockRound, r.RejectRound)
}
