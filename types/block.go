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

// Package types defines the domain value types shared across the storage
// engine: committed blocks, their transactions, and the world state view
// read models produced for query callers.
package types

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/quorumnet/ledgercore/crypto/hash"
)

// GenesisHeight is the height of the first block of a chain.
const GenesisHeight uint64 = 1

// Transaction is a single ordered command payload inside a block. The storage
// engine treats the payload as opaque; command semantics belong to the
// executor collaborator.
type Transaction struct {
	ID      string `json:"id"`
	Creator string `json:"creator"`
	Payload []byte `json:"payload"`
}

// BlockHeader holds the hashed portion of a block.
type BlockHeader struct {
	Height     uint64    `json:"height"`
	ParentHash hash.Hash `json:"parent"`
	Timestamp  time.Time `json:"timestamp"`
}

// Block is an immutable chain element. Construct it with NewBlock; the block
// hash is computed once over the canonical serialization of the header and
// transaction list and must not change afterwards.
type Block struct {
	Header       BlockHeader   `json:"header"`
	Transactions []Transaction `json:"transactions"`
	BlockHash    hash.Hash     `json:"hash"`
}

// NewBlock assembles a block at the given height on top of parent and seals
// its content hash.
func NewBlock(height uint64, parent hash.Hash, ts time.Time, txs []Transaction) *Block {
	b := &Block{
		Header: BlockHeader{
			Height:     height,
			ParentHash: parent,
			Timestamp:  ts.UTC(),
		},
		Transactions: txs,
	}
	b.BlockHash = b.computeHash()
	return b
}

func (b *Block) computeHash() hash.Hash {
	enc, err := json.Marshal(struct {
		Header       BlockHeader   `json:"header"`
		Transactions []Transaction `json:"transactions"`
	}{b.Header, b.Transactions})
	if err != nil {
		// The header and transaction types marshal without error by
		// construction; a failure here is a programming error.
		panic(err)
	}
	return hash.HashH(enc)
}

// Height returns the block height.
func (b *Block) Height() uint64 {
	return b.Header.Height
}

// Hash returns the sealed content hash.
func (b *Block) Hash() hash.Hash {
	return b.BlockHash
}

// ParentHash returns the hash of the previous block, or the zero sentinel for
// a genesis block.
func (b *Block) ParentHash() hash.Hash {
	return b.Header.ParentHash
}

// Serialize encodes the block for the append-only block store.
func (b *Block) Serialize() ([]byte, error) {
	enc, err := json.Marshal(b)
	if err != nil {
		return nil, errors.Wrap(err, "serialize block")
	}
	return enc, nil
}

// DeserializeBlock decodes a block store entry and verifies its sealed hash.
func DeserializeBlock(raw []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.Wrap(err, "deserialize block")
	}
	if computed := b.computeHash(); computed != b.BlockHash {
		return nil, errors.Errorf(
			"block hash mismatch: stored %s computed %s", b.BlockHash, computed)
	}
	return &b, nil
}
