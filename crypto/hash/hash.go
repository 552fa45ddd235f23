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

// Package hash provides the fixed size hash value type used to identify
// blocks and chain positions.
package hash

import (
	"encoding/hex"
	"fmt"
)

// HashSize of array used to store hashes. See Hash.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a hash
// string that has too many characters.
var ErrHashStrSize = fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)

// Hash is the content hash of a serialized block.
type Hash [HashSize]byte

// ZeroHash is the sentinel value marking the position before the first block.
var ZeroHash Hash

// String returns the Hash as a hexadecimal string.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// AsBytes returns internal bytes of hash.
func (h Hash) AsBytes() []byte {
	return h[:]
}

// CloneBytes returns a copy of the bytes which represent the hash as a byte
// slice.
func (h *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, h[:])

	return newHash
}

// SetBytes sets the bytes which represent the hash. An error is returned if
// the number of bytes passed in is not HashSize.
func (h *Hash) SetBytes(newHash []byte) error {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v", nhlen, HashSize)
	}
	copy(h[:], newHash)

	return nil
}

// IsEqual returns true if target is the same as hash.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// IsZero returns true if the hash equals the zero sentinel.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// NewHash returns a new Hash from a byte slice. An error is returned if the
// number of bytes passed in is not HashSize.
func NewHash(newHash []byte) (*Hash, error) {
	var sh Hash
	if err := sh.SetBytes(newHash); err != nil {
		return nil, err
	}
	return &sh, nil
}

// NewHashFromStr creates a Hash from a hexadecimal hash string.
func NewHashFromStr(src string) (*Hash, error) {
	var dst Hash
	if err := decode(&dst, src); err != nil {
		return nil, err
	}
	return &dst, nil
}

// decode decodes the hexadecimal string encoding of a Hash to a destination.
func decode(dst *Hash, src string) error {
	if len(src) > MaxHashStringSize {
		return ErrHashStrSize
	}

	var srcBytes []byte
	if len(src)%2 == 0 {
		srcBytes = []byte(src)
	} else {
		// Hex decoder expects an even number of digits.
		srcBytes = make([]byte, 1+len(src))
		srcBytes[0] = '0'
		copy(srcBytes[1:], src)
	}

	var decoded [HashSize]byte
	_, err := hex.Decode(decoded[HashSize-hex.DecodedLen(len(srcBytes)):], srcBytes)
	if err != nil {
		return err
	}

	*dst = Hash(decoded)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hash) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid hash string %q", string(data))
	}
	return decode(h, string(data[1:len(data)-1]))
}
