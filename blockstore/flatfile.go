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

// Package blockstore implements the append-only block persistence of the
// ledger. Each committed block is kept as one file in a dedicated directory,
// named by its zero-padded height, holding the serialized block payload.
package blockstore

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

const entryNameLen = 16

// ErrNotFound is returned by Get for heights with no stored block.
var ErrNotFound = errors.New("no block at requested height")

// FlatFile is a height-keyed append-only file store. It is safe for
// concurrent use.
type FlatFile struct {
	dir string

	mu   sync.RWMutex
	last uint64
}

// New opens (or creates) a flat file store rooted at dir and recovers the
// top stored height from the directory contents.
func New(dir string) (*FlatFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "cannot create block store in %s", dir)
	}

	f := &FlatFile{dir: dir}
	if err := f.recoverLast(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FlatFile) recoverLast() error {
	entries, err := ioutil.ReadDir(f.dir)
	if err != nil {
		return errors.Wrapf(err, "cannot read block store in %s", f.dir)
	}
	for _, e := range entries {
		if e.IsDir() || len(e.Name()) != entryNameLen {
			continue
		}
		h, err := strconv.ParseUint(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		if h > f.last {
			f.last = h
		}
	}
	return nil
}

func (f *FlatFile) entryPath(height uint64) string {
	return filepath.Join(f.dir, fmt.Sprintf("%0*d", entryNameLen, height))
}

// Add persists blob under the given height. Heights are write-once: storing
// over an existing entry fails.
func (f *FlatFile) Add(height uint64, blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.entryPath(height)
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("block at height %d already stored", height)
	}

	// Stage into a temp file and rename so a crash never leaves a torn
	// entry under a valid height name.
	tmp, err := ioutil.TempFile(f.dir, "blk")
	if err != nil {
		return errors.Wrap(err, "stage block entry")
	}
	if _, err = tmp.Write(blob); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "write block at height %d", height)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "store block at height %d", height)
	}

	if height > f.last {
		f.last = height
	}
	return nil
}

// Get retrieves the payload stored at height, or ErrNotFound.
func (f *FlatFile) Get(height uint64) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	blob, err := ioutil.ReadFile(f.entryPath(height))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read block at height %d", height)
	}
	return blob, nil
}

// Has reports whether a block is stored at height.
func (f *FlatFile) Has(height uint64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, err := os.Stat(f.entryPath(height))
	return err == nil
}

// Last returns the top stored height, zero when the store is empty.
func (f *FlatFile) Last() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last
}

// DropAll removes every stored entry and resets the top height.
func (f *FlatFile) DropAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := ioutil.ReadDir(f.dir)
	if err != nil {
		return errors.Wrapf(err, "cannot read block store in %s", f.dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil {
			return errors.Wrapf(err, "remove block entry %s", e.Name())
		}
	}
	f.last = 0
	return nil
}
