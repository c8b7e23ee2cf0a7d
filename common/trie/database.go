// Copyright (C) 2019 gyee authors
//
// This file is part of the gyee library.
//
// The gyee library is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gyee library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with the gyee library.  If not, see <http://www.gnu.org/licenses/>.

package trie

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/persistent"
)

// ErrNodeNotFound is wrapped into every lookup miss. A PartialTrie
// surfaces it when a write touches a subtree its holder pruned away,
// which callers treat as the proof being outdated or incomplete
// rather than a storage fault.
var ErrNodeNotFound = errors.New("trie: node not found")

// defaultCacheSize bounds the in-process node-encoding cache. Node
// hashes never change once computed, so an LRU of raw encodings is
// safe to share across every Trie view opened against the same
// Database (different roots, same backing store).
const defaultCacheSize = 4096

// Database is the content-addressed node store behind one or more
// Tries sharing a backing persistent.Storage. It memoizes raw node
// encodings by hash so that repeated reads of hot branches (account
// roots, frequently touched storage slots) skip the backing-store
// read (each resolve still decodes the encoding), and batches
// writes so Commit() touches the underlying store once per block
// instead of once per dirty node.
type Database struct {
	diskdb persistent.Storage
	cache  *lru.Cache

	mu      sync.Mutex
	pending map[common.Hash][]byte // nodes inserted since the last Commit
}

// NewDatabase wraps a persistent.Storage as a trie node store using
// the default cache size.
func NewDatabase(diskdb persistent.Storage) *Database {
	return NewDatabaseWithCache(diskdb, defaultCacheSize)
}

// NewDatabaseWithCache wraps a persistent.Storage as a trie node
// store, overriding the number of node encodings kept in memory. A
// cacheSize of 0 falls back to the default.
func NewDatabaseWithCache(diskdb persistent.Storage, cacheSize int) *Database {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		panic(err)
	}
	return &Database{
		diskdb:  diskdb,
		cache:   cache,
		pending: make(map[common.Hash][]byte),
	}
}

// insert stages an encoded node under its content hash. Staged nodes
// are readable at once by every Trie sharing this Database (node
// checks the pending set first), but reach the backing store only when
// Commit flushes them.
func (db *Database) insert(hash common.Hash, enc []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.pending[hash] = enc
	db.cache.Add(hash, enc)
}

// node returns the canonical encoding for hash, checking the pending
// write set, then the decode cache, then the backing store.
func (db *Database) node(hash common.Hash) ([]byte, error) {
	db.mu.Lock()
	if enc, ok := db.pending[hash]; ok {
		db.mu.Unlock()
		return enc, nil
	}
	db.mu.Unlock()

	if v, ok := db.cache.Get(hash); ok {
		return v.([]byte), nil
	}
	enc, err := db.diskdb.Get(hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrNodeNotFound, hash.Hex(), err)
	}
	db.cache.Add(hash, enc)
	return enc, nil
}

// resolve expands a hashNode into its decoded node form.
func (db *Database) resolve(n hashNode) (node, error) {
	enc, err := db.node(common.Hash(n))
	if err != nil {
		return nil, err
	}
	return decodeNode(enc)
}

// Commit flushes all nodes staged since the previous Commit to the
// backing store in a single batch.
func (db *Database) Commit() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.pending) == 0 {
		return nil
	}
	batch := db.diskdb.NewBatch()
	for hash, enc := range db.pending {
		if err := batch.Put(hash[:], enc); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	db.pending = make(map[common.Hash][]byte)
	return nil
}

// Node exposes a raw stored node encoding, used by proof generation to
// package a key's access path verbatim.
func (db *Database) Node(hash common.Hash) ([]byte, error) {
	return db.node(hash)
}

// Delete drops a node from the pending set, the decode cache, and the
// backing store. It is the background compactor's only way to reclaim
// space (C4's "background compactor... to walk reference counts
// against" — this is the walk's write side); callers must first prove
// hash is unreachable from every root still worth keeping, since
// Delete itself does no reference counting.
func (db *Database) Delete(hash common.Hash) error {
	db.mu.Lock()
	delete(db.pending, hash)
	db.mu.Unlock()
	db.cache.Remove(hash)
	if err := db.diskdb.Del(hash[:]); err != nil && err != persistent.ErrKeyNotFound {
		return err
	}
	return nil
}
