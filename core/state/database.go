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

// Package state is the full-state half of the tx state layer (C4): the
// durable outer account trie plus every account's storage trie, backed
// by a single shared content-addressed node store. It is what a
// storage node holds; the miner-side partial trie lives in
// common/trie's NewPartialTrie instead.
package state

import (
	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/trie"
	"github.com/slimchain/slimchain/persistent"
)

// Database opens trie views over one shared node store. Multiple
// StateDBs (e.g. one per in-flight execution, per spec §5's "workers
// owning independent EVM instances against different roots") can share
// a Database and its underlying node cache safely.
type Database struct {
	trieDB *trie.Database
}

// NewDatabase wraps a persistent.Storage as the state layer's shared
// node store.
func NewDatabase(storage persistent.Storage) *Database {
	return &Database{trieDB: trie.NewDatabase(storage)}
}

// TrieDB exposes the backing node store that Compactor (pruning.go)
// walks and reclaims from once AccessMap reports a key unreferenced
// by any retained height.
func (db *Database) TrieDB() *trie.Database {
	return db.trieDB
}

// OpenTrie opens the outer account trie at root.
func (db *Database) OpenTrie(root common.Hash) (*trie.Trie, error) {
	return trie.New(root, db.trieDB)
}

// OpenStorageTrie opens one account's storage trie at root.
func (db *Database) OpenStorageTrie(root common.Hash) (*trie.Trie, error) {
	return trie.New(root, db.trieDB)
}
