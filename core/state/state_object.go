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

package state

import (
	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/trie"
	"github.com/slimchain/slimchain/core/types"
)

// stateObject is the in-memory, mutable view of one account: its
// decoded Account header plus a pending set of storage writes not yet
// folded into its storage trie. Every read/write during one
// execution goes through here first; the storage trie itself is only
// touched at Commit.
type stateObject struct {
	address common.Address
	account *types.Account

	storageTrie *trie.Trie // opened lazily, nil until first storage access
	dirtyStorage map[common.Key]common.Value

	dirty   bool
	deleted bool
}

func newStateObject(addr common.Address, account *types.Account) *stateObject {
	return &stateObject{
		address:      addr,
		account:      account,
		dirtyStorage: make(map[common.Key]common.Value),
	}
}

func (so *stateObject) openStorageTrie(db *Database) error {
	if so.storageTrie != nil {
		return nil
	}
	tr, err := db.OpenStorageTrie(so.account.StorageRoot)
	if err != nil {
		return err
	}
	so.storageTrie = tr
	return nil
}

func (so *stateObject) getState(db *Database, key common.Key) (common.Value, error) {
	if v, ok := so.dirtyStorage[key]; ok {
		return v, nil
	}
	if err := so.openStorageTrie(db); err != nil {
		return common.Value{}, err
	}
	enc, err := so.storageTrie.TryGet(secureKey(key.Bytes()))
	if err != nil {
		return common.Value{}, err
	}
	if len(enc) == 0 {
		return common.Value{}, nil
	}
	return common.BytesToValue(enc), nil
}

func (so *stateObject) setState(key common.Key, value common.Value) {
	so.dirtyStorage[key] = value
	so.dirty = true
}

// commitStorage flushes pending storage writes into the storage trie
// and returns the new storage_root, satisfying invariant I1.
func (so *stateObject) commitStorage(db *Database) (common.Hash, error) {
	if len(so.dirtyStorage) == 0 {
		return so.account.StorageRoot, nil
	}
	if err := so.openStorageTrie(db); err != nil {
		return common.Hash{}, err
	}
	for k, v := range so.dirtyStorage {
		if v.IsZero() {
			if err := so.storageTrie.TryDelete(secureKey(k.Bytes())); err != nil {
				return common.Hash{}, err
			}
			continue
		}
		if err := so.storageTrie.TryUpdate(secureKey(k.Bytes()), v.Bytes()); err != nil {
			return common.Hash{}, err
		}
	}
	root, err := so.storageTrie.Commit(nil)
	if err != nil {
		return common.Hash{}, err
	}
	so.account.StorageRoot = root
	so.dirtyStorage = make(map[common.Key]common.Value)
	return root, nil
}
