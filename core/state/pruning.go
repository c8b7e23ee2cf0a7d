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

// Compactor is the background compactor Database.TrieDB's doc comment
// promises: once AccessMap.Evict reports an address or storage key as
// no longer written by any retained height, Compactor reclaims the
// trie nodes that held it from the shared node store.
//
// PruningData names addresses and keys, not node hashes - trie nodes
// are shared by content hash across every root that happens to agree
// on a subtree, so knowing a key is unreferenced does not by itself
// say which encoded nodes that implies. Compactor answers that with a
// standard mark-and-sweep: mark every node reachable from every root
// still worth keeping, then delete whatever the expired root reaches
// that the mark set doesn't. This is coarser than access_map/
// pruning.rs's TxTrie-level prune_acc_nonce/code/reset_value/value
// calls, which the original uses to edit an in-memory accumulator
// trie it already owns whole; here the state trie spans a real
// Database holding many other still-needed roots, so pruning has to
// prove non-reachability from any of them before anything is deleted.
type Compactor struct {
	db *Database
}

// NewCompactor builds a Compactor over db's shared node store.
func NewCompactor(db *Database) *Compactor {
	return &Compactor{db: db}
}

// Sweep reclaims every node reachable from expiredRoot but unreachable
// from any of retainedRoots. pd is accepted so a caller cannot Sweep
// without having first asked AccessMap whether there's anything to
// reclaim; an empty pd still runs the sweep (idempotent, if wasteful)
// rather than silently skipping it, since dropping the root from the
// live set is itself the point even when pd.Empty().
func (c *Compactor) Sweep(expiredRoot common.Hash, retainedRoots []common.Hash, pd PruningData) error {
	_ = pd
	live := make(map[common.Hash]struct{})
	for _, root := range retainedRoots {
		if root == expiredRoot {
			// still referenced by a retained height; nothing to do.
			return nil
		}
		if err := c.mark(root, live); err != nil {
			return err
		}
	}
	expired := make(map[common.Hash]struct{})
	if err := c.mark(expiredRoot, expired); err != nil {
		return err
	}
	for h := range expired {
		if _, keep := live[h]; keep {
			continue
		}
		if err := c.db.TrieDB().Delete(h); err != nil {
			return err
		}
	}
	return nil
}

// mark collects every node hash reachable from root's account trie
// together with each referenced account's own storage trie.
func (c *Compactor) mark(root common.Hash, seen map[common.Hash]struct{}) error {
	hashes, err := trie.CollectHashes(c.db.TrieDB(), root)
	if err != nil {
		return err
	}
	for h := range hashes {
		seen[h] = struct{}{}
	}
	tr, err := c.db.OpenTrie(root)
	if err != nil {
		return err
	}
	it := tr.NodeIterator(nil)
	for it.Next() {
		account, err := types.DecodeAccount(it.Value())
		if err != nil {
			return err
		}
		if account.StorageRoot == types.EmptyStorageRoot || account.StorageRoot == (common.Hash{}) {
			continue
		}
		storageHashes, err := trie.CollectHashes(c.db.TrieDB(), account.StorageRoot)
		if err != nil {
			return err
		}
		for h := range storageHashes {
			seen[h] = struct{}{}
		}
	}
	return it.Error()
}
