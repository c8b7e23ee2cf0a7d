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

// A partial trie is a consensus-side Trie opened over only the nodes a
// proposal's read-proofs actually touched: every other subtree is an
// unresolved hashNode stub. It supports exactly the operations the
// miner needs - verify a read against the known root, then replay the
// proposal's writes to recompute the post-write root - and naturally
// rejects a write that reaches outside the supplied proofs, since
// resolving the missing stub surfaces ErrNodeNotFound.

import (
	"fmt"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/persistent"
)

// NewPartialDB assembles the shared node store backing every partial
// trie view derived from one block's proposals: the outer account
// trie and, for any account with storage writes, that account's own
// storage trie all resolve against the same proof-node set, since a
// block's proposals were merged (and may have been
// CompressReadProofs-deduplicated) before this call.
func NewPartialDB(proofs ...*Proof) (*Database, error) {
	mem, err := persistent.NewMemoryStorage()
	if err != nil {
		return nil, err
	}
	for _, p := range proofs {
		for _, enc := range p.Nodes {
			h, err := hashOfEncoded(enc)
			if err != nil {
				return nil, err
			}
			if err := mem.Put(h[:], enc); err != nil {
				return nil, err
			}
		}
	}
	return NewDatabase(mem), nil
}

// NewPartialTrie assembles a consensus-side Trie from the read-proofs
// a tx proposal carried, rooted at root. The returned Trie resolves
// gets and puts against only those proofs' nodes; anything outside
// them fails with ErrNodeNotFound.
func NewPartialTrie(root common.Hash, proofs ...*Proof) (*Trie, error) {
	db, err := NewPartialDB(proofs...)
	if err != nil {
		return nil, err
	}
	return New(root, db)
}

// Apply replays a set of key/value writes (a nil value means delete)
// against a partial trie and returns the resulting root. It stops at
// the first write that needs a node the partial trie doesn't have.
func Apply(t *Trie, writes map[string][]byte) (common.Hash, error) {
	for k, v := range writes {
		var err error
		if len(v) == 0 {
			err = t.TryDelete([]byte(k))
		} else {
			err = t.TryUpdate([]byte(k), v)
		}
		if err != nil {
			return common.Hash{}, fmt.Errorf("trie: partial apply of key %x: %w", k, err)
		}
	}
	return t.Hash(), nil
}
