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

// Read-proof generation and verification. A Proof is the set of
// stored node encodings visited along one key's path from the root;
// it lets a miner holding only the root digest convince itself of a
// key's value (or absence) without fetching the full trie, and lets a
// storage node replay that same path inside a PartialTrie to recompute
// a post-write root.

import (
	"fmt"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/persistent"
)

// Proof holds the canonical encoding of each visited node, in
// root-to-leaf order of first visit; a node's hash is recomputed from
// its encoding when the proof is replayed.
type Proof struct {
	Nodes [][]byte
}

// Prove builds a read-proof for key against the trie's current
// (committed) root.
func (t *Trie) Prove(key []byte) (*Proof, error) {
	p := &Proof{}
	k := keybytesToHex(key)
	n := t.root
	for len(k) > 0 && n != nil {
		switch cur := n.(type) {
		case hashNode:
			enc, err := t.db.node(common.Hash(cur))
			if err != nil {
				return nil, err
			}
			p.Nodes = append(p.Nodes, enc)
			resolved, err := decodeNode(enc)
			if err != nil {
				return nil, err
			}
			n = resolved
		case *shortNode:
			if len(k) < len(cur.Key) || !bytesEqual(cur.Key, k[:len(cur.Key)]) {
				return p, nil
			}
			k = k[len(cur.Key):]
			n = cur.Val
		case *fullNode:
			n = cur.Children[k[0]]
			k = k[1:]
		case valueNode:
			return p, nil
		default:
			return nil, fmt.Errorf("trie: invalid node type %T while proving", n)
		}
	}
	return p, nil
}

// VerifyProof checks that proof is a valid read-proof for key under
// rootHash, returning the proven value (nil if key is proven absent).
// It works entirely off the supplied node set, never touching a live
// Database, so it can run on the consensus side where only digests
// are held.
func VerifyProof(rootHash common.Hash, key []byte, proof *Proof) ([]byte, error) {
	mem, err := persistent.NewMemoryStorage()
	if err != nil {
		return nil, err
	}
	for _, enc := range proof.Nodes {
		if _, err := decodeNode(enc); err != nil {
			return nil, fmt.Errorf("trie: malformed proof node: %w", err)
		}
		h, err := hashOfEncoded(enc)
		if err != nil {
			return nil, err
		}
		if err := mem.Put(h[:], enc); err != nil {
			return nil, err
		}
	}
	db := NewDatabase(mem)
	tr, err := New(rootHash, db)
	if err != nil {
		return nil, fmt.Errorf("trie: proof does not cover root: %w", err)
	}
	return tr.TryGet(key)
}
