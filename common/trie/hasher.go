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
	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/crypto/hash"
)

// hasher walks a dirty in-memory subtree bottom-up, replacing every
// shortNode/fullNode with a hashNode once its canonical encoding has
// been computed and (if store is set, i.e. we're committing rather
// than just peeking at Hash()) staged into the Database.
//
// Every non-value node is always reduced to a hash reference; unlike
// go-ethereum's trie there is no small-node inlining. This trades a
// little storage density for a much simpler, easier-to-verify
// canonical form, which is the property the read-proof protocol
// actually depends on.
type hasher struct {
	db    *Database
	store bool
}

func newHasher(db *Database, store bool) *hasher {
	return &hasher{db: db, store: store}
}

// hash returns the canonical hashNode for n, recursing into children
// first. Leaf valueNodes are returned unchanged: a value is only ever
// referenced from inside its parent shortNode, never hashed on its
// own.
func (h *hasher) hash(n node) (node, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil
	case valueNode:
		return n, nil
	case hashNode:
		return n, nil
	case *shortNode:
		childHash, err := h.hash(n.Val)
		if err != nil {
			return nil, err
		}
		collapsed := &shortNode{Key: n.Key, Val: childHash}
		return h.store_(collapsed)
	case *fullNode:
		collapsed := &fullNode{}
		for i, child := range n.Children {
			childHash, err := h.hash(child)
			if err != nil {
				return nil, err
			}
			collapsed.Children[i] = childHash
		}
		return h.store_(collapsed)
	default:
		return nil, nil
	}
}

// hashOfEncoded computes the content hash of an already-canonical node
// encoding, used when replaying proof nodes into a scratch Database.
func hashOfEncoded(enc []byte) (common.Hash, error) {
	return common.BytesToHash(hash.Sha3256(enc)), nil
}

// store_ encodes a node whose children are already canonicalized and
// returns the hashNode that replaces it in the parent.
func (h *hasher) store_(n node) (node, error) {
	enc := encodeNode(n)
	sum := hash.Sha3256(enc)
	var hn hashNode
	copy(hn[:], sum)
	if h.store {
		h.db.insert(common.Hash(hn), enc)
	}
	return hn, nil
}
