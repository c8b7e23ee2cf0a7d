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

// Package trie implements the hex-nibble radix Merkle trie that backs
// both the account trie and every account's storage trie; the state
// layer hashes each address or storage key before using it as a trie
// key, and this package treats keys as opaque bytes. A Trie is a pure, content-
// addressed data structure: Update/Delete mutate an in-memory
// copy-on-write tree, Hash derives the current root without touching
// the backing store, and Commit realizes the pending writes into the
// shared Database, returning the new root.
package trie

import (
	"fmt"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/crypto/hash"
)

// emptyRoot is the root hash of a trie with no entries, defined as the
// hash of the canonical empty-string marker so that every fresh
// account or storage trie starts from the same well-known value.
var emptyRoot = common.BytesToHash(hash.Sha3256([]byte{0x80}))

// LeafCallback is invoked once per committed leaf, letting callers
// (e.g. the account trie, to recurse into a changed account's storage
// trie) react to writes without the trie package knowing about
// accounts.
type LeafCallback func(leaf []byte, parent common.Hash) error

// NodeIterator walks a trie's leaves in key order. The account trie
// uses it to enumerate accounts when building a genesis snapshot or
// serving a full-state sync; most callers never need it.
type NodeIterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
}

// Trie is a single versioned view over a Database. It is not safe for
// concurrent use; callers needing concurrent readers take a Copy.
type Trie struct {
	db   *Database
	root node
}

// New opens the trie rooted at root. A zero root opens a fresh, empty
// trie.
func New(root common.Hash, db *Database) (*Trie, error) {
	if db == nil {
		return nil, fmt.Errorf("trie: nil Database")
	}
	t := &Trie{db: db}
	if root == (common.Hash{}) || root == emptyRoot {
		return t, nil
	}
	rootnode, err := db.resolve(hashNode(root))
	if err != nil {
		return nil, err
	}
	t.root = rootnode
	return t, nil
}

// TryGet returns the value stored for key, or a nil slice if absent.
func (t *Trie) TryGet(key []byte) ([]byte, error) {
	value, newroot, didResolve, err := t.get(t.root, keybytesToHex(key), 0)
	if err == nil && didResolve {
		t.root = newroot
	}
	return value, err
}

func (t *Trie) get(origNode node, key []byte, pos int) (value []byte, newnode node, didResolve bool, err error) {
	switch n := origNode.(type) {
	case nil:
		return nil, nil, false, nil
	case valueNode:
		return n, n, false, nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !bytesEqual(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, n, false, nil
		}
		value, newnode, didResolve, err = t.get(n.Val, key, pos+len(n.Key))
		if err == nil && didResolve {
			n = n.copy()
			n.Val = newnode
		}
		return value, n, didResolve, err
	case *fullNode:
		value, newnode, didResolve, err = t.get(n.Children[key[pos]], key, pos+1)
		if err == nil && didResolve {
			n = n.copy()
			n.Children[key[pos]] = newnode
		}
		return value, n, didResolve, err
	case hashNode:
		child, err := t.db.resolve(n)
		if err != nil {
			return nil, n, true, err
		}
		value, newnode, _, err := t.get(child, key, pos)
		return value, newnode, true, err
	default:
		return nil, nil, false, fmt.Errorf("trie: invalid node type %T", origNode)
	}
}

// TryUpdate associates key with value, inserting or overwriting as
// needed. An empty value is treated as a delete of key (TryDelete).
func (t *Trie) TryUpdate(key, value []byte) error {
	if len(value) == 0 {
		return t.TryDelete(key)
	}
	k := keybytesToHex(key)
	_, n, err := t.insert(t.root, nil, k, valueNode(value))
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *Trie) insert(n node, prefix, key []byte, value node) (bool, node, error) {
	if len(key) == 0 {
		if v, ok := n.(valueNode); ok {
			return !bytesEqual(v, value.(valueNode)), value, nil
		}
		return true, value, nil
	}
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen == len(n.Key) {
			dirty, nn, err := t.insert(n.Val, append(prefix, key[:matchlen]...), key[matchlen:], value)
			if !dirty || err != nil {
				return false, n, err
			}
			return true, &shortNode{Key: n.Key, Val: nn}, nil
		}
		branch := &fullNode{}
		var err error
		_, branch.Children[n.Key[matchlen]], err = t.insert(nil, append(prefix, n.Key[:matchlen+1]...), n.Key[matchlen+1:], n.Val)
		if err != nil {
			return false, nil, err
		}
		_, branch.Children[key[matchlen]], err = t.insert(nil, append(prefix, key[:matchlen+1]...), key[matchlen+1:], value)
		if err != nil {
			return false, nil, err
		}
		if matchlen == 0 {
			return true, branch, nil
		}
		return true, &shortNode{Key: key[:matchlen], Val: branch}, nil

	case *fullNode:
		dirty, nn, err := t.insert(n.Children[key[0]], append(prefix, key[0]), key[1:], value)
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.Children[key[0]] = nn
		return true, n, nil

	case nil:
		return true, &shortNode{Key: key, Val: value}, nil

	case hashNode:
		rn, err := t.db.resolve(n)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.insert(rn, prefix, key, value)
		if !dirty || err != nil {
			return false, rn, err
		}
		return true, nn, nil

	default:
		return false, nil, fmt.Errorf("trie: invalid node type %T", n)
	}
}

// TryDelete removes key from the trie. Deleting an absent key is a
// no-op.
func (t *Trie) TryDelete(key []byte) error {
	k := keybytesToHex(key)
	_, n, err := t.delete(t.root, nil, k)
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *Trie) delete(n node, prefix, key []byte) (bool, node, error) {
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return false, n, nil
		}
		if matchlen == len(key) {
			return true, nil, nil
		}
		dirty, child, err := t.delete(n.Val, append(prefix, key[:len(n.Key)]...), key[len(n.Key):])
		if !dirty || err != nil {
			return false, n, err
		}
		switch child := child.(type) {
		case *shortNode:
			return true, &shortNode{Key: concat(n.Key, child.Key), Val: child.Val}, nil
		default:
			return true, &shortNode{Key: n.Key, Val: child}, nil
		}

	case *fullNode:
		dirty, nn, err := t.delete(n.Children[key[0]], append(prefix, key[0]), key[1:])
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.Children[key[0]] = nn

		pos := -1
		for i, cld := range n.Children {
			if cld != nil {
				if pos == -1 {
					pos = i
				} else {
					pos = -2
					break
				}
			}
		}
		if pos >= 0 {
			if pos != 16 {
				cnode, err := t.resolveForCollapse(n.Children[pos], append(prefix, byte(pos)))
				if err != nil {
					return false, nil, err
				}
				if cnode, ok := cnode.(*shortNode); ok {
					k := append([]byte{byte(pos)}, cnode.Key...)
					return true, &shortNode{Key: k, Val: cnode.Val}, nil
				}
				return true, &shortNode{Key: []byte{byte(pos)}, Val: n.Children[pos]}, nil
			}
			return true, &shortNode{Key: []byte{16}, Val: n.Children[pos]}, nil
		}
		return true, n, nil

	case valueNode:
		return true, nil, nil

	case nil:
		return false, nil, nil

	case hashNode:
		rn, err := t.db.resolve(n)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.delete(rn, prefix, key)
		if !dirty || err != nil {
			return false, rn, err
		}
		return true, nn, nil

	default:
		return false, nil, fmt.Errorf("trie: invalid node type %T", n)
	}
}

func (t *Trie) resolveForCollapse(n node, prefix []byte) (node, error) {
	if hn, ok := n.(hashNode); ok {
		return t.db.resolve(hn)
	}
	return n, nil
}

// Hash returns the current root hash without persisting anything.
func (t *Trie) Hash() common.Hash {
	if t.root == nil {
		return emptyRoot
	}
	h := newHasher(t.db, false)
	hn, err := h.hash(t.root)
	if err != nil {
		return emptyRoot
	}
	return common.Hash(hn.(hashNode))
}

// Commit stages every dirty node reachable from root into the
// Database (without flushing to the backing store — call
// Database.Commit for that) and returns the resulting root hash. When
// onleaf is non-nil it is invoked for every valueNode encountered,
// letting the account trie chain into each account's storage trie.
func (t *Trie) Commit(onleaf LeafCallback) (common.Hash, error) {
	if t.root == nil {
		return emptyRoot, nil
	}
	if onleaf != nil {
		if err := t.walkLeaves(t.root, onleaf); err != nil {
			return common.Hash{}, err
		}
	}
	h := newHasher(t.db, true)
	hn, err := h.hash(t.root)
	if err != nil {
		return common.Hash{}, err
	}
	root := common.Hash(hn.(hashNode))
	t.root = hashNode(root)
	return root, nil
}

func (t *Trie) walkLeaves(n node, onleaf LeafCallback) error {
	switch n := n.(type) {
	case valueNode:
		return onleaf(n, common.Hash{})
	case *shortNode:
		return t.walkLeaves(n.Val, onleaf)
	case *fullNode:
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			if err := t.walkLeaves(c, onleaf); err != nil {
				return err
			}
		}
	case hashNode:
		rn, err := t.db.resolve(n)
		if err != nil {
			return err
		}
		return t.walkLeaves(rn, onleaf)
	}
	return nil
}

// Copy returns an independent view sharing the same Database; the
// copy's in-memory dirty tree is deep-copied so mutating one does not
// affect the other.
func (t *Trie) Copy() *Trie {
	return &Trie{db: t.db, root: copyNode(t.root)}
}

func copyNode(n node) node {
	switch n := n.(type) {
	case *shortNode:
		return &shortNode{Key: append([]byte(nil), n.Key...), Val: copyNode(n.Val)}
	case *fullNode:
		cp := &fullNode{}
		for i, c := range n.Children {
			cp.Children[i] = copyNode(c)
		}
		return cp
	default:
		return n
	}
}

// NodeIterator returns a key-ordered leaf iterator starting at or
// after startKey.
func (t *Trie) NodeIterator(startKey []byte) NodeIterator {
	return newTrieIterator(t, startKey)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func concat(a, b []byte) []byte {
	r := make([]byte, 0, len(a)+len(b))
	r = append(r, a...)
	r = append(r, b...)
	return r
}
