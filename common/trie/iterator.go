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

// trieIterator walks every leaf of a trie in key order via a plain
// depth-first pre-collection; genesis snapshot building and full-sync
// serving are the only callers and neither is latency-sensitive enough
// to need a lazily-resolving iterator.
type trieIterator struct {
	entries []kv
	pos     int
	err     error
}

type kv struct {
	key   []byte
	value []byte
}

func newTrieIterator(t *Trie, startKey []byte) *trieIterator {
	it := &trieIterator{pos: -1}
	it.err = it.collect(t, t.root, nil)
	start := len(it.entries)
	for i, e := range it.entries {
		if bytesGreaterOrEqual(e.key, startKey) {
			start = i
			break
		}
	}
	it.entries = it.entries[start:]
	return it
}

func (it *trieIterator) collect(t *Trie, n node, prefix []byte) error {
	switch n := n.(type) {
	case nil:
		return nil
	case valueNode:
		it.entries = append(it.entries, kv{key: hexToKeybytes(prefix), value: []byte(n)})
		return nil
	case *shortNode:
		return it.collect(t, n.Val, append(append([]byte(nil), prefix...), n.Key...))
	case *fullNode:
		// A key ending at this branch is a prefix of every key below it,
		// so the value slot (index 16) sorts ahead of the nibble children.
		if c := n.Children[16]; c != nil {
			if err := it.collect(t, c, append(append([]byte(nil), prefix...), 16)); err != nil {
				return err
			}
		}
		for i, c := range n.Children[:16] {
			if c == nil {
				continue
			}
			if err := it.collect(t, c, append(append([]byte(nil), prefix...), byte(i))); err != nil {
				return err
			}
		}
		return nil
	case hashNode:
		rn, err := t.db.resolve(n)
		if err != nil {
			return err
		}
		return it.collect(t, rn, prefix)
	}
	return nil
}

func (it *trieIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.pos++
	return it.pos < len(it.entries)
}

func (it *trieIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return nil
	}
	return it.entries[it.pos].key
}

func (it *trieIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return nil
	}
	return it.entries[it.pos].value
}

func (it *trieIterator) Error() error {
	return it.err
}

func bytesGreaterOrEqual(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return len(a) >= len(b)
}
