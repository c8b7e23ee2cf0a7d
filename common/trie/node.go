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
	"fmt"

	"github.com/slimchain/slimchain/common"
)

// node is the interface satisfied by every element of the in-memory
// trie tree. A fully resolved trie is built from fullNode/shortNode/
// valueNode; hashNode marks a subtree that has been committed to the
// backing store and not yet paged back in.
type node interface {
	fstring(string) string
}

type (
	// fullNode is a 16-way branch keyed by nibble, plus a value slot
	// (index 16) for a key that terminates exactly at the branch.
	fullNode struct {
		Children [17]node
	}

	// shortNode is either a leaf (Val is a valueNode) or an extension
	// (Val is a fullNode/hashNode), distinguished by whether Key carries
	// the nibble terminator.
	shortNode struct {
		Key []byte
		Val node
	}

	// hashNode is a reference to a node stored by content hash; it must
	// be resolved against the Database before use.
	hashNode common.Hash

	// valueNode is a leaf payload, opaque to the trie itself.
	valueNode []byte
)

func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}

func (n *shortNode) copy() *shortNode {
	cp := *n
	return &cp
}

func (n *fullNode) fstring(ind string) string {
	resp := fmt.Sprintf("[\n%s  ", ind)
	for i, child := range n.Children {
		if child == nil {
			resp += fmt.Sprintf("%s: <nil> ", indices[i])
			continue
		}
		resp += fmt.Sprintf("%s: %v", indices[i], child.fstring(ind+"  "))
	}
	return resp + fmt.Sprintf("\n%s] ", ind)
}

func (n *shortNode) fstring(ind string) string {
	return fmt.Sprintf("{%x: %v} ", n.Key, n.Val.fstring(ind+"  "))
}

func (n hashNode) fstring(ind string) string {
	return fmt.Sprintf("<%x> ", []byte(n[:]))
}

func (n valueNode) fstring(ind string) string {
	return fmt.Sprintf("%x ", []byte(n))
}

var indices = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "a", "b", "c", "d", "e", "f", "[17]"}

// nilValueNode is an empty leaf payload. It is not the empty-trie
// root: an empty trie has a nil root node, whose hash is emptyRoot.
var nilValueNode = valueNode(nil)
