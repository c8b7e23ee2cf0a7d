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

import "github.com/slimchain/slimchain/common"

// CollectHashes returns every stored-node hash reachable from root,
// the mark half of the background compactor's mark-and-sweep: a node
// hash not present in the union of CollectHashes over every root still
// worth keeping is safe to Database.Delete.
func CollectHashes(db *Database, root common.Hash) (map[common.Hash]struct{}, error) {
	seen := make(map[common.Hash]struct{})
	if root == (common.Hash{}) || root == emptyRoot {
		return seen, nil
	}
	if err := collectHashes(db, hashNode(root), seen); err != nil {
		return nil, err
	}
	return seen, nil
}

func collectHashes(db *Database, n node, seen map[common.Hash]struct{}) error {
	switch n := n.(type) {
	case nil, valueNode:
		return nil
	case hashNode:
		h := common.Hash(n)
		if _, ok := seen[h]; ok {
			return nil
		}
		seen[h] = struct{}{}
		rn, err := db.resolve(n)
		if err != nil {
			return err
		}
		return collectHashes(db, rn, seen)
	case *shortNode:
		return collectHashes(db, n.Val, seen)
	case *fullNode:
		for _, c := range n.Children {
			if err := collectHashes(db, c, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
