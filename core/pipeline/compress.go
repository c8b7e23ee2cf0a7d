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

package pipeline

import (
	"bytes"

	"golang.org/x/exp/slices"

	"github.com/slimchain/slimchain/common/trie"
	"github.com/slimchain/slimchain/core/types"
)

// CompressReadProofs deduplicates shared subtrees across every
// proposal's read-proof in a block before broadcast - spec §4.3's
// "aggregated proof can be compressed by deduplicating shared
// subtrees ... a bandwidth optimization, not a semantic change". Node
// encodings repeat verbatim when two proposals' paths share an
// ancestor, so a sort+compact over the raw bytes is enough; order
// doesn't matter to a consumer since NewPartialTrie/VerifyProof key
// nodes by content hash regardless of Nodes order.
func CompressReadProofs(txList []*types.TxProposal) *trie.Proof {
	var all [][]byte
	for _, p := range txList {
		if p.ReadProof == nil {
			continue
		}
		all = append(all, p.ReadProof.Nodes...)
	}
	slices.SortFunc(all, func(a, b []byte) bool { return bytes.Compare(a, b) < 0 })
	all = slices.CompactFunc(all, bytes.Equal)
	return &trie.Proof{Nodes: all}
}
