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
	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/trie"
	"github.com/slimchain/slimchain/core/state"
	"github.com/slimchain/slimchain/core/types"
	"github.com/slimchain/slimchain/crypto/hash"
)

// MinerApply is the consensus-side half of spec §4.4's Apply step: it
// sequentially applies every proposal's write-set to a partial trie
// built from the proposals' own read-proofs, rooted at the parent's
// state_root, and returns the resulting state_root for the block
// header. A write reaching outside the supplied proofs surfaces
// trie.ErrNodeNotFound, which the caller should treat as ProofInvalid
// (spec §7) since it means a proposal's read-proof didn't actually
// cover everything its write-set touches.
func MinerApply(parentRoot common.Hash, txList []*types.TxProposal) (common.Hash, error) {
	proofs := make([]*trie.Proof, 0, len(txList))
	for _, p := range txList {
		if p.ReadProof != nil {
			proofs = append(proofs, p.ReadProof)
		}
	}
	db, err := trie.NewPartialDB(proofs...)
	if err != nil {
		return common.Hash{}, err
	}
	pt, err := trie.New(parentRoot, db)
	if err != nil {
		return common.Hash{}, err
	}

	storageWrites := make(map[common.Address][]types.StorageWrite)
	for _, p := range txList {
		for _, w := range p.StorageWrites {
			storageWrites[w.Addr] = append(storageWrites[w.Addr], w)
		}
	}
	accountWrites := make(map[common.Address]types.AccountWrite)
	for _, p := range txList {
		for _, w := range p.AccountWrites {
			accountWrites[w.Addr] = w
		}
	}

	// every account touched by either an account-level write or a
	// storage write needs its leaf re-encoded, even one with only
	// storage writes (its storage_root changes but nonce/code don't).
	touched := make(map[common.Address]bool)
	for addr := range accountWrites {
		touched[addr] = true
	}
	for addr := range storageWrites {
		touched[addr] = true
	}

	outerWrites := make(map[string][]byte, len(touched))
	for addr := range touched {
		acc, err := readPartialAccount(pt, addr)
		if err != nil {
			return common.Hash{}, err
		}
		if w, ok := accountWrites[addr]; ok {
			acc.Nonce = w.Nonce
			if w.CodeWrites {
				acc.Code = w.Code
			}
		}
		if writes := storageWrites[addr]; len(writes) > 0 {
			root, err := applyStorageWrites(db, acc.StorageRoot, writes)
			if err != nil {
				return common.Hash{}, err
			}
			acc.StorageRoot = root
		}
		enc, err := acc.Encode()
		if err != nil {
			return common.Hash{}, err
		}
		outerWrites[string(hash.Sha3256(addr.Bytes()))] = enc
	}
	return trie.Apply(pt, outerWrites)
}

func readPartialAccount(pt *trie.Trie, addr common.Address) (*types.Account, error) {
	enc, err := pt.TryGet(hash.Sha3256(addr.Bytes()))
	if err != nil {
		return nil, err
	}
	if len(enc) == 0 {
		return types.NewEmptyAccount(), nil
	}
	return types.DecodeAccount(enc)
}

// applyStorageWrites replays one account's storage writes against a
// partial storage trie opened on the shared proof-node db, rooted at
// the account's pre-write storage_root, and returns the new
// storage_root.
func applyStorageWrites(db *trie.Database, storageRoot common.Hash, writes []types.StorageWrite) (common.Hash, error) {
	st, err := trie.New(storageRoot, db)
	if err != nil {
		return common.Hash{}, err
	}
	kv := make(map[string][]byte, len(writes))
	for _, w := range writes {
		if w.Value.IsZero() {
			kv[string(hash.Sha3256(w.Key.Bytes()))] = nil
		} else {
			kv[string(hash.Sha3256(w.Key.Bytes()))] = w.Value.Bytes()
		}
	}
	return trie.Apply(st, kv)
}

// StorageApply is the storage-node half of spec §4.4's Apply step:
// fold every proposal's write-set into the full StateDB and commit,
// producing the same state_root MinerApply computed (invariant: both
// sides start from the same writes in the same order).
func StorageApply(db *state.StateDB, txList []*types.TxProposal) (common.Hash, error) {
	for _, p := range txList {
		if err := db.ApplyWrites(p); err != nil {
			return common.Hash{}, err
		}
	}
	return db.Commit()
}
