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

// Package proof is spec §4.6's C7: verifying a TxProposal's read-proof
// against a claimed state_root, and verifying a whole block's
// state_root is the correct result of replaying its tx_list's
// write-sets against the parent's state_root. core/pipeline's
// ConflictCheck.OCC performs a narrower version of the first check
// inline (against the current head root, as part of admission); this
// package is the general-purpose, standalone verifier a miner or
// light client calls against an arbitrary claimed root, and is also
// where the second, block-level check (absent from conflict.go) lives.
package proof

import (
	"errors"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/trie"
	"github.com/slimchain/slimchain/core/pipeline"
	"github.com/slimchain/slimchain/core/types"
	"github.com/slimchain/slimchain/crypto/hash"
)

// ErrMissingProof is returned when a proposal has no read-proof to
// verify against.
var ErrMissingProof = errors.New("proof: proposal carries no read-proof")

// ErrProofInvalid is spec §7's ProofInvalid error kind: the read-proof
// doesn't reconstruct to the claimed state_root.
var ErrProofInvalid = errors.New("proof: read-proof does not reconstruct to the claimed state root")

// ErrStateRootMismatch is spec §7's generic state-root check failure
// at block level: replaying tx_list's writes against parentRoot
// doesn't reproduce the block's declared state_root.
var ErrStateRootMismatch = errors.New("proof: block state root does not match replayed writes")

// VerifyReadProposal is spec §4.6's per-proposal check: reconstruct
// every address the proposal's ReadSet touched from its ReadProof
// against stateRoot, the state_root_seen it claims to have executed
// against, then reconstruct every storage-level read underneath that
// address's proven storage_root - a storage node's ReadProof binds
// both levels (core/exec/backend.go's ProveAddrs + ProveStorage), and
// a node could otherwise forge a GetValue result for any existing
// account by supplying a valid account leaf with a stale/unrelated
// storage proof. Absence proofs (VerifyProof returning a nil value for
// an account or key that doesn't exist) are valid reconstructions, not
// failures - spec explicitly requires them for reads of missing
// accounts/keys.
func VerifyReadProposal(stateRoot common.Hash, p *types.TxProposal) error {
	if p.ReadProof == nil {
		if len(p.ReadSet) == 0 {
			return nil
		}
		return ErrMissingProof
	}
	for addr, entries := range groupReadsByAddr(p) {
		storageRoot, err := verifyAccountLeaf(stateRoot, addr, p.ReadProof)
		if err != nil {
			return err
		}
		for _, r := range entries {
			if !r.Storage {
				continue
			}
			if _, err := trie.VerifyProof(storageRoot, hash.Sha3256(r.Key.Bytes()), p.ReadProof); err != nil {
				return ErrProofInvalid
			}
		}
	}
	return nil
}

// verifyAccountLeaf verifies addr's account leaf against stateRoot and
// returns its proven storage_root (EmptyStorageRoot for an absence
// proof - an account that doesn't exist has no storage to read
// either).
func verifyAccountLeaf(stateRoot common.Hash, addr common.Address, proof *trie.Proof) (common.Hash, error) {
	enc, err := trie.VerifyProof(stateRoot, hash.Sha3256(addr.Bytes()), proof)
	if err != nil {
		return common.Hash{}, ErrProofInvalid
	}
	if len(enc) == 0 {
		return types.EmptyStorageRoot, nil
	}
	account, err := types.DecodeAccount(enc)
	if err != nil {
		return common.Hash{}, ErrProofInvalid
	}
	return account.StorageRoot, nil
}

func groupReadsByAddr(p *types.TxProposal) map[common.Address][]types.ReadEntry {
	byAddr := make(map[common.Address][]types.ReadEntry)
	for _, r := range p.ReadSet {
		byAddr[r.Addr] = append(byAddr[r.Addr], r)
	}
	return byAddr
}

// VerifyBlock is spec §4.6's block-level check: replay block.TxList's
// write-sets against parentRoot using the same partial-trie machinery
// the miner used to produce the block (core/pipeline.MinerApply), and
// confirm the result equals block.Header.StateRoot. A write reaching
// outside the supplied proofs surfaces trie.ErrNodeNotFound from
// MinerApply, which callers should also treat as ErrProofInvalid -
// the read-proof didn't cover everything the write-set touched.
func VerifyBlock(parentRoot common.Hash, block *types.Block) error {
	for _, p := range block.TxList {
		if err := VerifyReadProposal(parentRoot, p); err != nil {
			return err
		}
	}
	recomputed, err := pipeline.MinerApply(parentRoot, block.TxList)
	if err != nil {
		return err
	}
	if recomputed != block.Header.StateRoot {
		return ErrStateRootMismatch
	}
	return nil
}
