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
	"errors"
	"sort"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/trie"
	"github.com/slimchain/slimchain/core/tempstate"
	"github.com/slimchain/slimchain/core/types"
	"github.com/slimchain/slimchain/crypto/hash"
)

// ErrConflict and ErrOutdated are the two inclusion-time rejection
// outcomes of spec §4.4/§7 - both observable client statuses, not
// pipeline failures.
var (
	ErrConflict = errors.New("pipeline: proposal conflicts with an intervening write")
	ErrOutdated = errors.New("pipeline: proposal's state_root_seen has fallen out of the window")
)

// ConflictCheck is the pluggable chain.conflict_check policy (spec
// §4.4): SSI compares a proposal's read set against the temp-state
// ring's write-index; OCC re-verifies the read-proof against the
// current head root instead.
type ConflictCheck interface {
	// Check returns nil if p may be included atop a block at
	// headHeight with head state root headRoot, or one of
	// ErrConflict/ErrOutdated.
	Check(p *types.TxProposal, headHeight uint64, headRoot common.Hash, ring *tempstate.Ring) error
}

// SSI is the snapshot-serializable conflict check: valid iff none of
// the proposal's read keys were modified by any block in the interval
// (state_root_seen's height, head height].
type SSI struct{}

func (SSI) Check(p *types.TxProposal, headHeight uint64, _ common.Hash, ring *tempstate.Ring) error {
	// The height just below the oldest retained delta is the ring's
	// base state, so a proposal seen there is still checkable.
	if !ring.InWindow(p.BlockHeightSeen) && !ring.InWindow(p.BlockHeightSeen+1) && p.BlockHeightSeen != headHeight {
		return ErrOutdated
	}
	for _, sk := range p.ReadIndex() {
		if ring.WrittenSince(sk, p.BlockHeightSeen) {
			return ErrConflict
		}
	}
	return nil
}

// OCC is the optimistic-concurrency conflict check: valid iff every
// proven read still authenticates against the current head root, i.e.
// re-verifying the read-proof's leaves against headRoot reproduces the
// same values the proposal was computed from. Storage-level reads are
// re-verified against the account's own proven storage_root, not just
// the outer account leaf - otherwise a forged storage value survives
// admission so long as the account header it sits under stays valid.
type OCC struct{}

func (OCC) Check(p *types.TxProposal, _ uint64, headRoot common.Hash, _ *tempstate.Ring) error {
	if p.ReadProof == nil {
		return ErrConflict
	}
	byAddr := make(map[common.Address][]types.ReadEntry)
	for _, r := range p.ReadSet {
		byAddr[r.Addr] = append(byAddr[r.Addr], r)
	}
	for addr, entries := range byAddr {
		enc, err := trie.VerifyProof(headRoot, hash.Sha3256(addr.Bytes()), p.ReadProof)
		if err != nil {
			return ErrConflict
		}
		storageRoot := types.EmptyStorageRoot
		if len(enc) > 0 {
			account, err := types.DecodeAccount(enc)
			if err != nil {
				return ErrConflict
			}
			storageRoot = account.StorageRoot
		}
		for _, r := range entries {
			if !r.Storage {
				continue
			}
			if _, err := trie.VerifyProof(storageRoot, hash.Sha3256(r.Key.Bytes()), p.ReadProof); err != nil {
				return ErrConflict
			}
		}
	}
	return nil
}

// SameWriteSet reports whether two proposals for the same req_hash
// produced an identical write-set, order-independently - spec §8
// scenario 3's cross-check that a TEE backend and the Simple backend
// it wraps agree on execution results. Miners never call this; it's
// the operator-side sanity check that detects a misbehaving or
// miscompiled TEE backend before it has a chance to sign a divergent
// proposal.
func SameWriteSet(a, b *types.TxProposal) bool {
	if a.ReqHash != b.ReqHash || a.Reverted != b.Reverted {
		return false
	}
	aw, bw := append([]types.AccountWrite{}, a.AccountWrites...), append([]types.AccountWrite{}, b.AccountWrites...)
	sort.Slice(aw, func(i, j int) bool { return bytes.Compare(aw[i].Addr.Bytes(), aw[j].Addr.Bytes()) < 0 })
	sort.Slice(bw, func(i, j int) bool { return bytes.Compare(bw[i].Addr.Bytes(), bw[j].Addr.Bytes()) < 0 })
	if len(aw) != len(bw) {
		return false
	}
	for i := range aw {
		if aw[i].Addr != bw[i].Addr || aw[i].Nonce != bw[i].Nonce || aw[i].CodeWrites != bw[i].CodeWrites || !bytes.Equal(aw[i].Code, bw[i].Code) {
			return false
		}
	}
	as, bs := append([]types.StorageWrite{}, a.StorageWrites...), append([]types.StorageWrite{}, b.StorageWrites...)
	storageLess := func(s []types.StorageWrite) func(i, j int) bool {
		return func(i, j int) bool {
			ai, bi := append(s[i].Addr.Bytes(), s[i].Key.Bytes()...), append(s[j].Addr.Bytes(), s[j].Key.Bytes()...)
			return bytes.Compare(ai, bi) < 0
		}
	}
	sort.Slice(as, storageLess(as))
	sort.Slice(bs, storageLess(bs))
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i].Addr != bs[i].Addr || as[i].Key != bs[i].Key || as[i].Value != bs[i].Value {
			return false
		}
	}
	return true
}
