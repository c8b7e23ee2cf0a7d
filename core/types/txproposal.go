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

package types

import (
	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/trie"
)

// ReadEntry is one (address, optional key) pair the execution engine
// touched while servicing a TxReq. Storage false means an
// account-level read (nonce or code), not a storage slot.
type ReadEntry struct {
	Addr common.Address
	Key  common.Key
	// Storage reports whether this read targets account storage
	// (Key is meaningful) as opposed to the account header fields.
	Storage bool
}

// AccountWrite updates an account's nonce and, for a contract
// creation, its code.
type AccountWrite struct {
	Addr       common.Address
	Nonce      uint64
	Code       []byte
	CodeWrites bool
}

// StorageWrite sets a single (address, key) storage slot.
type StorageWrite struct {
	Addr  common.Address
	Key   common.Key
	Value common.Value
}

// TxProposal is what a storage node hands back to the miner that
// issued an ExecReq: the write set resulting from executing req_hash,
// plus enough of a read-proof to let the miner verify the reads
// without holding the full state.
type TxProposal struct {
	ReqHash         common.Hash
	BlockHeightSeen uint64
	StateRootSeen   common.Hash

	ReadSet       []ReadEntry
	AccountWrites []AccountWrite
	StorageWrites []StorageWrite

	ReadProof *trie.Proof

	// TeeSignature is set only when the TEE execution backend
	// produced this proposal; Simple-backend proposals leave it nil.
	TeeSignature []byte

	// InvocationID is the TEE boundary's exec_tx(id, ...) call id
	// (spec §4.2) - a fresh UUIDv4 minted per enclave invocation, set
	// only alongside TeeSignature. It has no bearing on verification;
	// it exists so the untrusted host can correlate a signed proposal
	// back to the specific sealed-interpreter call that produced it.
	InvocationID string

	// Reverted marks an ExecRevert outcome: StorageWrites is empty and
	// AccountWrites holds only the caller's nonce-consuming write,
	// which still applies.
	Reverted bool
}

// IsEmpty reports a proposal with no account and no storage writes. A
// reverted proposal is not empty: it still carries the caller's
// nonce-bump AccountWrite.
func (p *TxProposal) IsEmpty() bool {
	return len(p.AccountWrites) == 0 && len(p.StorageWrites) == 0
}

// WriteIndex returns the set of (address,key) storage writes this
// proposal makes, the unit the SSI conflict check's per-height
// write-index tracks.
func (p *TxProposal) WriteIndex() []common.StorageKey {
	keys := make([]common.StorageKey, len(p.StorageWrites))
	for i, w := range p.StorageWrites {
		keys[i] = common.StorageKey{Addr: w.Addr, Key: w.Key}
	}
	return keys
}

// ReadIndex returns the set of (address,key) storage reads this
// proposal depends on, the unit the SSI/OCC checks compare against
// intervening writes.
func (p *TxProposal) ReadIndex() []common.StorageKey {
	var keys []common.StorageKey
	for _, r := range p.ReadSet {
		if r.Storage {
			keys = append(keys, common.StorageKey{Addr: r.Addr, Key: r.Key})
		}
	}
	return keys
}
