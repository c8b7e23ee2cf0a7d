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

package state

import (
	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/trie"
	"github.com/slimchain/slimchain/core/types"
	"github.com/slimchain/slimchain/crypto/hash"
)

// secureKey is spec §3's hash(A)/hash(K): every trie lookup in this
// package is keyed by the digest of the address or storage key, never
// the raw bytes, the same secure-trie pattern go-ethereum's
// trie.SecureTrie uses its rlp/Keccak stack for.
func secureKey(b []byte) []byte {
	return hash.Sha3256(b)
}

// StateDB is the durable full-state view (C4): the outer account trie
// plus every touched account's storage trie, all backed by one
// Database. It is what a storage node holds between blocks, opened at
// the previous block's state_root and committed to the next.
//
// Unlike the miner-side partial trie (common/trie.NewPartialTrie),
// StateDB always has the full account it touches available - reads
// never fail with ErrNodeNotFound.
type StateDB struct {
	db   *Database
	trie *trie.Trie

	objects map[common.Address]*stateObject
	dirty   map[common.Address]bool
}

// New opens a StateDB at root. An EmptyHash root opens a fresh, empty
// state.
func New(root common.Hash, db *Database) (*StateDB, error) {
	tr, err := db.OpenTrie(root)
	if err != nil {
		return nil, err
	}
	return &StateDB{
		db:      db,
		trie:    tr,
		objects: make(map[common.Address]*stateObject),
		dirty:   make(map[common.Address]bool),
	}, nil
}

// DatabaseHandle exposes the shared node-store Database this StateDB
// opened its trie against, so a caller can open another StateDB view
// (e.g. at a newly committed root) against the same store.
func (s *StateDB) DatabaseHandle() *Database {
	return s.db
}

// Root returns the trie's current root hash. It reflects only
// already-committed structure, not pending writes - call
// IntermediateRoot to include those.
func (s *StateDB) Root() common.Hash {
	return s.trie.Hash()
}

func (s *StateDB) getStateObject(addr common.Address) (*stateObject, error) {
	if so, ok := s.objects[addr]; ok {
		return so, nil
	}
	enc, err := s.trie.TryGet(secureKey(addr.Bytes()))
	if err != nil {
		return nil, err
	}
	var account *types.Account
	if len(enc) == 0 {
		account = types.NewEmptyAccount()
	} else {
		account, err = types.DecodeAccount(enc)
		if err != nil {
			return nil, err
		}
	}
	so := newStateObject(addr, account)
	s.objects[addr] = so
	return so, nil
}

// GetAccount returns a copy of the account header at addr, or an empty
// account if it doesn't exist yet.
func (s *StateDB) GetAccount(addr common.Address) (*types.Account, error) {
	so, err := s.getStateObject(addr)
	if err != nil {
		return nil, err
	}
	return so.account.Copy(), nil
}

// GetNonce returns addr's current nonce.
func (s *StateDB) GetNonce(addr common.Address) (uint64, error) {
	so, err := s.getStateObject(addr)
	if err != nil {
		return 0, err
	}
	return so.account.Nonce, nil
}

// SetNonce records an AccountWrite's nonce bump.
func (s *StateDB) SetNonce(addr common.Address, nonce uint64) error {
	so, err := s.getStateObject(addr)
	if err != nil {
		return err
	}
	so.account.Nonce = nonce
	so.dirty = true
	s.dirty[addr] = true
	return nil
}

// GetCode returns addr's contract code, nil for an EOA.
func (s *StateDB) GetCode(addr common.Address) ([]byte, error) {
	so, err := s.getStateObject(addr)
	if err != nil {
		return nil, err
	}
	return so.account.Code, nil
}

// SetCode installs contract code for addr, applying a contract
// creation's AccountWrite.
func (s *StateDB) SetCode(addr common.Address, code []byte) error {
	so, err := s.getStateObject(addr)
	if err != nil {
		return err
	}
	so.account.Code = code
	so.dirty = true
	s.dirty[addr] = true
	return nil
}

// GetState returns the storage slot (addr,key), zero if unset.
func (s *StateDB) GetState(addr common.Address, key common.Key) (common.Value, error) {
	so, err := s.getStateObject(addr)
	if err != nil {
		return common.Value{}, err
	}
	return so.getState(s.db, key)
}

// SetState applies a StorageWrite.
func (s *StateDB) SetState(addr common.Address, key common.Key, value common.Value) error {
	so, err := s.getStateObject(addr)
	if err != nil {
		return err
	}
	so.setState(key, value)
	s.dirty[addr] = true
	return nil
}

// ApplyWrites folds one TxProposal's AccountWrites and StorageWrites
// into the state, the block pipeline's per-tx apply step. It does not
// commit - the new state_root is only materialized by Commit, once per
// block.
func (s *StateDB) ApplyWrites(p *types.TxProposal) error {
	for _, w := range p.AccountWrites {
		so, err := s.getStateObject(w.Addr)
		if err != nil {
			return err
		}
		so.account.Nonce = w.Nonce
		if w.CodeWrites {
			so.account.Code = w.Code
		}
		so.dirty = true
		s.dirty[w.Addr] = true
	}
	for _, w := range p.StorageWrites {
		if err := s.SetState(w.Addr, w.Key, w.Value); err != nil {
			return err
		}
	}
	return nil
}

// IntermediateRoot computes the would-be state_root after folding all
// pending writes, without persisting anything - used to populate a
// proposed BlockHeader.StateRoot before consensus has finalized it.
func (s *StateDB) IntermediateRoot() (common.Hash, error) {
	if err := s.updateTrie(); err != nil {
		return common.Hash{}, err
	}
	return s.trie.Hash(), nil
}

func (s *StateDB) updateTrie() error {
	for addr := range s.dirty {
		so := s.objects[addr]
		if _, err := so.commitStorage(s.db); err != nil {
			return err
		}
		enc, err := so.account.Encode()
		if err != nil {
			return err
		}
		if err := s.trie.TryUpdate(secureKey(addr.Bytes()), enc); err != nil {
			return err
		}
	}
	s.dirty = make(map[common.Address]bool)
	return nil
}

// Commit folds every dirty account (and its dirty storage) into the
// tries and flushes the resulting nodes to the backing store, per
// spec's "commit to storage layer" step of block finalization.
func (s *StateDB) Commit() (common.Hash, error) {
	if err := s.updateTrie(); err != nil {
		return common.Hash{}, err
	}
	root, err := s.trie.Commit(nil)
	if err != nil {
		return common.Hash{}, err
	}
	if err := s.db.TrieDB().Commit(); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}

// Prove builds a read-proof for addr's account leaf, the evidence a
// TxProposal attaches so a miner can verify the execution's reads
// without holding full state (C7).
func (s *StateDB) Prove(addr common.Address) (*trie.Proof, error) {
	return s.trie.Prove(secureKey(addr.Bytes()))
}

// ProveAddrs merges the account-trie read-proofs for every address in
// addrs into a single Proof. NewPartialTrie/VerifyProof key nodes by
// content hash, so the overlapping nodes near the root that multiple
// addresses' paths share are naturally deduplicated once the proof is
// consumed - a straight concatenation here is enough.
func (s *StateDB) ProveAddrs(addrs []common.Address) (*trie.Proof, error) {
	merged := &trie.Proof{}
	for _, addr := range addrs {
		p, err := s.trie.Prove(secureKey(addr.Bytes()))
		if err != nil {
			return nil, err
		}
		merged.Nodes = append(merged.Nodes, p.Nodes...)
	}
	return merged, nil
}

// ProveStorage proves a set of keys within addr's storage trie, the
// per-account half of a read-proof spec §4.1 calls "the minimal
// siblings needed to recompute the root under subsequent writes" -
// MinerApply needs these paths to replay a StorageWrite against a
// partial copy of the account's own storage trie, not just the outer
// trie.
func (s *StateDB) ProveStorage(addr common.Address, keys []common.Key) (*trie.Proof, error) {
	so, err := s.getStateObject(addr)
	if err != nil {
		return nil, err
	}
	if err := so.openStorageTrie(s.db); err != nil {
		return nil, err
	}
	merged := &trie.Proof{}
	for _, key := range keys {
		p, err := so.storageTrie.Prove(secureKey(key.Bytes()))
		if err != nil {
			return nil, err
		}
		merged.Nodes = append(merged.Nodes, p.Nodes...)
	}
	return merged, nil
}
