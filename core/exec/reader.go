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

// Package exec is the execution engine adapter (C3): it runs one TxReq
// against a recording state reader and turns the result into a
// TxProposal carrying a read set, write set and read-proof.
package exec

import (
	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/state"
	"github.com/slimchain/slimchain/core/types"
)

// Reader is the state-reader capability surface an execution backend
// is given: get_nonce, get_code_len, get_code, get_value per spec
// §4.2. It never exposes a raw write path - all effects are returned
// to the pipeline as a TxProposal instead.
type Reader interface {
	GetNonce(addr common.Address) (uint64, error)
	GetCodeLen(addr common.Address) (int, error)
	GetCode(addr common.Address) ([]byte, error)
	GetValue(addr common.Address, key common.Key) (common.Value, error)
}

// recordingReader wraps a StateDB snapshot and records every (A,K)
// touched and every (A, code/nonce) read, the read set a TxProposal's
// ReadProof must authenticate.
type recordingReader struct {
	db   *state.StateDB
	read []types.ReadEntry
}

func newRecordingReader(db *state.StateDB) *recordingReader {
	return &recordingReader{db: db}
}

func (r *recordingReader) recordAccount(addr common.Address) {
	r.read = append(r.read, types.ReadEntry{Addr: addr})
}

func (r *recordingReader) recordStorage(addr common.Address, key common.Key) {
	r.read = append(r.read, types.ReadEntry{Addr: addr, Key: key, Storage: true})
}

func (r *recordingReader) GetNonce(addr common.Address) (uint64, error) {
	r.recordAccount(addr)
	return r.db.GetNonce(addr)
}

func (r *recordingReader) GetCodeLen(addr common.Address) (int, error) {
	r.recordAccount(addr)
	code, err := r.db.GetCode(addr)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

func (r *recordingReader) GetCode(addr common.Address) ([]byte, error) {
	r.recordAccount(addr)
	return r.db.GetCode(addr)
}

func (r *recordingReader) GetValue(addr common.Address, key common.Key) (common.Value, error) {
	r.recordStorage(addr, key)
	return r.db.GetState(addr, key)
}

// readAddrs returns the distinct addresses the read set touched, the
// set a read-proof must cover (one trie leaf per address, whether the
// read was account-level or storage-level - storage reads still need
// the account leaf to reach the account's storage trie).
func readAddrs(entries []types.ReadEntry) []common.Address {
	seen := make(map[common.Address]bool)
	var addrs []common.Address
	for _, e := range entries {
		if !seen[e.Addr] {
			seen[e.Addr] = true
			addrs = append(addrs, e.Addr)
		}
	}
	return addrs
}

// readStorageKeys groups every storage-level read by address, the
// per-account key set ProveStorage needs to cover the minimal storage
// trie siblings a subsequent write replays against.
func readStorageKeys(entries []types.ReadEntry) map[common.Address][]common.Key {
	out := make(map[common.Address][]common.Key)
	for _, e := range entries {
		if e.Storage {
			out[e.Addr] = append(out[e.Addr], e.Key)
		}
	}
	return out
}
