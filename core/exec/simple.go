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

package exec

import (
	"encoding/binary"
	"errors"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/state"
	"github.com/slimchain/slimchain/core/types"
	"github.com/slimchain/slimchain/crypto/hash"
)

// Simple is the non-TEE execution backend: a small deterministic
// interpreter standing in for the full EVM that spec §4.2 describes
// ("a deterministic EVM-style execution engine"). Contract compilation
// and opcode-level EVM semantics are explicitly out of scope (spec
// §1's Non-goals); what matters here for the rest of the pipeline is
// only that execution is deterministic and produces the same
// (read set, write set) shape any backend would, so Simple
// interprets `Input` as a flat list of storage-slot writes rather than
// a bytecode program with a real interpreter loop.
//
// Wire format of a call's Input: a sequence of 64-byte records, each a
// (key[32], value[32]) pair to SSTORE. A trailing partial record makes
// the call revert (only the caller's nonce bump is kept). A creation's
// Input is stored as the contract's code without being decoded.
type Simple struct{}

// NewSimple constructs the Simple execution backend.
func NewSimple() *Simple { return &Simple{} }

var errShortRecord = errors.New("exec: truncated sstore record")

func decodeStoreOps(code []byte) ([][2][]byte, error) {
	const recordLen = 64
	var ops [][2][]byte
	for len(code) >= recordLen {
		key := append([]byte(nil), code[:32]...)
		val := append([]byte(nil), code[32:64]...)
		ops = append(ops, [2][]byte{key, val})
		code = code[recordLen:]
	}
	if len(code) != 0 {
		return ops, errShortRecord
	}
	return ops, nil
}

// Execute runs req deterministically: a contract-creation request
// (To == nil) installs Input as the new contract's code; a call
// request (To != nil) interprets Input as a list of SSTORE records
// against the callee's storage, after first checking the callee has
// code (a call to a plain account is a no-op transfer of the nonce
// bump only).
func (s *Simple) Execute(req *types.TxReq, height uint64, stateRoot common.Hash, db *state.StateDB) (*types.TxProposal, error) {
	reader := newRecordingReader(db)

	callerNonce, err := reader.GetNonce(req.Caller)
	if err != nil {
		return nil, err
	}
	if req.Nonce != callerNonce {
		return nil, ErrNonceMismatch
	}

	accountWrites := []types.AccountWrite{{Addr: req.Caller, Nonce: callerNonce + 1}}

	if req.To == nil {
		addr := contractAddress(req.Caller, req.Nonce)
		accountWrites = append(accountWrites, types.AccountWrite{Addr: addr, Nonce: 0, Code: req.Input, CodeWrites: true})
		return buildProposal(req, height, stateRoot, db, reader, accountWrites, nil, false)
	}

	codeLen, err := reader.GetCodeLen(*req.To)
	if err != nil {
		return nil, err
	}
	if codeLen == 0 {
		// plain value transfer to an EOA: nonce bump only.
		return buildProposal(req, height, stateRoot, db, reader, accountWrites, nil, false)
	}

	ops, err := decodeStoreOps(req.Input)
	if err != nil {
		// malformed call data: the nonce still consumes, everything
		// else reverts, per spec §5's ExecRevert outcome.
		return buildProposal(req, height, stateRoot, db, reader, accountWrites, nil, true)
	}

	storageWrites := make([]types.StorageWrite, 0, len(ops))
	for _, op := range ops {
		// a read-before-write keeps the read set (and thus the
		// read-proof) authoritative over every slot the call touched,
		// mirroring how a real interpreter would SLOAD before SSTORE.
		if _, err := reader.GetValue(*req.To, common.BytesToKey(op[0])); err != nil {
			return nil, err
		}
		storageWrites = append(storageWrites, types.StorageWrite{
			Addr:  *req.To,
			Key:   common.BytesToKey(op[0]),
			Value: common.BytesToValue(op[1]),
		})
	}
	return buildProposal(req, height, stateRoot, db, reader, accountWrites, storageWrites, false)
}

// contractAddress derives a new contract's address from its creator
// and nonce, the same (caller, nonce) -> address scheme go-ethereum
// uses (there Keccak(rlp(caller,nonce))[12:]); here a fixed-width
// encoding is hashed instead to avoid depending on RLP's handling of
// a bare uint64 for this one call site.
func contractAddress(caller common.Address, nonce uint64) common.Address {
	buf := make([]byte, common.AddressLength+8)
	copy(buf, caller.Bytes())
	binary.BigEndian.PutUint64(buf[common.AddressLength:], nonce)
	return common.BytesToAddress(hash.Sha3256(buf))
}
