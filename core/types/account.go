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

// Package types holds the wire and hashing forms of the data model:
// Account, TxReq, TxProposal and Block. Every type here is a flat,
// RLP-encodable struct, mirroring how the teacher's own BlockHeader
// hashed itself (rlp.EncodeToBytes then Keccak-256) — the one part of
// the teacher's serialization story that didn't depend on protobuf.
package types

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/crypto/hash"
)

// EmptyStorageRoot is the sentinel storage_root of an account with no
// storage trie entries, i.e. the trie package's emptyRoot. It is duplicated here
// (rather than imported from common/trie) so that core/types has no
// dependency on the trie package; only core/state ties the two
// together.
var EmptyStorageRoot = common.BytesToHash(hash.Sha3256([]byte{0x80}))

// EmptyCodeHash is the Keccak-256 of an empty byte string, the code
// hash of every externally-owned (non-contract) account.
var EmptyCodeHash = common.BytesToHash(hash.Sha3256(nil))

// Account is one leaf of the outer state trie.
type Account struct {
	Nonce       uint64
	Code        []byte
	StorageRoot common.Hash
}

// NewEmptyAccount returns the Account value of SPEC_FULL's
// "empty account": nonce 0, no code, empty storage root.
func NewEmptyAccount() *Account {
	return &Account{StorageRoot: EmptyStorageRoot}
}

// IsEmpty reports whether acc is indistinguishable from a never-seen
// account. The state layer does not consult it: core/state writes
// every account leaf with TryUpdate, empty or not.
func (acc *Account) IsEmpty() bool {
	return acc.Nonce == 0 && len(acc.Code) == 0 && acc.StorageRoot == EmptyStorageRoot
}

// CodeHash is the content hash of the account's code, used as the
// read-set entry for get_code_len/get_code rather than the code bytes
// themselves.
func (acc *Account) CodeHash() common.Hash {
	if len(acc.Code) == 0 {
		return EmptyCodeHash
	}
	return common.BytesToHash(hash.Sha3256(acc.Code))
}

// Encode returns the canonical RLP encoding stored as the trie leaf
// value for this account.
func (acc *Account) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(acc)
}

// DecodeAccount parses a trie leaf value back into an Account.
func DecodeAccount(enc []byte) (*Account, error) {
	acc := new(Account)
	if err := rlp.DecodeBytes(enc, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Copy returns an independent copy, since Account leaves are shared by
// value across temp-state deltas.
func (acc *Account) Copy() *Account {
	cp := &Account{Nonce: acc.Nonce, StorageRoot: acc.StorageRoot}
	if acc.Code != nil {
		cp.Code = append([]byte(nil), acc.Code...)
	}
	return cp
}
