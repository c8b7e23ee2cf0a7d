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
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/state"
	"github.com/slimchain/slimchain/core/types"
	"github.com/slimchain/slimchain/crypto/secp256k1"
	"github.com/slimchain/slimchain/persistent"
)

func newExecTestStateDB(t *testing.T) *state.StateDB {
	mem, err := persistent.NewMemoryStorage()
	require.NoError(t, err)
	db := state.NewDatabase(mem)
	sdb, err := state.New(common.Hash{}, db)
	require.NoError(t, err)
	return sdb
}

func signedExecCreateTx(t *testing.T, caller common.Address, nonce uint64, code []byte) *types.TxReq {
	key := secp256k1.GenerateKey()
	signer := secp256k1.NewSecp256k1Signer()
	require.NoError(t, signer.InitSigner(key.PrivateKey()))
	req := types.NewTxReq(caller, nonce, 100000, nil, code, uint256.NewInt(0))
	require.NoError(t, req.Sign(signer))
	return req
}

func TestSimpleExecuteLeavesInvocationIDEmpty(t *testing.T) {
	sdb := newExecTestStateDB(t)
	caller := common.BytesToAddress([]byte("caller"))
	req := signedExecCreateTx(t, caller, 0, []byte{0x01})

	proposal, err := NewSimple().Execute(req, 1, sdb.Root(), sdb)
	require.NoError(t, err)
	require.Empty(t, proposal.InvocationID)
	require.Nil(t, proposal.TeeSignature)
}

func TestTEEExecuteSetsInvocationID(t *testing.T) {
	sdb := newExecTestStateDB(t)
	caller := common.BytesToAddress([]byte("caller"))
	req := signedExecCreateTx(t, caller, 0, []byte{0x01})

	key := secp256k1.GenerateKey()
	signer := secp256k1.NewSecp256k1Signer()
	require.NoError(t, signer.InitSigner(key.PrivateKey()))

	first, err := NewTEE(signer).Execute(req, 1, sdb.Root(), sdb)
	require.NoError(t, err)
	require.NotEmpty(t, first.InvocationID)
	require.NotNil(t, first.TeeSignature)

	second, err := NewTEE(signer).Execute(req, 1, sdb.Root(), sdb)
	require.NoError(t, err)
	require.NotEqual(t, first.InvocationID, second.InvocationID, "each enclave call mints its own id")
}
