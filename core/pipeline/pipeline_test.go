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
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/exec"
	"github.com/slimchain/slimchain/core/state"
	"github.com/slimchain/slimchain/core/tempstate"
	"github.com/slimchain/slimchain/core/types"
	"github.com/slimchain/slimchain/crypto/secp256k1"
	"github.com/slimchain/slimchain/persistent"
)

func newTestStateDB(t *testing.T) *state.StateDB {
	mem, err := persistent.NewMemoryStorage()
	require.NoError(t, err)
	db := state.NewDatabase(mem)
	sdb, err := state.New(common.Hash{}, db)
	require.NoError(t, err)
	return sdb
}

func signedCreateTx(t *testing.T, caller common.Address, nonce uint64, code []byte) *types.TxReq {
	key := secp256k1.GenerateKey()
	signer := secp256k1.NewSecp256k1Signer()
	require.NoError(t, signer.InitSigner(key.PrivateKey()))
	req := types.NewTxReq(caller, nonce, 100000, nil, code, uint256.NewInt(0))
	require.NoError(t, req.Sign(signer))
	return req
}

func signedCallTx(t *testing.T, caller common.Address, nonce uint64, to common.Address, input []byte) *types.TxReq {
	key := secp256k1.GenerateKey()
	signer := secp256k1.NewSecp256k1Signer()
	require.NoError(t, signer.InitSigner(key.PrivateKey()))
	req := types.NewTxReq(caller, nonce, 100000, &to, input, uint256.NewInt(0))
	require.NoError(t, req.Sign(signer))
	return req
}

func TestMinerAndStorageApplyAgreeOnRoot(t *testing.T) {
	sdb := newTestStateDB(t)
	caller := common.BytesToAddress([]byte("alice"))

	req := signedCreateTx(t, caller, 0, nil)
	backend := exec.NewSimple()
	proposal, err := backend.Execute(req, 1, sdb.Root(), sdb)
	require.NoError(t, err)
	require.False(t, proposal.Reverted)

	minerRoot, err := MinerApply(sdb.Root(), []*types.TxProposal{proposal})
	require.NoError(t, err)

	storageRoot, err := StorageApply(sdb, []*types.TxProposal{proposal})
	require.NoError(t, err)

	require.Equal(t, storageRoot, minerRoot)
}

func TestMinerAndStorageApplyAgreeOnRootWithStorageWrite(t *testing.T) {
	sdb := newTestStateDB(t)
	caller := common.BytesToAddress([]byte("bob"))
	contract := common.BytesToAddress([]byte("contract"))

	// install code at contract directly on the full state so the call
	// below sees non-empty code (bypassing a create tx for brevity).
	require.NoError(t, sdb.SetCode(contract, []byte{0x01}))
	root, err := sdb.Commit()
	require.NoError(t, err)
	sdb2, err := state.New(root, sdb.DatabaseHandle())
	require.NoError(t, err)

	var rec [64]byte
	copy(rec[32:], common.BytesToValue([]byte{42}).Bytes())
	req := signedCallTx(t, caller, 0, contract, rec[:])
	backend := exec.NewSimple()
	proposal, err := backend.Execute(req, 2, sdb2.Root(), sdb2)
	require.NoError(t, err)
	require.False(t, proposal.Reverted)
	require.Len(t, proposal.StorageWrites, 1)

	minerRoot, err := MinerApply(sdb2.Root(), []*types.TxProposal{proposal})
	require.NoError(t, err)

	storageRoot, err := StorageApply(sdb2, []*types.TxProposal{proposal})
	require.NoError(t, err)

	require.Equal(t, storageRoot, minerRoot)
}

func TestSSIConflictDetectsInterveningWrite(t *testing.T) {
	ring := tempstate.NewRing(64)
	sk := common.StorageKey{Addr: common.BytesToAddress([]byte("a")), Key: common.BytesToKey([]byte("k"))}

	d := tempstate.NewDelta(2, common.Hash{}, common.Hash{})
	d.Storage[sk] = common.Value{}
	ring.Append(d)

	p := &types.TxProposal{
		BlockHeightSeen: 1,
		ReadSet:         []types.ReadEntry{{Addr: sk.Addr, Key: sk.Key, Storage: true}},
	}
	err := SSI{}.Check(p, 2, common.Hash{}, ring)
	require.ErrorIs(t, err, ErrConflict)
}

func TestSameWriteSetAgreesBetweenTEEAndSimple(t *testing.T) {
	sdb := newTestStateDB(t)
	caller := common.BytesToAddress([]byte("carol"))
	req := signedCreateTx(t, caller, 0, nil)

	simple := exec.NewSimple()
	plain, err := simple.Execute(req, 1, sdb.Root(), sdb)
	require.NoError(t, err)

	teeKey := secp256k1.GenerateKey()
	teeSigner := secp256k1.NewSecp256k1Signer()
	require.NoError(t, teeSigner.InitSigner(teeKey.PrivateKey()))
	tee := exec.NewTEE(teeSigner)
	shielded, err := tee.Execute(req, 1, sdb.Root(), sdb)
	require.NoError(t, err)

	require.True(t, SameWriteSet(plain, shielded))
	require.NotEmpty(t, shielded.TeeSignature)
}

func TestMempoolAddAndRemove(t *testing.T) {
	pool, err := NewPool(time.Minute)
	require.NoError(t, err)

	req := signedCreateTx(t, common.BytesToAddress([]byte("x")), 0, nil)
	proposal := &types.TxProposal{ReqHash: req.Hash()}
	require.NoError(t, pool.Add(req, proposal))
	require.Equal(t, 1, pool.Len())

	_, ok := pool.Get(proposal.ReqHash)
	require.True(t, ok)

	pool.Remove(proposal.ReqHash)
	require.Equal(t, 0, pool.Len())
}
