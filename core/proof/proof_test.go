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

package proof

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/exec"
	"github.com/slimchain/slimchain/core/pipeline"
	"github.com/slimchain/slimchain/core/state"
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

func sstoreRecord(key, value byte) []byte {
	rec := make([]byte, 64)
	rec[31] = key
	rec[63] = value
	return rec
}

func TestVerifyReadProposalAcceptsValidProof(t *testing.T) {
	sdb := newTestStateDB(t)
	caller := common.BytesToAddress([]byte("dave"))
	req := signedCreateTx(t, caller, 0, nil)

	backend := exec.NewSimple()
	proposal, err := backend.Execute(req, 1, sdb.Root(), sdb)
	require.NoError(t, err)

	require.NoError(t, VerifyReadProposal(sdb.Root(), proposal))
}

func TestVerifyReadProposalRejectsWrongRoot(t *testing.T) {
	sdb := newTestStateDB(t)
	caller := common.BytesToAddress([]byte("erin"))
	req := signedCreateTx(t, caller, 0, nil)

	backend := exec.NewSimple()
	proposal, err := backend.Execute(req, 1, sdb.Root(), sdb)
	require.NoError(t, err)
	preRoot := sdb.Root()

	// install some unrelated state so the root changes, then verify
	// the stale proof against the new root fails.
	require.NoError(t, sdb.SetNonce(common.BytesToAddress([]byte("frank")), 1))
	newRoot, err := sdb.Commit()
	require.NoError(t, err)
	require.NotEqual(t, newRoot, preRoot)

	err = VerifyReadProposal(newRoot, proposal)
	require.Error(t, err)
}

// TestVerifyReadProposalChecksStorageReads exercises the storage-level
// half of a read-proof: a call proposal's ReadSet carries a (addr,
// key) storage read, and VerifyReadProposal must reconstruct it
// against the account's own proven storage_root, not just the outer
// account leaf. A proof that drops the storage-trie nodes (keeping
// only the account leaf) must be rejected.
func TestVerifyReadProposalChecksStorageReads(t *testing.T) {
	sdb := newTestStateDB(t)
	caller := common.BytesToAddress([]byte("iris"))
	backend := exec.NewSimple()

	createReq := signedCreateTx(t, caller, 0, []byte{0x01})
	createProposal, err := backend.Execute(createReq, 1, sdb.Root(), sdb)
	require.NoError(t, err)
	require.NoError(t, sdb.ApplyWrites(createProposal))
	_, err = sdb.Commit()
	require.NoError(t, err)

	contractAddr := createProposal.AccountWrites[1].Addr

	firstStoreReq := signedCallTx(t, caller, 1, contractAddr, sstoreRecord(1, 7))
	firstStoreProposal, err := backend.Execute(firstStoreReq, 2, sdb.Root(), sdb)
	require.NoError(t, err)
	require.NoError(t, sdb.ApplyWrites(firstStoreProposal))
	rootAfterFirstStore, err := sdb.Commit()
	require.NoError(t, err)

	secondStoreReq := signedCallTx(t, caller, 2, contractAddr, sstoreRecord(1, 9))
	secondStoreProposal, err := backend.Execute(secondStoreReq, 3, rootAfterFirstStore, sdb)
	require.NoError(t, err)

	var readsStorage bool
	for _, r := range secondStoreProposal.ReadSet {
		if r.Storage && r.Addr == contractAddr {
			readsStorage = true
		}
	}
	require.True(t, readsStorage, "expected the overwrite to read the existing storage slot first")

	require.NoError(t, VerifyReadProposal(rootAfterFirstStore, secondStoreProposal))

	forgedProof, err := sdb.ProveAddrs([]common.Address{caller, contractAddr})
	require.NoError(t, err)
	forged := *secondStoreProposal
	forged.ReadProof = forgedProof
	err = VerifyReadProposal(rootAfterFirstStore, &forged)
	require.Error(t, err, "proof missing the storage-trie nodes must be rejected")
}

func TestVerifyBlockAcceptsCorrectStateRoot(t *testing.T) {
	sdb := newTestStateDB(t)
	caller := common.BytesToAddress([]byte("gary"))
	req := signedCreateTx(t, caller, 0, nil)

	backend := exec.NewSimple()
	proposal, err := backend.Execute(req, 1, sdb.Root(), sdb)
	require.NoError(t, err)

	parentRoot := sdb.Root()
	newRoot, err := pipeline.StorageApply(sdb, []*types.TxProposal{proposal})
	require.NoError(t, err)

	header := &types.BlockHeader{Height: 1, StateRoot: newRoot}
	block := types.NewBlock(header, []*types.TxProposal{proposal})

	require.NoError(t, VerifyBlock(parentRoot, block))
}

func TestVerifyBlockRejectsWrongStateRoot(t *testing.T) {
	sdb := newTestStateDB(t)
	caller := common.BytesToAddress([]byte("helen"))
	req := signedCreateTx(t, caller, 0, nil)

	backend := exec.NewSimple()
	proposal, err := backend.Execute(req, 1, sdb.Root(), sdb)
	require.NoError(t, err)

	parentRoot := sdb.Root()
	header := &types.BlockHeader{Height: 1, StateRoot: common.BytesToHash([]byte("wrong"))}
	block := types.NewBlock(header, []*types.TxProposal{proposal})

	require.ErrorIs(t, VerifyBlock(parentRoot, block), ErrStateRootMismatch)
}
