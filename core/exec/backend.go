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
	"errors"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/state"
	"github.com/slimchain/slimchain/core/types"
)

var (
	// ErrNonceMismatch is returned when a TxReq's nonce doesn't match
	// the caller's current account nonce - a client-side error per
	// spec §5's rejection catalogue, not a storage-node fault.
	ErrNonceMismatch = errors.New("exec: nonce does not match caller account")
)

// Backend is the capability interface spec §5's "dynamic dispatch for
// ... engine backends" names: ExecBackend{execute(req, reader) ->
// proposal}. Two variants are selected at startup, never switched at
// runtime: Simple and TEE.
type Backend interface {
	// Execute runs req against the state view held in db, opened at
	// (height, stateRoot), and returns the resulting TxProposal.
	Execute(req *types.TxReq, height uint64, stateRoot common.Hash, db *state.StateDB) (*types.TxProposal, error)
}

// buildProposal turns a recordingReader's accumulated read set plus a
// set of pending writes into a TxProposal, attaching a merged
// read-proof over every address the execution touched.
func buildProposal(req *types.TxReq, height uint64, stateRoot common.Hash, db *state.StateDB, reader *recordingReader, accountWrites []types.AccountWrite, storageWrites []types.StorageWrite, reverted bool) (*types.TxProposal, error) {
	proof, err := db.ProveAddrs(readAddrs(reader.read))
	if err != nil {
		return nil, err
	}
	for addr, keys := range readStorageKeys(reader.read) {
		sp, err := db.ProveStorage(addr, keys)
		if err != nil {
			return nil, err
		}
		proof.Nodes = append(proof.Nodes, sp.Nodes...)
	}
	return &types.TxProposal{
		ReqHash:         req.Hash(),
		BlockHeightSeen: height,
		StateRootSeen:   stateRoot,
		ReadSet:         reader.read,
		AccountWrites:   accountWrites,
		StorageWrites:   storageWrites,
		ReadProof:       proof,
		Reverted:        reverted,
	}, nil
}
