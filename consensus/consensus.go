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

// Package consensus is the narrow contract (C6) core/pipeline sits
// behind: propose/verify/commit/head, with exactly two backends -
// consensus/pow and consensus/raft - selected once at startup by
// chain.consensus and never mixed within one chain.
package consensus

import (
	"context"
	"errors"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/types"
)

// ErrUnknownParent is returned by Verify when a block's Parent isn't a
// block this backend has committed.
var ErrUnknownParent = errors.New("consensus: unknown parent block")

// Backend is the contract core/pipeline drives every consensus engine
// through. A miner/proposer node calls Propose on its turn; every node
// calls Verify on receipt of a foreign block and Commit once it's
// accepted; Head answers what the node currently considers the chain
// tip.
type Backend interface {
	// Propose affixes this backend's consensus metadata (a mined PoW
	// nonce, or a Raft log index) to a block built from parent,
	// stateRoot and txList - stateRoot is assumed already computed by
	// the caller via core/pipeline.MinerApply over txList. PoW returns
	// a nil block and nil error when mining is cancelled through ctx;
	// Raft returns raft.ErrNotLeader when this node isn't leader.
	Propose(ctx context.Context, parent *types.BlockHeader, stateRoot common.Hash, txList []*types.TxProposal) (*types.Block, error)

	// Verify checks a received block's header is well-formed, its
	// parent is known, and its consensus-specific validity condition
	// holds (PoW: nonce meets target; Raft: a quorum-committed log
	// entry). It does not re-verify state_root against the proposals'
	// write-sets - that's core/pipeline.MinerApply's job, driven by
	// core/proof.
	Verify(block *types.Block) error

	// Commit advances this backend's notion of the chain with block.
	// Idempotent: committing the same block hash twice is a no-op.
	Commit(block *types.Block) error

	// Head returns the current chain tip.
	Head() (height uint64, hash common.Hash, stateRoot common.Hash)
}
