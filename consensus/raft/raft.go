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

// Package raft is the Raft binding of consensus.Backend (spec §4.5):
// the block is the state-machine command, log entries are blocks, and
// Commit is invoked for log entries strictly in index order once a
// quorum has replicated them. Leader election/heartbeat timing and
// the actual peer transport are contract-level here (an Election and
// a Transport interface). node.go builds only the Backend and calls
// BecomeLeader(1) on it; it starts no Election and supplies no
// Transport.
package raft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/consensus"
	"github.com/slimchain/slimchain/core/types"
)

// Config mirrors spec §6's raft.* TOML section.
type Config struct {
	ElectionTimeoutMin          time.Duration
	ElectionTimeoutMax          time.Duration
	HeartbeatInterval           time.Duration
	MaxPayloadEntries           int
	ReplicationLagThreshold     uint64
	SnapshotPolicyLogsSinceLast uint64
	SnapshotMaxChunkSize        int
}

// ErrNotLeader is returned by Propose when this node doesn't currently
// hold leadership - the caller should wait for an election result.
var ErrNotLeader = errors.New("raft: not leader")

// ErrOutOfOrder is returned by Commit when a log entry is committed
// before its predecessor - spec §4.5 requires commit in strict index
// order.
var ErrOutOfOrder = errors.New("raft: commit out of log index order")

// Backend is the Raft consensus.Backend. It tracks the local node's
// current term/leader belief and a log of committed blocks; the
// surrounding election/replication protocol (who becomes leader, how
// AppendEntries reaches a quorum) is Election/Transport's job - this
// type only enforces the state-machine-safety half of Raft that
// core/pipeline depends on: blocks commit in index order, and
// Propose only succeeds when this node is leader.
type Backend struct {
	mu sync.Mutex

	selfID string
	cfg    Config

	term   uint64
	leader string

	log        []*types.Block // log[i] has Consensus.Raft.Index == i+1
	headHeight uint64
	headHash   common.Hash
	headRoot   common.Hash
}

// NewBackend seeds the backend at genesisRoot with the given node id.
func NewBackend(selfID string, cfg Config, genesisRoot common.Hash) *Backend {
	genesis := &types.BlockHeader{
		Height:    0,
		StateRoot: genesisRoot,
		Consensus: types.ConsensusHeader{Raft: &types.RaftHeader{Term: 0, Index: 0}},
	}
	return &Backend{
		selfID:     selfID,
		cfg:        cfg,
		headHeight: 0,
		headHash:   genesis.Hash(),
		headRoot:   genesisRoot,
	}
}

// BecomeLeader is called by the election layer once this node has won
// a term's vote from a quorum of Validators (core/state.ConsensusTrie).
func (b *Backend) BecomeLeader(term uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if term >= b.term {
		b.term = term
		b.leader = b.selfID
	}
}

// AcknowledgeLeader is called by the election layer when another node
// wins the term's vote, or a heartbeat from a current leader arrives.
func (b *Backend) AcknowledgeLeader(term uint64, leaderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if term >= b.term {
		b.term = term
		b.leader = leaderID
	}
}

// IsLeader reports whether this node currently believes itself leader.
func (b *Backend) IsLeader() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leader == b.selfID
}

// CurrentTerm returns the backend's current term, the term an
// election loop bumps and campaigns on.
func (b *Backend) CurrentTerm() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.term
}

// Propose builds the block for the next log index if this node is
// leader, and returns ErrNotLeader otherwise. It does not append to the
// log: the block becomes part of the log and of Head() only when
// Commit is called for it - ctx is accepted to match
// consensus.Backend but unused here since proposing never blocks.
func (b *Backend) Propose(ctx context.Context, parent *types.BlockHeader, stateRoot common.Hash, txList []*types.TxProposal) (*types.Block, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.leader != b.selfID {
		return nil, ErrNotLeader
	}
	header := &types.BlockHeader{
		Height:    parent.Height + 1,
		Parent:    parent.Hash(),
		StateRoot: stateRoot,
		Timestamp: uint64(time.Now().UnixMilli()),
		Consensus: types.ConsensusHeader{Raft: &types.RaftHeader{
			Term:   b.term,
			Leader: b.selfID,
			Index:  uint64(len(b.log)) + 1,
		}},
	}
	return types.NewBlock(header, txList), nil
}

// Verify checks block carries a well-formed Raft log entry whose
// parent is the current log tip (or the committed head if the log is
// empty) and whose index is the expected next one.
func (b *Backend) Verify(block *types.Block) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rh := block.Header.Consensus.Raft
	if rh == nil {
		return fmt.Errorf("raft: block carries no Raft consensus header")
	}
	expectedParent := b.headHash
	if n := len(b.log); n > 0 {
		expectedParent = b.log[n-1].Hash()
	}
	if block.Header.Parent != expectedParent {
		return consensus.ErrUnknownParent
	}
	if rh.Index != uint64(len(b.log))+1 {
		return fmt.Errorf("raft: log entry index %d, expected %d", rh.Index, len(b.log)+1)
	}
	return nil
}

// Commit appends block to the log and advances the committed head.
// Per spec §4.5, entries commit strictly in index order; an
// out-of-order Commit is rejected rather than silently reordered, so
// a caller driving commits off quorum acks must itself serialize them
// (which Raft's AppendEntries ack-then-advance-commitIndex protocol
// already guarantees). Committing the already-committed tip again is
// a no-op.
func (b *Backend) Commit(block *types.Block) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if block.Hash() == b.headHash {
		return nil
	}
	rh := block.Header.Consensus.Raft
	if rh == nil {
		return fmt.Errorf("raft: block carries no Raft consensus header")
	}
	if rh.Index != uint64(len(b.log))+1 {
		return ErrOutOfOrder
	}
	b.log = append(b.log, block)
	b.headHeight = block.Header.Height
	b.headHash = block.Hash()
	b.headRoot = block.Header.StateRoot
	return nil
}

// Head returns the current committed chain tip.
func (b *Backend) Head() (uint64, common.Hash, common.Hash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headHeight, b.headHash, b.headRoot
}

// ShouldSnapshot reports whether logsSinceLast has reached
// chain.raft.snapshot_policy_logs_since_last, the trigger for
// compacting the log into a state snapshot.
func (c Config) ShouldSnapshot(logsSinceLast uint64) bool {
	return c.SnapshotPolicyLogsSinceLast > 0 && logsSinceLast >= c.SnapshotPolicyLogsSinceLast
}
