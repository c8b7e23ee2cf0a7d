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

package raft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/types"
)

func TestProposeRequiresLeadership(t *testing.T) {
	b := NewBackend("node-1", Config{}, common.Hash{})
	parent := &types.BlockHeader{Height: 0}
	_, err := b.Propose(context.Background(), parent, common.Hash{}, nil)
	require.ErrorIs(t, err, ErrNotLeader)

	b.BecomeLeader(1)
	block, err := b.Propose(context.Background(), parent, common.Hash{}, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), block.Header.Consensus.Raft.Index)
}

func TestCommitRejectsOutOfOrder(t *testing.T) {
	b := NewBackend("node-1", Config{}, common.Hash{})
	b.BecomeLeader(1)
	parent := &types.BlockHeader{Height: 0}

	block1, err := b.Propose(context.Background(), parent, common.Hash{}, nil)
	require.NoError(t, err)
	block2Header := &types.BlockHeader{
		Height: 2,
		Parent: block1.Hash(),
		Consensus: types.ConsensusHeader{Raft: &types.RaftHeader{Term: 1, Leader: "node-1", Index: 2}},
	}
	block2 := types.NewBlock(block2Header, nil)

	require.ErrorIs(t, b.Commit(block2), ErrOutOfOrder)

	require.NoError(t, b.Commit(block1))
	require.NoError(t, b.Commit(block2))

	height, hash, _ := b.Head()
	require.Equal(t, uint64(2), height)
	require.Equal(t, block2.Hash(), hash)
}

type fakeTransport struct {
	peers   []string
	grant   bool
}

func (f *fakeTransport) Peers() []string { return f.peers }
func (f *fakeTransport) RequestVote(ctx context.Context, peer string, term uint64) (bool, error) {
	return f.grant, nil
}

func TestElectionBecomesLeaderOnMajority(t *testing.T) {
	b := NewBackend("node-1", Config{ElectionTimeoutMin: 0, ElectionTimeoutMax: 0}, common.Hash{})
	transport := &fakeTransport{peers: []string{"node-2", "node-3"}, grant: true}
	el := NewElection(b, transport, Config{ElectionTimeoutMin: 1, ElectionTimeoutMax: 1})
	el.startElection()
	require.True(t, b.IsLeader())
}
