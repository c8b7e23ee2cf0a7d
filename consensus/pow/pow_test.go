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

package pow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/core/types"
)

func TestRetargetQuartersOnSlowBlocks(t *testing.T) {
	// actual = 4x expected -> ratio 1/4 -> difficulty quartered.
	next := Retarget(1_000_000, 1000, 4000)
	require.Equal(t, uint64(250_000), next)
}

func TestRetargetClampsAt8x(t *testing.T) {
	// actual = 8x expected -> ratio 1/8, clamped to the 1/4 floor.
	next := Retarget(1_000_000, 1000, 8000)
	require.Equal(t, uint64(250_000), next)
}

func TestMineProducesValidHeader(t *testing.T) {
	header := &types.BlockHeader{
		Height:    1,
		Consensus: types.ConsensusHeader{PoW: &types.PoWHeader{Difficulty: 16}},
	}
	mined, ok := Mine(context.Background(), header, 1<<10)
	require.True(t, ok)
	require.True(t, Valid(mined))
}

func TestMineRespectsCancellation(t *testing.T) {
	// an effectively-unreachable difficulty never finds a nonce within
	// the cancellation window, so Mine must return promptly on ctx
	// cancellation rather than spinning forever.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	header := &types.BlockHeader{
		Height:    1,
		Consensus: types.ConsensusHeader{PoW: &types.PoWHeader{Difficulty: 1 << 62}},
	}
	_, ok := Mine(ctx, header, 1)
	require.False(t, ok)
}

func TestHeavierBreaksTiesByHash(t *testing.T) {
	var a, b [32]byte
	a[31] = 1
	b[31] = 2
	require.True(t, Heavier(Work(10), Work(10), a, b))
	require.False(t, Heavier(Work(10), Work(10), b, a))
	require.True(t, Heavier(Work(20), Work(10), b, a))
}
