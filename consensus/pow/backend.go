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
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/consensus"
	"github.com/slimchain/slimchain/core/types"
)

// Backend is the PoW consensus.Backend: an in-memory header/work index
// plus the current head, retargeted every RetargetWindow blocks.
type Backend struct {
	mu sync.Mutex

	initDifficulty     uint64
	retargetWindow     uint64
	expectedIntervalMs uint64
	checkInterval      uint64

	headers map[common.Hash]*types.BlockHeader
	work    map[common.Hash]*big.Int

	headHash   common.Hash
	headHeight uint64
	headRoot   common.Hash
	headWork   *big.Int
}

// NewBackend seeds the backend with a genesis header at genesisRoot
// and chain.pow.init_diff's starting difficulty.
func NewBackend(initDifficulty, retargetWindow, expectedIntervalMs uint64, genesisRoot common.Hash) *Backend {
	genesis := &types.BlockHeader{
		Height:    0,
		StateRoot: genesisRoot,
		Consensus: types.ConsensusHeader{PoW: &types.PoWHeader{Difficulty: initDifficulty}},
	}
	h := genesis.Hash()
	return &Backend{
		initDifficulty:     initDifficulty,
		retargetWindow:     retargetWindow,
		expectedIntervalMs: expectedIntervalMs,
		checkInterval:      1 << 16,
		headers:            map[common.Hash]*types.BlockHeader{h: genesis},
		work:               map[common.Hash]*big.Int{h: big.NewInt(0)},
		headHash:           h,
		headHeight:         0,
		headRoot:           genesisRoot,
		headWork:           big.NewInt(0),
	}
}

// difficultyFor computes the difficulty a block at parent+1 must mine
// at: unchanged within a retarget window, recomputed via Retarget at
// the window boundary using the elapsed time since the window's first
// block.
func (b *Backend) difficultyFor(parent *types.BlockHeader, timestamp uint64) uint64 {
	prevDiff := parent.Consensus.PoW.Difficulty
	height := parent.Height + 1
	if b.retargetWindow == 0 || height%b.retargetWindow != 0 {
		return prevDiff
	}
	windowStartHeight := height - b.retargetWindow
	windowStart := b.headerAtHeight(windowStartHeight)
	if windowStart == nil {
		return prevDiff
	}
	actual := timestamp - windowStart.Timestamp
	expected := b.expectedIntervalMs * b.retargetWindow
	return Retarget(prevDiff, expected, actual)
}

// headerAtHeight walks back from the current head along Parent links.
// PoW forks are shallow (bounded by the temp-state window per spec
// §4.4), so a linear walk is sufficient - no separate height index.
func (b *Backend) headerAtHeight(height uint64) *types.BlockHeader {
	h := b.headers[b.headHash]
	for h != nil && h.Height > height {
		h = b.headers[h.Parent]
	}
	if h != nil && h.Height == height {
		return h
	}
	return nil
}

// Propose mines a block extending parent with stateRoot and txList.
// ctx cancels the search (a new best parent arrived).
func (b *Backend) Propose(ctx context.Context, parent *types.BlockHeader, stateRoot common.Hash, txList []*types.TxProposal) (*types.Block, error) {
	timestamp := uint64(time.Now().UnixMilli())

	b.mu.Lock()
	diff := b.difficultyFor(parent, timestamp)
	b.mu.Unlock()

	candidate := &types.BlockHeader{
		Height:    parent.Height + 1,
		Parent:    parent.Hash(),
		StateRoot: stateRoot,
		Timestamp: timestamp,
		Consensus: types.ConsensusHeader{PoW: &types.PoWHeader{Difficulty: diff}},
	}
	mined, ok := Mine(ctx, candidate, b.checkInterval)
	if !ok {
		return nil, nil
	}
	return types.NewBlock(mined, txList), nil
}

// Verify checks block's parent is known and its PoW nonce is valid.
func (b *Backend) Verify(block *types.Block) error {
	b.mu.Lock()
	_, known := b.headers[block.Header.Parent]
	b.mu.Unlock()
	if !known {
		return consensus.ErrUnknownParent
	}
	if !Valid(block.Header) {
		return fmt.Errorf("pow: invalid nonce for difficulty %d", block.Header.Consensus.PoW.Difficulty)
	}
	return nil
}

// Commit records block and, if its chain is now heavier than the
// current head (spec §4.5's cumulative-work fork choice), adopts it.
// Committing an already-known hash is a no-op.
func (b *Backend) Commit(block *types.Block) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := block.Hash()
	if _, ok := b.headers[h]; ok {
		return nil
	}
	parentWork, ok := b.work[block.Header.Parent]
	if !ok {
		return consensus.ErrUnknownParent
	}
	blockWork := new(big.Int).Add(parentWork, Work(block.Header.Consensus.PoW.Difficulty))

	b.headers[h] = block.Header
	b.work[h] = blockWork

	if Heavier(blockWork, b.headWork, h, b.headHash) {
		b.headHash = h
		b.headHeight = block.Header.Height
		b.headRoot = block.Header.StateRoot
		b.headWork = blockWork
	}
	return nil
}

// Head returns the current chain tip.
func (b *Backend) Head() (uint64, common.Hash, common.Hash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headHeight, b.headHash, b.headRoot
}
