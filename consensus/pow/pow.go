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

// Package pow is the PoW binding of consensus.Backend (spec §4.5):
// header validity is H(block_without_nonce || nonce) <= target(diff),
// difficulty retargets every RetargetWindow blocks, and fork choice
// is cumulative work with a lexicographic block-hash tie-break.
package pow

import (
	"context"
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/types"
	"github.com/slimchain/slimchain/crypto/hash"
)

var maxTarget = new(big.Int).Lsh(big.NewInt(1), 256)

// Target returns the acceptance threshold for difficulty: a header's
// seal digest, read as a big-endian uint256, must be <= Target(diff).
// Higher difficulty means a smaller target and a harder search.
func Target(difficulty uint64) *big.Int {
	if difficulty == 0 {
		difficulty = 1
	}
	return new(big.Int).Div(maxTarget, new(big.Int).SetUint64(difficulty))
}

// SealHash is H(block_without_nonce): the header's digest with its PoW
// nonce zeroed, which both Mine and Valid hash the candidate nonce
// against.
func SealHash(h *types.BlockHeader) common.Hash {
	cp := h.Copy()
	if cp.Consensus.PoW != nil {
		withoutNonce := *cp.Consensus.PoW
		withoutNonce.Nonce = 0
		cp.Consensus.PoW = &withoutNonce
	}
	enc, err := rlp.EncodeToBytes(cp)
	if err != nil {
		return common.Hash{}
	}
	return common.BytesToHash(hash.Sha3256(enc))
}

func sealDigest(h *types.BlockHeader) []byte {
	var nonceBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], h.Consensus.PoW.Nonce)
	return hash.Sha3256(SealHash(h).Bytes(), nonceBuf[:])
}

// Valid reports whether header carries a PoW nonce satisfying its own
// difficulty.
func Valid(header *types.BlockHeader) bool {
	if header.Consensus.PoW == nil {
		return false
	}
	digest := sealDigest(header)
	return new(big.Int).SetBytes(digest).Cmp(Target(header.Consensus.PoW.Difficulty)) <= 0
}

// Work is one block's contribution to cumulative chain work: the
// expected number of hash attempts to find a valid nonce, which is
// just its difficulty (work scales linearly with difficulty the same
// way target scales inversely with it).
func Work(difficulty uint64) *big.Int {
	return new(big.Int).SetUint64(difficulty)
}

// Heavier reports whether a candidate chain (cumulative work candWork,
// tip hash candHash) should replace the current head (headWork,
// headHash): strictly more work wins; equal work breaks the tie by
// the lexicographically smaller hash (spec §4.5).
func Heavier(candWork, headWork *big.Int, candHash, headHash common.Hash) bool {
	if c := candWork.Cmp(headWork); c != 0 {
		return c > 0
	}
	return candHash.Cmp(headHash) < 0
}

// Retarget computes the next difficulty given the previous one and the
// expected vs. actual inter-block time over the last RetargetWindow
// blocks, clamped to [1/4, 4] per spec §4.5.
func Retarget(prevDifficulty, expectedIntervalMs, actualIntervalMs uint64) uint64 {
	if actualIntervalMs == 0 {
		actualIntervalMs = 1
	}
	ratio := new(big.Rat).SetFrac(
		new(big.Int).SetUint64(expectedIntervalMs),
		new(big.Int).SetUint64(actualIntervalMs),
	)
	if min := big.NewRat(1, 4); ratio.Cmp(min) < 0 {
		ratio = min
	}
	if max := big.NewRat(4, 1); ratio.Cmp(max) > 0 {
		ratio = max
	}
	next := new(big.Rat).Mul(ratio, new(big.Rat).SetInt(new(big.Int).SetUint64(prevDifficulty)))
	f, _ := next.Float64()
	if f < 1 {
		f = 1
	}
	return uint64(f)
}

// Mine searches for a valid nonce for header, yielding to ctx.Done()
// every checkInterval attempts rather than on every one - spec §5's
// "mining loop which periodically yields to check cancellation" (a
// new best parent cancels the search via ctx). Returns the completed
// header and true on success, or nil and false if ctx was cancelled
// first.
func Mine(ctx context.Context, header *types.BlockHeader, checkInterval uint64) (*types.BlockHeader, bool) {
	h := header.Copy()
	if h.Consensus.PoW == nil {
		h.Consensus.PoW = &types.PoWHeader{}
	}
	if checkInterval == 0 {
		checkInterval = 1 << 16
	}
	var nonce uint64
	for {
		for i := uint64(0); i < checkInterval; i++ {
			h.Consensus.PoW.Nonce = nonce
			if Valid(h) {
				return h, true
			}
			nonce++
		}
		select {
		case <-ctx.Done():
			return nil, false
		default:
		}
	}
}
