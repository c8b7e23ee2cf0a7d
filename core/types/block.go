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

package types

import (
	"bytes"
	"encoding/gob"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/crypto/hash"
)

// PoWHeader is the consensus_header for a chain.consensus = "pow"
// block.
type PoWHeader struct {
	Nonce      uint64
	Difficulty uint64
}

// RaftHeader is the consensus_header for a chain.consensus = "raft"
// block.
type RaftHeader struct {
	Term   uint64
	Leader string
	Index  uint64
}

// ConsensusHeader carries exactly one of PoW or Raft, selected at
// startup per SPEC_FULL's consensus.backend config and never mixed
// within one chain.
type ConsensusHeader struct {
	PoW  *PoWHeader `rlp:"nil"`
	Raft *RaftHeader `rlp:"nil"`
}

// BlockHeader is the hashed, signed part of a Block: everything needed
// to authenticate the block's position and resulting state without
// the transaction bodies.
type BlockHeader struct {
	Height    uint64
	Parent    common.Hash
	StateRoot common.Hash
	Timestamp uint64
	Consensus ConsensusHeader
}

// Hash is the canonical RLP-encoded digest of the header, the value
// chained as Parent by the next block and the value PoW mines over
// (less the nonce) / Raft logs as the command id.
func (h *BlockHeader) Hash() common.Hash {
	enc, err := rlp.EncodeToBytes(h)
	if err != nil {
		return common.Hash{}
	}
	return common.BytesToHash(hash.Sha3256(enc))
}

// Copy returns an independent copy of the header.
func (h *BlockHeader) Copy() *BlockHeader {
	cp := *h
	if h.Consensus.PoW != nil {
		p := *h.Consensus.PoW
		cp.Consensus.PoW = &p
	}
	if h.Consensus.Raft != nil {
		r := *h.Consensus.Raft
		cp.Consensus.Raft = &r
	}
	return &cp
}

// Block is the in-memory representation of one block: its header plus
// the ordered TxProposal list SPEC_FULL's assembly step produced.
type Block struct {
	Header  *BlockHeader
	TxList  []*TxProposal

	hash atomic.Value
}

// NewBlock builds a block from a header and its ordered proposal list.
// The header is copied so later caller-side mutation of the original
// doesn't retroactively change an already-built block.
func NewBlock(header *BlockHeader, txList []*TxProposal) *Block {
	return &Block{Header: header.Copy(), TxList: txList}
}

func (b *Block) Height() uint64          { return b.Header.Height }
func (b *Block) Parent() common.Hash     { return b.Header.Parent }
func (b *Block) StateRoot() common.Hash  { return b.Header.StateRoot }
func (b *Block) Timestamp() uint64       { return b.Header.Timestamp }

// Hash is the block's identity, equal to its header's hash (tx bodies
// aren't part of the chained digest - only state_root, which already
// authenticates their effect, is).
func (b *Block) Hash() common.Hash {
	if v := b.hash.Load(); v != nil {
		return v.(common.Hash)
	}
	h := b.Header.Hash()
	b.hash.Store(h)
	return h
}

// Encode returns a wire encoding of the full block (header + bodies).
// gob is used here rather than RLP: a TxProposal's ReadProof carries a
// variable-shape trie.Proof, and gob's self-describing encoding is the
// safer choice for that nested, not-fixed-arity structure without a
// compiler to check a hand-written RLP schema against it.
func (b *Block) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBlock parses a block from its wire encoding.
func DecodeBlock(enc []byte) (*Block, error) {
	b := new(Block)
	if err := gob.NewDecoder(bytes.NewReader(enc)).Decode(b); err != nil {
		return nil, err
	}
	return b, nil
}
