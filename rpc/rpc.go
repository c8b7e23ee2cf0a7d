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

// Package rpc is spec §6's peer protocol: a request-response channel
// with four message kinds. Per spec §1, the concrete network
// transport is an external collaborator - this package defines the
// message shapes and the Peer contract a transport implementation
// must satisfy; it does not open a socket itself, and node.go does not
// use it. Messages travel as plain Go values, encoded with the same
// encoding/gob core/types.Block already uses for its own wire form,
// rather than the dropped grpc/protobuf stack (see DESIGN.md's Open
// Question decision).
package rpc

import (
	"context"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/trie"
	"github.com/slimchain/slimchain/core/types"
)

// ExecReq asks a storage node to execute req against the state at
// stateRootHint (a hint, not a guarantee - the storage node executes
// against its current head and reports what root it actually used).
type ExecReq struct {
	Req           *types.TxReq
	StateRootHint common.Hash
}

// ExecResp is a storage node's reply to an ExecReq: either a completed
// proposal or an error string (busy, revert is carried inside
// Proposal.Reverted rather than here - only transport/capacity errors
// go in Err).
type ExecResp struct {
	Proposal *types.TxProposal
	Err      string
}

// BlockAnnounce is the unsolicited gossip message sent when a node
// mines/commits a new head - just the header, since the receiver
// already likely has the bodies from having served the ExecReqs that
// produced them.
type BlockAnnounce struct {
	Header *types.BlockHeader
}

// BlockFetch asks a peer for a full block by hash.
type BlockFetch struct {
	Hash common.Hash
}

// BlockResp answers a BlockFetch.
type BlockResp struct {
	Block *types.Block
	Err   string
}

// StateSync asks a peer for a partial trie covering keyPath under
// root - used by a node resyncing after a Divergence halt or a fresh
// storage node catching up.
type StateSync struct {
	Root    common.Hash
	KeyPath [][]byte
}

// StateResp answers a StateSync with the requested proof.
type StateResp struct {
	Proof *trie.Proof
	Err   string
}

// Peer is the contract a transport implementation exposes to the rest
// of the node for talking to one connected peer: Exec asks a storage
// node to execute a request, Announce/FetchBlock carry block
// propagation, and SyncState fetches a partial trie. No implementation
// of it exists in this repository; node.go executes requests
// in-process.
type Peer interface {
	ID() string
	Exec(ctx context.Context, req ExecReq) (ExecResp, error)
	Announce(ctx context.Context, msg BlockAnnounce) error
	FetchBlock(ctx context.Context, req BlockFetch) (BlockResp, error)
	SyncState(ctx context.Context, req StateSync) (StateResp, error)
}

// Handler is the inbound side of the same four message kinds - what a
// transport implementation calls into when a message arrives from a
// remote Peer. A storage node implements OnExec; a miner implements
// OnAnnounce/OnBlockFetch; any node implements OnStateSync if it's
// willing to serve state.
type Handler interface {
	OnExec(ctx context.Context, from string, req ExecReq) ExecResp
	OnAnnounce(ctx context.Context, from string, msg BlockAnnounce)
	OnBlockFetch(ctx context.Context, from string, req BlockFetch) BlockResp
	OnStateSync(ctx context.Context, from string, req StateSync) StateResp
}
