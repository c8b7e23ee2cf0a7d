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

// Package pipeline is the block pipeline (C5): mempool intake,
// SSI/OCC conflict checking, block assembly and apply/reorg.
package pipeline

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/allegro/bigcache"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/types"
)

// Entry is one mempool-resident TxProposal awaiting inclusion, along
// with the TxReq it answers (kept so a miner can re-derive req_hash
// and report status back to the client).
type Entry struct {
	Req       *types.TxReq
	Proposal  *types.TxProposal
	FirstSeen time.Time
}

// Pool is the miner-side mempool: proposals keyed by req_hash in a map
// guarded by a single mutex, plus an arrival-ordered index since block
// assembly orders strictly by arrival, not by key. Each entry's encoded
// TxReq is also kept in a bigcache.
type Pool struct {
	cache *bigcache.BigCache

	mu      sync.Mutex
	entries map[common.Hash]*Entry
	order   []common.Hash
}

// NewPool creates an empty mempool. ttl is the lifetime of the
// bigcache copy of each encoded TxReq only; pool entries themselves do
// not expire and stay until Remove is called for them.
func NewPool(ttl time.Duration) (*Pool, error) {
	cache, err := bigcache.NewBigCache(bigcache.DefaultConfig(ttl))
	if err != nil {
		return nil, err
	}
	return &Pool{
		cache:   cache,
		entries: make(map[common.Hash]*Entry),
	}, nil
}

func cacheKey(h common.Hash) string {
	return hex.EncodeToString(h.Bytes())
}

// Add inserts a freshly executed proposal into the pool in arrival
// order. A duplicate req_hash is a no-op (the first-seen copy wins).
func (p *Pool) Add(req *types.TxReq, proposal *types.TxProposal) error {
	h := proposal.ReqHash
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.entries[h]; exists {
		return nil
	}
	enc, err := req.Encode()
	if err != nil {
		return err
	}
	if err := p.cache.Set(cacheKey(h), enc); err != nil {
		return err
	}
	p.entries[h] = &Entry{Req: req, Proposal: proposal, FirstSeen: time.Now()}
	p.order = append(p.order, h)
	return nil
}

// Remove drops req_hash from the pool - called once a proposal is
// included in a block or rejected.
func (p *Pool) Remove(h common.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[h]; !ok {
		return
	}
	delete(p.entries, h)
	_ = p.cache.Delete(cacheKey(h))
	for i, x := range p.order {
		if x == h {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of proposals currently awaiting inclusion.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Snapshot returns up to max pending entries in arrival order, the
// candidate set block assembly orders from.
func (p *Pool) Snapshot(max int) []*Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if max <= 0 || max > len(p.order) {
		max = len(p.order)
	}
	out := make([]*Entry, 0, max)
	for _, h := range p.order[:max] {
		out = append(out, p.entries[h])
	}
	return out
}

// Get looks up one entry by req_hash, used to answer GET /tx/{req_hash}.
func (p *Pool) Get(h common.Hash) (*Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[h]
	return e, ok
}
