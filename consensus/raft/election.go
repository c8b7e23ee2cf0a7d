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
	"math/rand"
	"sync"
	"time"
)

// Transport is the peer-communication surface the election loop
// needs; no implementation of it exists in this repository.
type Transport interface {
	Peers() []string
	RequestVote(ctx context.Context, peer string, term uint64) (granted bool, err error)
}

// Election drives Backend's term/leadership via a randomized timeout,
// using a quit-channel-plus-select loop that reacts to an election
// timer.
type Election struct {
	backend   *Backend
	transport Transport
	cfg       Config

	resetCh chan struct{}
	quitCh  chan struct{}
	wg      sync.WaitGroup
}

// NewElection builds an election loop for backend over transport.
func NewElection(backend *Backend, transport Transport, cfg Config) *Election {
	return &Election{
		backend:   backend,
		transport: transport,
		cfg:       cfg,
		resetCh:   make(chan struct{}, 1),
		quitCh:    make(chan struct{}),
	}
}

// Start launches the election loop.
func (e *Election) Start() {
	e.wg.Add(1)
	go e.loop()
}

// Stop cancels the election loop and waits for it to exit.
func (e *Election) Stop() {
	close(e.quitCh)
	e.wg.Wait()
}

// HeartbeatReceived resets the election timer - called whenever an
// AppendEntries (including an empty heartbeat) arrives from the
// current leader, per standard Raft leader-lease semantics.
func (e *Election) HeartbeatReceived() {
	select {
	case e.resetCh <- struct{}{}:
	default:
	}
}

func (e *Election) loop() {
	defer e.wg.Done()
	timer := time.NewTimer(e.randomTimeout())
	defer timer.Stop()
	for {
		select {
		case <-e.quitCh:
			return
		case <-e.resetCh:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(e.randomTimeout())
		case <-timer.C:
			e.startElection()
			timer.Reset(e.randomTimeout())
		}
	}
}

func (e *Election) randomTimeout() time.Duration {
	lo, hi := e.cfg.ElectionTimeoutMin, e.cfg.ElectionTimeoutMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

// startElection campaigns for the next term: votes for itself, asks
// every peer, and becomes leader on a strict majority.
func (e *Election) startElection() {
	term := e.backend.CurrentTerm() + 1
	peers := e.transport.Peers()
	votes := 1
	for _, p := range peers {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ElectionTimeoutMin)
		granted, err := e.transport.RequestVote(ctx, p, term)
		cancel()
		if err == nil && granted {
			votes++
		}
	}
	if votes*2 > len(peers)+1 {
		e.backend.BecomeLeader(term)
	}
}
