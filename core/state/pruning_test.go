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

package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/trie"
	"github.com/slimchain/slimchain/core/tempstate"
	"github.com/slimchain/slimchain/persistent"
)

func newPruningTestDB(t *testing.T) *Database {
	mem, err := persistent.NewMemoryStorage()
	require.NoError(t, err)
	return NewDatabase(mem)
}

// TestAccessMapEvictKeepsRewrittenKeyLive checks access_map.rs's
// should_prune condition: a storage key rewritten at a later retained
// height must not be reported as prunable when its oldest writer
// falls out of the window.
func TestAccessMapEvictKeepsRewrittenKeyLive(t *testing.T) {
	addr := common.BytesToAddress([]byte("alice"))
	key := common.BytesToKey([]byte("slot"))
	sk := common.StorageKey{Addr: addr, Key: key}

	m := NewAccessMap()

	d1 := tempstate.NewDelta(1, common.Hash{}, common.Hash{})
	d1.Accounts[addr] = tempstate.AccountDelta{Nonce: 1}
	d1.Storage[sk] = common.BytesToValue([]byte("v1"))
	m.Record(1, d1)

	d2 := tempstate.NewDelta(2, common.Hash{}, common.Hash{})
	d2.Accounts[addr] = tempstate.AccountDelta{Nonce: 2}
	d2.Storage[sk] = common.BytesToValue([]byte("v2"))
	m.Record(2, d2)

	pd := m.Evict(1, d1)
	require.True(t, pd.Empty(), "key rewritten at height 2 must still be considered referenced")

	pd2 := m.Evict(2, d2)
	require.False(t, pd2.Empty())
	require.Contains(t, pd2.Storage, sk)
	require.Contains(t, pd2.Nonces, addr)
}

// TestCompactorSweepReclaimsOrphanedStorageNode exercises the
// reachability half: a slot overwritten across two committed roots
// leaves its old value's node unreachable from the newer root, and
// Sweep must delete it while leaving the newer root's data intact.
func TestCompactorSweepReclaimsOrphanedStorageNode(t *testing.T) {
	db := newPruningTestDB(t)
	addr := common.BytesToAddress([]byte("alice"))
	key := common.BytesToKey([]byte("slot"))

	sdb, err := New(common.Hash{}, db)
	require.NoError(t, err)
	require.NoError(t, sdb.SetNonce(addr, 1))
	require.NoError(t, sdb.SetState(addr, key, common.BytesToValue([]byte("v1"))))
	root1, err := sdb.Commit()
	require.NoError(t, err)

	sdb2, err := New(root1, db)
	require.NoError(t, err)
	require.NoError(t, sdb2.SetState(addr, key, common.BytesToValue([]byte("v2"))))
	root2, err := sdb2.Commit()
	require.NoError(t, err)
	require.NotEqual(t, root1, root2)

	compactor := NewCompactor(db)
	require.NoError(t, compactor.Sweep(root1, []common.Hash{root2}, PruningData{}))

	reopened2, err := New(root2, db)
	require.NoError(t, err)
	v, err := reopened2.GetState(addr, key)
	require.NoError(t, err)
	require.Equal(t, common.BytesToValue([]byte("v2")), v)

	_, err = New(root1, db)
	require.Error(t, err, "root1's account leaf was only reachable from the swept root")
	require.True(t, errors.Is(err, trie.ErrNodeNotFound))
}
