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

package tempstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/common"
)

func addr(b byte) common.Address {
	var a common.Address
	a[len(a)-1] = b
	return a
}

func key(b byte) common.Key {
	var k common.Key
	k[len(k)-1] = b
	return k
}

func TestRingEvictsBeyondWindow(t *testing.T) {
	r := NewRing(2)
	for h := uint64(1); h <= 3; h++ {
		d := NewDelta(h, common.Hash{}, common.Hash{})
		r.Append(d)
	}
	assert.Equal(t, 2, r.Len())
	low, high, ok := r.HeightRange()
	require.True(t, ok)
	assert.Equal(t, uint64(2), low)
	assert.Equal(t, uint64(3), high)
	assert.False(t, r.InWindow(1))
	assert.True(t, r.InWindow(2))
}

func TestRingWriteIndexTracksHeight(t *testing.T) {
	r := NewRing(64)
	sk := common.StorageKey{Addr: addr(1), Key: key(1)}

	d1 := NewDelta(1, common.Hash{}, common.Hash{})
	r.Append(d1)
	assert.False(t, r.WrittenSince(sk, 1))

	d2 := NewDelta(2, common.Hash{}, common.Hash{})
	d2.Storage[sk] = common.Value{}
	r.Append(d2)
	assert.True(t, r.WrittenSince(sk, 1))
	assert.False(t, r.WrittenSince(sk, 2))
}

func TestRingRollbackLIFO(t *testing.T) {
	r := NewRing(64)
	for h := uint64(1); h <= 5; h++ {
		r.Append(NewDelta(h, common.Hash{}, common.Hash{}))
	}
	removed, err := r.Rollback(3)
	require.NoError(t, err)
	require.Len(t, removed, 2)
	assert.Equal(t, uint64(5), removed[0].Height)
	assert.Equal(t, uint64(4), removed[1].Height)
	assert.Equal(t, 3, r.Len())
}

func TestRingRollbackBeyondWindowIsDivergence(t *testing.T) {
	r := NewRing(2)
	for h := uint64(1); h <= 4; h++ {
		r.Append(NewDelta(h, common.Hash{}, common.Hash{}))
	}
	_, err := r.Rollback(0)
	assert.ErrorIs(t, err, ErrDivergence)
}
