/*
 *  Copyright (C) 2017 gyee authors
 *
 *  This file is part of the gyee library.
 *
 *  The gyee library is free software: you can redistribute it and/or modify
 *  it under the terms of the GNU General Public License as published by
 *  the Free Software Foundation, either version 3 of the License, or
 *  (at your option) any later version.
 *
 *  The gyee library is distributed in the hope that it will be useful,
 *  but WITHOUT ANY WARRANTY; without even the implied warranty of
 *  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *  GNU General Public License for more details.
 *
 *  You should have received a copy of the GNU General Public License
 *  along with the gyee library.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package util

import "math/big"

// PaddedBigBytes encodes a big integer as a big-endian byte slice of
// exactly n bytes, left-padded with zeroes.
func PaddedBigBytes(b *big.Int, n int) []byte {
	buf := make([]byte, n)
	bb := b.Bytes()
	if len(bb) > n {
		bb = bb[len(bb)-n:]
	}
	copy(buf[n-len(bb):], bb)
	return buf
}

// ZeroBytes overwrites a byte slice with zeroes in place. Best-effort
// hygiene for key material held only transiently in memory.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
