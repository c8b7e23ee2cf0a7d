/*
 *  Copyright (C) 2019 gyee authors
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

// Package hash is the single place the collision-resistant digest H of
// spec.md §3 is defined: Keccak-256 (the same digest go-ethereum's rlp
// + trie stack is tuned for) via golang.org/x/crypto/sha3.
package hash

import (
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// Sha3256 is H: the canonical 32-byte digest used for trie node
// hashing, block hashing and request hashing.
func Sha3256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256 is the same Keccak-256 digest as Sha3256, named to match
// go-ethereum's keystore MAC for legacy (version3) compatibility.
func Keccak256(data ...[]byte) []byte {
	return Sha3256(data...)
}

// Ripemd160 is used only for deriving the 20-byte address content from
// a public key (spec.md's account address A is opaque to the trie;
// how a client derives one from a keypair is not).
func Ripemd160(data []byte) []byte {
	d := ripemd160.New()
	d.Write(data)
	return d.Sum(nil)
}
