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

package secp256k1

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/slimchain/slimchain/crypto/util"
)

const (
	PrivateKeyLength = 32
	// PublicKeyLength is the length of an uncompressed secp256k1 public
	// key (0x04 prefix + 32-byte X + 32-byte Y).
	PublicKeyLength = 65
)

func S256() elliptic.Curve {
	return ethcrypto.S256()
}

type Key struct {
	priKey []byte
	pubKey []byte
}

func NewKey(privateKey, publicKey []byte) *Key {
	return &Key{
		priKey: privateKey,
		pubKey: publicKey,
	}
}

// GenerateKey produces a fresh secp256k1 keypair via crypto/ecdsa.
func GenerateKey() *Key {
	priv, err := ecdsa.GenerateKey(S256(), rand.Reader)
	if err != nil {
		panic("secp256k1: key generation failed: " + err.Error())
	}
	return NewKey(privateKeyFromECDSA(priv), publicKeyFromECDSA(priv))
}

// KeyFromPrivateKey rebuilds a Key (with its derived public half) from
// raw private key bytes, as loaded back out of an unlocked keystore
// entry.
func KeyFromPrivateKey(priv []byte) (*Key, error) {
	ecdsaKey, err := toECDSA(priv)
	if err != nil {
		return nil, err
	}
	return NewKey(privateKeyFromECDSA(ecdsaKey), publicKeyFromECDSA(ecdsaKey)), nil
}

func (k *Key) PrivateKey() []byte {
	return k.priKey
}

func (k *Key) PublicKey() []byte {
	return k.pubKey
}

// Clear best-effort zeroes the private key material held in memory.
func (k *Key) Clear() {
	util.ZeroBytes(k.priKey)
}

func privateKeyFromECDSA(ecdsaKey *ecdsa.PrivateKey) []byte {
	return util.PaddedBigBytes(ecdsaKey.D, PrivateKeyLength)
}

func publicKeyFromECDSA(ecdsaKey *ecdsa.PrivateKey) []byte {
	return elliptic.Marshal(S256(), ecdsaKey.PublicKey.X, ecdsaKey.PublicKey.Y)
}

func toECDSA(privateKey []byte) (*ecdsa.PrivateKey, error) {
	return ethcrypto.ToECDSA(privateKey)
}
