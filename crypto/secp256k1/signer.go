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

package secp256k1

import (
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/slimchain/slimchain/crypto"
	"github.com/slimchain/slimchain/log"
)

// Signer signs and verifies 32-byte digests (TxReq hashes, proposal
// hashes) against a single loaded secp256k1 key.
// It implements crypto.Signer.
type Signer struct {
	algrithm   crypto.Algorithm
	privateKey []byte
}

func NewSecp256k1Signer() *Signer {
	return &Signer{algrithm: crypto.ALG_SECP256K1}
}

func (s *Signer) Algorithm() crypto.Algorithm {
	return s.algrithm
}

func (s *Signer) InitSigner(privateKey []byte) error {
	s.privateKey = privateKey
	return nil
}

func (s *Signer) Sign(data []byte) (*crypto.Signature, error) {
	if s.privateKey == nil {
		log.Warn("privateKey has not been set")
		return nil, errors.New("privateKey has not been set")
	}
	priv, err := toECDSA(s.privateKey)
	if err != nil {
		return nil, err
	}
	sig, err := ethcrypto.Sign(data, priv)
	if err != nil {
		log.Warn("signing error", "err", err)
		return nil, err
	}
	return &crypto.Signature{
		Algorithm: s.Algorithm(),
		Signature: sig,
	}, nil
}

// RecoverPublicKey recovers the signer's uncompressed public key from
// a digest and its recoverable (65-byte) signature.
func (s *Signer) RecoverPublicKey(data []byte, signature *crypto.Signature) ([]byte, error) {
	pk, err := ethcrypto.Ecrecover(data, signature.Signature)
	if err != nil {
		log.Warn("recover public key error", "err", err)
		return nil, err
	}
	return pk, nil
}

// Verify checks a 64-byte (R||S, no recovery id) signature against a
// known public key.
func (s *Signer) Verify(publicKey []byte, data []byte, signature *crypto.Signature) bool {
	sig := signature.Signature
	if len(sig) > 64 {
		sig = sig[:64]
	}
	return ethcrypto.VerifySignature(publicKey, data, sig)
}
