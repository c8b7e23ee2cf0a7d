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
	"errors"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/address"
	"github.com/slimchain/slimchain/crypto"
	"github.com/slimchain/slimchain/crypto/hash"
)

var (
	ErrNoSignature       = errors.New("types: tx request has no signature")
	ErrNoSigner          = errors.New("types: no signer registered for algorithm")
	ErrSignatureMismatch = errors.New("types: signature does not verify")
)

// rawTxReq is TxReq's RLP shape. To is encoded as a zero Address with
// a CreateTx flag rather than a pointer, since rlp has no native
// concept of "absent struct field".
type rawTxReq struct {
	Caller    common.Address
	Nonce     uint64
	GasLimit  uint64
	To        common.Address
	CreateTx  bool
	Input     []byte
	Value     []byte
	SigAlg    uint8
	Signature []byte
}

// TxReq is a client-submitted transaction request: a call (or
// contract creation) to execute against whatever state_root the
// receiving storage node is holding.
type TxReq struct {
	Caller   common.Address
	Nonce    uint64
	GasLimit uint64
	To       *common.Address // nil means contract creation
	Input    []byte
	Value    *uint256.Int
	Sig      *crypto.Signature

	hash atomic.Value
}

// NewTxReq builds an unsigned call request. A nil `to` marks a
// contract-creation request.
func NewTxReq(caller common.Address, nonce uint64, gasLimit uint64, to *common.Address, input []byte, value *uint256.Int) *TxReq {
	if value == nil {
		value = uint256.NewInt(0)
	}
	return &TxReq{Caller: caller, Nonce: nonce, GasLimit: gasLimit, To: to, Input: input, Value: value}
}

func (tx *TxReq) toRaw(withSig bool) *rawTxReq {
	raw := &rawTxReq{
		Caller:   tx.Caller,
		Nonce:    tx.Nonce,
		GasLimit: tx.GasLimit,
		Input:    tx.Input,
		Value:    tx.Value.Bytes(),
	}
	if tx.To != nil {
		raw.To = *tx.To
	} else {
		raw.CreateTx = true
	}
	if withSig && tx.Sig != nil {
		raw.SigAlg = uint8(tx.Sig.Algorithm)
		raw.Signature = tx.Sig.Signature
	}
	return raw
}

// Hash is the req_hash used to key mempool entries and ExecReq/
// ExecResp correlation; it covers every field except the signature
// itself.
func (tx *TxReq) Hash() common.Hash {
	if h := tx.hash.Load(); h != nil {
		return h.(common.Hash)
	}
	enc, err := rlp.EncodeToBytes(tx.toRaw(false))
	if err != nil {
		return common.Hash{}
	}
	h := common.BytesToHash(hash.Sha3256(enc))
	tx.hash.Store(h)
	return h
}

// Sign signs the request hash and attaches the resulting signature.
func (tx *TxReq) Sign(signer crypto.Signer) error {
	sig, err := signer.Sign(tx.Hash().Bytes())
	if err != nil {
		return err
	}
	tx.Sig = sig
	return nil
}

// VerifySig recovers the caller's public key from the signature and
// checks it both verifies and matches Caller.
func (tx *TxReq) VerifySig(signer crypto.Signer) error {
	if tx.Sig == nil {
		return ErrNoSignature
	}
	h := tx.Hash().Bytes()
	pubkey, err := signer.RecoverPublicKey(h, tx.Sig)
	if err != nil {
		return err
	}
	if !signer.Verify(pubkey, h, tx.Sig) {
		return ErrSignatureMismatch
	}
	addr, err := address.FromPublicKey(pubkey)
	if err != nil {
		return err
	}
	if addr.CommonAddress() != tx.Caller {
		return ErrSignatureMismatch
	}
	return nil
}

// Encode returns the canonical wire encoding, signature included.
func (tx *TxReq) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(tx.toRaw(true))
}

// DecodeTxReq parses a TxReq from its wire encoding.
func DecodeTxReq(enc []byte) (*TxReq, error) {
	raw := new(rawTxReq)
	if err := rlp.DecodeBytes(enc, raw); err != nil {
		return nil, err
	}
	tx := &TxReq{
		Caller:   raw.Caller,
		Nonce:    raw.Nonce,
		GasLimit: raw.GasLimit,
		Input:    raw.Input,
		Value:    new(uint256.Int).SetBytes(raw.Value),
	}
	if !raw.CreateTx {
		to := raw.To
		tx.To = &to
	}
	if len(raw.Signature) > 0 {
		tx.Sig = &crypto.Signature{Algorithm: crypto.Algorithm(raw.SigAlg), Signature: raw.Signature}
	}
	return tx, nil
}
