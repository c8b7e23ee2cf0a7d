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

// Package api is spec §6's HTTP client-submission endpoint: POST /tx
// takes a JSON-encoded signed TxReq and returns 202 with its req_hash;
// GET /tx/{req_hash} reports the client-visible lifecycle state the
// spec names - pending, committed(height), outdated, conflicted, or
// rejected(reason). Per spec §1 this endpoint is an external
// collaborator ("interfaces only"), so this package is deliberately
// thin: a Submitter/StatusLookup contract plus a net/http handler that
// does nothing but marshal JSON at the edge - node.go supplies the
// real implementations (core/pipeline.Pool and friends). No HTTP
// framework appears anywhere in the example pack, so net/http plus
// encoding/json is the grounded choice here, not a gap.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/holiman/uint256"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/types"
	"github.com/slimchain/slimchain/crypto"
)

// StatusKind is the client-visible lifecycle state of a submitted
// TxReq - spec §6's `{pending, committed(block_height), outdated,
// conflicted, rejected(reason)}`.
type StatusKind string

const (
	StatusPending    StatusKind = "pending"
	StatusCommitted  StatusKind = "committed"
	StatusOutdated   StatusKind = "outdated"
	StatusConflicted StatusKind = "conflicted"
	StatusRejected   StatusKind = "rejected"
	StatusUnknown    StatusKind = "unknown"
)

// Status answers GET /tx/{req_hash}. BlockHeight is only meaningful
// for StatusCommitted; Reason only for StatusRejected.
type Status struct {
	Kind        StatusKind `json:"status"`
	BlockHeight uint64     `json:"block_height,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// Submitter is what POST /tx calls into: hand the decoded TxReq to
// whatever forwards it to a storage node (rpc.Peer.Exec) and admits
// the resulting proposal to the mempool. It returns the req_hash the
// client polls GET /tx/{req_hash} with.
type Submitter interface {
	Submit(ctx context.Context, req *types.TxReq) (common.Hash, error)
}

// StatusLookup answers GET /tx/{req_hash}. Returns StatusUnknown if
// req_hash has never been seen.
type StatusLookup interface {
	Status(reqHash common.Hash) Status
}

// ErrInvalidSignature is returned by the POST /tx handler (HTTP 400)
// when a TxReq carries no signature. The signature bytes themselves are
// not verified, neither by the handler nor by node.Submit.
var ErrInvalidSignature = errors.New("api: invalid signature")

// Handler is the HTTP surface: POST /tx and GET /tx/{req_hash}.
type Handler struct {
	Submitter Submitter
	Status    StatusLookup
}

// NewHandler wires mux routes for POST /tx and GET /tx/{req_hash} onto
// a fresh http.ServeMux.
func NewHandler(submitter Submitter, status StatusLookup) http.Handler {
	h := &Handler{Submitter: submitter, Status: status}
	mux := http.NewServeMux()
	mux.HandleFunc("/tx", h.handleSubmit)
	mux.HandleFunc("/tx/", h.handleStatus)
	return mux
}

// wireTxReq is POST /tx's JSON body shape: hex strings in place of the
// byte-array types TxReq carries internally, since common.Address,
// common.Hash and crypto.Signature have no JSON marshaler of their own
// (they're wire-rlp types, not wire-json ones).
type wireTxReq struct {
	Caller    string `json:"caller"`
	Nonce     uint64 `json:"nonce"`
	GasLimit  uint64 `json:"gas_limit"`
	To        string `json:"to,omitempty"`
	Input     string `json:"input,omitempty"`
	Value     string `json:"value,omitempty"`
	SigAlg    uint8  `json:"sig_alg"`
	Signature string `json:"signature"`
}

func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil
	}
	return b
}

func (w *wireTxReq) toTxReq() (*types.TxReq, error) {
	caller := hexToBytes(w.Caller)
	if len(caller) != common.AddressLength {
		return nil, errors.New("api: malformed caller address")
	}
	var to *common.Address
	if w.To != "" {
		toBytes := hexToBytes(w.To)
		if len(toBytes) != common.AddressLength {
			return nil, errors.New("api: malformed to address")
		}
		t := common.BytesToAddress(toBytes)
		to = &t
	}
	value := uint256.NewInt(0)
	if w.Value != "" {
		valBytes := hexToBytes(w.Value)
		if valBytes == nil {
			return nil, errors.New("api: malformed value")
		}
		value.SetBytes(valBytes)
	}
	req := types.NewTxReq(common.BytesToAddress(caller), w.Nonce, w.GasLimit, to, hexToBytes(w.Input), value)
	if w.Signature != "" {
		sig := hexToBytes(w.Signature)
		if sig == nil {
			return nil, errors.New("api: malformed signature")
		}
		req.Sig = &crypto.Signature{Algorithm: crypto.Algorithm(w.SigAlg), Signature: sig}
	}
	return req, nil
}

// submitResponse is POST /tx's 202 body.
type submitResponse struct {
	ReqHash string `json:"req_hash"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var wire wireTxReq
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	req, err := wire.toTxReq()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Sig == nil {
		http.Error(w, ErrInvalidSignature.Error(), http.StatusBadRequest)
		return
	}
	reqHash, err := h.Submitter.Submit(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(submitResponse{ReqHash: reqHash.Hex()})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hexHash := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/tx/"), "0x")
	raw, err := hex.DecodeString(hexHash)
	if err != nil || len(raw) != common.HashLength {
		http.Error(w, "malformed req_hash", http.StatusBadRequest)
		return
	}
	status := h.Status.Status(common.BytesToHash(raw))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}
