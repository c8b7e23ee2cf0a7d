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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/types"
)

type fakeSubmitter struct {
	lastReq *types.TxReq
	reqHash common.Hash
	err     error
}

func (f *fakeSubmitter) Submit(_ context.Context, req *types.TxReq) (common.Hash, error) {
	f.lastReq = req
	return f.reqHash, f.err
}

type fakeStatusLookup struct {
	status Status
}

func (f *fakeStatusLookup) Status(common.Hash) Status {
	return f.status
}

func TestSubmitAcceptsSignedRequest(t *testing.T) {
	sub := &fakeSubmitter{reqHash: common.BytesToHash([]byte("abc"))}
	handler := NewHandler(sub, &fakeStatusLookup{})

	caller := common.BytesToAddress([]byte("alice"))
	body := wireTxReq{
		Caller:    caller.Hex(),
		Nonce:     1,
		GasLimit:  21000,
		Input:     "0x",
		SigAlg:    1,
		Signature: "aabbcc",
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/tx", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, sub.lastReq)
	require.Equal(t, caller, sub.lastReq.Caller)
	require.Equal(t, uint64(1), sub.lastReq.Nonce)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, sub.reqHash.Hex(), resp.ReqHash)
}

func TestSubmitRejectsUnsignedRequest(t *testing.T) {
	sub := &fakeSubmitter{}
	handler := NewHandler(sub, &fakeStatusLookup{})

	caller := common.BytesToAddress([]byte("bob"))
	body := wireTxReq{Caller: caller.Hex(), Nonce: 1, GasLimit: 21000}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/tx", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, sub.lastReq)
}

func TestStatusReportsCommittedHeight(t *testing.T) {
	lookup := &fakeStatusLookup{status: Status{Kind: StatusCommitted, BlockHeight: 42}}
	handler := NewHandler(&fakeSubmitter{}, lookup)

	reqHash := common.BytesToHash([]byte("deadbeef"))
	req := httptest.NewRequest(http.MethodGet, "/tx/"+reqHash.Hex(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, StatusCommitted, status.Kind)
	require.Equal(t, uint64(42), status.BlockHeight)
}

func TestStatusRejectsMalformedHash(t *testing.T) {
	handler := NewHandler(&fakeSubmitter{}, &fakeStatusLookup{})
	req := httptest.NewRequest(http.MethodGet, "/tx/not-hex", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
