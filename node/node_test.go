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

package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slimchain/slimchain/api"
	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/config"
	"github.com/slimchain/slimchain/core/pipeline"
	"github.com/slimchain/slimchain/core/types"
)

func testConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.DataDir = ""
	cfg.Network.HttpListen = ""
	cfg.Pow.InitDiff = 1
	cfg.Miner.MaxTxs = 10
	cfg.Miner.MinTxs = 1
	cfg.Miner.MaxBlockIntervalMs = 0
	return cfg
}

func TestSubmitThenCloseBlockCommits(t *testing.T) {
	nd, err := New(testConfig())
	require.NoError(t, err)

	caller := common.BytesToAddress([]byte("alice"))
	req := types.NewTxReq(caller, 0, 21000, nil, nil, nil)

	reqHash, err := nd.Submit(context.Background(), req)
	require.NoError(t, err)

	status := nd.Status(reqHash)
	require.Equal(t, api.StatusPending, status.Kind)

	cfg := pipeline.AssemblyConfig{MaxTxs: 10, MinTxs: 1, MaxBlockInterval: 0}
	require.NoError(t, nd.tryCloseBlock(cfg))

	status = nd.Status(reqHash)
	require.Equal(t, api.StatusCommitted, status.Kind)
	require.Equal(t, uint64(1), status.BlockHeight)

	height, _, _ := nd.consensus.Head()
	require.Equal(t, uint64(1), height)
}

func TestTryCloseBlockNoopWhenPoolEmpty(t *testing.T) {
	nd, err := New(testConfig())
	require.NoError(t, err)

	cfg := pipeline.AssemblyConfig{MaxTxs: 10, MinTxs: 1, MaxBlockInterval: 0}
	require.NoError(t, nd.tryCloseBlock(cfg))

	height, _, _ := nd.consensus.Head()
	require.Equal(t, uint64(0), height)
}

func TestStatusUnknownForUnseenReqHash(t *testing.T) {
	nd, err := New(testConfig())
	require.NoError(t, err)

	status := nd.Status(common.BytesToHash([]byte("unseen")))
	require.Equal(t, api.StatusUnknown, status.Kind)
}
