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

// Package config is spec §6's TOML configuration surface: one struct
// per section (role, chain, miner, tee, network, pow, raft), with
// GetDefaultConfig returning the documented defaults and LoadFile
// overlaying a TOML file on top of them.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli"

	"github.com/slimchain/slimchain/utils"
)

// Role selects what a node does with the rest of this config -
// role.role in spec §6.
type Role string

const (
	RoleClient  Role = "client"
	RoleMiner   Role = "miner"
	RoleStorage Role = "storage"
)

// ConflictCheck selects core/pipeline's admission policy -
// chain.conflict_check in spec §6.
type ConflictCheck string

const (
	ConflictCheckSSI ConflictCheck = "ssi"
	ConflictCheckOCC ConflictCheck = "occ"
)

// ConsensusKind selects the consensus.Backend - chain.consensus.
type ConsensusKind string

const (
	ConsensusPoW  ConsensusKind = "pow"
	ConsensusRaft ConsensusKind = "raft"
)

// Config is the root TOML document; Name/DataDir are process-level,
// not part of any spec §6 section, kept from the teacher's top-level
// Config shape.
type Config struct {
	Name    string
	DataDir string

	Role    RoleConfig
	Chain   ChainConfig
	Miner   MinerConfig
	Tee     TeeConfig
	Network NetworkConfig
	Pow     PowConfig
	Raft    RaftConfig
}

// RoleConfig is spec §6's role.* section.
type RoleConfig struct {
	Role Role
}

// ChainConfig is spec §6's chain.* section.
type ChainConfig struct {
	ConflictCheck ConflictCheck
	StateLen      uint64
	Consensus     ConsensusKind
	Genesis       GenesisConfig
}

// GenesisAccount is one entry of chain.genesis.accounts: an account
// seeded into state before the height-0 block is ever assembled, the
// same role the teacher's core/genesis.go allocation list played for
// gyee's own chain bring-up.
type GenesisAccount struct {
	// Address is the 20-byte account address, hex-encoded with or
	// without a leading "0x".
	Address string
	Nonce   uint64
	// Code is the account's contract code, hex-encoded; empty for an
	// externally-owned account.
	Code string
}

// GenesisConfig is spec §6's chain.genesis section: the configured
// initial account set a node seeds into a freshly opened state before
// computing the genesis state_root.
type GenesisConfig struct {
	Accounts []GenesisAccount
}

// MinerConfig is spec §6's miner.* section.
type MinerConfig struct {
	MaxTxs            int
	MinTxs            int
	MaxBlockIntervalMs uint64
	CompressTrie      bool
}

// TeeConfig is spec §6's tee.* section.
type TeeConfig struct {
	ApiKey   string
	Spid     string
	Linkable bool
}

// NetworkConfig is spec §6's network.* section.
type NetworkConfig struct {
	Listen     string
	HttpListen string
	Keypair    string
	Mdns       bool
	Peers      []string
}

// PowConfig is spec §6's pow.* section.
type PowConfig struct {
	InitDiff uint64
}

// RaftConfig is spec §6's raft.* section.
type RaftConfig struct {
	ElectionTimeoutMinMs        uint64
	ElectionTimeoutMaxMs        uint64
	HeartbeatIntervalMs         uint64
	MaxPayloadEntries           int
	ReplicationLagThreshold     uint64
	SnapshotPolicyLogsSinceLast uint64
	SnapshotMaxChunkSize        int
}

// GetDefaultConfig returns spec §6's documented defaults. Every
// section is present and usable without a config file; LoadFile
// overlays a TOML document on top of this for any fields a node
// operator sets explicitly.
func GetDefaultConfig() *Config {
	return &Config{
		Name:    "slimchain",
		DataDir: utils.DefaultDataDir(),
		Role:    RoleConfig{Role: RoleClient},
		Chain: ChainConfig{
			ConflictCheck: ConflictCheckSSI,
			StateLen:      64,
			Consensus:     ConsensusPoW,
		},
		Miner: MinerConfig{
			MaxTxs:             256,
			MinTxs:             1,
			MaxBlockIntervalMs: 2000,
			CompressTrie:       true,
		},
		Network: NetworkConfig{
			Listen:     "/ip4/0.0.0.0/tcp/9000",
			HttpListen: "127.0.0.1:8080",
			Mdns:       false,
		},
		Pow: PowConfig{
			InitDiff: 5_000_000,
		},
		Raft: RaftConfig{
			ElectionTimeoutMinMs:        150,
			ElectionTimeoutMaxMs:        300,
			HeartbeatIntervalMs:         50,
			MaxPayloadEntries:           64,
			ReplicationLagThreshold:     128,
			SnapshotPolicyLogsSinceLast: 10_000,
			SnapshotMaxChunkSize:        1 << 20,
		},
	}
}

// LoadFile overlays the TOML document at path onto a fresh default
// config and returns it. Exit code 2 ("config error", spec §6's CLI
// surface) is the caller's concern - LoadFile just returns the error.
func LoadFile(path string) (*Config, error) {
	cfg := GetDefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// GetConfig builds a Config from CLI flags layered on top of the
// config file named by ConfigFileFlag (or the bare defaults if unset).
func GetConfig(ctx *cli.Context) (*Config, error) {
	var cfg *Config
	var err error
	if ctx.GlobalIsSet(ConfigFileFlag.Name) {
		cfg, err = LoadFile(ctx.GlobalString(ConfigFileFlag.Name))
		if err != nil {
			return nil, err
		}
	} else {
		cfg = GetDefaultConfig()
	}
	if ctx.GlobalIsSet(DataDirFlag.Name) {
		cfg.DataDir = ctx.GlobalString(DataDirFlag.Name)
	}
	return cfg, nil
}

// KeypairPath resolves network.keypair into an absolute path: a bare
// filename roots at DataDir, the same relative-path convention the
// teacher's config used for its IPC socket path.
func (c *Config) KeypairPath() string {
	if c.Network.Keypair == "" {
		return ""
	}
	if filepath.IsAbs(c.Network.Keypair) {
		return c.Network.Keypair
	}
	if c.DataDir == "" {
		return filepath.Join(os.TempDir(), c.Network.Keypair)
	}
	return filepath.Join(c.DataDir, c.Network.Keypair)
}
