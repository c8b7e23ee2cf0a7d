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

package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/common/address"
	"github.com/slimchain/slimchain/common/trie"
	"github.com/slimchain/slimchain/log"
)

// TrieKeyValidators is the fixed key under which the Raft validator
// set is stored in a ConsensusTrie - a second, small trie alongside
// the account trie, committed as part of BlockHeader.Consensus for a
// chain.consensus = "raft" network.
const TrieKeyValidators = "Validators"

// ConsensusTrie holds consensus-internal state that isn't part of
// account state proper: currently just the Raft validator address
// list. A PoW chain never opens one.
type ConsensusTrie struct {
	db      *Database
	trie    *trie.Trie
	trieErr error
}

// NewConsensusTrie opens the consensus trie at root.
func NewConsensusTrie(root common.Hash, db *Database) (*ConsensusTrie, error) {
	ct := &ConsensusTrie{db: db}
	if err := ct.Reset(root); err != nil {
		return nil, err
	}
	return ct, nil
}

func (ct *ConsensusTrie) setTrieErr(err error) {
	if ct.trieErr == nil {
		ct.trieErr = err
	}
}

// Err returns the first error encountered by a Get/Set call, the
// pattern mirrored from the account trie's own sticky-error handling.
func (ct *ConsensusTrie) Err() error {
	return ct.trieErr
}

func (ct *ConsensusTrie) Reset(root common.Hash) error {
	tr, err := ct.db.OpenTrie(root)
	if err != nil {
		return err
	}
	ct.trie = tr
	return nil
}

func (ct *ConsensusTrie) Root() common.Hash {
	return ct.trie.Hash()
}

func (ct *ConsensusTrie) Commit() (common.Hash, error) {
	root, err := ct.trie.Commit(nil)
	if err != nil {
		return common.EmptyHash, err
	}
	if err := ct.db.TrieDB().Commit(); err != nil {
		return common.EmptyHash, err
	}
	return root, nil
}

// GetValidatorAddrs decodes the validator list as common.Addresses.
func (ct *ConsensusTrie) GetValidatorAddrs() []common.Address {
	strs := ct.GetValidators()
	if strs == nil {
		return nil
	}
	result := make([]common.Address, len(strs))
	for i, str := range strs {
		addr, err := address.Parse(str)
		if err != nil {
			log.Error("consensus trie: failed to parse validator address", "str", str, "err", err)
			continue
		}
		result[i] = addr.CommonAddress()
	}
	return result
}

// GetValidators returns the raft validator set's display-address
// strings, nil if unset or on error (check Err after).
func (ct *ConsensusTrie) GetValidators() []string {
	enc, err := ct.trie.TryGet([]byte(TrieKeyValidators))
	if err != nil {
		ct.setTrieErr(err)
		return nil
	}
	if len(enc) == 0 {
		return nil
	}
	var result []string
	if err := rlp.DecodeBytes(enc, &result); err != nil {
		ct.setTrieErr(err)
		return nil
	}
	return result
}

// SetValidators replaces the raft validator set.
func (ct *ConsensusTrie) SetValidators(validators []string) error {
	enc, err := rlp.EncodeToBytes(validators)
	if err != nil {
		return err
	}
	if err := ct.trie.TryUpdate([]byte(TrieKeyValidators), enc); err != nil {
		ct.setTrieErr(err)
		return err
	}
	return nil
}
