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

package tempstate

import (
	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/core/types"
)

// Record folds one TxProposal's write-set into the delta being built
// for the block it was included in.
func (d *Delta) Record(p *types.TxProposal) {
	for _, w := range p.AccountWrites {
		d.Accounts[w.Addr] = AccountDelta{Nonce: w.Nonce, Code: w.Code, CodeWrites: w.CodeWrites}
	}
	for _, w := range p.StorageWrites {
		d.Storage[common.StorageKey{Addr: w.Addr, Key: w.Key}] = w.Value
	}
}
