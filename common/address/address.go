// Copyright (C) 2017 gyee authors
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

// Package address renders the trie-level 20-byte common.Address as a
// checksummed, human-facing string used by the CLI/console and the
// client's key store. The trie and state layers never see this
// format; they only ever deal in common.Address.
package address

/*
The human-facing address format is:
```
1.  content = ripemd160(sha3_256(public key))
    length: 20 bytes
                            +--------+--------------+-----------+
2.  checksum = sha3_256(    |  type  |  network id  |  content  |   )[:4]
                            +--------+--------------+-----------+
    length: 4 bytes

                        +--------+--------------+-----------+------------+
3.  address = base58(   |  type  |  network id  |  content  |  checksum  |   )
                        +--------+--------------+-----------+------------+
    length: 26 bytes before base58 (1 type + 1 network id + 20 content + 4 checksum)
```
*/

import (
	"bytes"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/slimchain/slimchain/common"
	"github.com/slimchain/slimchain/crypto/hash"
	"github.com/slimchain/slimchain/crypto/secp256k1"
)

type AddressType byte

const (
	AddressTypeAccount AddressType = 0x01 + iota
	AddressTypeContract
)

const (
	AddressTypeIndex       = 0
	AddressTypeLength      = 1
	AddressNetworkIdIndex  = 1
	AddressNetworkIdLength = 1
	AddressContentIndex    = 2
	AddressContentLength   = common.AddressLength
	AddressChecksumIndex   = AddressContentIndex + AddressContentLength
	AddressChecksumLength  = 4
	AddressRawLength       = AddressTypeLength + AddressNetworkIdLength + AddressContentLength + AddressChecksumLength
	PublicKeyLength        = secp256k1.PublicKeyLength

	defaultNetworkID = 0x05
)

var (
	ErrInvalidAddressFormat   = errors.New("address: invalid address format")
	ErrInvalidAddressType     = errors.New("address: invalid address type")
	ErrInvalidAddressChecksum = errors.New("address: invalid address checksum")
)

// DisplayAddress is the checksummed, network-tagged wire/console form
// of a common.Address.
type DisplayAddress struct {
	Raw []byte
}

// FromPublicKey derives a client account's display address from its
// uncompressed secp256k1 public key.
func FromPublicKey(pubkey []byte) (*DisplayAddress, error) {
	if len(pubkey) != PublicKeyLength {
		return nil, errors.New("address: wrong public key length")
	}
	return newAddressFromPublicKey(AddressTypeAccount, pubkey)
}

// FromCommonAddress wraps a trie-level common.Address as a checksummed
// display address.
func FromCommonAddress(addr common.Address) *DisplayAddress {
	buffer := make([]byte, AddressRawLength)
	buffer[AddressTypeIndex] = byte(AddressTypeAccount)
	buffer[AddressNetworkIdIndex] = defaultNetworkID
	copy(buffer[AddressContentIndex:AddressChecksumIndex], addr[:])
	cs := checkSum(buffer[:AddressChecksumIndex])
	copy(buffer[AddressChecksumIndex:], cs)
	return &DisplayAddress{Raw: buffer}
}

// Bytes returns the raw (type || network || content || checksum) form.
func (a *DisplayAddress) Bytes() []byte {
	return a.Raw
}

// String renders the address as base58, matching the client console's
// copy/paste format.
func (a *DisplayAddress) String() string {
	return base58.Encode(a.Raw)
}

// CommonAddress extracts the trie-level 20-byte address.
func (a *DisplayAddress) CommonAddress() common.Address {
	return common.BytesToAddress(a.Raw[AddressContentIndex:AddressChecksumIndex])
}

func (a DisplayAddress) Copy() *DisplayAddress {
	addr := &DisplayAddress{Raw: make([]byte, AddressRawLength)}
	copy(addr.Raw, a.Raw)
	return addr
}

// Parse decodes a base58 console address string.
func Parse(s string) (*DisplayAddress, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, ErrInvalidAddressFormat
	}
	return ParseBytes(b)
}

// ParseBytes decodes the raw (type || network || content || checksum)
// form, verifying the checksum and type tag.
func ParseBytes(b []byte) (*DisplayAddress, error) {
	if len(b) != AddressRawLength || b[AddressNetworkIdIndex] != defaultNetworkID {
		return nil, ErrInvalidAddressFormat
	}

	switch AddressType(b[AddressTypeIndex]) {
	case AddressTypeAccount, AddressTypeContract:
	default:
		return nil, ErrInvalidAddressType
	}

	if !bytes.Equal(checkSum(b[:AddressChecksumIndex]), b[AddressChecksumIndex:]) {
		return nil, ErrInvalidAddressChecksum
	}

	return &DisplayAddress{Raw: b}, nil
}

func newAddressFromPublicKey(t AddressType, pubkey []byte) (*DisplayAddress, error) {
	buffer := make([]byte, AddressRawLength)
	buffer[AddressTypeIndex] = byte(t)
	buffer[AddressNetworkIdIndex] = defaultNetworkID
	sha := hash.Sha3256(pubkey)
	content := hash.Ripemd160(sha)
	copy(buffer[AddressContentIndex:AddressChecksumIndex], content)
	cs := checkSum(buffer[:AddressChecksumIndex])
	copy(buffer[AddressChecksumIndex:], cs)
	return &DisplayAddress{Raw: buffer}, nil
}

func checkSum(data []byte) []byte {
	return hash.Sha3256(data)[:AddressChecksumLength]
}
