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

package trie

// Canonical on-disk/on-wire encoding of a committed node. Every child
// reference inside a stored node has already been reduced to either a
// hashNode (pointer to another stored node) or a valueNode (inline
// leaf data) by the hasher before it reaches encodeNode; a stored node
// never embeds a raw fullNode/shortNode, which keeps the format flat
// and the decoder trivial.

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/slimchain/slimchain/common"
)

const (
	tagValue = 0x00
	tagHash  = 0x01
	tagShort = 0x02
	tagFull  = 0x03
	tagNil   = 0x04
)

func encodeNode(n node) []byte {
	var buf bytes.Buffer
	writeNode(&buf, n)
	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, n node) {
	switch n := n.(type) {
	case nil:
		buf.WriteByte(tagNil)
	case valueNode:
		buf.WriteByte(tagValue)
		writeBytes(buf, n)
	case hashNode:
		buf.WriteByte(tagHash)
		buf.Write(n[:])
	case *shortNode:
		buf.WriteByte(tagShort)
		writeBytes(buf, compactEncode(n.Key))
		writeNode(buf, n.Val)
	case *fullNode:
		buf.WriteByte(tagFull)
		for _, c := range n.Children {
			writeNode(buf, c)
		}
	default:
		panic(fmt.Sprintf("trie: cannot encode node of type %T", n))
	}
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(b)))
	buf.Write(lenBuf[:n])
	buf.Write(b)
}

// decodeNode parses a stored node's canonical encoding back into its
// in-memory shape. Children of shortNode/fullNode come back as
// hashNode or valueNode only; resolving a hashNode into a deeper
// shortNode/fullNode is the Database's job.
func decodeNode(buf []byte) (node, error) {
	n, rest, err := readNode(buf)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trie: %d trailing bytes after node", len(rest))
	}
	return n, nil
}

func readNode(buf []byte) (node, []byte, error) {
	if len(buf) == 0 {
		return nil, nil, fmt.Errorf("trie: empty node encoding")
	}
	tag, buf := buf[0], buf[1:]
	switch tag {
	case tagNil:
		return nil, buf, nil
	case tagValue:
		v, rest, err := readBytes(buf)
		if err != nil {
			return nil, nil, err
		}
		return valueNode(v), rest, nil
	case tagHash:
		if len(buf) < common.HashLength {
			return nil, nil, fmt.Errorf("trie: truncated hash node")
		}
		var h hashNode
		copy(h[:], buf[:common.HashLength])
		return h, buf[common.HashLength:], nil
	case tagShort:
		keyRaw, rest, err := readBytes(buf)
		if err != nil {
			return nil, nil, err
		}
		val, rest, err := readNode(rest)
		if err != nil {
			return nil, nil, err
		}
		return &shortNode{Key: compactDecode(keyRaw), Val: val}, rest, nil
	case tagFull:
		n := &fullNode{}
		rest := buf
		for i := 0; i < 17; i++ {
			var child node
			var err error
			child, rest, err = readNode(rest)
			if err != nil {
				return nil, nil, err
			}
			n.Children[i] = child
		}
		return n, rest, nil
	default:
		return nil, nil, fmt.Errorf("trie: unknown node tag %d", tag)
	}
}

func readBytes(buf []byte) ([]byte, []byte, error) {
	l, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, nil, fmt.Errorf("trie: bad length prefix")
	}
	buf = buf[n:]
	if uint64(len(buf)) < l {
		return nil, nil, fmt.Errorf("trie: truncated byte field")
	}
	return buf[:l], buf[l:], nil
}
