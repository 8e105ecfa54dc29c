// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/types"
)

const blockHeaderSize = 16

// BlockHeader is the 16-byte frame at the start of every on-disk block.
type BlockHeader struct {
	BlockFlag uint8
	FileType  uint8
	Rba       types.Rba
	Checksum  uint16
}

func (h BlockHeader) String() string {
	return fmt.Sprintf("Block header: 0x%02X%02X RBA: %v, Checksum: 0x%04X", h.BlockFlag, h.FileType, h.Rba, h.Checksum)
}

// ReadBlockHeader decodes the 16-byte block header at the cursor.
func (r *ByteReader) ReadBlockHeader() (BlockHeader, error) {
	if err := r.Validate(blockHeaderSize); err != nil {
		return BlockHeader{}, err
	}
	h := BlockHeader{
		BlockFlag: r.U8(),
		FileType:  r.U8(),
	}
	r.Skip(2)
	h.Rba = r.Rba()
	h.Checksum = r.U16()
	return h, nil
}

// BlockChecksum XOR-folds the block as 64-bit words, then folds high over
// low down to 16 bits. A correct block folds to zero because the stored
// checksum participates in the fold.
func BlockChecksum(block []byte, order binary.ByteOrder) uint16 {
	var checksum uint64
	for i := 0; i+8 <= len(block); i += 8 {
		checksum ^= order.Uint64(block[i:])
	}
	checksum = (checksum >> 32) ^ checksum
	checksum = (checksum >> 16) ^ checksum
	return uint16(checksum)
}

// ValidateBlock verifies the XOR-fold checksum of a full block.
func ValidateBlock(block []byte, order binary.ByteOrder) error {
	if residue := BlockChecksum(block, order); residue != 0 {
		stored := order.Uint16(block[14:16])
		return oerr.Parse("bad block, checksums are not equal: %d != %d, dump:%s",
			residue^stored, stored, hexDump(block[:min(len(block), 64)]))
	}
	return nil
}

// RedoLogHeader is the decoded content of block 1. Only the fields the redo
// format actually populates are declared.
type RedoLogHeader struct {
	BlockHeader     BlockHeader
	OracleVersion   uint32
	DatabaseID      uint32
	DatabaseName    string
	ControlSequence uint32
	FileSize        uint32
	FileNumber      uint16
	ActivationID    uint32
	Description     string
	BlocksCount     uint32
	ResetlogsID     types.Timestamp
}

// ReadRedoLogHeader decodes block 1 of a redo file.
func (r *ByteReader) ReadRedoLogHeader() (RedoLogHeader, error) {
	if err := r.Validate(164); err != nil {
		return RedoLogHeader{}, err
	}

	var h RedoLogHeader
	var err error
	if h.BlockHeader, err = r.ReadBlockHeader(); err != nil {
		return RedoLogHeader{}, err
	}
	r.Skip(4)
	h.OracleVersion = r.U32()
	h.DatabaseID = r.U32()
	name, _ := r.ReadBytes(8)
	h.DatabaseName = strings.TrimRight(string(name), "\x00 ")
	h.ControlSequence = r.U32()
	h.FileSize = r.U32()
	r.Skip(4)
	h.FileNumber = r.U16()
	r.Skip(2)
	h.ActivationID = r.U32()
	r.Skip(36)
	desc, _ := r.ReadBytes(64)
	h.Description = strings.TrimRight(string(desc), "\x00 ")
	h.BlocksCount = r.U32()
	h.ResetlogsID = r.Timestamp()
	return h, nil
}
