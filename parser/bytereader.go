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
	"math/bits"
	"strings"

	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// ByteReader is a non-owning cursor over a byte slice with an explicit endian
// mode. It is a lightweight value, freely copyable. The exported short-name
// accessors (U8, U16, ...) skip bounds checking and must be preceded by a
// Validate call; the Read* variants are checked and report parse errors with
// a hex dump of the region.
type ByteReader struct {
	data   []byte
	cursor int
	order  binary.ByteOrder
}

func NewByteReader(data []byte) *ByteReader {
	return &ByteReader{
		data:  data,
		order: binary.LittleEndian,
	}
}

func (r *ByteReader) Data() []byte {
	return r.data
}

func (r *ByteReader) Cursor() int {
	return r.cursor
}

func (r *ByteReader) Order() binary.ByteOrder {
	return r.order
}

func (r *ByteReader) SetOrder(order binary.ByteOrder) {
	r.order = order
}

func (r *ByteReader) ResetCursor() {
	r.cursor = 0
}

func (r *ByteReader) SetCursor(position int) error {
	if position > len(r.data) {
		return oerr.Parse("could not set cursor greater than buffer length")
	}
	r.cursor = position
	return nil
}

func (r *ByteReader) Skip(size int) {
	r.cursor = min(r.cursor+size, len(r.data))
}

// AlignUp rounds the cursor up to a power-of-two boundary.
func (r *ByteReader) AlignUp(size int) {
	if bits.OnesCount(uint(size)) != 1 {
		panic("alignment must be a power of two")
	}
	r.cursor = (r.cursor + size - 1) &^ (size - 1)
}

func (r *ByteReader) Eof() bool {
	return r.cursor >= len(r.data)
}

func (r *ByteReader) Remaining() int {
	return len(r.data) - r.cursor
}

// Validate reports a parse error when fewer than size bytes remain.
func (r *ByteReader) Validate(size int) error {
	if r.cursor+size > len(r.data) {
		return oerr.Parse("could not read %d bytes at %d, not enough bytes, dump:%s", size, r.cursor, r.HexDump())
	}
	return nil
}

func (r *ByteReader) U8() uint8 {
	v := r.data[r.cursor]
	r.cursor++
	return v
}

func (r *ByteReader) U16() uint16 {
	v := r.order.Uint16(r.data[r.cursor:])
	r.cursor += 2
	return v
}

func (r *ByteReader) U32() uint32 {
	v := r.order.Uint32(r.data[r.cursor:])
	r.cursor += 4
	return v
}

func (r *ByteReader) U64() uint64 {
	v := r.order.Uint64(r.data[r.cursor:])
	r.cursor += 8
	return v
}

func (r *ByteReader) ReadU8() (uint8, error) {
	if err := r.Validate(1); err != nil {
		return 0, err
	}
	return r.U8(), nil
}

func (r *ByteReader) ReadU16() (uint16, error) {
	if err := r.Validate(2); err != nil {
		return 0, err
	}
	return r.U16(), nil
}

func (r *ByteReader) ReadU32() (uint32, error) {
	if err := r.Validate(4); err != nil {
		return 0, err
	}
	return r.U32(), nil
}

func (r *ByteReader) ReadU64() (uint64, error) {
	if err := r.Validate(8); err != nil {
		return 0, err
	}
	return r.U64(), nil
}

func (r *ByteReader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *ByteReader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *ByteReader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *ByteReader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadBytes copies size bytes out of the buffer.
func (r *ByteReader) ReadBytes(size int) ([]byte, error) {
	if err := r.Validate(size); err != nil {
		return nil, err
	}
	res := make([]byte, size)
	copy(res, r.data[r.cursor:])
	r.cursor += size
	return res, nil
}

// Rba reads the 10-byte redo byte address; the offset is masked by 0x7FFF.
func (r *ByteReader) Rba() types.Rba {
	return types.NewRba(r.U32(), r.U32(), r.U16()&0x7FFF)
}

func (r *ByteReader) ReadRba() (types.Rba, error) {
	if err := r.Validate(10); err != nil {
		return types.Rba{}, err
	}
	return r.Rba(), nil
}

func (r *ByteReader) Uba() types.Uba {
	return types.Uba(r.U64())
}

func (r *ByteReader) ReadUba() (types.Uba, error) {
	if err := r.Validate(8); err != nil {
		return 0, err
	}
	return r.Uba(), nil
}

// Scn reads the 8-byte (base, wrap1, wrap2) on-disk SCN composition.
func (r *ByteReader) Scn() types.Scn {
	base := r.U32()
	wrap1 := r.U16()
	wrap2 := r.U16()
	return types.ComposeScn(base, wrap1, wrap2)
}

func (r *ByteReader) ReadScn() (types.Scn, error) {
	if err := r.Validate(8); err != nil {
		return 0, err
	}
	return r.Scn(), nil
}

func (r *ByteReader) Timestamp() types.Timestamp {
	return types.Timestamp(r.U32())
}

func (r *ByteReader) ReadTimestamp() (types.Timestamp, error) {
	if err := r.Validate(4); err != nil {
		return 0, err
	}
	return r.Timestamp(), nil
}

// HexDump renders the whole buffer as offset-prefixed hex rows with an ASCII
// gutter, for parse-error diagnostics.
func (r *ByteReader) HexDump() string {
	return hexDump(r.data)
}

// ErrorHexDump is like HexDump but names the offending region.
func (r *ByteReader) ErrorHexDump(start, size int) string {
	return fmt.Sprintf("%s\nbad region: [%d, %d)", hexDump(r.data), start, start+size)
}

func hexDump(data []byte) string {
	var sb strings.Builder
	sb.WriteString("\n                  00 01 02 03 04 05 06 07  08 09 0A 0B 0C 0D 0E 0F  10 11 12 13 14 15 16 17  18 19 1A 1B 1C 1D 1E 1F")
	for row := 0; row*32 < len(data); row++ {
		chunk := data[row*32:]
		if len(chunk) > 32 {
			chunk = chunk[:32]
		}
		fmt.Fprintf(&sb, "\n%016X: ", row*32)
		for i, b := range chunk {
			if i%8 == 7 {
				fmt.Fprintf(&sb, "%02X  ", b)
			} else {
				fmt.Fprintf(&sb, "%02X ", b)
			}
		}
		sb.WriteString(strings.Repeat(" ", 3*(32-len(chunk))+(32-len(chunk))/8+1))
		for _, b := range chunk {
			if b >= 0x20 && b < 0x7F {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
	}
	sb.WriteString("\n")
	return sb.String()
}
