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
	"fmt"

	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// VectorHeader frames one change vector inside a redo record.
type VectorHeader struct {
	OpMajor   uint8
	OpMinor   uint8
	Class     uint16
	Afn       uint16 // absolute file number
	Dba       uint32
	VectorScn types.Scn
	Seq       uint8 // sequence number
	Typ       uint8 // change type

	// container fields, versions >= 12.1 only
	ContainerID uint16
	Flag        uint16

	FieldsCount uint16
	FieldsSizes []uint16
}

// OpCode packs the vector type as (major<<8)|minor.
func (h *VectorHeader) OpCode() uint16 {
	return uint16(h.OpMajor)<<8 | uint16(h.OpMinor)
}

func (h *VectorHeader) String() string {
	return fmt.Sprintf("OpCode: %d.%d Class: %d AFN: %d DBA: %d SCN: %v SEQ: %d TYP: %d Fields: %d",
		h.OpMajor, h.OpMinor, h.Class, h.Afn, h.Dba, h.VectorScn, h.Seq, h.Typ, h.FieldsCount)
}

// ReadVectorHeader decodes the vector header, including the version >= 12.1
// container extension and the per-field size array. The size-prefix word
// must be at least 2; the field count is (word-2)/2.
func (r *ByteReader) ReadVectorHeader(version uint32) (VectorHeader, error) {
	headerSize := 24 + 2
	if version >= RedoVersion12_1 {
		headerSize += 8
	}
	if err := r.Validate(headerSize); err != nil {
		return VectorHeader{}, err
	}

	var h VectorHeader
	h.OpMajor = r.U8()
	h.OpMinor = r.U8()
	h.Class = r.U16()
	h.Afn = r.U16()
	r.Skip(2)
	h.Dba = r.U32()
	h.VectorScn = r.Scn()
	h.Seq = r.U8()
	h.Typ = r.U8()
	r.Skip(2)

	if version >= RedoVersion12_1 {
		h.ContainerID = r.U16()
		r.Skip(2)
		h.Flag = r.U16()
		r.Skip(2)
	}

	word := r.U16()
	if word < 2 || word%2 != 0 {
		return VectorHeader{}, oerr.Parse("invalid vector field-size word: %d, dump:%s", word, r.HexDump())
	}
	h.FieldsCount = (word - 2) / 2
	h.FieldsSizes = make([]uint16, h.FieldsCount)
	for i := range h.FieldsSizes {
		size, err := r.ReadU16()
		if err != nil {
			return VectorHeader{}, err
		}
		h.FieldsSizes[i] = size
	}

	return h, nil
}

// VectorReader iterates the pre-sized fields of one vector body in order.
// Fields are padded to 4-byte alignment within the body.
type VectorReader struct {
	Header *VectorHeader
	data   []byte

	currentPos   int
	currentField int
}

func NewVectorReader(header *VectorHeader, data []byte) *VectorReader {
	return &VectorReader{Header: header, data: data}
}

func (vr *VectorReader) Reset() {
	vr.currentPos = 0
	vr.currentField = 0
}

func (vr *VectorReader) Eof() bool {
	return vr.currentField >= int(vr.Header.FieldsCount)
}

// Next returns a reader over the next field, or false at the end.
func (vr *VectorReader) Next() (*ByteReader, bool) {
	if vr.Eof() {
		return nil, false
	}
	size := int(vr.Header.FieldsSizes[vr.currentField])
	field := NewByteReader(vr.data[vr.currentPos : vr.currentPos+size])
	vr.currentPos += (size + 3) &^ 3
	vr.currentField++
	return field, true
}

// Index reports the index of the next field Next will return.
func (vr *VectorReader) Index() int {
	return vr.currentField
}

// SkipEmpty advances over zero-sized fields, returning how many were skipped.
func (vr *VectorReader) SkipEmpty() int {
	var n int
	for !vr.Eof() && vr.Header.FieldsSizes[vr.currentField] == 0 {
		vr.currentField++
		n++
	}
	return n
}

// FieldNth returns a reader over field n without moving the iterator.
func (vr *VectorReader) FieldNth(n int) *ByteReader {
	var pos int
	for i := 0; i < n; i++ {
		pos += (int(vr.Header.FieldsSizes[i]) + 3) &^ 3
	}
	return NewByteReader(vr.data[pos : pos+int(vr.Header.FieldsSizes[n])])
}

// VectorInfo is the opcode-specific decoded content of a vector.
type VectorInfo interface {
	vectorInfo()
}

// UnknownOpcode marks vectors whose opcode has no dedicated handler; they
// decode structurally (header plus sized fields) and are skipped logically.
type UnknownOpcode struct{}

func (UnknownOpcode) vectorInfo() {}

// Vector is one fully decoded change vector. Data holds the vector's raw
// bytes (header plus aligned fields); Info the opcode-specific view. Field
// offsets inside Info are relative to field starts, so a Vector stays valid
// when Data is copied elsewhere, as the transaction buffer does.
type Vector struct {
	Header VectorHeader
	Data   []byte
	Info   VectorInfo

	bodyOffset int
}

// Size is the number of record bytes the vector occupied.
func (v *Vector) Size() int {
	return len(v.Data)
}

// OpCode packs the vector type as (major<<8)|minor.
func (v *Vector) OpCode() uint16 {
	return v.Header.OpCode()
}

// Field returns the raw bytes of field n.
func (v *Vector) Field(n int) []byte {
	pos := v.bodyOffset
	for i := 0; i < n; i++ {
		pos += (int(v.Header.FieldsSizes[i]) + 3) &^ 3
	}
	return v.Data[pos : pos+int(v.Header.FieldsSizes[n])]
}

// Rebase repoints the vector at a copied image of its raw bytes.
func (v *Vector) Rebase(data []byte) {
	v.Data = data
}

// Xid reports the transaction id carried by the vector, if any.
func (v *Vector) Xid() (types.Xid, bool) {
	switch info := v.Info.(type) {
	case *OpCode0501:
		return info.Xid, true
	case *OpCode0502:
		return info.Xid, true
	case *OpCode0504:
		return info.Xid, true
	case *OpCode1102:
		return info.Xid, true
	}
	return types.Xid{}, false
}

// Obj reports the object id carried by the vector, if any.
func (v *Vector) Obj() (uint32, bool) {
	if info, ok := v.Info.(*OpCode0501); ok {
		return info.Obj, true
	}
	return 0, false
}

// ParseVector decodes the vector at the reader cursor: header, then the
// opcode-specific field walk. The returned vector's Data covers the header
// and the 4-aligned field area.
func ParseVector(r *ByteReader, version uint32) (*Vector, error) {
	start := r.Cursor()

	header, err := r.ReadVectorHeader(version)
	if err != nil {
		return nil, err
	}
	r.AlignUp(4)

	var bodySize int
	for _, size := range header.FieldsSizes {
		bodySize += (int(size) + 3) &^ 3
	}
	if err = r.Validate(bodySize); err != nil {
		return nil, err
	}

	bodyOffset := r.Cursor() - start
	vr := NewVectorReader(&header, r.Data()[r.Cursor():r.Cursor()+bodySize])
	r.Skip(bodySize)

	v := &Vector{
		Header:     header,
		Data:       r.Data()[start:r.Cursor()],
		bodyOffset: bodyOffset,
	}

	switch {
	case header.OpMajor == 5 && header.OpMinor == 1:
		v.Info, err = parseOpCode0501(vr, version)
	case header.OpMajor == 5 && header.OpMinor == 2:
		v.Info, err = parseOpCode0502(vr, version)
	case header.OpMajor == 5 && header.OpMinor == 4:
		v.Info, err = parseOpCode0504(vr)
	case header.OpMajor == 5 && header.OpMinor == 20:
		v.Info, err = parseOpCode0520(vr, version)
	case header.OpMajor == 11 && header.OpMinor == 2:
		v.Info, err = parseOpCode1102(vr)
	default:
		v.Info = UnknownOpcode{}
	}
	if err != nil {
		return nil, err
	}

	return v, nil
}
