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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B1NARY-GR0UP/redolith/types"
)

// buildVector assembles the wire image of one change vector for a version
// >= 12.1 stream: 32-byte header, field-size array, then 4-aligned fields.
func buildVector(major, minor uint8, class uint16, fields [][]byte) []byte {
	size := 32 + 2 + 2*len(fields)
	size = (size + 3) &^ 3
	for _, f := range fields {
		size += (len(f) + 3) &^ 3
	}

	buf := make([]byte, size)
	w := NewByteWriter(buf)
	_ = w.WriteU8(major)
	_ = w.WriteU8(minor)
	_ = w.WriteU16(class)
	_ = w.WriteU16(1) // afn
	w.Skip(2)
	_ = w.WriteU32(0x00400123) // dba
	_ = w.WriteScn(0x1234)
	_ = w.WriteU8(1) // seq
	_ = w.WriteU8(0) // typ
	w.Skip(2)
	_ = w.WriteU16(0) // container id
	w.Skip(2)
	_ = w.WriteU16(0) // flag
	w.Skip(2)

	_ = w.WriteU16(uint16(2 + 2*len(fields)))
	for _, f := range fields {
		_ = w.WriteU16(uint16(len(f)))
	}
	w.AlignUp(4)
	for _, f := range fields {
		_ = w.WriteBytes(f)
		w.AlignUp(4)
	}
	return buf
}

// ktudhField builds the 32-byte KTUDH payload of a 5.2 vector.
func ktudhField(slot uint16, seq uint32, flg uint16) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint16(buf[0:], slot)
	binary.LittleEndian.PutUint32(buf[4:], seq)
	binary.LittleEndian.PutUint16(buf[16:], flg)
	return buf
}

// ktucmField builds the 20-byte KTUCM payload of a 5.4 vector.
func ktucmField(slot uint16, seq uint32, flg uint8) []byte {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint16(buf[0:], slot)
	binary.LittleEndian.PutUint32(buf[4:], seq)
	buf[16] = flg
	return buf
}

// ktudbField builds the 20-byte KTUDB payload of a 5.1 vector.
func ktudbField(xid types.Xid) []byte {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint16(buf[8:], xid.Usn)
	binary.LittleEndian.PutUint16(buf[10:], xid.Slot)
	binary.LittleEndian.PutUint32(buf[12:], xid.Seq)
	return buf
}

// ktubField builds the 24-byte KTUB payload of a 5.1 vector.
func ktubField(obj, dataObj uint32, opcMaj, opcMin uint8, flg uint16) []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf[0:], obj)
	binary.LittleEndian.PutUint32(buf[4:], dataObj)
	buf[16] = opcMaj
	buf[17] = opcMin
	binary.LittleEndian.PutUint16(buf[20:], flg)
	return buf
}

// ktbredoFField builds a KTB redo field with op F carrying the XID.
func ktbredoFField(xid types.Xid) []byte {
	buf := make([]byte, 20)
	buf[0] = KtbOpF
	binary.LittleEndian.PutUint16(buf[4:], xid.Usn)
	binary.LittleEndian.PutUint16(buf[6:], xid.Slot)
	binary.LittleEndian.PutUint32(buf[8:], xid.Seq)
	return buf
}

// kdoIrpField builds a 48-byte KDO field with the IRP row operation.
func kdoIrpField(bdba uint32, cc uint8, slot uint16, nulls byte) []byte {
	buf := make([]byte, 48)
	binary.LittleEndian.PutUint32(buf[0:], bdba)
	buf[10] = OpIRP
	buf[16] = 0x2C // fb: head, first, last
	buf[18] = cc
	binary.LittleEndian.PutUint16(buf[40:], 12) // size delta
	binary.LittleEndian.PutUint16(buf[42:], slot)
	buf[45] = nulls
	return buf
}

// kdoDrpField builds a 20-byte KDO field with the DRP row operation.
func kdoDrpField(bdba uint32, slot uint16) []byte {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint32(buf[0:], bdba)
	buf[10] = OpDRP
	binary.LittleEndian.PutUint16(buf[16:], slot)
	return buf
}

func parseTestVector(t *testing.T, data []byte) *Vector {
	t.Helper()
	r := NewByteReader(data)
	v, err := ParseVector(r, RedoVersion19_0)
	require.NoError(t, err)
	assert.Equal(t, len(data), r.Cursor())
	return v
}

func TestParseVector0502(t *testing.T) {
	// class 23 => usn (23-15)/2 = 4
	data := buildVector(5, 2, 23, [][]byte{ktudhField(2, 1576, FlgBeginTrans)})
	v := parseTestVector(t, data)

	info, ok := v.Info.(*OpCode0502)
	require.True(t, ok)
	assert.Equal(t, types.NewXid(4, 2, 1576), info.Xid)
	assert.True(t, info.Begun())

	xid, ok := v.Xid()
	require.True(t, ok)
	assert.Equal(t, info.Xid, xid)
}

func TestParseVector0504(t *testing.T) {
	commit := buildVector(5, 4, 23, [][]byte{ktucmField(2, 1576, 0x04)})
	v := parseTestVector(t, commit)
	info, ok := v.Info.(*OpCode0504)
	require.True(t, ok)
	assert.False(t, info.Rollback())

	rollback := buildVector(5, 4, 23, [][]byte{
		ktucmField(2, 1576, 0x02),
		make([]byte, 16), // ktucf
	})
	v = parseTestVector(t, rollback)
	info, ok = v.Info.(*OpCode0504)
	require.True(t, ok)
	assert.True(t, info.Rollback())
}

func TestParseVector0501Delete(t *testing.T) {
	xid := types.NewXid(4, 2, 1576)
	data := buildVector(5, 1, 17, [][]byte{
		ktudbField(xid),
		ktubField(100, 100, 11, 1, 0),
		ktbredoFField(xid),
		kdoDrpField(0x00400123, 5),
	})
	v := parseTestVector(t, data)

	info, ok := v.Info.(*OpCode0501)
	require.True(t, ok)
	assert.Equal(t, xid, info.Xid)
	assert.Equal(t, uint32(100), info.Obj)
	assert.Equal(t, OpDRP, info.Op&0x1F)
	assert.Equal(t, uint16(5), info.Slot)

	obj, ok := v.Obj()
	require.True(t, ok)
	assert.Equal(t, uint32(100), obj)
}

func TestParseVector1102Insert(t *testing.T) {
	xid := types.NewXid(4, 2, 1576)
	data := buildVector(11, 2, 1, [][]byte{
		ktbredoFField(xid),
		kdoIrpField(0x00400123, 2, 0, 0x00),
		[]byte("abc"),
		[]byte{0x01, 0x02},
	})
	v := parseTestVector(t, data)

	info, ok := v.Info.(*OpCode1102)
	require.True(t, ok)
	assert.Equal(t, xid, info.Xid)
	assert.Equal(t, uint8(2), info.Cc)
	assert.Equal(t, OpIRP, info.Op&0x1F)
	assert.Equal(t, 2, info.DataField)

	col0, null0 := info.Column(v, 0)
	require.False(t, null0)
	assert.Equal(t, []byte("abc"), col0)
	col1, null1 := info.Column(v, 1)
	require.False(t, null1)
	assert.Equal(t, []byte{0x01, 0x02}, col1)
}

func TestParseVector1102NullColumn(t *testing.T) {
	xid := types.NewXid(4, 2, 1576)
	data := buildVector(11, 2, 1, [][]byte{
		ktbredoFField(xid),
		kdoIrpField(0x00400123, 2, 0, 0x02), // column 1 is NULL
		[]byte("abc"),
		{},
	})
	v := parseTestVector(t, data)

	info := v.Info.(*OpCode1102)
	_, null0 := info.Column(v, 0)
	assert.False(t, null0)
	_, null1 := info.Column(v, 1)
	assert.True(t, null1)
}

// A vector with zero fields decodes and advances by exactly its header
// length rounded to 4.
func TestParseVectorZeroFields(t *testing.T) {
	data := buildVector(4, 1, 0, nil)
	v := parseTestVector(t, data)
	assert.Equal(t, (32+2+3)&^3, v.Size())
	assert.IsType(t, UnknownOpcode{}, v.Info)
}

func TestParseVectorBadFieldWord(t *testing.T) {
	data := buildVector(4, 1, 0, nil)
	// corrupt the field-size word (offset 32) to zero
	binary.LittleEndian.PutUint16(data[32:], 0)
	r := NewByteReader(data)
	_, err := ParseVector(r, RedoVersion19_0)
	assert.Error(t, err)
}

func TestVectorFieldAccess(t *testing.T) {
	fields := [][]byte{
		[]byte("one"),
		[]byte("four"),
		[]byte{0x07},
	}
	data := buildVector(4, 1, 0, fields)
	v := parseTestVector(t, data)

	for i, want := range fields {
		assert.Equal(t, want, v.Field(i))
	}
}

// Rebase keeps field access valid after the raw bytes are copied, as the
// transaction buffer does when it takes ownership of a double.
func TestVectorRebase(t *testing.T) {
	data := buildVector(4, 1, 0, [][]byte{[]byte("payload")})
	v := parseTestVector(t, data)

	copied := make([]byte, len(data))
	copy(copied, data)
	clear(data)
	v.Rebase(copied)

	assert.Equal(t, []byte("payload"), v.Field(0))
}

func TestParseVector0520Session(t *testing.T) {
	session := make([]byte, 8)
	binary.LittleEndian.PutUint16(session[2:], 771)  // serial
	binary.LittleEndian.PutUint32(session[4:], 4242) // session number
	version := make([]byte, 4)
	binary.LittleEndian.PutUint32(version, 19)
	auditID := make([]byte, 4)
	binary.LittleEndian.PutUint32(auditID, 99)

	data := buildVector(5, 20, 0, [][]byte{
		session,
		{},
		make([]byte, 6), // flags
		version,
		auditID,
		{},
		{},
		[]byte("SCOTT"),
	})
	v := parseTestVector(t, data)

	info, ok := v.Info.(*OpCode0520)
	require.True(t, ok)
	assert.Equal(t, uint32(4242), info.SessionNumber)
	assert.Equal(t, uint16(771), info.SerialNumber)
	assert.Equal(t, uint32(19), info.Version)
	assert.Equal(t, uint32(99), info.AuditSessionID)
	assert.Equal(t, "SCOTT", info.LoginUsername)
}
