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

package builder

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B1NARY-GR0UP/redolith/metadata"
	"github.com/B1NARY-GR0UP/redolith/parser"
	"github.com/B1NARY-GR0UP/redolith/transactions"
	"github.com/B1NARY-GR0UP/redolith/types"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var res []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		res = append(res, m)
	}
	return res
}

func TestBeginCommitMessages(t *testing.T) {
	var buf bytes.Buffer
	b, err := New(&buf, Formats{Xid: XidFormatTextDec}, nil)
	require.NoError(t, err)

	xid := types.NewXid(4, 2, 1576)
	require.NoError(t, b.Begin(0x100, 0, xid))
	require.NoError(t, b.Commit(0x104, 0, xid, false))
	require.NoError(t, b.Commit(0x105, 0, xid, true))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "start", lines[0]["OP"])
	assert.Equal(t, "commit", lines[1]["OP"])
	assert.Equal(t, "rollback", lines[2]["OP"])
	for _, line := range lines {
		assert.Equal(t, "4.2.1576", line["XID"])
	}
	assert.Equal(t, float64(0x100), lines[0]["SCN"])
}

func TestMessageSkipFlags(t *testing.T) {
	var buf bytes.Buffer
	b, err := New(&buf, Formats{Message: MessageFormatSkipBegin | MessageFormatSkipCommit}, nil)
	require.NoError(t, err)

	xid := types.NewXid(4, 2, 1576)
	require.NoError(t, b.Begin(0x100, 0, xid))
	require.NoError(t, b.Commit(0x104, 0, xid, false))
	assert.Zero(t, buf.Len())
}

func TestFullModeExcludesSkipFlags(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Formats{Message: MessageFormatFull | MessageFormatSkipBegin}, nil)
	require.Error(t, err)
}

func TestXidFormats(t *testing.T) {
	xid := types.NewXid(4, 2, 1576)
	tests := []struct {
		format uint8
		want   any
	}{
		{XidFormatTextHex, xid.Hex()},
		{XidFormatTextDec, "4.2.1576"},
		{XidFormatNumeric, float64(xid.Uint64())},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		b, err := New(&buf, Formats{Xid: tt.format}, nil)
		require.NoError(t, err)
		require.NoError(t, b.Begin(1, 0, xid))
		lines := decodeLines(t, &buf)
		assert.Equal(t, tt.want, lines[0]["XID"])
	}
}

func TestScnTextHex(t *testing.T) {
	var buf bytes.Buffer
	b, err := New(&buf, Formats{Scn: ScnFormatTextHex}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Begin(0x42, 0, types.NewXid(1, 1, 1)))

	lines := decodeLines(t, &buf)
	assert.Equal(t, "0x0000000000000042", lines[0]["SCN"])
}

func TestTimestampISO8601(t *testing.T) {
	var buf bytes.Buffer
	b, err := New(&buf, Formats{Timestamp: TimestampFormatISO8601}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Begin(1, types.Timestamp(60), types.NewXid(1, 1, 1)))

	lines := decodeLines(t, &buf)
	assert.Equal(t, "1988-01-01T00:01:00", lines[0]["TIMESTAMP"])
}

// buildInsertDouble parses a minimal 5.1/11.2 pair for row emission.
func buildInsertDouble(t *testing.T, xid types.Xid, obj uint32, cols ...[]byte) (undo, redo *parser.Vector) {
	t.Helper()

	vector := func(major, minor uint8, fields [][]byte) *parser.Vector {
		size := 32 + 2 + 2*len(fields)
		size = (size + 3) &^ 3
		for _, f := range fields {
			size += (len(f) + 3) &^ 3
		}
		buf := make([]byte, size)
		w := parser.NewByteWriter(buf)
		_ = w.WriteU8(major)
		_ = w.WriteU8(minor)
		_ = w.WriteU16(23)
		require.NoError(t, w.SetCursor(32))
		_ = w.WriteU16(uint16(2 + 2*len(fields)))
		for _, f := range fields {
			_ = w.WriteU16(uint16(len(f)))
		}
		w.AlignUp(4)
		for _, f := range fields {
			_ = w.WriteBytes(f)
			w.AlignUp(4)
		}
		v, err := parser.ParseVector(parser.NewByteReader(buf), parser.RedoVersion19_0)
		require.NoError(t, err)
		return v
	}

	ktudb := make([]byte, 20)
	binary.LittleEndian.PutUint16(ktudb[8:], xid.Usn)
	binary.LittleEndian.PutUint16(ktudb[10:], xid.Slot)
	binary.LittleEndian.PutUint32(ktudb[12:], xid.Seq)
	ktub := make([]byte, 24)
	binary.LittleEndian.PutUint32(ktub[0:], obj)
	binary.LittleEndian.PutUint32(ktub[4:], obj+1)
	ktub[16] = 11
	ktub[17] = 1
	ktb := make([]byte, 20)
	ktb[0] = parser.KtbOpF
	binary.LittleEndian.PutUint16(ktb[4:], xid.Usn)
	binary.LittleEndian.PutUint16(ktb[6:], xid.Slot)
	binary.LittleEndian.PutUint32(ktb[8:], xid.Seq)
	kdoUndo := make([]byte, 20)
	kdoUndo[10] = parser.OpDRP

	undo = vector(5, 1, [][]byte{ktudb, ktub, ktb, kdoUndo})

	kdoRedo := make([]byte, 48)
	kdoRedo[10] = parser.OpIRP
	kdoRedo[18] = uint8(len(cols))
	fields := [][]byte{ktb, kdoRedo}
	fields = append(fields, cols...)
	redo = vector(11, 2, fields)
	return undo, redo
}

func testSchema() *metadata.Schema {
	schema := metadata.NewSchema()
	schema.AddUser(7, "APP", 0)
	schema.AddObject(100, 101, 7, "ORDERS", 2, 0)
	schema.AddTable(100, 101, 4, 0, 0, 0)
	return schema
}

func TestRowMessage(t *testing.T) {
	meta := metadata.New("TESTDB", -1, types.ScnNull, 0)
	meta.SetSchema(testSchema())

	var buf bytes.Buffer
	b, err := New(&buf, Formats{Schema: SchemaFormatFull | SchemaFormatObj}, meta)
	require.NoError(t, err)

	xid := types.NewXid(4, 2, 1576)
	undo, redo := buildInsertDouble(t, xid, 100, []byte("hello"), []byte("42"))
	require.NoError(t, b.Row(transactions.RowOpInsert, 0x104, 0, xid, undo, redo))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "insert", line["OP"])
	assert.Equal(t, "ORDERS", line["TABLE"])
	assert.Equal(t, "APP", line["SCHEMA"])
	assert.Equal(t, float64(100), line["OBJ"])
	assert.Equal(t, float64(101), line["DATA_OBJ"])

	data, ok := line["DATA"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", data["COL0"])
	assert.Equal(t, "42", data["COL1"])
}

func TestRowMessageUnknownTableSkipped(t *testing.T) {
	meta := metadata.New("TESTDB", -1, types.ScnNull, 0)
	meta.SetSchema(testSchema())

	var buf bytes.Buffer
	b, err := New(&buf, Formats{}, meta)
	require.NoError(t, err)

	xid := types.NewXid(4, 2, 1576)
	undo, redo := buildInsertDouble(t, xid, 999, []byte("x"))
	require.NoError(t, b.Row(transactions.RowOpInsert, 0x104, 0, xid, undo, redo))
	assert.Zero(t, buf.Len())
}

func TestRowMessageHexColumns(t *testing.T) {
	var buf bytes.Buffer
	b, err := New(&buf, Formats{Char: CharFormatHex}, nil)
	require.NoError(t, err)

	xid := types.NewXid(4, 2, 1576)
	undo, redo := buildInsertDouble(t, xid, 100, []byte{0xDE, 0xAD})
	require.NoError(t, b.Row(transactions.RowOpInsert, 0x104, 0, xid, undo, redo))

	lines := decodeLines(t, &buf)
	data := lines[0]["DATA"].(map[string]any)
	assert.Equal(t, "dead", data["COL0"])
}

func TestSessionAttributes(t *testing.T) {
	var buf bytes.Buffer
	b, err := New(&buf, Formats{Attributes: AttributesFormatBegin | AttributesFormatCommit}, nil)
	require.NoError(t, err)

	b.Session(&parser.OpCode0520{
		SessionNumber:  4242,
		SerialNumber:   771,
		AuditSessionID: 99,
		LoginUsername:  "SCOTT",
	})

	xid := types.NewXid(4, 2, 1576)
	require.NoError(t, b.Begin(0x100, 0, xid))
	require.NoError(t, b.Commit(0x104, 0, xid, false))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	for _, line := range lines {
		attrs, ok := line["ATTRIBUTES"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(4242), attrs["SESSION"])
		assert.Equal(t, "SCOTT", attrs["USERNAME"])
	}
}

func TestSessionAttributesDisabled(t *testing.T) {
	var buf bytes.Buffer
	b, err := New(&buf, Formats{}, nil)
	require.NoError(t, err)

	b.Session(&parser.OpCode0520{SessionNumber: 1})
	require.NoError(t, b.Begin(0x100, 0, types.NewXid(1, 1, 1)))

	lines := decodeLines(t, &buf)
	_, ok := lines[0]["ATTRIBUTES"]
	assert.False(t, ok)
}
