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

package transactions

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B1NARY-GR0UP/redolith/parser"
	"github.com/B1NARY-GR0UP/redolith/pool"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// buildVector assembles and parses one change vector for tests.
func buildVector(t *testing.T, major, minor uint8, fields [][]byte) *parser.Vector {
	t.Helper()

	size := 32 + 2 + 2*len(fields)
	size = (size + 3) &^ 3
	for _, f := range fields {
		size += (len(f) + 3) &^ 3
	}

	buf := make([]byte, size)
	w := parser.NewByteWriter(buf)
	_ = w.WriteU8(major)
	_ = w.WriteU8(minor)
	_ = w.WriteU16(23) // class
	w.Skip(30)
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

	r := parser.NewByteReader(buf)
	v, err := parser.ParseVector(r, parser.RedoVersion19_0)
	require.NoError(t, err)
	return v
}

func undoVector(t *testing.T, xid types.Xid, obj uint32) *parser.Vector {
	t.Helper()

	ktudb := make([]byte, 20)
	binary.LittleEndian.PutUint16(ktudb[8:], xid.Usn)
	binary.LittleEndian.PutUint16(ktudb[10:], xid.Slot)
	binary.LittleEndian.PutUint32(ktudb[12:], xid.Seq)

	ktub := make([]byte, 24)
	binary.LittleEndian.PutUint32(ktub[0:], obj)
	binary.LittleEndian.PutUint32(ktub[4:], obj)
	ktub[16] = 11
	ktub[17] = 1

	ktb := make([]byte, 20)
	ktb[0] = parser.KtbOpF
	binary.LittleEndian.PutUint16(ktb[4:], xid.Usn)
	binary.LittleEndian.PutUint16(ktb[6:], xid.Slot)
	binary.LittleEndian.PutUint32(ktb[8:], xid.Seq)

	kdo := make([]byte, 20)
	kdo[10] = parser.OpDRP

	return buildVector(t, 5, 1, [][]byte{ktudb, ktub, ktb, kdo})
}

func redoVector(t *testing.T, xid types.Xid, col0 []byte) *parser.Vector {
	t.Helper()

	ktb := make([]byte, 20)
	ktb[0] = parser.KtbOpF
	binary.LittleEndian.PutUint16(ktb[4:], xid.Usn)
	binary.LittleEndian.PutUint16(ktb[6:], xid.Slot)
	binary.LittleEndian.PutUint32(ktb[8:], xid.Seq)

	kdo := make([]byte, 48)
	kdo[10] = parser.OpIRP
	kdo[18] = 1 // cc

	return buildVector(t, 11, 2, [][]byte{ktb, kdo, col0})
}

type emitterEvent struct {
	kind     string
	op       RowOp
	scn      types.RecordScn
	xid      types.Xid
	rollback bool
	col0     []byte
}

type stubEmitter struct {
	events []emitterEvent
}

func (e *stubEmitter) Begin(scn types.RecordScn, _ types.Timestamp, xid types.Xid) error {
	e.events = append(e.events, emitterEvent{kind: "begin", scn: scn, xid: xid})
	return nil
}

func (e *stubEmitter) Row(op RowOp, scn types.RecordScn, _ types.Timestamp, xid types.Xid,
	_, redo *parser.Vector) error {
	info := redo.Info.(*parser.OpCode1102)
	col0, _ := info.Column(redo, 0)
	e.events = append(e.events, emitterEvent{kind: "row", op: op, scn: scn, xid: xid, col0: col0})
	return nil
}

func (e *stubEmitter) Commit(scn types.RecordScn, _ types.Timestamp, xid types.Xid, rollback bool) error {
	e.events = append(e.events, emitterEvent{kind: "commit", scn: scn, xid: xid, rollback: rollback})
	return nil
}

func TestCommitEmitsDoublesInOrder(t *testing.T) {
	p := pool.New(2, 8)
	emitter := &stubEmitter{}
	buffer := NewBuffer(p, emitter, Options{})
	defer buffer.Close()

	xid := types.NewXid(4, 2, 1576)
	buffer.OnBegin(xid, 0x100, 0)
	for _, col := range []string{"first", "second", "third"} {
		require.NoError(t, buffer.OnDouble(xid, undoVector(t, xid, 100), redoVector(t, xid, []byte(col))))
	}
	require.NoError(t, buffer.OnCommit(xid, 0x104, 0, false))

	require.Len(t, emitter.events, 5)
	assert.Equal(t, "begin", emitter.events[0].kind)
	assert.Equal(t, types.RecordScn(0x100), emitter.events[0].scn)
	for i, col := range []string{"first", "second", "third"} {
		ev := emitter.events[i+1]
		assert.Equal(t, "row", ev.kind)
		assert.Equal(t, RowOpInsert, ev.op)
		assert.Equal(t, []byte(col), ev.col0)
		assert.Equal(t, xid, ev.xid)
	}
	assert.Equal(t, "commit", emitter.events[4].kind)
	assert.False(t, emitter.events[4].rollback)

	assert.Zero(t, buffer.Size())
}

// The buffer must copy vector payloads: clearing the source bytes after
// OnDouble must not corrupt what is emitted at commit.
func TestDoublePayloadIsCopied(t *testing.T) {
	p := pool.New(2, 8)
	emitter := &stubEmitter{}
	buffer := NewBuffer(p, emitter, Options{})
	defer buffer.Close()

	xid := types.NewXid(4, 2, 1576)
	undo := undoVector(t, xid, 100)
	redo := redoVector(t, xid, []byte("payload"))
	require.NoError(t, buffer.OnDouble(xid, undo, redo))

	clear(undo.Data)
	clear(redo.Data)

	require.NoError(t, buffer.OnCommit(xid, 0x104, 0, false))
	require.Len(t, emitter.events, 3)
	assert.Equal(t, []byte("payload"), emitter.events[1].col0)
}

func TestRollbackEmitsNoRows(t *testing.T) {
	p := pool.New(2, 8)
	emitter := &stubEmitter{}
	buffer := NewBuffer(p, emitter, Options{})
	defer buffer.Close()

	xid := types.NewXid(4, 2, 1576)
	buffer.OnBegin(xid, 0x100, 0)
	require.NoError(t, buffer.OnDouble(xid, undoVector(t, xid, 100), redoVector(t, xid, []byte("x"))))
	require.NoError(t, buffer.OnCommit(xid, 0x104, 0, true))

	require.Len(t, emitter.events, 2)
	assert.Equal(t, "begin", emitter.events[0].kind)
	assert.Equal(t, "commit", emitter.events[1].kind)
	assert.True(t, emitter.events[1].rollback)
}

func TestSkipRollbackSuppressesEverything(t *testing.T) {
	p := pool.New(2, 8)
	emitter := &stubEmitter{}
	buffer := NewBuffer(p, emitter, Options{SkipRollback: true})
	defer buffer.Close()

	xid := types.NewXid(4, 2, 1576)
	buffer.OnBegin(xid, 0x100, 0)
	require.NoError(t, buffer.OnDouble(xid, undoVector(t, xid, 100), redoVector(t, xid, []byte("x"))))
	require.NoError(t, buffer.OnCommit(xid, 0x104, 0, true))

	assert.Empty(t, emitter.events)
	assert.Zero(t, buffer.Size())
}

func TestFindCreateIfAbsent(t *testing.T) {
	p := pool.New(2, 8)
	buffer := NewBuffer(p, &stubEmitter{}, Options{})
	defer buffer.Close()

	xid := types.NewXid(1, 2, 3)
	assert.Nil(t, buffer.Find(xid, false))
	tx := buffer.Find(xid, true)
	require.NotNil(t, tx)
	assert.Same(t, tx, buffer.Find(xid, false))
}

func TestManyDoublesSpanChunks(t *testing.T) {
	p := pool.New(2, 8)
	emitter := &stubEmitter{}
	buffer := NewBuffer(p, emitter, Options{})
	defer buffer.Close()

	xid := types.NewXid(4, 2, 1576)
	// each double is a few hundred bytes; push enough of them to outgrow
	// one 64 KiB transaction chunk
	const doubles = 300
	for i := 0; i < doubles; i++ {
		require.NoError(t, buffer.OnDouble(xid, undoVector(t, xid, 100), redoVector(t, xid, make([]byte, 200))))
	}
	assert.Equal(t, doubles, buffer.Find(xid, false).Doubles())

	require.NoError(t, buffer.OnCommit(xid, 0x200, 0, false))
	assert.Len(t, emitter.events, doubles+2)
}

func TestEmittedMarkAdvances(t *testing.T) {
	p := pool.New(2, 8)
	buffer := NewBuffer(p, &stubEmitter{}, Options{})
	defer buffer.Close()

	xid := types.NewXid(4, 2, 1576)
	buffer.OnBegin(xid, 0x100, 0)
	require.NoError(t, buffer.OnCommit(xid, 0x104, 0, false))
	assert.Equal(t, uint64(0x104), buffer.EmittedMark().DoneUntil())
}
