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

// Package builder serializes committed transactions into framed JSON
// messages according to the configured format options.
package builder

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"

	"github.com/B1NARY-GR0UP/redolith/metadata"
	"github.com/B1NARY-GR0UP/redolith/metrics"
	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/parser"
	"github.com/B1NARY-GR0UP/redolith/pkg/bufferpool"
	"github.com/B1NARY-GR0UP/redolith/pkg/logger"
	"github.com/B1NARY-GR0UP/redolith/transactions"
	"github.com/B1NARY-GR0UP/redolith/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONBuilder emits one self-delimited JSON object per event. It serializes
// output internally; callers may invoke it from any number of goroutines.
type JSONBuilder struct {
	mu     sync.Mutex
	logger logger.Logger

	w       io.Writer
	formats Formats
	meta    *metadata.Metadata

	// session attributes of the transaction being emitted
	session *parser.OpCode0520
}

var (
	_ transactions.Emitter        = (*JSONBuilder)(nil)
	_ transactions.SessionEmitter = (*JSONBuilder)(nil)
)

// New wires the builder to its sink. The metadata handle resolves object ids
// to table names; it may be nil for schema-less streams.
func New(w io.Writer, formats Formats, meta *metadata.Metadata) (*JSONBuilder, error) {
	if err := formats.Validate(); err != nil {
		return nil, err
	}
	return &JSONBuilder{
		logger:  logger.GetLogger(),
		w:       w,
		formats: formats,
		meta:    meta,
	}, nil
}

type message struct {
	Op         string `json:"OP"`
	Scn        any    `json:"SCN"`
	Timestamp  any    `json:"TIMESTAMP"`
	Xid        any    `json:"XID"`
	Sequence   any    `json:"SEQUENCE,omitempty"`
	Schema     string `json:"SCHEMA,omitempty"`
	Table      string `json:"TABLE,omitempty"`
	Obj        any    `json:"OBJ,omitempty"`
	DataObj    any    `json:"DATA_OBJ,omitempty"`
	Rid        string `json:"RID,omitempty"`
	Data       any    `json:"DATA,omitempty"`
	Attributes any    `json:"ATTRIBUTES,omitempty"`
}

type sessionAttributes struct {
	SessionNumber  uint32 `json:"SESSION"`
	SerialNumber   uint16 `json:"SERIAL"`
	AuditSessionID uint32 `json:"AUDIT_SESSION_ID"`
	LoginUsername  string `json:"USERNAME,omitempty"`
}

// Session implements transactions.SessionEmitter: the attributes apply to
// the next transaction's messages.
func (b *JSONBuilder) Session(info *parser.OpCode0520) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = info
}

func (b *JSONBuilder) attributes(flag uint8) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.formats.Attributes&flag == 0 || b.session == nil {
		return nil
	}
	return sessionAttributes{
		SessionNumber:  b.session.SessionNumber,
		SerialNumber:   b.session.SerialNumber,
		AuditSessionID: b.session.AuditSessionID,
		LoginUsername:  b.session.LoginUsername,
	}
}

// Begin implements transactions.Emitter.
func (b *JSONBuilder) Begin(scn types.RecordScn, ts types.Timestamp, xid types.Xid) error {
	if b.formats.Message&MessageFormatSkipBegin != 0 {
		return nil
	}
	return b.write(message{
		Op:         "start",
		Scn:        b.scnValue(scn),
		Timestamp:  b.timestampValue(ts),
		Xid:        b.xidValue(xid),
		Attributes: b.attributes(AttributesFormatBegin),
	})
}

// Commit implements transactions.Emitter.
func (b *JSONBuilder) Commit(scn types.RecordScn, ts types.Timestamp, xid types.Xid, rollback bool) error {
	if b.formats.Message&MessageFormatSkipCommit != 0 {
		return nil
	}
	op := "commit"
	if rollback {
		op = "rollback"
	}
	return b.write(message{
		Op:         op,
		Scn:        b.scnValue(scn),
		Timestamp:  b.timestampValue(ts),
		Xid:        b.xidValue(xid),
		Attributes: b.attributes(AttributesFormatCommit),
	})
}

// Row implements transactions.Emitter: one framed message per row change.
func (b *JSONBuilder) Row(op transactions.RowOp, scn types.RecordScn, ts types.Timestamp, xid types.Xid,
	undo, redo *parser.Vector) error {
	undoInfo, ok := undo.Info.(*parser.OpCode0501)
	if !ok {
		return oerr.New(oerr.Internal, "row change without an undo vector view")
	}

	msg := message{
		Op:         op.String(),
		Scn:        b.scnValue(scn),
		Timestamp:  b.timestampValue(ts),
		Xid:        b.xidValue(xid),
		DataObj:    undoInfo.DataObj,
		Attributes: b.attributes(AttributesFormatDML),
	}

	if b.meta != nil {
		table, ok := b.meta.TableByObj(undoInfo.Obj)
		if !ok {
			b.logger.Warnf("no table with obj id %d, row skipped", undoInfo.Obj)
			return nil
		}
		msg.Table = table.Name
		if b.formats.Schema&SchemaFormatFull != 0 {
			msg.Schema = table.Owner
		}
		if b.formats.Schema&SchemaFormatObj != 0 {
			msg.Obj = undoInfo.Obj
		}
	} else {
		msg.Obj = undoInfo.Obj
	}

	if b.formats.Rid == RidFormatText {
		msg.Rid = b.ridValue(undo, undoInfo)
	}

	if redoInfo, ok := redo.Info.(*parser.OpCode1102); ok {
		msg.Data = b.insertColumns(redo, redoInfo)
	}

	return b.write(msg)
}

func (b *JSONBuilder) insertColumns(redo *parser.Vector, info *parser.OpCode1102) map[string]any {
	if info.Cc == 0 {
		return nil
	}
	cols := make(map[string]any, info.Cc)
	for i := 0; i < int(info.Cc); i++ {
		name := fmt.Sprintf("COL%d", i)
		data, isNull := info.Column(redo, i)
		if isNull {
			cols[name] = nil
			continue
		}
		cols[name] = b.charValue(data)
	}
	return cols
}

func (b *JSONBuilder) charValue(data []byte) any {
	switch b.formats.Char {
	case CharFormatHex:
		return hex.EncodeToString(data)
	case CharFormatNoMapping:
		return string(data)
	default:
		if utf8.Valid(data) {
			return string(data)
		}
		if b.formats.Unknown == UnknownFormatDump {
			return hex.EncodeToString(data)
		}
		return "?"
	}
}

func (b *JSONBuilder) scnValue(scn types.RecordScn) any {
	if b.formats.Scn == ScnFormatTextHex {
		return fmt.Sprintf("0x%016x", uint64(scn))
	}
	return uint64(scn)
}

func (b *JSONBuilder) xidValue(xid types.Xid) any {
	switch b.formats.Xid {
	case XidFormatTextDec:
		return xid.String()
	case XidFormatNumeric:
		return xid.Uint64()
	default:
		return xid.Hex()
	}
}

func (b *JSONBuilder) timestampValue(ts types.Timestamp) any {
	t := ts.Time()
	switch b.formats.Timestamp {
	case TimestampFormatUnixNano:
		return t.UnixNano()
	case TimestampFormatUnixMicro:
		return t.UnixMicro()
	case TimestampFormatUnixMilli:
		return t.UnixMilli()
	case TimestampFormatUnix:
		return t.Unix()
	case TimestampFormatUnixNanoString:
		return fmt.Sprintf("%d", t.UnixNano())
	case TimestampFormatUnixMicroString:
		return fmt.Sprintf("%d", t.UnixMicro())
	case TimestampFormatUnixMilliString:
		return fmt.Sprintf("%d", t.UnixMilli())
	case TimestampFormatUnixString:
		return fmt.Sprintf("%d", t.Unix())
	case TimestampFormatISO8601NanoTZ:
		return t.Format("2006-01-02T15:04:05.000000000Z07:00")
	case TimestampFormatISO8601MicroTZ:
		return t.Format("2006-01-02T15:04:05.000000Z07:00")
	case TimestampFormatISO8601MilliTZ:
		return t.Format("2006-01-02T15:04:05.000Z07:00")
	case TimestampFormatISO8601TZ:
		return t.Format("2006-01-02T15:04:05Z07:00")
	case TimestampFormatISO8601Nano:
		return t.Format("2006-01-02T15:04:05.000000000")
	case TimestampFormatISO8601Micro:
		return t.Format("2006-01-02T15:04:05.000000")
	case TimestampFormatISO8601Milli:
		return t.Format("2006-01-02T15:04:05.000")
	case TimestampFormatISO8601:
		return t.Format("2006-01-02T15:04:05")
	}
	return t.UnixNano()
}

func (b *JSONBuilder) ridValue(undo *parser.Vector, info *parser.OpCode0501) string {
	return fmt.Sprintf("%04x.%08x.%04x", undo.Header.Afn, info.Bdba, info.Slot)
}

func (b *JSONBuilder) write(msg message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return oerr.Wrap(err, oerr.FileSerialization, "can not serialize message")
	}

	buf := bufferpool.Pool.Get()
	defer bufferpool.Pool.Put(buf)
	buf.Write(data)
	buf.WriteByte('\n')

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err = b.w.Write(buf.Bytes()); err != nil {
		return oerr.Wrap(err, oerr.FileWriting, "can not write message to the sink")
	}
	metrics.MessagesEmitted.Inc()
	return nil
}
