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
	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// OpCode0501 is the undo-block redo vector: it names the transaction, the
// object, and mirrors the row operation being undone.
type OpCode0501 struct {
	Xid types.Xid

	// KTUB
	Obj     uint32
	DataObj uint32
	OpcMaj  uint8
	OpcMin  uint8
	Slt     uint16
	Flg     uint16

	// KDO
	Bdba     uint32
	Op       uint8
	Flags    uint8
	Slot     uint16
	Fb       types.Fb
	Cc       uint8
	SizeDelt uint16
	Nrow     uint8

	// field geometry for downstream row reconstruction
	KdoField    int
	NullsOffset int
	SlotsOffset int
	ColsField   int

	// supplemental-log columns, when present
	SuppLogCc      uint16
	SuppLogNumbers int
	SuppLogLengths int
	SuppLogCols    int
}

func (*OpCode0501) vectorInfo() {}

func parseOpCode0501(vr *VectorReader, version uint32) (*OpCode0501, error) {
	res := &OpCode0501{KdoField: -1, ColsField: -1, SuppLogNumbers: -1}

	field, ok := vr.Next()
	if !ok {
		return nil, oerr.Parse("opcode 5.1: expect ktudb field")
	}
	db, err := parseKtudb(field)
	if err != nil {
		return nil, err
	}
	res.Xid = db.Xid

	field, ok = vr.Next()
	if !ok {
		return res, nil
	}
	ub, err := parseKtub(field)
	if err != nil {
		return nil, err
	}
	res.Obj = ub.Obj
	res.DataObj = ub.DataObj
	res.OpcMaj = ub.OpcMaj
	res.OpcMin = ub.OpcMin
	res.Slt = ub.Slt
	res.Flg = ub.Flg

	if res.Flg&flgMultiBlockUndo != 0 || vr.Eof() {
		return res, nil
	}

	switch {
	case res.OpcMaj == 10 && res.OpcMin == 22:
		if field, ok = vr.Next(); !ok {
			return res, nil
		}
		if err = res.ktbredo(field); err != nil {
			return nil, err
		}
		if field, ok = vr.Next(); !ok {
			return nil, oerr.Parse("opcode 5.1: expect kdilk field")
		}
		if len(field.Data()) < 20 {
			return nil, oerr.Parse("KDILK field size %d < 20, dump:%s", len(field.Data()), field.HexDump())
		}
	case res.OpcMaj == 11 && res.OpcMin == 1:
		if field, ok = vr.Next(); !ok {
			return res, nil
		}
		if err = res.ktbredo(field); err != nil {
			return nil, err
		}
		if err = res.rowChange(vr, version); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (o *OpCode0501) ktbredo(r *ByteReader) error {
	kb, err := parseKtbredo(r)
	if err != nil {
		return err
	}
	if kb.HasXid {
		o.Xid = kb.Xid
	}
	return nil
}

// rowChange walks the KDO field and the per-op tail of an undo vector that
// mirrors a row operation.
func (o *OpCode0501) rowChange(vr *VectorReader, version uint32) error {
	kdoField := vr.Index()
	field, ok := vr.Next()
	if !ok {
		return oerr.Parse("opcode 5.1: expect kdo opcode field")
	}
	k, err := parseKdo(field)
	if err != nil {
		return err
	}
	o.KdoField = kdoField
	o.Bdba = k.Bdba
	o.Op = k.Op
	o.Flags = k.Flags
	o.Slot = k.Slot
	o.Fb = k.Fb
	o.Cc = k.Cc
	o.SizeDelt = k.SizeDelt
	o.NullsOffset = k.NullsOffset
	o.SlotsOffset = k.SlotsOffset
	o.Nrow = k.Nrow

	switch o.Op & 0x1F {
	case OpIRP, OpORP:
		if o.Cc > 0 {
			o.ColsField = vr.Index()
			for i := uint8(0); i < o.Cc; i++ {
				if _, ok = vr.Next(); !ok {
					return oerr.Parse("opcode 5.1: %s lacks %d column fields", KdoOpName(o.Op), o.Cc)
				}
			}
		}
		if o.Op&OpRowDependencies != 0 {
			return oerr.Parse("opcode 5.1: row dependencies are not supported for %s", KdoOpName(o.Op))
		}
		return o.suppLog(vr)
	case OpDRP:
		if o.Op&OpRowDependencies != 0 {
			return oerr.Parse("opcode 5.1: row dependencies are not supported for DRP")
		}
		return o.suppLog(vr)
	case OpURP:
		if o.Flags&0x80 != 0 {
			return oerr.Parse("opcode 5.1: compressed URP data is not supported")
		}
		if _, ok = vr.Next(); !ok { // sizes field
			return nil
		}
		o.ColsField = vr.Index()
		for i := uint8(0); i < o.Cc; i++ {
			if _, ok = vr.Next(); !ok {
				return oerr.Parse("opcode 5.1: URP lacks %d column fields", o.Cc)
			}
		}
		if o.Op&OpRowDependencies != 0 {
			return oerr.Parse("opcode 5.1: row dependencies are not supported for URP")
		}
		return o.suppLog(vr)
	case OpQMI:
		o.ColsField = vr.Index()
		if _, ok = vr.Next(); !ok { // row sizes
			return oerr.Parse("opcode 5.1: QMI lacks the row-size field")
		}
		if _, ok = vr.Next(); !ok { // row data
			return oerr.Parse("opcode 5.1: QMI lacks the row-data field")
		}
		return nil
	case OpLKR, OpLMN, OpCFA:
		return o.suppLog(vr)
	case OpSKL, OpQMD:
		return nil
	}
	return nil
}

// suppLog consumes the optional supplemental-log column group: a header
// field, column numbers, column lengths, then one field per column. Every
// part is optional; the walk stops at the first missing field.
func (o *OpCode0501) suppLog(vr *VectorReader) error {
	vr.SkipEmpty()

	field, ok := vr.Next()
	if !ok {
		return nil
	}
	if len(field.Data()) < 20 {
		return oerr.Parse("SuppLog field size %d < 20, dump:%s", len(field.Data()), field.HexDump())
	}
	field.Skip(2) // type, fb
	o.SuppLogCc, _ = field.ReadU16()

	if _, ok = vr.Next(); !ok {
		return nil
	}
	o.SuppLogNumbers = vr.Index() - 1

	if _, ok = vr.Next(); !ok {
		return nil
	}
	o.SuppLogLengths = vr.Index() - 1

	o.SuppLogCols = vr.Index()
	for i := uint16(0); i < o.SuppLogCc; i++ {
		if _, ok = vr.Next(); !ok {
			return nil
		}
	}
	return nil
}
