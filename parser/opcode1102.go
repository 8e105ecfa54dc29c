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

// OpCode1102 is the insert-row-piece redo vector: KTB redo reaffirming the
// transaction, a KDO opcode, then one field per column.
type OpCode1102 struct {
	Xid types.Xid

	Bdba     uint32
	Op       uint8
	Flags    uint8
	Fb       types.Fb
	Cc       uint8
	SizeDelt uint16
	Slot     uint16

	// field geometry for downstream row reconstruction
	KdoField    int
	NullsOffset int
	DataField   int
}

func (*OpCode1102) vectorInfo() {}

func parseOpCode1102(vr *VectorReader) (*OpCode1102, error) {
	res := &OpCode1102{KdoField: -1, DataField: -1}

	field, ok := vr.Next()
	if !ok {
		return nil, oerr.Parse("opcode 11.2: expect ktb redo field")
	}
	kb, err := parseKtbredo(field)
	if err != nil {
		return nil, err
	}
	if kb.HasXid {
		res.Xid = kb.Xid
	}

	kdoField := vr.Index()
	field, ok = vr.Next()
	if !ok {
		return res, nil
	}
	k, err := parseKdo(field)
	if err != nil {
		return nil, err
	}
	res.KdoField = kdoField
	res.Bdba = k.Bdba
	res.Op = k.Op
	res.Flags = k.Flags
	res.Fb = k.Fb
	res.Cc = k.Cc
	res.SizeDelt = k.SizeDelt
	res.Slot = k.Slot
	res.NullsOffset = k.NullsOffset

	res.DataField = vr.Index()
	if first, ok := vr.Next(); ok {
		if len(first.Data()) == int(res.SizeDelt) && res.Cc != 1 {
			return nil, oerr.Parse("opcode 11.2: compressed column data is not supported")
		}
		for i := 1; i < int(res.Cc); i++ {
			if _, ok = vr.Next(); !ok {
				return nil, oerr.Parse("opcode 11.2: expect %d column fields, got %d", res.Cc, i)
			}
		}
	}

	return res, nil
}

// NullBitmap reads the column null bitmap out of the vector's KDO field.
// Bit i set means column i is NULL.
func (o *OpCode1102) NullBitmap(v *Vector) []byte {
	if o.KdoField < 0 {
		return nil
	}
	kdoData := v.Field(o.KdoField)
	n := (int(o.Cc) + 7) / 8
	if o.NullsOffset+n > len(kdoData) {
		n = len(kdoData) - o.NullsOffset
	}
	if n <= 0 {
		return nil
	}
	return kdoData[o.NullsOffset : o.NullsOffset+n]
}

// Column returns the raw bytes of column i and whether it is NULL.
func (o *OpCode1102) Column(v *Vector, i int) ([]byte, bool) {
	nulls := o.NullBitmap(v)
	isNull := len(nulls) > i/8 && nulls[i/8]&(1<<(i&7)) != 0
	if o.DataField < 0 || o.DataField+i >= int(v.Header.FieldsCount) {
		return nil, isNull
	}
	return v.Field(o.DataField + i), isNull
}
