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

// OpCode0502 is the begin-transaction/undo-header vector (KTUDH).
type OpCode0502 struct {
	Xid types.Xid
	Flg uint16
}

func (*OpCode0502) vectorInfo() {}

// Begun reports whether the undo header opens a new transaction.
func (o *OpCode0502) Begun() bool {
	return o.Flg&FlgBeginTrans != 0
}

func parseOpCode0502(vr *VectorReader, version uint32) (*OpCode0502, error) {
	if vr.Header.FieldsCount > 3 {
		return nil, oerr.Parse("opcode 5.2: count of fields %d > 3", vr.Header.FieldsCount)
	}

	field, ok := vr.Next()
	if !ok {
		return nil, oerr.Parse("opcode 5.2: expect ktudh field")
	}
	dh, err := parseKtudh(vr, field)
	if err != nil {
		return nil, err
	}
	res := &OpCode0502{Xid: dh.Xid, Flg: dh.Flg}

	if version >= RedoVersion12_1 {
		if field, ok = vr.Next(); ok {
			if len(field.Data()) == 4 {
				if err = parsePdb(field); err != nil {
					return nil, err
				}
			} else {
				if err = parseKteop(field); err != nil {
					return nil, err
				}
				if field, ok = vr.Next(); ok {
					if err = parsePdb(field); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return res, nil
}
