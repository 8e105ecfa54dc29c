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

// OpCode0504 is the commit/rollback vector (KTUCM).
type OpCode0504 struct {
	Xid types.Xid
	Flg uint8
}

func (*OpCode0504) vectorInfo() {}

// Rollback discriminates rollback from commit.
func (o *OpCode0504) Rollback() bool {
	return o.Flg&FlagKtucfRollback != 0
}

func parseOpCode0504(vr *VectorReader) (*OpCode0504, error) {
	if vr.Header.FieldsCount < 1 || vr.Header.FieldsCount > 4 {
		return nil, oerr.Parse("opcode 5.4: count of fields %d not in [1; 4]", vr.Header.FieldsCount)
	}

	field, ok := vr.Next()
	if !ok {
		return nil, oerr.Parse("opcode 5.4: expect ktucm field")
	}
	cm, err := parseKtucm(vr, field)
	if err != nil {
		return nil, err
	}
	res := &OpCode0504{Xid: cm.Xid, Flg: cm.Flg}

	if vr.Header.FieldsCount < 2 {
		return res, nil
	}

	if res.Flg&FlagKtucfOp0504 != 0 {
		if field, ok = vr.Next(); !ok {
			return nil, oerr.Parse("opcode 5.4: expect ktucf field")
		}
		if err = parseKtucf(field); err != nil {
			return nil, err
		}
	}

	return res, nil
}
