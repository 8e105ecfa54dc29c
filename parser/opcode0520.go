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
)

// OpCode0520 carries the session attributes of the committing session.
type OpCode0520 struct {
	SessionNumber  uint32
	SerialNumber   uint16
	Version        uint32
	AuditSessionID uint32
	LoginUsername  string
}

func (*OpCode0520) vectorInfo() {}

func parseOpCode0520(vr *VectorReader, version uint32) (*OpCode0520, error) {
	if vr.Header.FieldsCount != 8 {
		return nil, oerr.Parse("opcode 5.20: count of fields %d != 8", vr.Header.FieldsCount)
	}

	res := &OpCode0520{}

	// field 0: session and serial number; layout differs from 19.0 on
	field, _ := vr.Next()
	if version < RedoVersion19_0 {
		if len(field.Data()) < 4 {
			return nil, oerr.Parse("opcode 5.20: session field size %d < 4", len(field.Data()))
		}
		session, _ := field.ReadU16()
		res.SessionNumber = uint32(session)
		res.SerialNumber, _ = field.ReadU16()
	} else {
		if len(field.Data()) < 8 {
			return nil, oerr.Parse("opcode 5.20: session field size %d < 8", len(field.Data()))
		}
		field.Skip(2)
		res.SerialNumber, _ = field.ReadU16()
		res.SessionNumber, _ = field.ReadU32()
	}

	// field 1: unknown attribute
	vr.Next()

	// field 2: flags
	if field, _ = vr.Next(); len(field.Data()) < 6 {
		return nil, oerr.Parse("opcode 5.20: flags field size %d < 6", len(field.Data()))
	}

	// field 3: client version
	if field, _ = vr.Next(); len(field.Data()) < 4 {
		return nil, oerr.Parse("opcode 5.20: version field size %d < 4", len(field.Data()))
	}
	res.Version, _ = field.ReadU32()

	// field 4: audit session id
	if field, _ = vr.Next(); len(field.Data()) < 4 {
		return nil, oerr.Parse("opcode 5.20: audit session field size %d < 4", len(field.Data()))
	}
	res.AuditSessionID, _ = field.ReadU32()

	// fields 5, 6: unused, client id
	vr.Next()
	vr.Next()

	// field 7: login username
	field, _ = vr.Next()
	res.LoginUsername = string(field.Data())

	return res, nil
}
