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

package checkpoint

import (
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// State is the durable replication position: the highest commit SCN whose
// transaction has been fully emitted, plus the physical resume point.
type State struct {
	Scn         int64 `thrift:"scn,1" frugal:"1,default,i64" json:"scn"`
	Sequence    int32 `thrift:"sequence,2" frugal:"2,default,i32" json:"sequence"`
	BlockNumber int32 `thrift:"block_number,3" frugal:"3,default,i32" json:"block_number"`
	Offset      int32 `thrift:"offset,4" frugal:"4,default,i32" json:"offset"`
	Timestamp   int64 `thrift:"timestamp,5" frugal:"5,default,i64" json:"timestamp"`
}

var _ thrift.TStruct = (*State)(nil)

func (s *State) String() string {
	return fmt.Sprintf("State(scn=%d, sequence=%d, block=%d, offset=%d)", s.Scn, s.Sequence, s.BlockNumber, s.Offset)
}

func (s *State) Write(oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin("State"); err != nil {
		return thrift.PrependError("State write struct begin error: ", err)
	}

	for _, field := range []struct {
		name  string
		id    int16
		write func() error
	}{
		{"scn", 1, func() error { return oprot.WriteI64(s.Scn) }},
		{"sequence", 2, func() error { return oprot.WriteI32(s.Sequence) }},
		{"block_number", 3, func() error { return oprot.WriteI32(s.BlockNumber) }},
		{"offset", 4, func() error { return oprot.WriteI32(s.Offset) }},
		{"timestamp", 5, func() error { return oprot.WriteI64(s.Timestamp) }},
	} {
		typeID := thrift.TType(thrift.I32)
		if field.id == 1 || field.id == 5 {
			typeID = thrift.I64
		}
		if err := oprot.WriteFieldBegin(field.name, typeID, field.id); err != nil {
			return thrift.PrependError(fmt.Sprintf("State write field %s begin error: ", field.name), err)
		}
		if err := field.write(); err != nil {
			return thrift.PrependError(fmt.Sprintf("State write field %s error: ", field.name), err)
		}
		if err := oprot.WriteFieldEnd(); err != nil {
			return thrift.PrependError(fmt.Sprintf("State write field %s end error: ", field.name), err)
		}
	}

	if err := oprot.WriteFieldStop(); err != nil {
		return thrift.PrependError("State write field stop error: ", err)
	}
	if err := oprot.WriteStructEnd(); err != nil {
		return thrift.PrependError("State write struct end error: ", err)
	}
	return nil
}

func (s *State) Read(iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(); err != nil {
		return thrift.PrependError("State read struct begin error: ", err)
	}

	for {
		_, typeID, id, err := iprot.ReadFieldBegin()
		if err != nil {
			return thrift.PrependError("State read field begin error: ", err)
		}
		if typeID == thrift.STOP {
			break
		}

		switch {
		case id == 1 && typeID == thrift.I64:
			if s.Scn, err = iprot.ReadI64(); err != nil {
				return thrift.PrependError("State read scn error: ", err)
			}
		case id == 2 && typeID == thrift.I32:
			if s.Sequence, err = iprot.ReadI32(); err != nil {
				return thrift.PrependError("State read sequence error: ", err)
			}
		case id == 3 && typeID == thrift.I32:
			if s.BlockNumber, err = iprot.ReadI32(); err != nil {
				return thrift.PrependError("State read block_number error: ", err)
			}
		case id == 4 && typeID == thrift.I32:
			if s.Offset, err = iprot.ReadI32(); err != nil {
				return thrift.PrependError("State read offset error: ", err)
			}
		case id == 5 && typeID == thrift.I64:
			if s.Timestamp, err = iprot.ReadI64(); err != nil {
				return thrift.PrependError("State read timestamp error: ", err)
			}
		default:
			if err = iprot.Skip(typeID); err != nil {
				return thrift.PrependError("State skip field error: ", err)
			}
		}

		if err = iprot.ReadFieldEnd(); err != nil {
			return thrift.PrependError("State read field end error: ", err)
		}
	}

	if err := iprot.ReadStructEnd(); err != nil {
		return thrift.PrependError("State read struct end error: ", err)
	}
	return nil
}
