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
	"fmt"

	"github.com/B1NARY-GR0UP/redolith/types"
)

// RecordHeaderExpansion is the 68-byte extension present when vld&0x04 is
// set, carrying record-count metadata and the record timestamp.
type RecordHeaderExpansion struct {
	RecordNum        uint16
	RecordNumMax     uint16
	RecordsCount     uint32
	RecordsScn       types.Scn
	Scn1             types.Scn
	Scn2             types.Scn
	RecordsTimestamp types.Timestamp
}

// RecordHeader frames one logical redo record.
type RecordHeader struct {
	RecordSize   uint32
	Vld          uint8
	Scn          types.RecordScn
	SubScn       uint16
	ContainerUID uint32 // populated for versions >= 12.1
	Expansion    *RecordHeaderExpansion
}

func (h RecordHeader) String() string {
	return fmt.Sprintf("Record size: %d VLD: %02X Record SCN: %v Sub SCN: %d", h.RecordSize, h.Vld, h.Scn, h.SubScn)
}

// ReadRecordHeader decodes the record header, branching on the database
// version and on the vld expansion bit.
func (r *ByteReader) ReadRecordHeader(version uint32) (RecordHeader, error) {
	if err := r.Validate(24); err != nil {
		return RecordHeader{}, err
	}

	var h RecordHeader
	h.RecordSize = r.U32()
	h.Vld = r.U8()
	r.Skip(1)
	wrap := r.U16()
	base := r.U32()
	h.Scn = types.ComposeRecordScn(wrap, base)
	h.SubScn = r.U16()
	r.Skip(2)

	if version >= RedoVersion12_1 {
		h.ContainerUID = r.U32()
		r.Skip(4)
	} else {
		r.Skip(8)
	}

	if h.Vld&0x04 != 0 {
		if err := r.Validate(68); err != nil {
			return RecordHeader{}, err
		}
		exp := &RecordHeaderExpansion{}
		exp.RecordNum = r.U16()
		exp.RecordNumMax = r.U16()
		exp.RecordsCount = r.U32()
		r.Skip(8)
		exp.RecordsScn = r.Scn()
		exp.Scn1 = r.Scn()
		exp.Scn2 = r.Scn()
		exp.RecordsTimestamp = r.Timestamp()
		r.Skip(24)
		h.Expansion = exp
	}

	return h, nil
}
