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

// Supported database major versions, as encoded in the redo-log header.
const (
	RedoVersion12_1 uint32 = 0x0C100000
	RedoVersion12_2 uint32 = 0x0C200000
	RedoVersion18_0 uint32 = 0x12000000
	RedoVersion19_0 uint32 = 0x13000000
	RedoVersion23_0 uint32 = 0x17000000
)

// KTUCM commit flag bits.
const (
	FlagKtucfOp0504   uint8 = 0x02
	FlagKtucfRollback uint8 = 0x02
)

// KTUB flag bits.
const (
	FlgMultiBlockUndoHead uint16 = 0x0001
	FlgMultiBlockUndoTail uint16 = 0x0002
	FlgLastBufferSplit    uint16 = 0x0004
	FlgBeginTrans         uint16 = 0x0008
	FlgUserUndoDone       uint16 = 0x0010
	FlgIsTempObject       uint16 = 0x0020
	FlgUserOnly           uint16 = 0x0040
	FlgTablespaceUndo     uint16 = 0x0080
	FlgMultiBlockUndoMid  uint16 = 0x0100

	flgMultiBlockUndo = FlgMultiBlockUndoHead | FlgMultiBlockUndoTail | FlgMultiBlockUndoMid
)

// KTB redo operations (low 4 bits of the first KTB byte).
const (
	KtbOpF uint8 = 0x01
	KtbOpC uint8 = 0x02
	KtbOpZ uint8 = 0x03
	KtbOpL uint8 = 0x04
	KtbOpR uint8 = 0x05
	KtbOpN uint8 = 0x06

	KtbOpBlockCleanout uint8 = 0x10
)

// KDO row operations (low 5 bits of the KDO op byte).
const (
	OpIUR uint8 = 0x01 // interpret undo redo
	OpIRP uint8 = 0x02 // insert row piece
	OpDRP uint8 = 0x03 // delete row piece
	OpLKR uint8 = 0x04 // lock row
	OpURP uint8 = 0x05 // update row piece
	OpORP uint8 = 0x06 // overwrite row piece
	OpMFC uint8 = 0x07
	OpCFA uint8 = 0x08 // change forwarding address
	OpCKI uint8 = 0x09 // change cluster key index
	OpSKL uint8 = 0x0A
	OpQMI uint8 = 0x0B // insert multiple rows
	OpQMD uint8 = 0x0C // delete multiple rows
	OpDSC uint8 = 0x0E
	OpLMN uint8 = 0x10
	OpLLB uint8 = 0x11
	Op019 uint8 = 0x13
	OpSHK uint8 = 0x14
	Op021 uint8 = 0x15
	OpCMP uint8 = 0x16
	OpDCU uint8 = 0x17
	OpMRK uint8 = 0x18

	OpRowDependencies uint8 = 0x40
)

var kdoOpNames = [...]string{
	"000", "IUR", "IRP", "DRP", "LKR", "URP", "ORP", "MFC", "CFA", "CKI",
	"SKL", "QMI", "QMD", "013", "DSC", "015", "LMN", "LLB", "018", "019",
	"SHK", "021", "CMP", "DCU", "MRK",
}

// KdoOpName names a KDO row operation for diagnostics.
func KdoOpName(op uint8) string {
	if int(op&0x1F) < len(kdoOpNames) {
		return kdoOpNames[op&0x1F]
	}
	return "unknown operation"
}
