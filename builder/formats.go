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

package builder

import "github.com/B1NARY-GR0UP/redolith/oerr"

// Format option values. Each option parameterizes one aspect of the emitted
// message stream.
const (
	DBFormatDefault uint8 = 0
	DBFormatAddDML  uint8 = 1
	DBFormatAddDDL  uint8 = 2

	AttributesFormatDefault uint8 = 0
	AttributesFormatBegin   uint8 = 1
	AttributesFormatDML     uint8 = 2
	AttributesFormatCommit  uint8 = 4

	IntervalDtsFormatUnixNano        uint8 = 0
	IntervalDtsFormatUnixMicro       uint8 = 1
	IntervalDtsFormatUnixMilli       uint8 = 2
	IntervalDtsFormatUnix            uint8 = 3
	IntervalDtsFormatUnixNanoString  uint8 = 4
	IntervalDtsFormatUnixMicroString uint8 = 5
	IntervalDtsFormatUnixMilliString uint8 = 6
	IntervalDtsFormatUnixString      uint8 = 7
	IntervalDtsFormatISO8601Space    uint8 = 8
	IntervalDtsFormatISO8601Comma    uint8 = 9
	IntervalDtsFormatISO8601Dash     uint8 = 10

	IntervalYtmFormatMonths        uint8 = 0
	IntervalYtmFormatMonthsString  uint8 = 1
	IntervalYtmFormatStringYMSpace uint8 = 2
	IntervalYtmFormatStringYMComma uint8 = 3
	IntervalYtmFormatStringYMDash  uint8 = 4

	MessageFormatDefault      uint8 = 0
	MessageFormatFull         uint8 = 1
	MessageFormatAddSequences uint8 = 2
	MessageFormatSkipBegin    uint8 = 4
	MessageFormatSkipCommit   uint8 = 8
	MessageFormatAddOffset    uint8 = 16

	RidFormatSkip uint8 = 0
	RidFormatText uint8 = 1

	XidFormatTextHex uint8 = 0
	XidFormatTextDec uint8 = 1
	XidFormatNumeric uint8 = 2

	TimestampFormatUnixNano        uint8 = 0
	TimestampFormatUnixMicro       uint8 = 1
	TimestampFormatUnixMilli       uint8 = 2
	TimestampFormatUnix            uint8 = 3
	TimestampFormatUnixNanoString  uint8 = 4
	TimestampFormatUnixMicroString uint8 = 5
	TimestampFormatUnixMilliString uint8 = 6
	TimestampFormatUnixString      uint8 = 7
	TimestampFormatISO8601NanoTZ   uint8 = 8
	TimestampFormatISO8601MicroTZ  uint8 = 9
	TimestampFormatISO8601MilliTZ  uint8 = 10
	TimestampFormatISO8601TZ       uint8 = 11
	TimestampFormatISO8601Nano     uint8 = 12
	TimestampFormatISO8601Micro    uint8 = 13
	TimestampFormatISO8601Milli    uint8 = 14
	TimestampFormatISO8601         uint8 = 15

	TimestampTzFormatUnixNanoString  uint8 = 0
	TimestampTzFormatUnixMicroString uint8 = 1
	TimestampTzFormatUnixMilliString uint8 = 2
	TimestampTzFormatUnixString      uint8 = 3
	TimestampTzFormatISO8601NanoTZ   uint8 = 4
	TimestampTzFormatISO8601MicroTZ  uint8 = 5
	TimestampTzFormatISO8601MilliTZ  uint8 = 6
	TimestampTzFormatISO8601TZ       uint8 = 7
	TimestampTzFormatISO8601Nano     uint8 = 8
	TimestampTzFormatISO8601Micro    uint8 = 9
	TimestampTzFormatISO8601Milli    uint8 = 10
	TimestampTzFormatISO8601         uint8 = 11

	CharFormatUTF8      uint8 = 0
	CharFormatNoMapping uint8 = 1
	CharFormatHex       uint8 = 2

	ScnFormatNumeric uint8 = 0
	ScnFormatTextHex uint8 = 1

	ScnJustBegin      uint8 = 0
	ScnAllPayloads    uint8 = 1
	ScnAllCommitValue uint8 = 2

	SchemaFormatName     uint8 = 0
	SchemaFormatFull     uint8 = 1
	SchemaFormatRepeated uint8 = 2
	SchemaFormatObj      uint8 = 4

	ColumnFormatChanged    uint8 = 0
	ColumnFormatFullInsDel uint8 = 1
	ColumnFormatFullUpd    uint8 = 2

	UnknownFormatQuestionMark uint8 = 0
	UnknownFormatDump         uint8 = 1

	UnknownTypeHide uint8 = 0
	UnknownTypeShow uint8 = 1
)

// Formats is the full set of output format options.
type Formats struct {
	DB          uint8
	Attributes  uint8
	IntervalDts uint8
	IntervalYtm uint8
	Message     uint8
	Rid         uint8
	Xid         uint8
	Timestamp   uint8
	TimestampTz uint8
	Char        uint8
	Scn         uint8
	ScnAll      uint8
	Unknown     uint8
	Schema      uint8
	Column      uint8
	UnknownType uint8
}

// Validate rejects option combinations the message framing cannot express.
func (f *Formats) Validate() error {
	if f.Message&MessageFormatFull != 0 &&
		f.Message&(MessageFormatSkipBegin|MessageFormatSkipCommit) != 0 {
		return oerr.New(oerr.NotValidField,
			"format option 'message' (%d): full mode excludes the skip-begin/skip-commit flags", f.Message)
	}
	if f.DB > DBFormatAddDDL|DBFormatAddDML {
		return oerr.New(oerr.NotValidField, "format option 'db' (%d) expected: one of {0 .. 3}", f.DB)
	}
	if f.Xid > XidFormatNumeric {
		return oerr.New(oerr.NotValidField, "format option 'xid' (%d) expected: one of {0 .. 2}", f.Xid)
	}
	if f.Timestamp > TimestampFormatISO8601 {
		return oerr.New(oerr.NotValidField, "format option 'timestamp' (%d) expected: one of {0 .. 15}", f.Timestamp)
	}
	if f.Scn > ScnFormatTextHex {
		return oerr.New(oerr.NotValidField, "format option 'scn' (%d) expected: one of {0, 1}", f.Scn)
	}
	if f.Rid > RidFormatText {
		return oerr.New(oerr.NotValidField, "format option 'rid' (%d) expected: one of {0, 1}", f.Rid)
	}
	if f.Char > CharFormatHex {
		return oerr.New(oerr.NotValidField, "format option 'char' (%d) expected: one of {0 .. 2}", f.Char)
	}
	return nil
}
