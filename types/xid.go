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

package types

import "fmt"

// Xid identifies a transaction as the (undo segment, slot, sequence) triple.
// It is comparable and used directly as the transaction-table key.
type Xid struct {
	Usn  uint16
	Slot uint16
	Seq  uint32
}

func NewXid(usn, slot uint16, seq uint32) Xid {
	return Xid{Usn: usn, Slot: slot, Seq: seq}
}

// XidFromUint64 unpacks the (usn<<48)|(slot<<32)|seq encoding.
func XidFromUint64(v uint64) Xid {
	return Xid{
		Usn:  uint16(v >> 48),
		Slot: uint16(v >> 32),
		Seq:  uint32(v),
	}
}

func (x Xid) Uint64() uint64 {
	return uint64(x.Usn)<<48 | uint64(x.Slot)<<32 | uint64(x.Seq)
}

func (x Xid) IsZero() bool {
	return x == Xid{}
}

func (x Xid) String() string {
	return fmt.Sprintf("%d.%d.%d", x.Usn, x.Slot, x.Seq)
}

// Hex renders the XID the way redo dumps do: usn.slot.seq in fixed-width hex.
func (x Xid) Hex() string {
	return fmt.Sprintf("0x%04x.%03x.%08x", x.Usn, x.Slot, x.Seq)
}
