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
	"encoding/binary"

	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// ByteWriter is the writing counterpart of ByteReader: an endian-aware
// cursor over a caller-owned slice.
type ByteWriter struct {
	data   []byte
	cursor int
	order  binary.ByteOrder
}

func NewByteWriter(data []byte) *ByteWriter {
	return &ByteWriter{
		data:  data,
		order: binary.LittleEndian,
	}
}

func (w *ByteWriter) Cursor() int {
	return w.cursor
}

func (w *ByteWriter) Order() binary.ByteOrder {
	return w.order
}

func (w *ByteWriter) SetOrder(order binary.ByteOrder) {
	w.order = order
}

func (w *ByteWriter) ResetCursor() {
	w.cursor = 0
}

func (w *ByteWriter) SetCursor(position int) error {
	if position > len(w.data) {
		return oerr.Parse("could not set cursor greater than buffer length")
	}
	w.cursor = position
	return nil
}

func (w *ByteWriter) Skip(size int) {
	w.cursor = min(w.cursor+size, len(w.data))
}

// AlignUp rounds the cursor up to a power-of-two boundary.
func (w *ByteWriter) AlignUp(size int) {
	w.cursor = (w.cursor + size - 1) &^ (size - 1)
}

func (w *ByteWriter) validate(size int) error {
	if w.cursor+size > len(w.data) {
		return oerr.Parse("could not write %d bytes at %d, not enough space", size, w.cursor)
	}
	return nil
}

func (w *ByteWriter) WriteU8(v uint8) error {
	if err := w.validate(1); err != nil {
		return err
	}
	w.data[w.cursor] = v
	w.cursor++
	return nil
}

func (w *ByteWriter) WriteU16(v uint16) error {
	if err := w.validate(2); err != nil {
		return err
	}
	w.order.PutUint16(w.data[w.cursor:], v)
	w.cursor += 2
	return nil
}

func (w *ByteWriter) WriteU32(v uint32) error {
	if err := w.validate(4); err != nil {
		return err
	}
	w.order.PutUint32(w.data[w.cursor:], v)
	w.cursor += 4
	return nil
}

func (w *ByteWriter) WriteU64(v uint64) error {
	if err := w.validate(8); err != nil {
		return err
	}
	w.order.PutUint64(w.data[w.cursor:], v)
	w.cursor += 8
	return nil
}

func (w *ByteWriter) WriteBytes(data []byte) error {
	if err := w.validate(len(data)); err != nil {
		return err
	}
	copy(w.data[w.cursor:], data)
	w.cursor += len(data)
	return nil
}

// WriteRba writes the 10-byte redo byte address.
func (w *ByteWriter) WriteRba(rba types.Rba) error {
	if err := w.validate(10); err != nil {
		return err
	}
	_ = w.WriteU32(rba.BlockNumber)
	_ = w.WriteU32(rba.Sequence)
	_ = w.WriteU16(rba.Offset)
	return nil
}

// WriteScn writes the 8-byte (base, wrap1, wrap2) composition. The encoding
// round-trips through ByteReader.Scn for every non-sentinel value below 2^63.
func (w *ByteWriter) WriteScn(scn types.Scn) error {
	if err := w.validate(8); err != nil {
		return err
	}
	base, wrap1, wrap2 := scn.Decompose()
	_ = w.WriteU32(base)
	_ = w.WriteU16(wrap1)
	_ = w.WriteU16(wrap2)
	return nil
}

// WriteBlockHeader writes the 16-byte block header frame.
func (w *ByteWriter) WriteBlockHeader(h BlockHeader) error {
	if err := w.validate(blockHeaderSize); err != nil {
		return err
	}
	_ = w.WriteU8(h.BlockFlag)
	_ = w.WriteU8(h.FileType)
	w.Skip(2)
	_ = w.WriteRba(h.Rba)
	_ = w.WriteU16(h.Checksum)
	return nil
}
