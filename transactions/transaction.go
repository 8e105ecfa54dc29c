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

package transactions

import (
	"github.com/B1NARY-GR0UP/redolith/parser"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// Transaction accumulates the row changes of one XID between its 5.2 begin
// and its 5.4 commit or rollback. Entries live in transaction chunks owned
// by the transaction; the SCN is monotone-nondecreasing across appends.
type Transaction struct {
	Xid types.Xid

	Begun    bool
	StartScn types.RecordScn
	StartTs  types.Timestamp
	Session  *parser.OpCode0520

	chunks  []*txChunk
	doubles int
}

func newTransaction(xid types.Xid) *Transaction {
	return &Transaction{Xid: xid}
}

// SetStart records the begin position; repeated 5.2 vectors keep the first.
func (t *Transaction) SetStart(scn types.RecordScn, ts types.Timestamp) {
	if t.Begun {
		return
	}
	t.Begun = true
	t.StartScn = scn
	t.StartTs = ts
}

// Doubles reports how many row changes the transaction holds.
func (t *Transaction) Doubles() int {
	return t.doubles
}

func (t *Transaction) appendDouble(source *chunkSource, undo, redo *parser.Vector) error {
	need := undo.Size() + redo.Size()

	var tail *txChunk
	if n := len(t.chunks); n > 0 {
		tail = t.chunks[n-1]
	}
	if tail == nil || !tail.fits(need) {
		c, err := source.acquire()
		if err != nil {
			return err
		}
		t.chunks = append(t.chunks, c)
		tail = c
	}

	tail.appendDouble(undo, redo)
	t.doubles++
	return nil
}

// walk visits the stored doubles in append order.
func (t *Transaction) walk(fn func(opcodes uint32, undo, redo *parser.Vector) error) error {
	for _, chunk := range t.chunks {
		for i := range chunk.entries {
			e := &chunk.entries[i]
			if err := fn(e.opcodes, &e.undo, &e.redo); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Transaction) release(source *chunkSource) {
	for _, chunk := range t.chunks {
		source.release(chunk)
	}
	t.chunks = nil
	t.doubles = 0
}
