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

// Package transactions correlates change vectors by transaction id,
// reassembles row changes, and releases whole transactions to the emitter
// in commit order.
package transactions

import (
	"sync"

	"github.com/B1NARY-GR0UP/redolith/metrics"
	"github.com/B1NARY-GR0UP/redolith/parser"
	"github.com/B1NARY-GR0UP/redolith/pkg/logger"
	"github.com/B1NARY-GR0UP/redolith/pkg/scnmark"
	"github.com/B1NARY-GR0UP/redolith/pool"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// RowOp is the logical row operation of an emitted double.
type RowOp uint8

const (
	RowOpUnknown RowOp = iota
	RowOpInsert
	RowOpDelete
	RowOpUpdate
	RowOpMultiInsert
	RowOpMultiDelete
)

func (op RowOp) String() string {
	switch op {
	case RowOpInsert:
		return "insert"
	case RowOpDelete:
		return "delete"
	case RowOpUpdate:
		return "update"
	case RowOpMultiInsert:
		return "multi_insert"
	case RowOpMultiDelete:
		return "multi_delete"
	}
	return "unknown"
}

// Emitter receives whole transactions in commit order. Implementations
// serialize internally; the buffer calls from the parser worker only.
type Emitter interface {
	Begin(scn types.RecordScn, ts types.Timestamp, xid types.Xid) error
	Row(op RowOp, scn types.RecordScn, ts types.Timestamp, xid types.Xid, undo, redo *parser.Vector) error
	Commit(scn types.RecordScn, ts types.Timestamp, xid types.Xid, rollback bool) error
}

// SessionEmitter is implemented by emitters that surface the committing
// session's attributes alongside the transaction's messages.
type SessionEmitter interface {
	Session(info *parser.OpCode0520)
}

// Options tune the transaction buffer.
type Options struct {
	// SkipRollback discards rolled-back transactions without any emission.
	SkipRollback bool
}

// Buffer is the per-XID transaction table. It implements parser.Handler.
type Buffer struct {
	mu     sync.Mutex
	logger logger.Logger

	source  *chunkSource
	emitter Emitter
	opts    Options

	transactions map[types.Xid]*Transaction

	// session attributes seen since the last commit, attached to the next
	// finalized transaction
	session *parser.OpCode0520

	// commit-SCN low watermark across emitted transactions, read by the
	// checkpointer
	emitted *scnmark.Mark
}

var _ parser.Handler = (*Buffer)(nil)

func NewBuffer(p *pool.Pool, emitter Emitter, opts Options) *Buffer {
	return &Buffer{
		logger:       logger.GetLogger(),
		source:       newChunkSource(p),
		emitter:      emitter,
		opts:         opts,
		transactions: make(map[types.Xid]*Transaction),
		emitted:      scnmark.New(),
	}
}

// EmittedMark exposes the commit-SCN low watermark of emitted transactions.
func (b *Buffer) EmittedMark() *scnmark.Mark {
	return b.emitted
}

// Find returns the transaction for xid, creating it when createIfAbsent.
func (b *Buffer) Find(xid types.Xid, createIfAbsent bool) *Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.find(xid, createIfAbsent)
}

func (b *Buffer) find(xid types.Xid, createIfAbsent bool) *Transaction {
	if t, ok := b.transactions[xid]; ok {
		return t
	}
	if !createIfAbsent {
		return nil
	}
	t := newTransaction(xid)
	b.transactions[xid] = t
	return t
}

// Size reports the number of open transactions.
func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.transactions)
}

// OnBegin implements parser.Handler.
func (b *Buffer) OnBegin(xid types.Xid, scn types.RecordScn, ts types.Timestamp) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.find(xid, true)
	t.SetStart(scn, ts)
	b.logger.Debugf("transaction %v begun at scn %v", xid, scn)
}

// OnDouble implements parser.Handler: the vectors are copied into the
// transaction's own chunk storage before the source record is released.
func (b *Buffer) OnDouble(xid types.Xid, undo, redo *parser.Vector) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.find(xid, true).appendDouble(b.source, undo, redo)
}

// OnSession implements parser.Handler.
func (b *Buffer) OnSession(info *parser.OpCode0520) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = info
}

// OnCommit implements parser.Handler: the transaction's doubles are handed
// to the emitter in append order, then its storage is released.
func (b *Buffer) OnCommit(xid types.Xid, scn types.RecordScn, ts types.Timestamp, rollback bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.find(xid, true)
	t.Session = b.session
	b.session = nil
	if se, ok := b.emitter.(SessionEmitter); ok {
		se.Session(t.Session)
	}

	defer func() {
		t.release(b.source)
		delete(b.transactions, xid)
	}()

	if rollback {
		metrics.TransactionsRolledBack.Inc()
		if b.opts.SkipRollback {
			b.logger.Debugf("transaction %v rolled back, skipped", xid)
			return nil
		}
	} else {
		metrics.TransactionsCommitted.Inc()
	}

	b.emitted.Begin(uint64(scn))
	defer b.emitted.Done(uint64(scn))

	if err := b.emitter.Begin(t.StartScn, t.StartTs, xid); err != nil {
		return err
	}

	if !rollback {
		err := t.walk(func(_ uint32, undo, redo *parser.Vector) error {
			return b.emitter.Row(rowOp(redo), scn, ts, xid, undo, redo)
		})
		if err != nil {
			return err
		}
	}

	return b.emitter.Commit(scn, ts, xid, rollback)
}

// Close drops every open transaction and returns all storage to the pool.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for xid, t := range b.transactions {
		if t.Doubles() > 0 {
			b.logger.Warnf("dropping open transaction %v with %d row changes", xid, t.Doubles())
		}
		delete(b.transactions, xid)
	}
	b.source.close()
}

// rowOp names the logical operation of a double from its redo-side opcode.
func rowOp(redo *parser.Vector) RowOp {
	if redo.Header.OpMajor != 11 {
		return RowOpUnknown
	}
	switch redo.Header.OpMinor {
	case 2:
		return RowOpInsert
	case 3:
		return RowOpDelete
	case 5:
		return RowOpUpdate
	case 6:
		return RowOpUpdate
	case 11:
		return RowOpMultiInsert
	case 12:
		return RowOpMultiDelete
	}
	return RowOpUnknown
}
