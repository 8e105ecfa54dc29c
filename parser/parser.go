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

// Package parser decodes the physical redo format: blocks, records and
// change vectors, and feeds reassembled logical operations to a Handler.
package parser

import (
	"context"
	"encoding/binary"

	"github.com/B1NARY-GR0UP/redolith/metrics"
	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/pkg/logger"
	"github.com/B1NARY-GR0UP/redolith/pool"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// Handler receives the logical stream reassembled by the parser. Vectors
// handed over reference records-manager memory; implementations must copy
// what they keep.
type Handler interface {
	// OnBegin is invoked for a 5.2 undo-header vector opening a transaction.
	OnBegin(xid types.Xid, scn types.RecordScn, ts types.Timestamp)
	// OnDouble is invoked for a matched undo/redo pair forming one row change.
	OnDouble(xid types.Xid, undo, redo *Vector) error
	// OnCommit is invoked for a 5.4 vector; rollback discriminates.
	OnCommit(xid types.Xid, scn types.RecordScn, ts types.Timestamp, rollback bool) error
	// OnSession is invoked for a 5.20 session-attributes vector.
	OnSession(info *OpCode0520)
}

// Options tune one Parser instance.
type Options struct {
	// DisableChecks skips block checksum verification when set.
	DisableChecks bool
}

// Parser consumes a reader's block-aligned chunk stream for one redo file,
// assembles possibly multi-block records in a records manager, decodes their
// vectors and dispatches them to the handler.
type Parser struct {
	logger  logger.Logger
	records *RecordsManager
	handler Handler
	opts    Options

	sequence  types.Seq
	blockSize int
	order     binary.ByteOrder
	version   uint32
	header    *RedoLogHeader

	blockIndex uint32

	// cross-block record assembly state
	current *Record
	filled  int

	// pending undo vector of the record being analyzed
	pendingUndo *Vector
}

func New(p *pool.Pool, handler Handler, sequence types.Seq, opts Options) *Parser {
	return &Parser{
		logger:   logger.GetLogger(),
		records:  NewRecordsManager(p),
		handler:  handler,
		opts:     opts,
		sequence: sequence,
	}
}

// Sequence reports the redo-log sequence number this parser works on.
func (p *Parser) Sequence() types.Seq {
	return p.sequence
}

// Version reports the database version from the redo-log header, once seen.
func (p *Parser) Version() uint32 {
	return p.version
}

// Header reports the decoded redo-log header, once block 1 was processed.
func (p *Parser) Header() *RedoLogHeader {
	return p.header
}

// Run drains the reader channel until Eof. Chunks are returned to the pool
// as soon as their blocks are consumed.
func (p *Parser) Run(ctx context.Context, mempool *pool.Pool, in <-chan ReaderMessage) error {
	defer p.records.Close()

	for {
		var msg ReaderMessage
		select {
		case msg = <-in:
		case <-ctx.Done():
			return ctx.Err()
		}

		switch msg.Kind {
		case MessageStart:
			p.blockSize = msg.BlockSize
			p.order = msg.Order
			p.logger.Infof("redo file start: block size %d, file size %d", msg.BlockSize, msg.FileSize)
		case MessageRead:
			err := p.processChunk(msg.Chunk[:msg.Len])
			mempool.Release(msg.Chunk)
			if err != nil {
				return err
			}
		case MessageEof:
			if p.current != nil {
				p.logger.Warnf("discarding partial record of %d bytes at end of file", p.filled)
				p.current = nil
			}
			p.records.FreeAll()
			return nil
		}
	}
}

// processChunk walks the block-aligned chunk payload.
func (p *Parser) processChunk(data []byte) error {
	if p.blockSize == 0 {
		return oerr.Parse("chunk received before the start message")
	}
	for off := 0; off+p.blockSize <= len(data); off += p.blockSize {
		if err := p.processBlock(data[off : off+p.blockSize]); err != nil {
			return err
		}
		p.blockIndex++
	}
	return nil
}

func (p *Parser) processBlock(block []byte) error {
	switch p.blockIndex {
	case 0:
		// file descriptor block, validated by the reader
		return nil
	case 1:
		return p.processRedoHeader(block)
	}

	if !p.opts.DisableChecks {
		if err := ValidateBlock(block, p.order); err != nil {
			return err
		}
	}

	reader := NewByteReader(block)
	reader.SetOrder(p.order)
	if _, err := reader.ReadBlockHeader(); err != nil {
		return err
	}
	body := block[blockHeaderSize:]

	if p.current != nil {
		// continuation of a multi-block record
		n := copy(p.current.data[p.filled:], body)
		p.filled += n
		if p.filled == int(p.current.Size) {
			return p.finishRecord()
		}
		return nil
	}

	// a fresh record starts right behind the block header
	size := p.order.Uint32(body)
	if size == 0 {
		return nil
	}
	record, err := p.records.Reserve(int(size))
	if err != nil {
		return err
	}
	record.Block = p.blockIndex
	record.Offset = blockHeaderSize

	p.current = record
	p.filled = copy(record.data, body)
	if p.filled == int(size) {
		return p.finishRecord()
	}
	return nil
}

func (p *Parser) processRedoHeader(block []byte) error {
	reader := NewByteReader(block)
	reader.SetOrder(p.order)

	if !p.opts.DisableChecks {
		if err := ValidateBlock(block, p.order); err != nil {
			return err
		}
	}

	header, err := reader.ReadRedoLogHeader()
	if err != nil {
		return err
	}
	p.header = &header
	p.version = header.OracleVersion
	p.logger.Infof("redo log header: version 0x%08X database %q blocks %d resetlogs %v",
		header.OracleVersion, header.DatabaseName, header.BlocksCount, header.ResetlogsID)
	return nil
}

func (p *Parser) finishRecord() error {
	record := p.current
	p.current = nil
	p.filled = 0

	err := p.analyzeRecord(record)
	p.records.DropFront()
	if err != nil {
		return err
	}
	metrics.RecordsParsed.Inc()
	return nil
}

// analyzeRecord decodes the record header and every vector behind it, then
// correlates vectors into logical operations: 5.1 undo vectors pair with the
// following 11.x redo vector of the same record.
func (p *Parser) analyzeRecord(record *Record) error {
	reader := NewByteReader(record.Data())
	reader.SetOrder(p.order)

	header, err := reader.ReadRecordHeader(p.version)
	if err != nil {
		return err
	}
	if header.RecordSize != record.Size {
		return oerr.Parse("record size mismatch: header %d != assembled %d", header.RecordSize, record.Size)
	}
	record.Scn = header.Scn
	record.SubScn = header.SubScn
	if header.Expansion != nil {
		record.Timestamp = header.Expansion.RecordsTimestamp
	}

	p.pendingUndo = nil
	for reader.Remaining() >= 24+2 {
		if data := reader.Data(); data[reader.Cursor()] == 0 && data[reader.Cursor()+1] == 0 {
			// trailing padding, no more vectors
			break
		}
		vector, err := ParseVector(reader, p.version)
		if err != nil {
			return err
		}
		metrics.VectorsParsed.Inc()
		if err = p.dispatch(record, vector); err != nil {
			return err
		}
	}
	p.pendingUndo = nil
	return nil
}

func (p *Parser) dispatch(record *Record, v *Vector) error {
	switch info := v.Info.(type) {
	case *OpCode0502:
		p.handler.OnBegin(info.Xid, record.Scn, record.Timestamp)
	case *OpCode0501:
		p.pendingUndo = v
	case *OpCode0504:
		return p.handler.OnCommit(info.Xid, record.Scn, record.Timestamp, info.Rollback())
	case *OpCode0520:
		p.handler.OnSession(info)
	case *OpCode1102:
		if p.pendingUndo == nil {
			p.logger.Warnf("redo vector %d.%d without a preceding undo vector, skip", v.Header.OpMajor, v.Header.OpMinor)
			return nil
		}
		undo := p.pendingUndo
		p.pendingUndo = nil
		xid, _ := undo.Xid()
		return p.handler.OnDouble(xid, undo, v)
	case UnknownOpcode:
		if v.Header.OpMajor == 11 && p.pendingUndo != nil {
			// a row operation we do not decode still consumes its undo
			p.pendingUndo = nil
			p.logger.Warnf("opcode %d.%d not implemented, row change skipped", v.Header.OpMajor, v.Header.OpMinor)
		} else {
			p.logger.Debugf("opcode %d.%d skipped", v.Header.OpMajor, v.Header.OpMinor)
		}
	}
	return nil
}
