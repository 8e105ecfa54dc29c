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
	"github.com/B1NARY-GR0UP/redolith/pool"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// Record is one assembled redo record. Its payload lives inside a records-
// manager chunk and is only valid until the record is dropped; anything that
// must outlive the record copies the bytes out.
type Record struct {
	Block     uint32
	Offset    uint16
	Size      uint32
	Scn       types.RecordScn
	SubScn    uint16
	Timestamp types.Timestamp

	data []byte
}

func (r *Record) Data() []byte {
	return r.data
}

const (
	// usedSizeBytes is the chunk prefix holding the chunk's used size.
	usedSizeBytes = 8
	// recordOverhead is the per-record header area reserved ahead of the
	// payload inside a chunk.
	recordOverhead = 48
)

// RecordsManager bump-allocates variable-length record payloads out of
// fixed-size pool chunks. The first 8 bytes of each chunk hold the chunk's
// used size; records are laid end to end behind it, aligned to 8 bytes.
type RecordsManager struct {
	pool *pool.Pool

	chunks  []pool.Chunk
	records []*Record
}

func NewRecordsManager(p *pool.Pool) *RecordsManager {
	m := &RecordsManager{pool: p}
	chunk := p.Acquire()
	setChunkUsed(chunk, usedSizeBytes)
	m.chunks = append(m.chunks, chunk)
	return m
}

func chunkUsed(chunk pool.Chunk) int {
	return int(binary.LittleEndian.Uint64(chunk))
}

func setChunkUsed(chunk pool.Chunk, used int) {
	binary.LittleEndian.PutUint64(chunk, uint64(used))
}

func nextChunkUsed(used, recordSize int) int {
	return (used + recordOverhead + recordSize + 7) &^ 7
}

func (m *RecordsManager) Count() int {
	return len(m.records)
}

// Reserve allocates space for a record of recordSize payload bytes, pushing
// a fresh chunk when the tail chunk lacks room. A record that cannot fit an
// empty chunk is rejected.
func (m *RecordsManager) Reserve(recordSize int) (*Record, error) {
	last := m.chunks[len(m.chunks)-1]
	used := chunkUsed(last)

	if nextChunkUsed(used, recordSize) > pool.ChunkSize {
		used = usedSizeBytes
		if nextChunkUsed(used, recordSize) > pool.ChunkSize {
			return nil, oerr.New(oerr.MemoryAllocation,
				"record is too big (%dB) for a memory chunk of size %d", recordSize, pool.ChunkSize)
		}
		last = m.pool.Acquire()
		setChunkUsed(last, used)
		m.chunks = append(m.chunks, last)
	}

	record := &Record{
		Size: uint32(recordSize),
		data: last[used+recordOverhead : used+recordOverhead+recordSize],
	}
	m.records = append(m.records, record)
	setChunkUsed(last, nextChunkUsed(used, recordSize))
	return record, nil
}

// DropFront releases records in insertion order. The payload bytes stay
// readable until FreeAll reclaims the chunks.
func (m *RecordsManager) DropFront() *Record {
	if len(m.records) == 0 {
		return nil
	}
	record := m.records[0]
	m.records = m.records[1:]
	return record
}

// FreeAll forgets all records, keeps exactly one chunk with its used size
// reset, and returns the rest to the pool.
func (m *RecordsManager) FreeAll() {
	m.records = nil
	for len(m.chunks) > 1 {
		m.pool.Release(m.chunks[0])
		m.chunks = m.chunks[1:]
	}
	setChunkUsed(m.chunks[0], usedSizeBytes)
}

// Close returns every chunk to the pool; the manager is unusable afterwards.
func (m *RecordsManager) Close() {
	m.records = nil
	for _, chunk := range m.chunks {
		m.pool.Release(chunk)
	}
	m.chunks = nil
}
