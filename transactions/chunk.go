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
	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/parser"
	"github.com/B1NARY-GR0UP/redolith/pool"
)

const (
	// ChunkSize is the transaction-chunk granularity. Chunks are carved out
	// of memory-pool chunks, segmentsPerParent per parent.
	ChunkSize         = 64 * 1024
	segmentsPerParent = pool.ChunkSize / ChunkSize
)

// entry is one stored double: the opcode pair plus the two vectors, whose
// Data slices point into the owning chunk's buffer.
type entry struct {
	opcodes uint32
	undo    parser.Vector
	redo    parser.Vector
	total   int
}

// txChunk stores entries back to back in a 64 KiB buffer carved from the
// shared memory pool.
type txChunk struct {
	buf     []byte
	used    int
	entries []entry
	parent  int
}

func (c *txChunk) fits(size int) bool {
	return c.used+size <= len(c.buf)
}

// appendDouble copies both vectors' raw data into the chunk buffer and
// rebases the stored vector views onto the copies.
func (c *txChunk) appendDouble(undo, redo *parser.Vector) {
	e := entry{
		opcodes: uint32(undo.OpCode())<<16 | uint32(redo.OpCode()),
		undo:    *undo,
		redo:    *redo,
		total:   undo.Size() + redo.Size(),
	}

	n := copy(c.buf[c.used:], undo.Data)
	e.undo.Rebase(c.buf[c.used : c.used+n])
	c.used += n

	n = copy(c.buf[c.used:], redo.Data)
	e.redo.Rebase(c.buf[c.used : c.used+n])
	c.used += n

	c.entries = append(c.entries, e)
}

// chunkSource carves transaction chunks out of pool chunks and returns a
// parent to the pool once all its segments are free.
type chunkSource struct {
	pool    *pool.Pool
	parents map[int]*parentChunk
	nextID  int
	free    []*txChunk
}

type parentChunk struct {
	chunk pool.Chunk
	inUse int
}

func newChunkSource(p *pool.Pool) *chunkSource {
	return &chunkSource{
		pool:    p,
		parents: make(map[int]*parentChunk),
	}
}

func (s *chunkSource) acquire() (*txChunk, error) {
	if n := len(s.free); n > 0 {
		c := s.free[n-1]
		s.free = s.free[:n-1]
		s.parents[c.parent].inUse++
		return c, nil
	}

	mem := s.pool.Acquire()
	if len(mem) < pool.ChunkSize {
		return nil, oerr.New(oerr.MemoryAllocation, "short memory chunk: %d", len(mem))
	}
	id := s.nextID
	s.nextID++
	s.parents[id] = &parentChunk{chunk: mem}

	for i := 1; i < segmentsPerParent; i++ {
		s.free = append(s.free, &txChunk{
			buf:    mem[i*ChunkSize : (i+1)*ChunkSize],
			parent: id,
		})
	}
	s.parents[id].inUse++
	return &txChunk{buf: mem[:ChunkSize], parent: id}, nil
}

func (s *chunkSource) release(c *txChunk) {
	c.used = 0
	c.entries = nil
	s.free = append(s.free, c)

	parent := s.parents[c.parent]
	parent.inUse--
	if parent.inUse == 0 {
		kept := s.free[:0]
		for _, f := range s.free {
			if f.parent != c.parent {
				kept = append(kept, f)
			}
		}
		s.free = kept
		delete(s.parents, c.parent)
		s.pool.Release(parent.chunk)
	}
}

func (s *chunkSource) close() {
	for _, parent := range s.parents {
		s.pool.Release(parent.chunk)
	}
	s.parents = make(map[int]*parentChunk)
	s.free = nil
}
