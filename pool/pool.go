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

// Package pool is the shared fixed-chunk allocator underlying the whole
// pipeline. Chunks move between components; at any instant exactly one
// component owns each chunk.
package pool

import (
	"sync"
	"unsafe"

	"github.com/B1NARY-GR0UP/redolith/metrics"
	"github.com/B1NARY-GR0UP/redolith/pkg/logger"
)

const (
	// ChunkSizeMB is the chunk granularity all memory limits are expressed in.
	ChunkSizeMB = 1
	// ChunkSize is the byte size of every chunk handed out by a Pool.
	ChunkSize = ChunkSizeMB * 1024 * 1024
	// Alignment of the first byte of every chunk.
	Alignment = 512

	// MinMemoryMB is the smallest permitted pool lower bound.
	MinMemoryMB = 16
)

// Chunk is a fixed-size, 512-aligned, zero-initialized byte region. Consumers
// hold an exclusive handle between Acquire and Release; chunks never move.
type Chunk []byte

func newChunk() Chunk {
	buf := make([]byte, ChunkSize+Alignment)
	off := Alignment - int(uintptr(unsafe.Pointer(&buf[0]))&(Alignment-1))
	if off == Alignment {
		off = 0
	}
	return buf[off : off+ChunkSize : off+ChunkSize]
}

// Pool floats between min and max chunks: it pre-allocates min, tolerates
// transient overflow past max (the cap is advisory), and sheds chunks above
// the free-list watermark on release.
type Pool struct {
	mu     sync.Mutex
	logger logger.Logger

	minChunks int
	maxChunks int

	free      []Chunk
	allocated int
	highWater int
}

// New builds a pool bounded by minMB/maxMB megabytes and pre-allocates the
// lower bound.
func New(minMB, maxMB uint64) *Pool {
	p := &Pool{
		logger:    logger.GetLogger(),
		minChunks: int(minMB / ChunkSizeMB),
		maxChunks: int(maxMB / ChunkSizeMB),
	}
	p.free = make([]Chunk, 0, p.minChunks)
	for i := 0; i < p.minChunks; i++ {
		p.free = append(p.free, newChunk())
		p.allocated++
	}
	p.highWater = p.allocated
	metrics.ChunksAllocated.Set(float64(p.allocated))
	return p
}

// Acquire pops a free chunk or allocates a fresh one. Exceeding the upper
// bound only warns; allocation proceeds.
func (p *Pool) Acquire() Chunk {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.allocated >= p.maxChunks && len(p.free) == 0 {
		p.logger.Warnf("memory limit exceeded, max: %dMB now: %dMB, allocate over limit",
			p.maxChunks*ChunkSizeMB, p.allocated*ChunkSizeMB)
	}

	var chunk Chunk
	if n := len(p.free); n > 0 {
		chunk = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		chunk = newChunk()
		p.allocated++
		if p.allocated > p.highWater {
			p.highWater = p.allocated
		}
	}
	metrics.ChunksAllocated.Set(float64(p.allocated))
	return chunk
}

// Release hands a chunk back. The chunk is kept on the free list only while
// the list is below the lower bound and the pool is within its upper bound;
// otherwise it is dropped so the pool shrinks back when idle.
func (p *Pool) Release(chunk Chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) >= p.minChunks || p.allocated > p.maxChunks {
		p.allocated--
	} else {
		clear(chunk)
		p.free = append(p.free, chunk)
	}
	metrics.ChunksAllocated.Set(float64(p.allocated))
}

// Stats reports (allocated, free, high water) chunk counts.
func (p *Pool) Stats() (allocated, free, highWater int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated, len(p.free), p.highWater
}
