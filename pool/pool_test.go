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

package pool

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestChunkAlignment(t *testing.T) {
	for i := 0; i < 8; i++ {
		chunk := newChunk()
		assert.Equal(t, ChunkSize, len(chunk))
		assert.Zero(t, uintptr(unsafe.Pointer(&chunk[0]))&(Alignment-1))
	}
}

func TestAcquirePreallocated(t *testing.T) {
	p := New(2, 4)

	allocated, free, hmw := p.Stats()
	assert.Equal(t, 2, allocated)
	assert.Equal(t, 2, free)
	assert.Equal(t, 2, hmw)

	c1 := p.Acquire()
	c2 := p.Acquire()
	allocated, free, _ = p.Stats()
	assert.Equal(t, 2, allocated)
	assert.Equal(t, 0, free)

	p.Release(c1)
	p.Release(c2)
	allocated, free, _ = p.Stats()
	assert.Equal(t, 2, allocated)
	assert.Equal(t, 2, free)
}

// Acquiring past the upper bound succeeds (the cap is advisory); releasing
// shrinks the pool back between min and max.
func TestHysteresis(t *testing.T) {
	p := New(2, 4)

	chunks := make([]Chunk, 0, 5)
	for i := 0; i < 5; i++ {
		chunks = append(chunks, p.Acquire())
	}
	allocated, free, hmw := p.Stats()
	assert.Equal(t, 5, allocated)
	assert.Equal(t, 0, free)
	assert.Equal(t, 5, hmw)

	for _, chunk := range chunks {
		p.Release(chunk)
	}
	allocated, free, _ = p.Stats()
	assert.Equal(t, 2, allocated)
	assert.Equal(t, 2, free)
}

func TestReleasedChunkZeroed(t *testing.T) {
	p := New(1, 1)

	chunk := p.Acquire()
	chunk[0] = 0xFF
	chunk[ChunkSize-1] = 0xFF
	p.Release(chunk)

	chunk = p.Acquire()
	assert.Zero(t, chunk[0])
	assert.Zero(t, chunk[ChunkSize-1])
}

func TestAtRestInvariant(t *testing.T) {
	p := New(3, 6)

	inUse := []Chunk{p.Acquire(), p.Acquire()}
	allocated, free, _ := p.Stats()
	assert.Equal(t, allocated, free+len(inUse))

	for _, chunk := range inUse {
		p.Release(chunk)
	}
	allocated, free, _ = p.Stats()
	assert.Equal(t, allocated, free)
}
