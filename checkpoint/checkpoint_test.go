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

package checkpoint

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), 10, 0o755)
	require.NoError(t, err)

	state := &State{
		Scn:         0x104,
		Sequence:    17,
		BlockNumber: 42,
		Offset:      16,
		Timestamp:   1700000000,
	}
	require.NoError(t, c.Save(state))

	loaded, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
}

func TestLoadEmptyDir(t *testing.T) {
	c, err := New(t.TempDir(), 10, 0o755)
	require.NoError(t, err)

	state, err := c.Load()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestLoadNewest(t *testing.T) {
	c, err := New(t.TempDir(), 10, 0o755)
	require.NoError(t, err)

	require.NoError(t, c.Save(&State{Scn: 100, Sequence: 1}))
	require.NoError(t, c.Save(&State{Scn: 300, Sequence: 3}))
	require.NoError(t, c.Save(&State{Scn: 200, Sequence: 2}))

	loaded, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(300), loaded.Scn)
}

func TestPruneKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 2, 0o755)
	require.NoError(t, err)

	for scn := int64(1); scn <= 5; scn++ {
		require.NoError(t, c.Save(&State{Scn: scn}))
	}

	files, err := c.list()
	require.NoError(t, err)
	assert.Len(t, files, 2)

	loaded, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(5), loaded.Scn)
}

func TestPeriodicSaveKeepsLastSequence(t *testing.T) {
	c, err := New(t.TempDir(), 10, 0o755)
	require.NoError(t, err)

	// a per-file save after redo sequence 5 finishes processing
	require.NoError(t, c.Save(&State{Scn: 100, Sequence: 5, Timestamp: 1}))

	// a later checkpointLoop tick: the emitted mark advanced past scn 100
	// while sequence 5 was still the last completed file, so the periodic
	// save must carry that same sequence rather than regress it to zero.
	require.NoError(t, c.Save(&State{Scn: 150, Sequence: 5, Timestamp: 2}))

	loaded, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(150), loaded.Scn)
	assert.EqualValues(t, 5, loaded.Sequence)
}

func TestLoadRejectsCorruptMagic(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 10, 0o755)
	require.NoError(t, err)
	require.NoError(t, c.Save(&State{Scn: 1}))

	files, err := c.list()
	require.NoError(t, err)
	name := path.Join(dir, files[0])
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(name, data, 0o644))

	_, err = c.Load()
	assert.Error(t, err)
}
