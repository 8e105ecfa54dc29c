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

package redolith

import (
	"os"
	"path"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B1NARY-GR0UP/redolith/builder"
	"github.com/B1NARY-GR0UP/redolith/oerr"
)

func TestValidateDefaults(t *testing.T) {
	config := Config{}
	require.NoError(t, config.validate())

	assert.Equal(t, DefaultConfig.Alias, config.Alias)
	assert.Equal(t, DefaultConfig.MinMemory, config.MinMemory)
	assert.Equal(t, DefaultConfig.MaxMemory, config.MaxMemory)
	assert.Equal(t, min(config.MaxMemory/4, 32*datasize.MB), config.ReadBufferMax)
	assert.Equal(t, DefaultConfig.Checkpoint, config.Checkpoint)
}

func TestValidateMemoryBounds(t *testing.T) {
	config := Config{MinMemory: 4 * datasize.MB}
	err := config.validate()
	require.Error(t, err)
	assert.Equal(t, oerr.NotValidField, oerr.CodeOf(err))

	config = Config{MinMemory: 64 * datasize.MB, MaxMemory: 32 * datasize.MB}
	require.Error(t, config.validate())

	config = Config{MinMemory: 32 * datasize.MB, MaxMemory: 64 * datasize.MB, ReadBufferMax: 128 * datasize.MB}
	require.Error(t, config.validate())
}

func TestValidateFormat(t *testing.T) {
	config := Config{Format: builder.Formats{Message: builder.MessageFormatFull | builder.MessageFormatSkipCommit}}
	require.Error(t, config.validate())
}

func TestLoadConfig(t *testing.T) {
	file := path.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"alias": "prod",
		"name": "ORCL",
		"min-memory": "64MB",
		"max-memory": "128MB",
		"skip-rollback": true,
		"redo-files": ["/data/redo_17.arc"]
	}`), 0o644))

	config, err := LoadConfig(file)
	require.NoError(t, err)
	require.NoError(t, config.validate())

	assert.Equal(t, "prod", config.Alias)
	assert.Equal(t, "ORCL", config.Name)
	assert.Equal(t, 64*datasize.MB, config.MinMemory)
	assert.Equal(t, 128*datasize.MB, config.MaxMemory)
	assert.True(t, config.SkipRollback)
	assert.Equal(t, []string{"/data/redo_17.arc"}, config.RedoFiles)
}

func TestLoadConfigUnknownField(t *testing.T) {
	file := path.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"no-such-field": 1}`), 0o644))

	_, err := LoadConfig(file)
	require.Error(t, err)
	assert.Equal(t, oerr.UnknownConfigField, oerr.CodeOf(err))
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(path.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, oerr.WrongFileName, oerr.CodeOf(err))
}
