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

	"github.com/c2h5oh/datasize"
	jsoniter "github.com/json-iterator/go"

	"github.com/B1NARY-GR0UP/redolith/builder"
	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/pool"
)

var json = jsoniter.Config{DisallowUnknownFields: true}.Froze()

// ArchiveConfig locates archived redo logs when no explicit file list is
// given.
type ArchiveConfig struct {
	// LogFormat is the database's log_archive_format (%t thread, %s
	// sequence, %r resetlogs id).
	LogFormat string `json:"log-format"`
	// RecoveryFileDestination is db_recovery_file_dest.
	RecoveryFileDestination string `json:"recovery-file-dest"`
	// Context is the database unique name under the recovery destination.
	Context string `json:"context"`
}

// CheckpointConfig bounds the durable-position writer.
type CheckpointConfig struct {
	Path      string `json:"path"`
	IntervalS int    `json:"interval-s"`
	Keep      int    `json:"keep-checkpoints"`
}

type Config struct {
	// Source Config
	Alias string `json:"alias"`
	Name  string `json:"name"`

	// Input Config
	// RedoFiles is an explicit, sequence-ordered list of redo files; when
	// empty the archive digger discovers them.
	RedoFiles []string      `json:"redo-files"`
	Archive   ArchiveConfig `json:"archive"`

	// Memory Config
	MinMemory     datasize.ByteSize `json:"min-memory"`
	MaxMemory     datasize.ByteSize `json:"max-memory"`
	ReadBufferMax datasize.ByteSize `json:"read-buffer-max"`

	// Engine Config
	SkipRollback  bool   `json:"skip-rollback"`
	DisableChecks bool   `json:"disable-checks"`
	StartScn      uint64 `json:"start-scn"`
	StartSeq      uint32 `json:"start-seq"`
	ContainerID   int16  `json:"con-id"`

	// SchemaSnapshot is the offline schema source; empty disables table
	// name resolution.
	SchemaSnapshot string `json:"schema-snapshot"`

	Checkpoint CheckpointConfig `json:"state"`

	// Output Config
	// Output names the sink file; empty means stdout.
	Output string          `json:"output"`
	Format builder.Formats `json:"format"`

	FileMode os.FileMode `json:"file-mode"`
}

var DefaultConfig = Config{
	Alias:         "default",
	MinMemory:     32 * datasize.MB,
	MaxMemory:     1024 * datasize.MB,
	ReadBufferMax: 16 * datasize.MB,
	ContainerID:   -1,
	Checkpoint: CheckpointConfig{
		Path:      "checkpoint",
		IntervalS: 600,
		Keep:      100,
	},
	FileMode: 0o755,
}

func (c *Config) validate() error {
	if c.Alias == "" {
		c.Alias = DefaultConfig.Alias
	}
	if c.MinMemory <= 0 {
		c.MinMemory = DefaultConfig.MinMemory
	}
	c.MinMemory = c.MinMemory / (pool.ChunkSizeMB * datasize.MB) * (pool.ChunkSizeMB * datasize.MB)
	if c.MinMemory < pool.MinMemoryMB*datasize.MB {
		return oerr.New(oerr.NotValidField, "field 'min-memory' (%v) expected: at least %dMB", c.MinMemory, pool.MinMemoryMB)
	}
	if c.MaxMemory <= 0 {
		c.MaxMemory = DefaultConfig.MaxMemory
	}
	c.MaxMemory = c.MaxMemory / (pool.ChunkSizeMB * datasize.MB) * (pool.ChunkSizeMB * datasize.MB)
	if c.MaxMemory < c.MinMemory {
		return oerr.New(oerr.NotValidField, "field 'max-memory' (%v) expected: at least min-memory %v", c.MaxMemory, c.MinMemory)
	}
	if c.ReadBufferMax <= 0 {
		c.ReadBufferMax = min(c.MaxMemory/4, 32*datasize.MB)
	}
	if c.ReadBufferMax > c.MaxMemory {
		return oerr.New(oerr.NotValidField, "field 'read-buffer-max' (%v) expected: not greater than max-memory %v", c.ReadBufferMax, c.MaxMemory)
	}
	if c.ReadBufferMax < 2*pool.ChunkSizeMB*datasize.MB {
		return oerr.New(oerr.NotValidField, "field 'read-buffer-max' (%v) expected: at least %dMB", c.ReadBufferMax, 2*pool.ChunkSizeMB)
	}
	if c.Checkpoint.Path == "" {
		c.Checkpoint.Path = DefaultConfig.Checkpoint.Path
	}
	if c.Checkpoint.IntervalS <= 0 {
		c.Checkpoint.IntervalS = DefaultConfig.Checkpoint.IntervalS
	}
	if c.Checkpoint.Keep <= 0 {
		c.Checkpoint.Keep = DefaultConfig.Checkpoint.Keep
	}
	if c.FileMode <= 0 {
		c.FileMode = DefaultConfig.FileMode
	}
	return c.Format.Validate()
}

// LoadConfig reads a JSON config file; unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, oerr.Wrap(err, oerr.WrongFileName, "can not read config file %s", path)
	}

	config := DefaultConfig
	if err = json.Unmarshal(data, &config); err != nil {
		return Config{}, oerr.Wrap(err, oerr.UnknownConfigField, "can not deserialize config file %s", path)
	}
	return config, nil
}
