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

// Package checkpoint persists the replication position so a restarted run
// can resume behind the emitted watermark.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/pkg/logger"
	"github.com/B1NARY-GR0UP/redolith/utils"
)

const (
	_magic   uint64 = 0x7265646f6c697468
	_version uint32 = 1

	_filePrefix = "checkpoint-"
	_fileExt    = ".state"
)

// Checkpointer writes State files under dir, keeping the newest keep files.
type Checkpointer struct {
	logger logger.Logger

	dir  string
	keep int
}

func New(dir string, keep int, mode os.FileMode) (*Checkpointer, error) {
	if err := os.MkdirAll(dir, mode); err != nil {
		return nil, oerr.Wrap(err, oerr.CreateDir, "can not create checkpoint dir %s", dir)
	}
	if keep <= 0 {
		keep = 1
	}
	return &Checkpointer{
		logger: logger.GetLogger(),
		dir:    dir,
		keep:   keep,
	}, nil
}

// Save serializes the state and atomically installs the file named by the
// state's SCN, then prunes old checkpoints.
func (c *Checkpointer) Save(state *State) error {
	payload, err := utils.TMarshal(state)
	if err != nil {
		return oerr.Wrap(err, oerr.FileSerialization, "can not serialize checkpoint state")
	}

	var compressed bytes.Buffer
	if err = utils.Compress(bytes.NewReader(payload), &compressed); err != nil {
		return oerr.Wrap(err, oerr.FileSerialization, "can not compress checkpoint state")
	}

	var file bytes.Buffer
	w := utils.NewErrorWriter(&file)
	w.Write(binary.LittleEndian, _magic)
	w.Write(binary.LittleEndian, _version)
	w.Write(binary.LittleEndian, uint32(compressed.Len()))
	w.Write(binary.LittleEndian, compressed.Bytes())
	if w.Error() != nil {
		return oerr.Wrap(w.Error(), oerr.FileSerialization, "can not frame checkpoint state")
	}

	final := path.Join(c.dir, fmt.Sprintf("%s%020d%s", _filePrefix, state.Scn, _fileExt))
	tmp := final + ".tmp"
	if err = os.WriteFile(tmp, file.Bytes(), 0o644); err != nil {
		return oerr.Wrap(err, oerr.FileWriting, "can not write checkpoint %s", tmp)
	}
	if err = os.Rename(tmp, final); err != nil {
		return oerr.Wrap(err, oerr.FileWriting, "can not install checkpoint %s", final)
	}

	c.logger.Infof("checkpoint saved: %v", state)
	return c.prune()
}

// Load returns the newest checkpoint state, or nil when none exists.
func (c *Checkpointer) Load() (*State, error) {
	files, err := c.list()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return c.read(path.Join(c.dir, files[len(files)-1]))
}

func (c *Checkpointer) read(file string) (*State, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, oerr.Wrap(err, oerr.FileReading, "can not read checkpoint %s", file)
	}

	r := utils.NewErrorReader(bytes.NewReader(data))
	var magic uint64
	var version, length uint32
	r.Read(binary.LittleEndian, &magic)
	r.Read(binary.LittleEndian, &version)
	r.Read(binary.LittleEndian, &length)
	if r.Error() != nil {
		return nil, oerr.Wrap(r.Error(), oerr.FileDeserialization, "can not read checkpoint frame %s", file)
	}
	if magic != _magic {
		return nil, oerr.New(oerr.FileDeserialization, "invalid checkpoint magic in %s", file)
	}
	if version != _version {
		return nil, oerr.New(oerr.FileDeserialization, "unsupported checkpoint version %d in %s", version, file)
	}
	if int(length) > len(data)-16 {
		return nil, oerr.New(oerr.FileDeserialization, "truncated checkpoint %s", file)
	}

	var payload bytes.Buffer
	if err = utils.Decompress(bytes.NewReader(data[16:16+length]), &payload); err != nil {
		return nil, oerr.Wrap(err, oerr.FileDeserialization, "can not decompress checkpoint %s", file)
	}

	state := &State{}
	if err = utils.TUnmarshal(payload.Bytes(), state); err != nil {
		return nil, oerr.Wrap(err, oerr.FileDeserialization, "can not deserialize checkpoint %s", file)
	}
	return state, nil
}

func (c *Checkpointer) list() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, oerr.Wrap(err, oerr.MissingDir, "can not read checkpoint dir %s", c.dir)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, _filePrefix) || path.Ext(name) != _fileExt {
			continue
		}
		scnPart := strings.TrimSuffix(strings.TrimPrefix(name, _filePrefix), _fileExt)
		if _, err := strconv.ParseUint(scnPart, 10, 64); err != nil {
			continue
		}
		files = append(files, name)
	}
	slices.Sort(files)
	return files, nil
}

func (c *Checkpointer) prune() error {
	files, err := c.list()
	if err != nil {
		return err
	}
	for len(files) > c.keep {
		stale := files[0]
		files = files[1:]
		if err = os.Remove(path.Join(c.dir, stale)); err != nil {
			c.logger.Warnf("can not remove stale checkpoint %s: %v", stale, err)
		}
	}
	return nil
}
