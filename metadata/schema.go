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

package metadata

import (
	"bytes"
	"context"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SysUser mirrors one SYS.USER$ row.
type SysUser struct {
	User   uint32 `json:"user"`
	Name   string `json:"name"`
	Spare1 uint64 `json:"spare1"`
}

// SysObj mirrors one SYS.OBJ$ row.
type SysObj struct {
	Obj     uint32 `json:"obj"`
	DataObj uint32 `json:"data_obj"`
	Owner   uint32 `json:"owner"`
	Name    string `json:"name"`
	ObjType uint16 `json:"obj_type"`
	Flags   uint64 `json:"flags"`
}

// SysTab mirrors one SYS.TAB$ row.
type SysTab struct {
	Obj        uint32 `json:"obj"`
	DataObj    uint32 `json:"data_obj"`
	Tablespace uint32 `json:"tablespace"`
	CluCols    uint16 `json:"clu_cols"`
	Flags      uint64 `json:"flags"`
	Properties uint64 `json:"properties"`
}

// Schema is the hydrated dictionary subset the builder resolves objects
// against.
type Schema struct {
	Users   map[uint32]SysUser `json:"users"`
	Objects map[uint32]SysObj  `json:"objects"`
	Tables  map[uint32]SysTab  `json:"tables"`
}

func NewSchema() *Schema {
	return &Schema{
		Users:   make(map[uint32]SysUser),
		Objects: make(map[uint32]SysObj),
		Tables:  make(map[uint32]SysTab),
	}
}

func (s *Schema) AddUser(user uint32, name string, spare1 uint64) {
	s.Users[user] = SysUser{User: user, Name: name, Spare1: spare1}
}

func (s *Schema) AddObject(obj, dataObj, owner uint32, name string, objType uint16, flags uint64) {
	s.Objects[obj] = SysObj{Obj: obj, DataObj: dataObj, Owner: owner, Name: name, ObjType: objType, Flags: flags}
}

func (s *Schema) AddTable(obj, dataObj, tablespace uint32, cluCols uint16, flags, properties uint64) {
	s.Tables[obj] = SysTab{Obj: obj, DataObj: dataObj, Tablespace: tablespace, CluCols: cluCols, Flags: flags, Properties: properties}
}

// Table is the resolved view of one replicated table.
type Table struct {
	Obj     uint32
	DataObj uint32
	Owner   string
	Name    string
}

// TableByObj resolves an object id against OBJ$ joined with USER$.
func (s *Schema) TableByObj(obj uint32) (Table, bool) {
	object, ok := s.Objects[obj]
	if !ok {
		return Table{}, false
	}
	table := Table{
		Obj:     object.Obj,
		DataObj: object.DataObj,
		Name:    object.Name,
	}
	if user, ok := s.Users[object.Owner]; ok {
		table.Owner = user.Name
	}
	return table, true
}

// Save writes an s2-compressed JSON snapshot of the schema.
func (s *Schema) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return oerr.Wrap(err, oerr.FileSerialization, "can not serialize schema snapshot")
	}

	var compressed bytes.Buffer
	if err = utils.Compress(bytes.NewReader(data), &compressed); err != nil {
		return oerr.Wrap(err, oerr.FileSerialization, "can not compress schema snapshot")
	}
	if err = os.WriteFile(path, compressed.Bytes(), 0o644); err != nil {
		return oerr.Wrap(err, oerr.FileWriting, "can not write schema snapshot %s", path)
	}
	return nil
}

// LoadSchema reads an s2-compressed JSON snapshot.
func LoadSchema(path string) (*Schema, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, oerr.Wrap(err, oerr.SchemaReading, "can not read schema snapshot %s", path)
	}

	var data bytes.Buffer
	if err = utils.Decompress(bytes.NewReader(compressed), &data); err != nil {
		return nil, oerr.Wrap(err, oerr.FileDeserialization, "can not decompress schema snapshot %s", path)
	}

	schema := NewSchema()
	if err = json.Unmarshal(data.Bytes(), schema); err != nil {
		return nil, oerr.Wrap(err, oerr.FileDeserialization, "can not deserialize schema snapshot %s", path)
	}
	return schema, nil
}

// Source hydrates a schema for the configured object filters. Live database
// connectivity stays behind this interface; snapshot files are the offline
// implementation.
type Source interface {
	Hydrate(ctx context.Context, objects []DatabaseObject) (*Schema, error)
}

// SnapshotSource hydrates from a schema snapshot file.
type SnapshotSource struct {
	Path string
}

func (s SnapshotSource) Hydrate(_ context.Context, _ []DatabaseObject) (*Schema, error) {
	return LoadSchema(s.Path)
}
