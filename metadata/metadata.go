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

// Package metadata owns the replicated-schema state: the object filter list
// seeded with the dictionary tables, the user set, and the hydrated schema.
package metadata

import (
	"strings"
	"sync"

	"github.com/B1NARY-GR0UP/redolith/pkg/logger"
	"github.com/B1NARY-GR0UP/redolith/types"
	"github.com/B1NARY-GR0UP/redolith/utils"
)

// Object filter options.
const (
	OptionsSystemTable uint8 = 1
	OptionsSchemaTable uint8 = 2
)

// DatabaseObject is one entry of the replication filter: a schema plus a
// table-name pattern.
type DatabaseObject struct {
	Schema  string   `json:"schema"`
	Name    string   `json:"name"`
	Options uint8    `json:"options"`
	Keys    []string `json:"keys,omitempty"`
}

func NewDatabaseObject(schema, name string, options uint8) DatabaseObject {
	return DatabaseObject{Schema: schema, Name: name, Options: options}
}

func (o *DatabaseObject) AddKey(key string) {
	o.Keys = append(o.Keys, key)
}

func (o *DatabaseObject) IsSystem() bool {
	return o.Options&OptionsSystemTable != 0
}

// Fingerprint identifies the object inside lookup sets.
func (o *DatabaseObject) Fingerprint() uint64 {
	return utils.Fingerprint(o.Schema + "." + o.Name)
}

// Metadata carries the per-source replication state that is not derivable
// from the redo stream itself.
type Metadata struct {
	mu     sync.RWMutex
	logger logger.Logger

	sourceName    string
	containerID   int16
	startScn      types.Scn
	startSequence types.Seq

	objects      []DatabaseObject
	objectPrints map[uint64]struct{}
	users        map[string]struct{}

	schema *Schema
}

func New(sourceName string, containerID int16, startScn types.Scn, startSequence types.Seq) *Metadata {
	m := &Metadata{
		logger:        logger.GetLogger(),
		sourceName:    sourceName,
		containerID:   containerID,
		startScn:      startScn,
		startSequence: startSequence,
		objectPrints:  make(map[uint64]struct{}),
		users:         make(map[string]struct{}),
		schema:        NewSchema(),
	}
	m.ResetObjects()
	return m
}

func (m *Metadata) SourceName() string {
	return m.sourceName
}

func (m *Metadata) StartScn() types.Scn {
	return m.startScn
}

func (m *Metadata) StartSequence() types.Seq {
	return m.startSequence
}

// ResetObjects reinstates the dictionary-table seed set.
func (m *Metadata) ResetObjects() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects = m.objects[:0]
	m.objectPrints = make(map[uint64]struct{})
	for _, seed := range []struct {
		schema string
		name   string
		opts   uint8
	}{
		{"SYS", `CCOL\$`, OptionsSystemTable | OptionsSchemaTable},
		{"SYS", `CDEF\$`, OptionsSystemTable | OptionsSchemaTable},
		{"SYS", `COL\$`, OptionsSystemTable | OptionsSchemaTable},
		{"SYS", `DEFERRED_STG\$`, OptionsSystemTable},
		{"SYS", `ECOL\$`, OptionsSystemTable | OptionsSchemaTable},
		{"SYS", `LOB\$`, OptionsSystemTable},
		{"SYS", `LOBCOMPPART\$`, OptionsSystemTable},
		{"SYS", `LOBFRAG\$`, OptionsSystemTable},
		{"SYS", `OBJ\$`, OptionsSystemTable},
		{"SYS", `TAB\$`, OptionsSystemTable},
		{"SYS", `TABPART\$`, OptionsSystemTable},
		{"SYS", `TABCOMPART\$`, OptionsSystemTable},
		{"SYS", `TABSUBPART\$`, OptionsSystemTable},
		{"SYS", `TS\$`, OptionsSystemTable},
		{"SYS", `USER\$`, OptionsSystemTable},
		{"XDB", `XDB\$TTSET`, OptionsSystemTable},
		{"XDB", `X\$NM.*`, OptionsSystemTable},
		{"XDB", `X\$PT.*`, OptionsSystemTable},
		{"XDB", `X\$QN.*`, OptionsSystemTable},
	} {
		obj := NewDatabaseObject(seed.schema, seed.name, seed.opts)
		m.objects = append(m.objects, obj)
		m.objectPrints[obj.Fingerprint()] = struct{}{}
	}
}

// AddObject appends a user table to the filter list, forcing names to upper
// case the way the dictionary stores them.
func (m *Metadata) AddObject(user, table string, options uint8) *DatabaseObject {
	if user != strings.ToUpper(user) {
		m.logger.Warnf("user %q is not all uppercase, force rename", user)
		user = strings.ToUpper(user)
	}
	if table != strings.ToUpper(table) {
		m.logger.Warnf("table %q is not all uppercase, force rename", table)
		table = strings.ToUpper(table)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obj := NewDatabaseObject(user, table, options)
	m.objects = append(m.objects, obj)
	m.objectPrints[obj.Fingerprint()] = struct{}{}
	return &m.objects[len(m.objects)-1]
}

// HasObject reports whether a schema.table pattern is already filtered.
func (m *Metadata) HasObject(user, table string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objectPrints[utils.Fingerprint(user+"."+table)]
	return ok
}

// Objects returns a copy of the filter list.
func (m *Metadata) Objects() []DatabaseObject {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]DatabaseObject, len(m.objects))
	copy(res, m.objects)
	return res
}

func (m *Metadata) AddUser(user string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user] = struct{}{}
}

func (m *Metadata) HasUser(user string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[user]
	return ok
}

// SetSchema installs a hydrated schema.
func (m *Metadata) SetSchema(schema *Schema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schema = schema
}

// TableByObj resolves an object id through the installed schema.
func (m *Metadata) TableByObj(obj uint32) (Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schema.TableByObj(obj)
}
