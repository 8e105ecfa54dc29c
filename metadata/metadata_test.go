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
	"context"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B1NARY-GR0UP/redolith/types"
)

func TestSeedObjects(t *testing.T) {
	m := New("TESTDB", -1, types.ScnNull, 0)

	objects := m.Objects()
	assert.Len(t, objects, 19)
	assert.True(t, m.HasObject("SYS", `OBJ\$`))
	assert.True(t, m.HasObject("XDB", `XDB\$TTSET`))
	assert.False(t, m.HasObject("APP", "ORDERS"))
}

func TestAddObjectForcesUppercase(t *testing.T) {
	m := New("TESTDB", -1, types.ScnNull, 0)

	obj := m.AddObject("app", "orders", 0)
	assert.Equal(t, "APP", obj.Schema)
	assert.Equal(t, "ORDERS", obj.Name)
	assert.True(t, m.HasObject("APP", "ORDERS"))
	assert.False(t, obj.IsSystem())
}

func TestAddUser(t *testing.T) {
	m := New("TESTDB", -1, types.ScnNull, 0)
	m.AddUser("APP")
	assert.True(t, m.HasUser("APP"))
	assert.False(t, m.HasUser("OTHER"))
}

func TestSchemaTableByObj(t *testing.T) {
	schema := NewSchema()
	schema.AddUser(7, "APP", 0)
	schema.AddObject(100, 101, 7, "ORDERS", 2, 0)
	schema.AddTable(100, 101, 4, 0, 0, 0)

	table, ok := schema.TableByObj(100)
	require.True(t, ok)
	assert.Equal(t, "APP", table.Owner)
	assert.Equal(t, "ORDERS", table.Name)
	assert.Equal(t, uint32(101), table.DataObj)

	_, ok = schema.TableByObj(999)
	assert.False(t, ok)
}

func TestSchemaSnapshotRoundTrip(t *testing.T) {
	schema := NewSchema()
	schema.AddUser(7, "APP", 1)
	schema.AddObject(100, 101, 7, "ORDERS", 2, 0x20)
	schema.AddTable(100, 101, 4, 2, 1, 536870912)

	file := path.Join(t.TempDir(), "schema.snapshot")
	require.NoError(t, schema.Save(file))

	loaded, err := LoadSchema(file)
	require.NoError(t, err)
	assert.Equal(t, schema, loaded)
}

func TestSnapshotSource(t *testing.T) {
	schema := NewSchema()
	schema.AddUser(7, "APP", 0)
	file := path.Join(t.TempDir(), "schema.snapshot")
	require.NoError(t, schema.Save(file))

	m := New("TESTDB", -1, types.ScnNull, 0)
	hydrated, err := SnapshotSource{Path: file}.Hydrate(context.Background(), m.Objects())
	require.NoError(t, err)
	m.SetSchema(hydrated)

	_, ok := m.TableByObj(1)
	assert.False(t, ok)
}

func TestLoadSchemaMissingFile(t *testing.T) {
	_, err := LoadSchema(path.Join(t.TempDir(), "nope.snapshot"))
	assert.Error(t, err)
}
