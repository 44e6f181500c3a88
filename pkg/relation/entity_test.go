package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedEntity struct {
	Key   string `gorm:"primaryKey;column:token_key"`
	Scope string `gorm:"column:token_scope"`
	Note  string
}

func (taggedEntity) TableName() string { return "tokens" }

func (e taggedEntity) GetPrimaryKeyValue() interface{} { return e.Key }

type fielderEntity struct {
	hidden string
}

func (fielderEntity) TableName() string { return "fielders" }

func (fielderEntity) GetPrimaryKeyValue() interface{} { return nil }

func (e *fielderEntity) GetFieldValue(column string) (interface{}, bool) {
	if column == "hidden" {
		return e.hidden, true
	}
	return nil, false
}

type holderEntity struct {
	Relations
	ID uint
}

func (holderEntity) TableName() string { return "holders" }

func (e holderEntity) GetPrimaryKeyValue() interface{} { return e.ID }

type valueSliceParent struct {
	ID          uint
	Permissions []Permission
}

func (valueSliceParent) TableName() string { return "users" }

func (p valueSliceParent) GetPrimaryKeyValue() interface{} { return p.ID }

func TestFieldValueByColumnTag(t *testing.T) {
	e := &taggedEntity{Key: "k1", Scope: "read", Note: "n"}

	v, ok := fieldValue(e, "token_scope")
	require.True(t, ok)
	assert.Equal(t, "read", v)

	// Snake-cased field name when no column tag is present
	v, ok = fieldValue(e, "note")
	require.True(t, ok)
	assert.Equal(t, "n", v)

	_, ok = fieldValue(e, "missing")
	assert.False(t, ok)
}

func TestFieldValueSnakeCasesCompoundNames(t *testing.T) {
	p := &Permission{ID: 1, UserID: 42}
	v, ok := fieldValue(p, "user_id")
	require.True(t, ok)
	assert.EqualValues(t, 42, v)
}

func TestFieldValuePrefersFielder(t *testing.T) {
	e := &fielderEntity{hidden: "secret"}
	v, ok := fieldValue(e, "hidden")
	require.True(t, ok)
	assert.Equal(t, "secret", v)
}

func TestSetRelationValuePrefersHolder(t *testing.T) {
	e := &holderEntity{ID: 1}
	perms := []*Permission{{ID: 10}}
	require.True(t, setRelationValue(e, "permissions", perms))

	v, ok := e.RelationValue("permissions")
	require.True(t, ok)
	assert.Equal(t, perms, v)
}

func TestSetRelationValueReflectionFallback(t *testing.T) {
	u := &User{ID: 1}
	perms := []*Permission{{ID: 10}}
	require.True(t, setRelationValue(u, "permissions", perms))
	assert.Equal(t, perms, u.Permissions)
}

func TestSetRelationValueConvertsPointerSlices(t *testing.T) {
	p := &valueSliceParent{ID: 1}
	require.True(t, setRelationValue(p, "permissions", []*Permission{{ID: 10}, {ID: 11}}))
	require.Len(t, p.Permissions, 2)
	assert.EqualValues(t, 10, p.Permissions[0].ID)
	assert.EqualValues(t, 11, p.Permissions[1].ID)
}

func TestSetRelationValueUnknownField(t *testing.T) {
	u := &User{ID: 1}
	assert.False(t, setRelationValue(u, "groups", []*Permission{}))
}

func TestRelationsRoundTrip(t *testing.T) {
	var r Relations
	_, ok := r.RelationValue("permissions")
	assert.False(t, ok)

	r.SetRelationValue("permissions", []*Permission{{ID: 1}})
	v, ok := r.RelationValue("permissions")
	require.True(t, ok)
	require.Len(t, v.([]*Permission), 1)
}

func TestPrimaryKeyColumnFromTag(t *testing.T) {
	assert.Equal(t, "token_key", primaryKeyColumn(nil, &taggedEntity{}))
	assert.Equal(t, "id", primaryKeyColumn(nil, &User{}))
	assert.Equal(t, "id", primaryKeyColumn(nil, struct{ Name string }{}))
}

func TestPrimaryKeyColumnFromSchema(t *testing.T) {
	gdb, _ := newTestDB(t)
	assert.Equal(t, "id", primaryKeyColumn(gdb, &User{}))
	assert.Equal(t, "token_key", primaryKeyColumn(gdb, &taggedEntity{}))
}
