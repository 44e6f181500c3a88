package relation

import (
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"
	"gorm.io/gorm"
)

// Entity interface defines the minimal contract for relation entities.
// GORM models should implement this for predictable table and key resolution.
type Entity interface {
	// TableName returns the database table name for this entity
	// This should match GORM's table naming convention
	TableName() string

	// GetPrimaryKeyValue returns the actual value of the primary key
	// Used for self-constraining single-parent queries and eager key sets
	GetPrimaryKeyValue() interface{}
}

// Fielder allows entities to expose attribute values by database column name.
// If not implemented, reflection is used as fallback: the gorm column tag is
// consulted first, then the snake-cased field name.
type Fielder interface {
	GetFieldValue(column string) (interface{}, bool)
}

// Holder allows entities to accept relation values by name.
// If not implemented, reflection is used as fallback: the matcher assigns an
// exported slice field named after the relation (CamelCase of the name).
type Holder interface {
	SetRelationValue(name string, value interface{})
}

// Relations is an embeddable map-backed Holder implementation.
// Embed it with a `gorm:"-"` tag so GORM ignores it:
//
//	type User struct {
//	    ID uint
//	    relation.Relations `gorm:"-"`
//	}
type Relations struct {
	values map[string]interface{}
}

// SetRelationValue stores a relation value under name
func (r *Relations) SetRelationValue(name string, value interface{}) {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	r.values[name] = value
}

// RelationValue returns the relation value stored under name
func (r *Relations) RelationValue(name string) (interface{}, bool) {
	v, ok := r.values[name]
	return v, ok
}

// ============================================================================
// REFLECTION FALLBACKS
// ============================================================================

// fieldValue looks up an attribute by database column name.
// Prefers the Fielder interface, then falls back to reflection over struct
// fields (gorm column tag first, snake-cased field name second).
func fieldValue(entity interface{}, column string) (interface{}, bool) {
	if f, ok := entity.(Fielder); ok {
		return f.GetFieldValue(column)
	}

	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return nil, false
	}
	return structFieldByColumn(v, column)
}

func structFieldByColumn(v reflect.Value, column string) (interface{}, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}
		if field.Anonymous {
			fv := v.Field(i)
			if fv.Kind() == reflect.Ptr {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				if val, ok := structFieldByColumn(fv, column); ok {
					return val, true
				}
			}
			continue
		}
		if columnForField(field) == column {
			return v.Field(i).Interface(), true
		}
	}
	return nil, false
}

// columnForField derives the database column name for a struct field
func columnForField(field reflect.StructField) string {
	if col := gormColumnTag(field.Tag.Get("gorm")); col != "" {
		return col
	}
	return strcase.ToSnake(field.Name)
}

// gormColumnTag extracts the column name from a gorm tag, if present
func gormColumnTag(tag string) string {
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "column:") {
			return strings.TrimPrefix(part, "column:")
		}
	}
	return ""
}

// setRelationValue assigns a relation value to an entity.
// Prefers the Holder interface, then falls back to setting an exported struct
// field named after the relation. Slices of values and slices of pointers are
// converted as needed; entities exposing neither path are left untouched.
func setRelationValue(entity interface{}, name string, value interface{}) bool {
	if h, ok := entity.(Holder); ok {
		h.SetRelationValue(name, value)
		return true
	}

	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return false
	}

	field := v.FieldByName(strcase.ToCamel(name))
	if !field.IsValid() || !field.CanSet() {
		return false
	}
	return assignValue(field, reflect.ValueOf(value))
}

// assignValue sets src into field, converting []*T <-> []T element-wise when
// the slice element types differ only by one level of indirection
func assignValue(field, src reflect.Value) bool {
	if !src.IsValid() {
		return false
	}
	if src.Type().AssignableTo(field.Type()) {
		field.Set(src)
		return true
	}
	if field.Kind() != reflect.Slice || src.Kind() != reflect.Slice {
		return false
	}

	elem := field.Type().Elem()
	out := reflect.MakeSlice(field.Type(), 0, src.Len())
	for i := 0; i < src.Len(); i++ {
		ev := src.Index(i)
		switch {
		case ev.Type().AssignableTo(elem):
			out = reflect.Append(out, ev)
		case ev.Kind() == reflect.Ptr && ev.Type().Elem() == elem:
			if ev.IsNil() {
				return false
			}
			out = reflect.Append(out, ev.Elem())
		case elem.Kind() == reflect.Ptr && elem.Elem() == ev.Type() && ev.CanAddr():
			out = reflect.Append(out, ev.Addr())
		default:
			return false
		}
	}
	field.Set(out)
	return true
}

// primaryKeyColumn extracts the primary key column name for a model.
// Tries GORM's schema parser first, then reflection over gorm tags, then
// common primary key field names, defaulting to "id".
func primaryKeyColumn(gdb *gorm.DB, model interface{}) string {
	if gdb != nil {
		stmt := &gorm.Statement{DB: gdb}
		if err := stmt.Parse(model); err == nil && stmt.Schema != nil {
			if fields := stmt.Schema.PrimaryFields; len(fields) > 0 && fields[0] != nil {
				return fields[0].DBName
			}
		}
	}

	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return "id"
	}

	// Look for a field tagged as primary key
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		gormTag := field.Tag.Get("gorm")
		if strings.Contains(gormTag, "primaryKey") || strings.Contains(gormTag, "primary_key") {
			return columnForField(field)
		}
	}

	// Look for common primary key field names
	for i := 0; i < t.NumField(); i++ {
		name := strings.ToLower(t.Field(i).Name)
		if name == "id" || name == "uuid" {
			return name
		}
	}

	return "id"
}
