package relation

import (
	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// Naming conventions for key-column fallbacks.
//
// These follow GORM's conventions: tables are plural snake_case, foreign keys
// are the singular table name suffixed with _id. Irregular nouns are handled
// by the inflection package ("people" -> "person_id").

// ForeignKeyOf returns the conventional foreign key column referencing table,
// e.g. "users" -> "user_id"
func ForeignKeyOf(table string) string {
	return inflection.Singular(table) + "_id"
}

// ColumnName converts a Go field name to its conventional column name,
// e.g. "UserID" -> "user_id"
func ColumnName(field string) string {
	return strcase.ToSnake(field)
}
