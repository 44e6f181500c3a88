package db

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// Typed SQL vocabulary for relation strategies.
// Conditions and joins are compiled onto a *gorm.DB so strategy functions can
// declare constraint structure instead of hand-assembling SQL strings.
//
// SECURITY:
// Identifier fields (Field, Table, join conditions) are interpolated into raw
// SQL. They are validated against a conservative identifier pattern, but they
// are still meant for trusted, schema-derived names only. User input belongs
// exclusively in Condition.Value, which is always parameterized.

// Operator represents SQL comparison operators
type Operator string

const (
	Equal              Operator = "="
	NotEqual           Operator = "!="
	GreaterThan        Operator = ">"
	GreaterThanOrEqual Operator = ">="
	LessThan           Operator = "<"
	LessThanOrEqual    Operator = "<="
	Like               Operator = "LIKE"
	NotLike            Operator = "NOT LIKE"
	In                 Operator = "IN"
	NotIn              Operator = "NOT IN"
	IsNull             Operator = "IS NULL"
	IsNotNull          Operator = "IS NOT NULL"
)

// JoinType represents SQL JOIN types
type JoinType string

const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
	RightJoin JoinType = "RIGHT JOIN"
	CrossJoin JoinType = "CROSS JOIN"
)

// Condition represents a single WHERE predicate
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// JoinClause represents a JOIN operation
type JoinClause struct {
	Type      JoinType
	Table     string
	Condition string
	Args      []interface{}
}

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores,
// dots for table.column, a trailing .* for qualified stars)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*(\.\*)?$`)

// ValidIdentifier reports whether s is safe to interpolate as an SQL identifier
func ValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// Qualify prefixes column with table unless it is already qualified
func Qualify(table, column string) string {
	if IsQualified(column) {
		return column
	}
	return table + "." + column
}

// IsQualified reports whether column carries a table prefix
func IsQualified(column string) bool {
	return strings.Contains(column, ".")
}

// BareColumn strips any table prefix, keeping the bare column name
func BareColumn(column string) string {
	if i := strings.LastIndex(column, "."); i >= 0 {
		return column[i+1:]
	}
	return column
}

// Apply compiles the condition onto tx. Values are parameterized; an invalid
// field identifier is recorded as a statement error instead of being
// interpolated.
func (c Condition) Apply(tx *gorm.DB) *gorm.DB {
	if !ValidIdentifier(c.Field) {
		_ = tx.AddError(fmt.Errorf("invalid condition field %q", c.Field))
		return tx
	}

	switch c.Operator {
	case IsNull, IsNotNull:
		return tx.Where(fmt.Sprintf("%s %s", c.Field, c.Operator))
	case In, NotIn:
		return c.applyIn(tx)
	default:
		return tx.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), c.Value)
	}
}

// applyIn compiles IN/NOT IN with the empty-set guards: an empty IN can never
// match, an empty NOT IN always matches.
func (c Condition) applyIn(tx *gorm.DB) *gorm.DB {
	values := c.Value
	v := reflect.ValueOf(values)
	isSlice := values != nil && (v.Kind() == reflect.Slice || v.Kind() == reflect.Array)
	empty := values == nil || (isSlice && v.Len() == 0)

	if empty {
		if c.Operator == In {
			return tx.Where("1 = 0")
		}
		return tx.Where("1 = 1")
	}
	if !isSlice {
		// Single value, treat as one-element set
		values = []interface{}{values}
	}
	return tx.Where(fmt.Sprintf("%s %s ?", c.Field, c.Operator), values)
}

// Apply compiles the join onto tx
func (j JoinClause) Apply(tx *gorm.DB) *gorm.DB {
	if !ValidIdentifier(j.Table) {
		_ = tx.AddError(fmt.Errorf("invalid join table %q", j.Table))
		return tx
	}
	joinType := j.Type
	if joinType == "" {
		joinType = InnerJoin
	}
	if joinType == CrossJoin || j.Condition == "" {
		return tx.Joins(fmt.Sprintf("%s %s", joinType, j.Table))
	}
	return tx.Joins(fmt.Sprintf("%s %s ON %s", joinType, j.Table, j.Condition), j.Args...)
}
