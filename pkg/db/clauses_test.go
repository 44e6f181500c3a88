package db

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return gdb.Session(&gorm.Session{DryRun: true})
}

func renderSQL(tx *gorm.DB) (string, []interface{}) {
	stmt := tx.Find(&[]map[string]interface{}{}).Statement
	return strings.ReplaceAll(stmt.SQL.String(), "`", ""), stmt.Vars
}

func TestConditionApplyComparison(t *testing.T) {
	tx := dryRunDB(t).Table("orders")
	tx = Condition{Field: "total", Operator: GreaterThan, Value: 100}.Apply(tx)

	sql, vars := renderSQL(tx)
	assert.Contains(t, sql, "total > ?")
	require.Len(t, vars, 1)
	assert.EqualValues(t, 100, vars[0])
}

func TestConditionApplyIn(t *testing.T) {
	tx := dryRunDB(t).Table("orders")
	tx = Condition{Field: "user_id", Operator: In, Value: []interface{}{1, 2}}.Apply(tx)

	sql, vars := renderSQL(tx)
	assert.Contains(t, sql, "user_id IN (?,?)")
	assert.Len(t, vars, 2)
}

func TestConditionApplyInSingleValue(t *testing.T) {
	tx := dryRunDB(t).Table("orders")
	tx = Condition{Field: "user_id", Operator: In, Value: 7}.Apply(tx)

	sql, vars := renderSQL(tx)
	assert.Contains(t, sql, "user_id IN (?)")
	require.Len(t, vars, 1)
	assert.EqualValues(t, 7, vars[0])
}

func TestConditionApplyEmptyIn(t *testing.T) {
	// An empty IN can never match; an empty NOT IN always matches
	tx := dryRunDB(t).Table("orders")
	tx = Condition{Field: "user_id", Operator: In, Value: []interface{}{}}.Apply(tx)
	sql, _ := renderSQL(tx)
	assert.Contains(t, sql, "1 = 0")

	tx = dryRunDB(t).Table("orders")
	tx = Condition{Field: "user_id", Operator: NotIn, Value: nil}.Apply(tx)
	sql, _ = renderSQL(tx)
	assert.Contains(t, sql, "1 = 1")
}

func TestConditionApplyNullChecks(t *testing.T) {
	tx := dryRunDB(t).Table("orders")
	tx = Condition{Field: "deleted_at", Operator: IsNull}.Apply(tx)

	sql, vars := renderSQL(tx)
	assert.Contains(t, sql, "deleted_at IS NULL")
	assert.Empty(t, vars)
}

func TestConditionApplyRejectsUnsafeField(t *testing.T) {
	tx := dryRunDB(t).Table("orders")
	tx = Condition{Field: "total; DROP TABLE orders", Operator: Equal, Value: 1}.Apply(tx)
	require.Error(t, tx.Error)
}

func TestJoinClauseApply(t *testing.T) {
	tx := dryRunDB(t).Table("permissions")
	tx = JoinClause{
		Type:      LeftJoin,
		Table:     "role_permission",
		Condition: "role_permission.permission_id = permissions.id",
	}.Apply(tx)

	sql, _ := renderSQL(tx)
	assert.Contains(t, sql, "LEFT JOIN role_permission ON role_permission.permission_id = permissions.id")
}

func TestJoinClauseApplyDefaultsToInnerJoin(t *testing.T) {
	tx := dryRunDB(t).Table("permissions")
	tx = JoinClause{
		Table:     "role_permission",
		Condition: "role_permission.permission_id = permissions.id",
	}.Apply(tx)

	sql, _ := renderSQL(tx)
	assert.Contains(t, sql, "INNER JOIN role_permission")
}

func TestJoinClauseApplyRejectsUnsafeTable(t *testing.T) {
	tx := dryRunDB(t).Table("permissions")
	tx = JoinClause{Table: "x; DROP TABLE y", Condition: "1 = 1"}.Apply(tx)
	require.Error(t, tx.Error)
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("user_id"))
	assert.True(t, ValidIdentifier("orders.user_id"))
	assert.True(t, ValidIdentifier("orders.*"))
	assert.True(t, ValidIdentifier("_private"))

	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("1col"))
	assert.False(t, ValidIdentifier("user id"))
	assert.False(t, ValidIdentifier("id; DROP"))
	assert.False(t, ValidIdentifier(strings.Repeat("a", 129)))
}

func TestQualifiedColumnHelpers(t *testing.T) {
	assert.Equal(t, "users.id", Qualify("users", "id"))
	assert.Equal(t, "orders.user_id", Qualify("users", "orders.user_id"))

	assert.Equal(t, "id", BareColumn("users.id"))
	assert.Equal(t, "id", BareColumn("id"))

	assert.True(t, IsQualified("users.id"))
	assert.False(t, IsQualified("id"))
}
