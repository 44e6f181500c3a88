package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForeignKeyOf(t *testing.T) {
	assert.Equal(t, "user_id", ForeignKeyOf("users"))
	assert.Equal(t, "order_id", ForeignKeyOf("orders"))
	assert.Equal(t, "person_id", ForeignKeyOf("people"))
	assert.Equal(t, "category_id", ForeignKeyOf("categories"))
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "user_id", ColumnName("UserID"))
	assert.Equal(t, "created_at", ColumnName("CreatedAt"))
	assert.Equal(t, "id", ColumnName("ID"))
}
