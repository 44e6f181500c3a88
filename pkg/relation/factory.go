// Package relation implements callback-configurable custom relationships on
// top of GORM. A Definition carries a required base-constraint strategy plus
// optional per-hook strategies and key names; the Resolver it produces either
// runs a strategy or falls back to key-based defaults at each lifecycle hook
// (single constraints, eager constraints, matching, existence subqueries).
package relation

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ammar0144/rel4go/pkg/db"
)

// Define constructs a resolver for the relationship from parent to R using a
// Manager-backed connection. The manager's QueryTimeout bounds the terminal
// fetch. The resolver is single-use: build one per relationship access.
func Define[P Entity, R Entity](manager *db.Manager, parent *P, def Definition[P, R]) (*Resolver[P, R], error) {
	if manager == nil {
		return nil, fmt.Errorf("database manager cannot be nil")
	}
	resolver, err := DefineDB(manager.DB(), parent, def)
	if err != nil {
		return nil, err
	}
	resolver.manager = manager
	return resolver, nil
}

// DefineDB constructs a resolver directly on a *gorm.DB, without timeout
// plumbing. For eager loading over a batch, parent may be any entity of the
// batch; it is only consulted for table and key resolution until
// AddConstraints runs.
func DefineDB[P Entity, R Entity](gdb *gorm.DB, parent *P, def Definition[P, R]) (*Resolver[P, R], error) {
	if gdb == nil {
		return nil, fmt.Errorf("gorm handle cannot be nil")
	}
	if parent == nil {
		return nil, fmt.Errorf("%w: parent entity cannot be nil", ErrInvalidEntity)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	var related R
	relatedTable := related.TableName()
	if relatedTable == "" {
		return nil, fmt.Errorf("%w: related type %T returned empty TableName()", ErrInvalidEntity, related)
	}
	if !db.ValidIdentifier(relatedTable) {
		return nil, fmt.Errorf("%w: related table %q", ErrInvalidIdentifier, relatedTable)
	}
	parentTable := (*parent).TableName()
	if parentTable == "" {
		return nil, fmt.Errorf("%w: parent type %T returned empty TableName()", ErrInvalidEntity, parent)
	}
	if !db.ValidIdentifier(parentTable) {
		return nil, fmt.Errorf("%w: parent table %q", ErrInvalidIdentifier, parentTable)
	}

	// Fail construction if the related type cannot back a query
	stmt := &gorm.Statement{DB: gdb}
	if err := stmt.Parse(new(R)); err != nil {
		return nil, fmt.Errorf("%w: cannot resolve schema for %T: %v", ErrInvalidEntity, related, err)
	}

	localKey := def.LocalKey
	parentPK := primaryKeyColumn(gdb, parent)
	if localKey == "" {
		localKey = parentPK
	}

	return &Resolver[P, R]{
		query:        gdb.Model(new(R)),
		parent:       parent,
		def:          def,
		parentTable:  parentTable,
		relatedTable: relatedTable,
		parentPK:     parentPK,
		localKey:     localKey,
		foreignKey:   def.ForeignKey,
		metrics:      def.Metrics,
		fingerprint:  Fingerprint(parentTable, relatedTable, localKey, def.ForeignKey),
	}, nil
}
