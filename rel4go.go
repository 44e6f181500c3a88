// Package rel4go provides a minimal GORM-based custom relationship library
// for schemas that don't fit the built-in association taxonomy: arbitrary
// join structures, pivot transits and deduplication are expressed as
// strategy functions on a relation definition.
package rel4go

import (
	"gorm.io/gorm"

	"github.com/ammar0144/rel4go/pkg/db"
	"github.com/ammar0144/rel4go/pkg/relation"
)

// Config represents database configuration
type Config = db.Config

// NewManager creates a new database manager
func NewManager(config *Config) (*db.Manager, error) {
	return db.NewManager(config)
}

// Entity interface that all relation entities must implement
type Entity = relation.Entity

// Relations is an embeddable relation-value holder for models
type Relations = relation.Relations

// Metrics tracks relation resolution statistics
type Metrics = relation.Metrics

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return relation.NewMetrics()
}

// Define constructs a relation resolver backed by a database manager
func Define[P Entity, R Entity](manager *db.Manager, parent *P, def relation.Definition[P, R]) (*relation.Resolver[P, R], error) {
	return relation.Define(manager, parent, def)
}

// DefineDB constructs a relation resolver directly on a *gorm.DB
func DefineDB[P Entity, R Entity](gdb *gorm.DB, parent *P, def relation.Definition[P, R]) (*relation.Resolver[P, R], error) {
	return relation.DefineDB(gdb, parent, def)
}
