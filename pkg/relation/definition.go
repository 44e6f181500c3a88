package relation

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ammar0144/rel4go/pkg/db"
)

// Definition configures a custom relationship.
//
// Base is the only required strategy: it establishes the relation's join
// structure (joins, pivot transits, dedup) and runs exactly once per
// resolution, before any parent-identity filtering. It must not filter by
// parent identity itself; that is layered on afterwards by Single/Eager
// strategies or by the key-based defaults.
//
// Every other strategy is optional. When one is absent, the resolver falls
// back to key-based logic using LocalKey/ForeignKey, so a Definition must
// carry either the keys or the strategies that replace them.
type Definition[P Entity, R Entity] struct {
	// Base applies the relation's join structure to the resolver's query.
	// Required. Runs first on every resolution, including existence subqueries.
	Base func(*Resolver[P, R])

	// Single applies parent-identity filtering when resolving from exactly
	// one parent. Default: WHERE ForeignKey = parent[LocalKey].
	Single func(*Resolver[P, R])

	// Eager applies parent-identity filtering for a batch of parents.
	// Default: select the foreign key column alongside the related table's
	// columns and add WHERE ForeignKey IN (parent LocalKey values).
	Eager func(*Resolver[P, R], []*P)

	// Match distributes fetched results onto their parents, replacing the
	// dictionary-based default entirely. Must return the parents.
	Match func(parents []*P, results []*R, relation string, r *Resolver[P, R]) []*P

	// Existence builds the correlated subquery used by exists-style filters
	// on the parent query. Default: correlate the qualified LocalKey to
	// ForeignKey; with no keys, fall back to the naming convention
	// parent.id = related.<singular(parent)>_id.
	Existence func(subquery, parentQuery *gorm.DB) *gorm.DB

	// LocalKey is the parent-side key column, dotted table.column or bare.
	// Defaults to the parent's primary key column.
	LocalKey string

	// ForeignKey is the related-side key column, dotted or bare.
	// No default; without it the key-based fallbacks cannot run.
	ForeignKey string

	// SkipSelfConstraint disables the default parent-identity WHERE on
	// single-parent resolutions, for callers that constrain externally
	SkipSelfConstraint bool

	// Metrics optionally records resolution statistics
	Metrics *Metrics
}

// Validate checks that the definition can drive every lifecycle hook.
// Missing keys degrade silently at match time in permissive designs; here
// they are rejected up front, per concern, unless a strategy replaces the
// key-based default for that concern.
func (d *Definition[P, R]) Validate() error {
	if d.Base == nil {
		return ErrMissingBaseConstraints
	}

	if d.ForeignKey == "" {
		if d.Single == nil && !d.SkipSelfConstraint {
			return fmt.Errorf("%w: single-parent filtering needs ForeignKey or a Single strategy", ErrKeysRequired)
		}
		if d.Eager == nil {
			return fmt.Errorf("%w: eager loading needs ForeignKey or an Eager strategy", ErrKeysRequired)
		}
		if d.Match == nil {
			return fmt.Errorf("%w: result matching needs ForeignKey or a Match strategy", ErrKeysRequired)
		}
	}

	if d.LocalKey != "" && !db.ValidIdentifier(d.LocalKey) {
		return fmt.Errorf("%w: local key %q", ErrInvalidIdentifier, d.LocalKey)
	}
	if d.ForeignKey != "" && !db.ValidIdentifier(d.ForeignKey) {
		return fmt.Errorf("%w: foreign key %q", ErrInvalidIdentifier, d.ForeignKey)
	}

	return nil
}
