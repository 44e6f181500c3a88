package relation

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm"

	"github.com/ammar0144/rel4go/pkg/db"
)

// Resolver drives one custom relationship resolution.
//
// A Resolver owns its *gorm.DB handle exclusively for the duration of one
// resolution (single-parent or eager batch) and is then discarded; it is not
// safe to share across concurrent resolutions or to re-enter an earlier
// lifecycle phase. Strategy functions run synchronously on the caller's
// stack and may mutate the owned query handle through the builder methods.
type Resolver[P Entity, R Entity] struct {
	query  *gorm.DB
	parent *P
	def    Definition[P, R]

	parentTable  string
	relatedTable string
	parentPK     string
	localKey     string
	foreignKey   string

	manager     *db.Manager
	metrics     *Metrics
	fingerprint uint64

	baseApplied bool
}

// ============================================================================
// QUERY BUILDER SURFACE (for strategy functions)
// ============================================================================

// Query returns the owned query handle
func (r *Resolver[P, R]) Query() *gorm.DB {
	return r.query
}

// SetQuery replaces the owned query handle
func (r *Resolver[P, R]) SetQuery(tx *gorm.DB) {
	r.query = tx
}

// Where appends a WHERE condition to the owned query
func (r *Resolver[P, R]) Where(query interface{}, args ...interface{}) *Resolver[P, R] {
	r.query = r.query.Where(query, args...)
	return r
}

// Apply compiles a typed condition onto the owned query
func (r *Resolver[P, R]) Apply(c db.Condition) *Resolver[P, R] {
	r.query = c.Apply(r.query)
	return r
}

// Join compiles a typed join clause onto the owned query
func (r *Resolver[P, R]) Join(j db.JoinClause) *Resolver[P, R] {
	r.query = j.Apply(r.query)
	return r
}

// Joins appends a raw join clause to the owned query
func (r *Resolver[P, R]) Joins(query string, args ...interface{}) *Resolver[P, R] {
	r.query = r.query.Joins(query, args...)
	return r
}

// Select sets the columns queued for selection
func (r *Resolver[P, R]) Select(columns ...string) *Resolver[P, R] {
	r.query = r.query.Select(columns)
	return r
}

// Distinct enables DISTINCT selection, typically needed when the base join
// structure fans out over a pivot table
func (r *Resolver[P, R]) Distinct(args ...interface{}) *Resolver[P, R] {
	r.query = r.query.Distinct(args...)
	return r
}

// Scopes registers GORM scopes on the owned query
func (r *Resolver[P, R]) Scopes(scopes ...func(*gorm.DB) *gorm.DB) *Resolver[P, R] {
	r.query = r.query.Scopes(scopes...)
	return r
}

// Parent returns the initiating parent entity (nil in eager mode)
func (r *Resolver[P, R]) Parent() *P {
	return r.parent
}

// ParentTable returns the parent entity's table name
func (r *Resolver[P, R]) ParentTable() string {
	return r.parentTable
}

// RelatedTable returns the related entity's table name
func (r *Resolver[P, R]) RelatedTable() string {
	return r.relatedTable
}

// LocalKey returns the parent-side key column (dotted or bare)
func (r *Resolver[P, R]) LocalKey() string {
	return r.localKey
}

// ForeignKey returns the related-side key column (dotted or bare)
func (r *Resolver[P, R]) ForeignKey() string {
	return r.foreignKey
}

// ============================================================================
// LIFECYCLE HOOKS
// ============================================================================

// AddConstraints applies the base constraints followed by single-parent
// filtering. Called once when resolving from exactly one parent; exactly one
// of AddConstraints/AddEagerConstraints runs per resolution.
func (r *Resolver[P, R]) AddConstraints() {
	r.applyBase()
	if r.metrics != nil {
		r.metrics.recordResolution(r.fingerprint, false)
	}

	if r.def.Single != nil {
		r.def.Single(r)
		return
	}
	if r.def.SkipSelfConstraint {
		return
	}
	r.query = r.query.Where(fmt.Sprintf("%s = ?", r.foreignKey), r.parentKeyValue(r.parent))
}

// AddEagerConstraints applies the base constraints followed by batch
// filtering over parents. The default selects the foreign key column
// alongside the related table's columns so the key is present on every
// result row for Match.
func (r *Resolver[P, R]) AddEagerConstraints(parents []*P) {
	r.applyBase()
	if r.metrics != nil {
		r.metrics.recordResolution(r.fingerprint, true)
	}

	if r.def.Eager != nil {
		r.def.Eager(r, parents)
		return
	}

	r.query = r.query.Select([]string{
		r.relatedTable + ".*",
		db.Qualify(r.relatedTable, r.foreignKey),
	})
	r.query = db.Condition{
		Field:    r.foreignKey,
		Operator: db.In,
		Value:    r.eagerKeys(parents),
	}.Apply(r.query)
}

// InitRelation pre-assigns an empty result collection to every parent, so
// parents with no matches still expose an empty (not absent) collection
// after Match runs.
func (r *Resolver[P, R]) InitRelation(parents []*P, relation string) []*P {
	for _, parent := range parents {
		setRelationValue(parent, relation, make([]*R, 0))
	}
	if r.metrics != nil {
		r.metrics.recordInit(len(parents))
	}
	return parents
}

// Match distributes results onto their parents. A Match strategy delegates
// entirely; the default builds a foreign-key dictionary and assigns each
// parent its bucket, leaving parents without one on the empty collection
// from InitRelation. Running Match twice with the same inputs yields the
// same assignment.
func (r *Resolver[P, R]) Match(parents []*P, results []*R, relation string) []*P {
	if r.def.Match != nil {
		return r.def.Match(parents, results, relation, r)
	}
	if r.foreignKey == "" || r.localKey == "" {
		// Unreachable for validated definitions; kept as the permissive
		// degenerate path for resolvers built from a zero Definition.
		return parents
	}

	localKey := db.BareColumn(r.localKey)
	dictionary := r.BuildDictionary(results)

	matched, empty := 0, 0
	for _, parent := range parents {
		value, ok := fieldValue(parent, localKey)
		if !ok {
			empty++
			continue
		}
		bucket, ok := dictionary[normalizeKey(value)]
		if !ok {
			empty++
			continue
		}
		setRelationValue(parent, relation, bucket)
		matched += len(bucket)
	}
	if r.metrics != nil {
		r.metrics.recordMatch(matched, empty)
	}
	return parents
}

// BuildDictionary maps foreign-key values to their result rows in a single
// pass, preserving encounter order within each bucket.
func (r *Resolver[P, R]) BuildDictionary(results []*R) map[string][]*R {
	foreignKey := db.BareColumn(r.foreignKey)
	dictionary := make(map[string][]*R, len(results))
	for _, result := range results {
		value, ok := fieldValue(result, foreignKey)
		if !ok {
			continue
		}
		key := normalizeKey(value)
		dictionary[key] = append(dictionary[key], result)
	}
	return dictionary
}

// GetResults executes the configured query for a single-parent resolution
func (r *Resolver[P, R]) GetResults(ctx context.Context) ([]*R, error) {
	return r.Get(ctx)
}

// Get executes the configured query and returns hydrated related entities.
// Columns already queued on the query win over the supplied ones; "*" expands
// to the related table's columns. Scopes and nested preloads registered on
// the query run inside GORM's Find. The returned slice is never nil.
func (r *Resolver[P, R]) Get(ctx context.Context, columns ...string) ([]*R, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before relation fetch: %w", err)
	}

	cancel := func() {}
	if r.manager != nil {
		ctx, cancel = r.manager.WithQueryTimeout(ctx)
	}
	defer cancel()

	tx := r.query
	if len(tx.Statement.Selects) == 0 {
		if len(columns) == 0 {
			columns = []string{"*"}
		}
		selects := make([]string, 0, len(columns))
		for _, column := range columns {
			if column == "*" {
				column = r.relatedTable + ".*"
			}
			selects = append(selects, column)
		}
		tx = tx.Select(selects)
	}

	start := time.Now()
	results := make([]*R, 0)
	if err := tx.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("relation query failed: %w", err)
	}
	if r.metrics != nil {
		r.metrics.recordFetch(len(results), time.Since(start))
	}
	return results, nil
}

// ExistenceQuery builds the correlated subquery used by exists-style filters
// on the parent query. The base constraints are re-applied to the subquery
// first: the relation's join structure must be present in the existence
// check too. With both keys set, the qualified local key is correlated to
// the foreign key; with neither, the naming-convention fallback correlates
// parent.id to related.<singular(parent)>_id.
func (r *Resolver[P, R]) ExistenceQuery(subquery, parentQuery *gorm.DB, columns ...string) *gorm.DB {
	subquery = r.applyBaseTo(subquery)

	if r.def.Existence != nil {
		return r.def.Existence(subquery, parentQuery)
	}

	if len(columns) == 0 {
		columns = []string{"*"}
	}
	subquery = subquery.Select(columns)

	if r.foreignKey != "" && r.localKey != "" {
		localKey := db.Qualify(r.parentTable, r.localKey)
		return subquery.Where(fmt.Sprintf("%s = %s", localKey, r.foreignKey))
	}

	// Last-resort naming convention for foreign-key-by-convention schemas
	return subquery.Where(fmt.Sprintf("%s = %s",
		db.Qualify(r.parentTable, "id"),
		db.Qualify(r.relatedTable, ForeignKeyOf(r.parentTable)),
	))
}

// ============================================================================
// INTERNAL
// ============================================================================

// applyBase runs the base constraints exactly once per resolution
func (r *Resolver[P, R]) applyBase() {
	if r.baseApplied {
		return
	}
	r.baseApplied = true
	r.def.Base(r)
}

// applyBaseTo runs the base constraints against tx instead of the owned
// query, used for existence subqueries
func (r *Resolver[P, R]) applyBaseTo(tx *gorm.DB) *gorm.DB {
	owned := r.query
	r.query = tx
	r.def.Base(r)
	tx = r.query
	r.query = owned
	return tx
}

// parentKeyValue extracts the local key value from a parent entity
func (r *Resolver[P, R]) parentKeyValue(parent *P) interface{} {
	if parent == nil {
		return nil
	}
	column := db.BareColumn(r.localKey)
	if column == r.parentPK {
		return (*parent).GetPrimaryKeyValue()
	}
	if value, ok := fieldValue(parent, column); ok {
		return value
	}
	return nil
}

// eagerKeys collects the distinct local key values across parents,
// preserving encounter order
func (r *Resolver[P, R]) eagerKeys(parents []*P) []interface{} {
	seen := make(map[string]struct{}, len(parents))
	keys := make([]interface{}, 0, len(parents))
	for _, parent := range parents {
		value := r.parentKeyValue(parent)
		if value == nil {
			continue
		}
		normalized := normalizeKey(value)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		keys = append(keys, value)
	}
	return keys
}

// normalizeKey folds key values to a comparable form so differently-typed
// numeric keys (int32 vs int64 from the driver) land in the same bucket
func normalizeKey(value interface{}) string {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "<nil>"
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return "<nil>"
	}
	return fmt.Sprintf("%v", v.Interface())
}
