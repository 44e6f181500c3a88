package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintIsStable(t *testing.T) {
	a := Fingerprint("users", "permissions", "id", "user_id")
	b := Fingerprint("users", "permissions", "id", "user_id")
	assert.Equal(t, a, b)

	// Field boundaries matter: shifting a character across the separator
	// must change the fingerprint
	assert.NotEqual(t,
		Fingerprint("users", "permissions", "id", "user_id"),
		Fingerprint("userspermissions", "", "id", "user_id"),
	)
	assert.NotEqual(t, a, Fingerprint("users", "orders", "id", "user_id"))
}

func TestMetricsRecordResolutionFlow(t *testing.T) {
	m := NewMetrics()
	users := []*User{{ID: 1}, {ID: 2}}
	results := []*Permission{{ID: 10, UserID: 1}, {ID: 11, UserID: 1}}

	r, err := DefineDB(dryRunDB(t), users[0], Definition[User, Permission]{
		Base:       noopBase,
		ForeignKey: "user_id",
		Metrics:    m,
	})
	require.NoError(t, err)

	r.AddEagerConstraints(users)
	r.InitRelation(users, "permissions")
	r.Match(users, results, "permissions")

	stats := m.GetStats()
	assert.EqualValues(t, 1, stats.Resolutions)
	assert.EqualValues(t, 1, stats.EagerLoads)
	assert.EqualValues(t, 2, stats.ParentsInitialized)
	assert.EqualValues(t, 2, stats.RowsMatched)
	assert.EqualValues(t, 1, stats.EmptyBuckets) // user 2 had no rows

	fp := Fingerprint("users", "permissions", "id", "user_id")
	assert.EqualValues(t, 1, stats.PerRelation[fp])
}

func TestMetricsSharedAcrossResolvers(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 3; i++ {
		r, err := DefineDB(dryRunDB(t), &User{ID: 1}, Definition[User, Permission]{
			Base:       noopBase,
			ForeignKey: "user_id",
			Metrics:    m,
		})
		require.NoError(t, err)
		r.AddConstraints()
	}

	stats := m.GetStats()
	assert.EqualValues(t, 3, stats.Resolutions)
	assert.EqualValues(t, 0, stats.EagerLoads)
}
