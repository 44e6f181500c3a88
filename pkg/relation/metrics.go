package relation

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Metrics tracks relation resolution statistics.
// All counters are atomic; a single Metrics instance may be shared by any
// number of resolvers. Resolvers run fine with a nil Metrics.
type Metrics struct {
	// Resolution counters
	resolutions atomic.Uint64
	eagerLoads  atomic.Uint64

	// Matching counters
	rowsMatched        atomic.Uint64
	parentsInitialized atomic.Uint64
	emptyBuckets       atomic.Uint64

	// Fetch counters
	fetches           atomic.Uint64
	rowsFetched       atomic.Uint64
	totalFetchLatency atomic.Uint64 // nanoseconds

	// Per-relation resolution counts keyed by Fingerprint
	perRelation sync.Map // uint64 -> *atomic.Uint64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Fingerprint returns a stable identifier for a relation shape, used to key
// per-relation counters and to tag log output
func Fingerprint(parentTable, relatedTable, localKey, foreignKey string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(parentTable)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(relatedTable)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(localKey)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(foreignKey)
	return h.Sum64()
}

func (m *Metrics) recordResolution(fingerprint uint64, eager bool) {
	m.resolutions.Add(1)
	if eager {
		m.eagerLoads.Add(1)
	}
	counter, _ := m.perRelation.LoadOrStore(fingerprint, &atomic.Uint64{})
	counter.(*atomic.Uint64).Add(1)
}

func (m *Metrics) recordInit(parents int) {
	m.parentsInitialized.Add(uint64(parents))
}

func (m *Metrics) recordMatch(rows, emptyBuckets int) {
	m.rowsMatched.Add(uint64(rows))
	m.emptyBuckets.Add(uint64(emptyBuckets))
}

func (m *Metrics) recordFetch(rows int, duration time.Duration) {
	m.fetches.Add(1)
	m.rowsFetched.Add(uint64(rows))
	m.totalFetchLatency.Add(uint64(duration.Nanoseconds()))
}

// Stats represents a point-in-time snapshot of relation metrics
type Stats struct {
	Resolutions        uint64
	EagerLoads         uint64
	RowsMatched        uint64
	ParentsInitialized uint64
	EmptyBuckets       uint64
	Fetches            uint64
	RowsFetched        uint64
	AvgFetchLatency    time.Duration
	PerRelation        map[uint64]uint64
}

// GetStats returns a snapshot of all metrics
func (m *Metrics) GetStats() Stats {
	stats := Stats{
		Resolutions:        m.resolutions.Load(),
		EagerLoads:         m.eagerLoads.Load(),
		RowsMatched:        m.rowsMatched.Load(),
		ParentsInitialized: m.parentsInitialized.Load(),
		EmptyBuckets:       m.emptyBuckets.Load(),
		Fetches:            m.fetches.Load(),
		RowsFetched:        m.rowsFetched.Load(),
		PerRelation:        make(map[uint64]uint64),
	}
	if stats.Fetches > 0 {
		stats.AvgFetchLatency = time.Duration(m.totalFetchLatency.Load() / stats.Fetches)
	}
	m.perRelation.Range(func(key, value interface{}) bool {
		stats.PerRelation[key.(uint64)] = value.(*atomic.Uint64).Load()
		return true
	})
	return stats
}
