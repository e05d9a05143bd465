// Package telemetry keeps in-process metrics about journal queries: counts per
// search kind, a latency histogram, frequent terms, repeats and recent queries
// that found nothing.
//
// Query text is personal. Metrics live in memory for the life of the process
// and are never written to disk or sent anywhere.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Kind is the search path a query went through.
type Kind string

const (
	KindLexical Kind = "lexical"
	KindVector  Kind = "vector"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent is one answered query.
type QueryEvent struct {
	Query       string
	Kind        Kind
	ResultCount int
	Latency     time.Duration
}

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the metrics.
type Snapshot struct {
	Total       int64                   `json:"total"`
	ByKind      map[Kind]int64          `json:"by_kind"`
	Latency     map[LatencyBucket]int64 `json:"latency"`
	ZeroResults int64                   `json:"zero_results"`
	Repeats     int64                   `json:"repeats"`
	TopTerms    []TermCount             `json:"top_terms,omitempty"`
	RecentEmpty []string                `json:"recent_empty,omitempty"`
	Since       time.Time               `json:"since"`
}

// ZeroResultRate returns the share of queries that found nothing, 0..1.
func (s Snapshot) ZeroResultRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ZeroResults) / float64(s.Total)
}

// Config sizes the collector.
type Config struct {
	// TermsCapacity bounds the number of distinct terms tracked (default 100).
	TermsCapacity int
	// TopTerms is how many terms a Snapshot reports (default 10).
	TopTerms int
	// RecentEmptyCapacity bounds the zero-result query ring (default 20).
	RecentEmptyCapacity int
	// RecentQueriesCapacity bounds the window for repeat detection (default 500).
	RecentQueriesCapacity int
}

// DefaultConfig returns the default sizes.
func DefaultConfig() Config {
	return Config{
		TermsCapacity:         100,
		TopTerms:              10,
		RecentEmptyCapacity:   20,
		RecentQueriesCapacity: 500,
	}
}

// QueryMetrics collects query metrics. Safe for concurrent use; the zero
// value is not usable, call New.
type QueryMetrics struct {
	cfg Config

	mu          sync.Mutex
	total       int64
	byKind      map[Kind]int64
	latency     map[LatencyBucket]int64
	zeroResults int64
	repeats     int64
	terms       *lru.Cache[string, int64]
	recent      *lru.Cache[string, struct{}]
	recentEmpty *Ring[string]
	since       time.Time
}

// New creates a collector, filling zero Config fields with defaults.
func New(cfg Config) *QueryMetrics {
	def := DefaultConfig()
	if cfg.TermsCapacity <= 0 {
		cfg.TermsCapacity = def.TermsCapacity
	}
	if cfg.TopTerms <= 0 {
		cfg.TopTerms = def.TopTerms
	}
	if cfg.RecentEmptyCapacity <= 0 {
		cfg.RecentEmptyCapacity = def.RecentEmptyCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}

	// lru.New only fails for a non-positive size.
	terms, _ := lru.New[string, int64](cfg.TermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryMetrics{
		cfg:         cfg,
		byKind:      make(map[Kind]int64),
		latency:     make(map[LatencyBucket]int64),
		terms:       terms,
		recent:      recent,
		recentEmpty: NewRing[string](cfg.RecentEmptyCapacity),
		since:       time.Now(),
	}
}

// Record adds one query. Blank queries are ignored.
func (m *QueryMetrics) Record(ev QueryEvent) {
	query := strings.TrimSpace(ev.Query)
	if query == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.byKind[ev.Kind]++
	m.latency[LatencyToBucket(ev.Latency)]++

	for _, term := range Terms(query) {
		n, _ := m.terms.Get(term)
		m.terms.Add(term, n+1)
	}

	if ev.ResultCount == 0 {
		m.zeroResults++
		m.recentEmpty.Add(query)
	}

	key := hashQuery(query)
	if _, seen := m.recent.Get(key); seen {
		m.repeats++
	}
	m.recent.Add(key, struct{}{})
}

// Snapshot returns a copy of the current metrics.
func (m *QueryMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Total:       m.total,
		ByKind:      make(map[Kind]int64, len(m.byKind)),
		Latency:     make(map[LatencyBucket]int64, len(m.latency)),
		ZeroResults: m.zeroResults,
		Repeats:     m.repeats,
		RecentEmpty: m.recentEmpty.Items(),
		Since:       m.since,
	}
	for k, v := range m.byKind {
		s.ByKind[k] = v
	}
	for k, v := range m.latency {
		s.Latency[k] = v
	}

	for _, term := range m.terms.Keys() {
		if n, ok := m.terms.Peek(term); ok {
			s.TopTerms = append(s.TopTerms, TermCount{Term: term, Count: n})
		}
	}
	sort.Slice(s.TopTerms, func(i, j int) bool {
		if s.TopTerms[i].Count != s.TopTerms[j].Count {
			return s.TopTerms[i].Count > s.TopTerms[j].Count
		}
		return s.TopTerms[i].Term < s.TopTerms[j].Term
	})
	if len(s.TopTerms) > m.cfg.TopTerms {
		s.TopTerms = s.TopTerms[:m.cfg.TopTerms]
	}
	return s
}

// Reset clears every metric, for example when another journal is loaded.
func (m *QueryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total, m.zeroResults, m.repeats = 0, 0, 0
	m.byKind = make(map[Kind]int64)
	m.latency = make(map[LatencyBucket]int64)
	m.terms.Purge()
	m.recent.Purge()
	m.recentEmpty.Clear()
	m.since = time.Now()
}

// Terms splits a query into lowercased terms of at least three bytes.
func Terms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, `.,;:!?"'()[]`)
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// hashQuery keys repeat detection without keeping the query text.
func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(query)))
	return hex.EncodeToString(sum[:16])
}
