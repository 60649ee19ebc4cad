package tokenizer

import (
	"math"
	"slices"
	"sync/atomic"
	"time"
)

// DefaultStatsWindow is how many recent latencies feed the percentiles.
const DefaultStatsWindow = 1024

// StatsSnapshot is a point-in-time aggregate of CountTokens calls. Calls,
// totals, min, max and average cover every call; percentiles cover the most
// recent Window calls.
type StatsSnapshot struct {
	Calls       int64   `json:"calls"`
	TotalTokens int64   `json:"total_tokens"`
	MinMicros   int64   `json:"min_us"`
	MaxMicros   int64   `json:"max_us"`
	AvgMicros   float64 `json:"avg_us"`
	P50Micros   float64 `json:"p50_us"`
	P95Micros   float64 `json:"p95_us"`
	P99Micros   float64 `json:"p99_us"`
	Window      int     `json:"window"`
}

// Stats aggregates tokenizer call latencies. Record is lock-free and O(1)
// so it can sit on the CountTokens path of concurrent chunkers; memory is
// fixed at construction.
type Stats struct {
	calls  atomic.Int64
	tokens atomic.Int64
	sum    atomic.Int64
	min    atomic.Int64
	max    atomic.Int64
	next   atomic.Uint64
	recent []atomic.Int64
}

// NewStats keeps the last window latencies for percentiles.
func NewStats(window int) *Stats {
	if window <= 0 {
		window = DefaultStatsWindow
	}
	s := &Stats{recent: make([]atomic.Int64, window)}
	s.min.Store(math.MaxInt64)
	return s
}

func (s *Stats) Record(d time.Duration, tokens int) {
	micros := max(d.Microseconds(), 0)

	slot := s.next.Add(1) - 1
	s.recent[slot%uint64(len(s.recent))].Store(micros)

	s.tokens.Add(int64(tokens))
	s.sum.Add(micros)
	swapIf(&s.min, micros, func(v, cur int64) bool { return v < cur })
	swapIf(&s.max, micros, func(v, cur int64) bool { return v > cur })
	s.calls.Add(1)
}

// swapIf stores v in a while better(v, current) holds.
func swapIf(a *atomic.Int64, v int64, better func(v, cur int64) bool) {
	for {
		cur := a.Load()
		if !better(v, cur) || a.CompareAndSwap(cur, v) {
			return
		}
	}
}

func (s *Stats) Snapshot() StatsSnapshot {
	calls := s.calls.Load()
	if calls == 0 {
		return StatsSnapshot{}
	}

	n := int(min(s.next.Load(), uint64(len(s.recent))))
	values := make([]int64, n)
	for i := range values {
		values[i] = s.recent[i].Load()
	}
	slices.Sort(values)

	return StatsSnapshot{
		Calls:       calls,
		TotalTokens: s.tokens.Load(),
		MinMicros:   s.min.Load(),
		MaxMicros:   s.max.Load(),
		AvgMicros:   float64(s.sum.Load()) / float64(calls),
		P50Micros:   percentile(values, 50),
		P95Micros:   percentile(values, 95),
		P99Micros:   percentile(values, 99),
		Window:      n,
	}
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}

// Instrumented wraps a Tokenizer and records every CountTokens call.
type Instrumented struct {
	Tokenizer
	Stats *Stats
}

// Instrument wraps t with a DefaultStatsWindow-sized Stats.
func Instrument(t Tokenizer) *Instrumented {
	return &Instrumented{Tokenizer: t, Stats: NewStats(DefaultStatsWindow)}
}

func (i *Instrumented) CountTokens(text string) int {
	start := time.Now()
	n := i.Tokenizer.CountTokens(text)
	i.Stats.Record(time.Since(start), n)
	return n
}
