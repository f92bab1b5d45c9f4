package pipeline

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	mode     Mode
	duration time.Duration
	failed   bool
}

// Latency summarizes the durations of successful conversions in
// milliseconds. Failed counts the failures, which carry no duration.
type Latency struct {
	Count  int     `json:"count"`
	Failed int     `json:"failed"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// StatsSnapshot aggregates the conversions of the current window.
type StatsSnapshot struct {
	Window string           `json:"window"`
	Failed int              `json:"failed"`
	All    Latency          `json:"all"`
	ByMode map[Mode]Latency `json:"by_mode"`
}

// Stats keeps conversion outcomes for a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		samples: make([]sample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// Record adds one conversion. Negative durations count as zero.
func (s *Stats) Record(mode Mode, d time.Duration, failed bool) {
	d = max(d, 0)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, mode: mode, duration: d, failed: failed})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())

	snap := StatsSnapshot{Window: s.window.String(), ByMode: map[Mode]Latency{}}
	all := make([]int64, 0, len(s.samples))
	byMode := map[Mode][]int64{}
	failed := map[Mode]int{}
	for _, sm := range s.samples {
		if sm.failed {
			failed[sm.mode]++
			continue
		}
		ms := sm.duration.Milliseconds()
		all = append(all, ms)
		byMode[sm.mode] = append(byMode[sm.mode], ms)
	}
	snap.All = summarize(all)
	for m, v := range byMode {
		snap.ByMode[m] = summarize(v)
	}
	for m, n := range failed {
		l := snap.ByMode[m]
		l.Failed = n
		snap.ByMode[m] = l
		snap.Failed += n
	}
	snap.All.Failed = snap.Failed
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.at.Before(cutoff)
	})
}

func summarize(values []int64) Latency {
	if len(values) == 0 {
		return Latency{}
	}
	slices.Sort(values)
	var sum int64
	for _, v := range values {
		sum += v
	}
	return Latency{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

// percentile interpolates linearly between the two closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(index-float64(lower))
}
