// Package perf collects process-local performance metrics: cache hit/miss
// counters, per-route latency samples in bounded rolling windows, and
// durable-store query fanout per request. It backs the admin dashboard.
//
// Recording must never fail the operation being measured, so no method
// returns an error. One mutex guards all state and is shared with no other
// subsystem lock.
package perf

import (
	"math"
	"sort"
	"sync"
	"time"
)

// DefaultWindowSize is the per-identifier rolling window capacity.
const DefaultWindowSize = 100

// RouteRatingsPost is the dedicated identifier for the rating-write
// endpoint. Its latency series feeds the ratings_post dashboard block.
const RouteRatingsPost = "POST /api/ratings"

type sample struct {
	latencyMS float64
	isError   bool
	at        time.Time
}

// ring is a fixed-capacity FIFO window. When full, the next add overwrites
// the oldest sample, which bounds memory regardless of uptime.
type ring struct {
	buf  []sample
	next int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]sample, capacity)}
}

func (r *ring) add(s sample) {
	r.buf[r.next] = s
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *ring) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// latencies returns the window's latency values, oldest first.
func (r *ring) latencies() []float64 {
	n := r.len()
	out := make([]float64, 0, n)
	if r.full {
		for i := r.next; i < len(r.buf); i++ {
			out = append(out, r.buf[i].latencyMS)
		}
	}
	for i := 0; i < r.next; i++ {
		out = append(out, r.buf[i].latencyMS)
	}
	return out
}

func (r *ring) errorCount() int {
	n := r.len()
	count := 0
	for i := 0; i < n; i++ {
		idx := i
		if r.full {
			idx = (r.next + i) % len(r.buf)
		}
		if r.buf[idx].isError {
			count++
		}
	}
	return count
}

// intRing is a fixed-capacity FIFO window of integer counts.
type intRing struct {
	buf  []int
	next int
	full bool
}

func newIntRing(capacity int) *intRing {
	return &intRing{buf: make([]int, capacity)}
}

func (r *intRing) add(v int) {
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *intRing) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

func (r *intRing) values() []int {
	n := r.len()
	out := make([]int, 0, n)
	if r.full {
		out = append(out, r.buf[r.next:]...)
	}
	out = append(out, r.buf[:r.next]...)
	return out
}

// Collector accumulates metrics for the process lifetime. Construct once at
// startup and inject wherever recording is needed.
type Collector struct {
	mu         sync.Mutex
	hits       uint64
	misses     uint64
	windowSize int
	routes     map[string]*ring
	dbFanout   *intRing
	dbTotal    uint64
	startedAt  time.Time
}

// NewCollector creates a Collector with the given rolling-window capacity.
// Window size is fixed at construction and never mutated afterwards.
func NewCollector(windowSize int) *Collector {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Collector{
		windowSize: windowSize,
		routes:     make(map[string]*ring),
		dbFanout:   newIntRing(windowSize),
		startedAt:  time.Now(),
	}
}

// RecordHit counts a cache read served from a fresh snapshot.
func (c *Collector) RecordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

// RecordMiss counts a cache read that triggered a refresh.
func (c *Collector) RecordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

// HitRate returns hits/(hits+misses) as a 0..1 fraction, or 0 when nothing
// has been recorded yet.
func (c *Collector) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return hitRate(c.hits, c.misses)
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// RecordLatency appends a latency sample to the identifier's rolling window,
// evicting the oldest sample once the window is full.
func (c *Collector) RecordLatency(id string, d time.Duration, isError bool) {
	s := sample{
		latencyMS: float64(d) / float64(time.Millisecond),
		isError:   isError,
		at:        time.Now(),
	}

	c.mu.Lock()
	r, ok := c.routes[id]
	if !ok {
		r = newRing(c.windowSize)
		c.routes[id] = r
	}
	r.add(s)
	c.mu.Unlock()
}

// Percentiles returns p50/p95/p99 latency in milliseconds over the
// identifier's current window using the nearest-rank method: the value at
// index ceil(q*n) of the sorted window (1-based). All three are 0 for an
// unknown or empty identifier.
func (c *Collector) Percentiles(id string) (p50, p95, p99 float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.routes[id]
	if !ok {
		return 0, 0, 0
	}
	values := r.latencies()
	sort.Float64s(values)
	return nearestRank(values, 0.50), nearestRank(values, 0.95), nearestRank(values, 0.99)
}

// nearestRank picks the q-th percentile from an already sorted slice.
func nearestRank(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(float64(n) * q))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// SampleCount returns the number of samples currently in the window.
func (c *Collector) SampleCount(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.routes[id]; ok {
		return r.len()
	}
	return 0
}

// ErrorCount returns the number of error samples currently in the window.
func (c *Collector) ErrorCount(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.routes[id]; ok {
		return r.errorCount()
	}
	return 0
}

// RecordDBQueries records how many durable-store queries one request issued.
func (c *Collector) RecordDBQueries(n int) {
	if n < 0 {
		return
	}
	c.mu.Lock()
	c.dbTotal += uint64(n)
	c.dbFanout.add(n)
	c.mu.Unlock()
}

// Uptime returns how long the collector (and so the process) has been up.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startedAt)
}
