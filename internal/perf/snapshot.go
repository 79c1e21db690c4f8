package perf

import "sort"

// Snapshot is the exportable dashboard view of collector state. Field names
// are a dashboard contract; do not rename them.
type Snapshot struct {
	UptimeSeconds float64               `json:"uptime_seconds"`
	CacheHitRate  float64               `json:"cache_hit_rate"`
	Database      DatabaseStats         `json:"database"`
	RatingsPost   RatingsPostStats      `json:"ratings_post"`
	Routes        map[string]RouteStats `json:"routes"`
}

// DatabaseStats summarizes durable-store query fanout.
type DatabaseStats struct {
	TotalQueries  uint64  `json:"total_queries"`
	AvgPerRequest float64 `json:"avg_per_request"`
	MaxPerRequest int     `json:"max_per_request"`
	Count         int     `json:"count"`
}

// RatingsPostStats summarizes the dedicated rating-write latency series.
type RatingsPostStats struct {
	P95LatencyMS float64 `json:"p95_latency_ms"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	RequestCount int     `json:"request_count"`
}

// RouteStats summarizes one route's current rolling window.
type RouteStats struct {
	Count        int     `json:"count"`
	Errors       int     `json:"errors"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	MinLatencyMS float64 `json:"min_latency_ms"`
	MaxLatencyMS float64 `json:"max_latency_ms"`
	P50LatencyMS float64 `json:"p50_latency_ms"`
	P95LatencyMS float64 `json:"p95_latency_ms"`
	P99LatencyMS float64 `json:"p99_latency_ms"`
}

// Snapshot assembles one atomic read of all collector state: the mutex is
// acquired once, everything is copied out, and aggregates are computed from
// the copies. Cost is O(window size x tracked identifiers).
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: c.Uptime().Seconds(),
		CacheHitRate:  hitRate(c.hits, c.misses),
		Routes:        make(map[string]RouteStats, len(c.routes)),
	}

	fanout := c.dbFanout.values()
	snap.Database = DatabaseStats{
		TotalQueries: c.dbTotal,
		Count:        len(fanout),
	}
	if len(fanout) > 0 {
		sum := 0
		max := fanout[0]
		for _, n := range fanout {
			sum += n
			if n > max {
				max = n
			}
		}
		snap.Database.AvgPerRequest = float64(sum) / float64(len(fanout))
		snap.Database.MaxPerRequest = max
	}

	for id, r := range c.routes {
		snap.Routes[id] = routeStats(r)
	}

	if stats, ok := snap.Routes[RouteRatingsPost]; ok {
		snap.RatingsPost = RatingsPostStats{
			P95LatencyMS: stats.P95LatencyMS,
			AvgLatencyMS: stats.AvgLatencyMS,
			RequestCount: stats.Count,
		}
	}

	return snap
}

func routeStats(r *ring) RouteStats {
	values := r.latencies()
	stats := RouteStats{
		Count:  len(values),
		Errors: r.errorCount(),
	}
	if len(values) == 0 {
		return stats
	}

	sum := 0.0
	stats.MinLatencyMS = values[0]
	stats.MaxLatencyMS = values[0]
	for _, v := range values {
		sum += v
		if v < stats.MinLatencyMS {
			stats.MinLatencyMS = v
		}
		if v > stats.MaxLatencyMS {
			stats.MaxLatencyMS = v
		}
	}
	stats.AvgLatencyMS = sum / float64(len(values))

	sort.Float64s(values)
	stats.P50LatencyMS = nearestRank(values, 0.50)
	stats.P95LatencyMS = nearestRank(values, 0.95)
	stats.P99LatencyMS = nearestRank(values, 0.99)

	return stats
}
