// Package health implements health checks and their aggregation.
//
// A check's run function reports severity through a tagged Outcome value
// rather than error types alone: Ok (green), Degraded (yellow, functioning
// but requiring attention), or Failed (red, unhealthy). A panic inside a run
// function is recovered and treated as red, so a misbehaving check can never
// take down its runner. A red result always carries a cause; a green result
// never does.
//
// Each Check retains only its most recent Result, published through an
// atomic swap so observers on other goroutines always see a fully-formed
// result. The Registry holds a fixed set of checks, runs them concurrently,
// publishes results to a broadcast hub as they complete (completion order is
// not guaranteed), and answers aggregate queries such as IsHealthy and
// ResultsByStatus.
package health
