package health

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"
)

// NewDatabaseCheck builds a check that pings the database. A ping slower than
// slowThreshold is reported yellow, a failed ping red. A zero slowThreshold
// disables the slowness test.
func NewDatabaseCheck(cfg Config, db *sql.DB, slowThreshold time.Duration) (*Check, error) {
	return NewCheck(cfg, func(ctx context.Context) Outcome {
		start := time.Now()
		if err := db.PingContext(ctx); err != nil {
			return Failed(fmt.Errorf("database ping: %w", err))
		}
		if elapsed := time.Since(start); slowThreshold > 0 && elapsed > slowThreshold {
			return Degraded(fmt.Errorf("database ping took %s, threshold %s", elapsed, slowThreshold))
		}
		return Ok()
	})
}

// NewEndpointCheck builds a check that issues a GET against url and requires
// a 2xx response. A nil client falls back to http.DefaultClient.
func NewEndpointCheck(cfg Config, client *http.Client, url string) (*Check, error) {
	if client == nil {
		client = http.DefaultClient
	}
	return NewCheck(cfg, func(ctx context.Context) Outcome {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Failed(fmt.Errorf("build request: %w", err))
		}
		resp, err := client.Do(req)
		if err != nil {
			return Failed(fmt.Errorf("GET %s: %w", url, err))
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return Failed(fmt.Errorf("GET %s: unexpected status %s", url, resp.Status))
		}
		return Ok()
	})
}
