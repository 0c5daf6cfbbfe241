// Package quota periodically checks every connected tenant's monthly
// usage against its allocation and shuts down sessions for tenants over
// quota.
package quota

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/teranos/nats-geyser-runner/internal/cache"
	"github.com/teranos/nats-geyser-runner/internal/conn"
	"github.com/teranos/nats-geyser-runner/internal/shutdown"
)

const (
	// DefaultCheckInterval is how often the checker runs when Config
	// doesn't set one.
	DefaultCheckInterval = time.Minute
	// DefaultBatchSize is how many tenants are looked up per
	// GetManyOrRefresh call when Config doesn't set one.
	DefaultBatchSize = 64
)

// periodLayout formats the current UTC month as spec.md's "YYYY-MM" period
// key; Go's reference time pins the layout's numeric fields.
const periodLayout = "2006-01"

// Config configures a Checker.
type Config struct {
	CheckInterval time.Duration
	BatchSize     int
	Manager       *conn.Manager
	Cache         *cache.Cache[bool]
	Shutdown      *shutdown.Broadcast
	Metrics       *Metrics
}

func (c Config) withDefaults() Config {
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Checker runs the periodic over-quota sweep described in spec.md §4.5.
type Checker struct {
	cfg Config
	log *log.Entry
}

// NewChecker constructs a Checker; it does not start its loop.
func NewChecker(cfg Config) *Checker {
	return &Checker{
		cfg: cfg.withDefaults(),
		log: log.WithField("component", "quota-checker"),
	}
}

// Run drives the checker's ticker loop until shutdown is triggered or
// ctx is done. It is meant to be run in its own goroutine.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.cfg.Shutdown.Done():
			c.log.Info("quota checker received shutdown signal")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runOnce(ctx)
		}
	}
}

func (c *Checker) runOnce(ctx context.Context) {
	start := time.Now()
	c.cfg.Metrics.Runs.Inc()

	tenants := c.cfg.Manager.ListActiveTeams()
	c.cfg.Metrics.Checked.Add(float64(len(tenants)))

	// Sampled once per iteration: a tenant observed just before a UTC
	// month rollover is checked against the old period, and picked up
	// against the new one on the next iteration.
	period := time.Now().UTC().Format(periodLayout)

	for _, chunk := range chunkStrings(tenants, c.cfg.BatchSize) {
		keyToTenant := make(map[string]string, len(chunk))
		keys := make([]string, len(chunk))
		for i, tenantID := range chunk {
			key := period + ":" + tenantID
			keys[i] = key
			keyToTenant[key] = tenantID
		}

		results, errs := c.cfg.Cache.GetManyOrRefresh(ctx, keys)

		for key, overQuota := range results {
			if !overQuota {
				continue
			}
			tenantID := keyToTenant[key]
			c.cfg.Metrics.Capped.Inc()
			c.log.WithField("tenant", tenantID).Info("tenant exceeded quota, shutting down sessions")
			// The map entry itself is removed only once every Token for
			// the tenant releases, not here.
			c.cfg.Manager.ShutdownClient(tenantID)
		}

		for key, err := range errs {
			c.log.WithError(err).WithField("tenant", keyToTenant[key]).Warn("quota check failed for tenant")
		}
	}

	c.cfg.Metrics.Duration.Observe(time.Since(start).Seconds())
}

func chunkStrings(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
