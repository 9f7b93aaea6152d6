package feeds

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// Refresher keeps the cache warm by re-aggregating on a fixed cadence. When
// every source fails it falls back to exponential backoff between attempts
// instead of hammering dead upstreams at full interval speed.
type Refresher struct {
	aggregator *Aggregator
	cache      *Cache
	interval   time.Duration
}

func NewRefresher(aggregator *Aggregator, cache *Cache, interval time.Duration) *Refresher {
	return &Refresher{
		aggregator: aggregator,
		cache:      cache,
		interval:   interval,
	}
}

// Run blocks until the context is cancelled. A non-positive interval
// disables warming and Run returns immediately.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = r.interval
	policy.Multiplier = 2
	policy.MaxElapsedTime = 0 // Never stop retrying

	log.WithFields(log.Fields{
		"interval": r.interval,
	}).Info("Starting feed refresher")

	for {
		results := r.aggregator.Collect(ctx)

		wait := r.interval
		if allFailed(results) {
			wait = policy.NextBackOff()
			log.WithFields(log.Fields{
				"retry_in": wait,
			}).Warn("All sources failed, backing off")
		} else {
			policy.Reset()
			r.cache.Set(merge(results))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
