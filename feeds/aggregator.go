// Package feeds merges the per-provider adapters into one sorted updates
// feed and keeps an advisory cache of the last result.
package feeds

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"pulso/models"
	"pulso/sources"
)

var (
	fetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulso_source_fetch_total",
		Help: "The total number of fetch attempts per source",
	}, []string{"source"})

	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulso_source_fetch_errors_total",
		Help: "The total number of failed fetch attempts per source",
	}, []string{"source"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulso_source_fetch_duration_seconds",
		Help:    "Duration of source fetches",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // Start at 50ms, double each bucket, 10 buckets
	}, []string{"source"})
)

// Aggregator fans out to every registered source and merges their results.
// It never returns an error: a source that fails contributes nothing.
type Aggregator struct {
	sources []sources.Source
	timeout time.Duration
}

// NewAggregator registers the sources in display order. The timeout bounds
// each individual fetch; zero means no bound beyond the caller's context.
func NewAggregator(timeout time.Duration, srcs ...sources.Source) *Aggregator {
	return &Aggregator{
		sources: srcs,
		timeout: timeout,
	}
}

// Collect invokes every source concurrently and reports one Result per
// source, in registration order. Total latency is bounded by the slowest
// source, not the sum.
func (a *Aggregator) Collect(ctx context.Context) []sources.Result {
	results := make([]sources.Result, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()

			fetchCtx := ctx
			if a.timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, a.timeout)
				defer cancel()
			}

			fetchAttempts.WithLabelValues(src.Name()).Inc()
			start := time.Now()
			updates, err := src.Fetch(fetchCtx)
			fetchDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())

			if err != nil {
				fetchErrors.WithLabelValues(src.Name()).Inc()
				log.WithFields(log.Fields{
					"source": src.Name(),
					"error":  err,
				}).Error("Source fetch failed")
				updates = nil
			}

			results[i] = sources.Result{
				Source:  src.Tag(),
				Updates: updates,
				Err:     err,
			}
		}(i, src)
	}
	wg.Wait()

	return results
}

// Fetch returns the merged feed: every source's updates concatenated and
// stable-sorted by date descending. The worst case is an empty slice, never
// nil and never an error.
func (a *Aggregator) Fetch(ctx context.Context) []models.Update {
	return merge(a.Collect(ctx))
}

func merge(results []sources.Result) []models.Update {
	updates := lo.Flatten(lo.Map(results, func(r sources.Result, _ int) []models.Update {
		return r.Updates
	}))

	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Date.After(updates[j].Date.Time)
	})

	if updates == nil {
		updates = []models.Update{}
	}
	return updates
}

// allFailed reports whether every source errored, which is the only state
// the refresher treats as an outage.
func allFailed(results []sources.Result) bool {
	if len(results) == 0 {
		return false
	}
	return lo.EveryBy(results, func(r sources.Result) bool {
		return r.Failed()
	})
}
