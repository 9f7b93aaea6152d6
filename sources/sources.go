// Package sources contains one adapter per upstream provider. Each adapter
// translates the provider's response shape into the common Update record.
package sources

import (
	"context"

	"pulso/models"
)

// Source is implemented by every provider adapter.
type Source interface {
	// Name returns a human-readable adapter name for logs.
	Name() string

	// Tag returns the source tag stamped on every update this adapter emits.
	Tag() models.Source

	// Fetch retrieves the latest updates from the provider.
	Fetch(ctx context.Context) ([]models.Update, error)
}

// Result is the outcome of one adapter invocation. A failed adapter never
// fails the whole aggregation; the error is carried here and absorbed by the
// caller.
type Result struct {
	Source  models.Source
	Updates []models.Update
	Err     error
}

func (r Result) Failed() bool {
	return r.Err != nil
}

func (r Result) Empty() bool {
	return r.Err == nil && len(r.Updates) == 0
}
