package storage

import (
	"context"
	"errors"
)

// Well-known table ids used by the pipeline stages.
const (
	MergedTable   = "merged_data"
	ForecastTable = "forecast_results"
)

// ErrTableNotFound is returned by Get when a table has never been written
var ErrTableNotFound = errors.New("table not found")

// TableStore persists whole tables by id. Put fully replaces any prior
// contents for the id; there is no append or partial-write mode. Readers
// either see the previous table or the new one, never a mix.
type TableStore interface {
	Put(ctx context.Context, tableID string, data []byte) error
	Get(ctx context.Context, tableID string) ([]byte, error)
}
