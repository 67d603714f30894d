package forecast

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"demand-forecast-engine/dataset"
	"demand-forecast-engine/metrics"
	"demand-forecast-engine/storage"
)

// StoreError tags a per-store forecast failure
type StoreError struct {
	Store int
	Err   error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("store %d: %v", e.Store, e.Err)
}

// Result carries the forecasts of succeeding stores together with the
// failures of the rest. A run with failures still produces a usable
// partial table.
type Result struct {
	Rows     []dataset.ForecastRow
	Failures []StoreError
}

// Generator fits one model per store and assembles the forecast table
type Generator struct {
	store    storage.TableStore
	newModel NewModelFunc
	horizon  int
	workers  int
	log      *logrus.Entry
}

// NewGenerator creates a generator. A non-positive horizon is rejected
// up front since every store shares it.
func NewGenerator(store storage.TableStore, newModel NewModelFunc, horizon, workers int) (*Generator, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrHorizonNotPositive, horizon)
	}
	if workers <= 0 {
		workers = 1
	}
	return &Generator{
		store:    store,
		newModel: newModel,
		horizon:  horizon,
		workers:  workers,
		log:      logrus.WithField("component", "forecast"),
	}, nil
}

// Generate partitions the merged table by store and runs each store's
// fit/predict cycle as an isolated task on a worker pool. Output rows
// are sorted by (store, date) after collection so the table does not
// depend on completion order.
func (g *Generator) Generate(ctx context.Context, merged []dataset.MergedRow) Result {
	stores := dataset.Stores(merged)

	type storeResult struct {
		store int
		rows  []dataset.ForecastRow
		err   error
	}

	jobs := make(chan int)
	results := make(chan storeResult, len(stores))

	var wg sync.WaitGroup
	for w := 0; w < g.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for store := range jobs {
				rows, err := g.forecastStore(merged, store)
				results <- storeResult{store: store, rows: rows, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, store := range stores {
			select {
			case jobs <- store:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var result Result
	for r := range results {
		if r.err != nil {
			result.Failures = append(result.Failures, StoreError{Store: r.store, Err: r.err})
			continue
		}
		result.Rows = append(result.Rows, r.rows...)
	}

	sort.Slice(result.Rows, func(i, j int) bool {
		if result.Rows[i].Store != result.Rows[j].Store {
			return result.Rows[i].Store < result.Rows[j].Store
		}
		return result.Rows[i].Date.Before(result.Rows[j].Date)
	})
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Store < result.Failures[j].Store
	})

	return result
}

func (g *Generator) forecastStore(merged []dataset.MergedRow, store int) ([]dataset.ForecastRow, error) {
	dates, values := dataset.StoreSeries(merged, store)

	model := g.newModel()
	if err := model.Fit(dates, values); err != nil {
		return nil, fmt.Errorf("fit failed: %w", err)
	}

	points, err := model.Predict(g.horizon)
	if err != nil {
		return nil, fmt.Errorf("predict failed: %w", err)
	}

	rows := make([]dataset.ForecastRow, len(points))
	for i, p := range points {
		rows[i] = dataset.ForecastRow{Store: store, Date: p.Date, Predicted: p.Value}
	}
	return rows, nil
}

// Run reads the persisted merged table, generates forecasts, and fully
// replaces the persisted forecast table. Forecasts of succeeding stores
// are persisted even when some stores failed; callers decide the exit
// status from Result.Failures.
func (g *Generator) Run(ctx context.Context) (Result, error) {
	data, err := g.store.Get(ctx, storage.MergedTable)
	if err != nil {
		return Result{}, err
	}
	merged, err := dataset.DecodeMerged(data)
	if err != nil {
		return Result{}, err
	}

	result := g.Generate(ctx, merged)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	encoded, err := dataset.EncodeForecast(result.Rows)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode forecast table: %w", err)
	}
	if err := g.store.Put(ctx, storage.ForecastTable, encoded); err != nil {
		return Result{}, err
	}

	succeeded := len(dataset.Stores(merged)) - len(result.Failures)
	metrics.ForecastRowsEmitted.Add(float64(len(result.Rows)))
	metrics.StoresForecasted.Add(float64(succeeded))
	metrics.StoreFailures.Add(float64(len(result.Failures)))

	entry := g.log.WithFields(logrus.Fields{
		"stores_ok":     succeeded,
		"stores_failed": len(result.Failures),
		"rows":          len(result.Rows),
		"horizon":       g.horizon,
	})
	if len(result.Failures) > 0 {
		entry.Warn("forecast table written with partial results")
	} else {
		entry.Info("forecast table written")
	}

	return result, nil
}
