package preprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"demand-forecast-engine/dataset"
	"demand-forecast-engine/metrics"
	"demand-forecast-engine/storage"
)

// ErrDuplicateStoreKey is returned when the static store feed repeats a
// store id and the uniqueness assertion is enabled
var ErrDuplicateStoreKey = errors.New("duplicate store id in stores feed")

// Merger builds the analysis-ready merged table from the three raw feeds
type Merger struct {
	store                 storage.TableStore
	assertUniqueStoreKeys bool
	log                   *logrus.Entry
}

// NewMerger creates a merger writing through the given table store
func NewMerger(store storage.TableStore, assertUniqueStoreKeys bool) *Merger {
	return &Merger{
		store:                 store,
		assertUniqueStoreKeys: assertUniqueStoreKeys,
		log:                   logrus.WithField("component", "preprocess"),
	}
}

type featureKey struct {
	store int
	date  time.Time
}

// Merge left-joins sales against features on (store, date) and the
// result against store attributes on store. The join order is fixed;
// no sales row is ever dropped. Unmatched covariates become the missing
// marker. Duplicate keys in a joined-against table resolve to the first
// occurrence, which is fatal for the stores feed when the uniqueness
// assertion is on.
func Merge(sales []dataset.SalesRecord, features []dataset.FeatureRecord, stores []dataset.StoreRecord, assertUniqueStoreKeys bool) ([]dataset.MergedRow, error) {
	featuresByKey := make(map[featureKey]dataset.FeatureRecord, len(features))
	for _, f := range features {
		key := featureKey{store: f.Store, date: f.Date}
		if _, exists := featuresByKey[key]; !exists {
			featuresByKey[key] = f
		}
	}

	storesByID := make(map[int]dataset.StoreRecord, len(stores))
	for _, s := range stores {
		if _, exists := storesByID[s.Store]; exists {
			if assertUniqueStoreKeys {
				return nil, fmt.Errorf("%w: %d", ErrDuplicateStoreKey, s.Store)
			}
			logrus.WithFields(logrus.Fields{
				"component": "preprocess",
				"store":     s.Store,
			}).Warn("duplicate store id in stores feed, keeping first occurrence")
			continue
		}
		storesByID[s.Store] = s
	}

	merged := make([]dataset.MergedRow, 0, len(sales))
	for _, s := range sales {
		row := dataset.MergedRow{
			Store:        s.Store,
			Date:         s.Date,
			WeeklySales:  s.WeeklySales,
			HolidayFlag:  s.HolidayFlag,
			Temperature:  dataset.Missing(),
			FuelPrice:    dataset.Missing(),
			CPI:          dataset.Missing(),
			Unemployment: dataset.Missing(),
			Size:         dataset.Missing(),
		}

		if f, ok := featuresByKey[featureKey{store: s.Store, date: s.Date}]; ok {
			row.Temperature = f.Temperature
			row.FuelPrice = f.FuelPrice
			row.CPI = f.CPI
			row.Unemployment = f.Unemployment
		}

		if attr, ok := storesByID[s.Store]; ok {
			row.Type = attr.Type
			row.Size = attr.Size
		}

		merged = append(merged, row)
	}
	return merged, nil
}

// Run reads the three raw feeds, merges them, and fully replaces the
// persisted merged table. Any parse or join failure aborts the run with
// no output written.
func (m *Merger) Run(ctx context.Context, salesPath, featuresPath, storesPath string) ([]dataset.MergedRow, error) {
	sales, err := readFeed(salesPath, dataset.ReadSales)
	if err != nil {
		return nil, err
	}
	features, err := readFeed(featuresPath, dataset.ReadFeatures)
	if err != nil {
		return nil, err
	}
	stores, err := readFeed(storesPath, dataset.ReadStores)
	if err != nil {
		return nil, err
	}

	merged, err := Merge(sales, features, stores, m.assertUniqueStoreKeys)
	if err != nil {
		return nil, err
	}

	data, err := dataset.EncodeMerged(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode merged table: %w", err)
	}
	if err := m.store.Put(ctx, storage.MergedTable, data); err != nil {
		return nil, err
	}

	metrics.RowsMerged.Add(float64(len(merged)))
	m.log.WithFields(logrus.Fields{
		"sales_rows":  len(sales),
		"merged_rows": len(merged),
		"stores":      len(stores),
	}).Info("merged table written")

	return merged, nil
}

func readFeed[T any](path string, decode func(r io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw feed %s: %w", path, err)
	}
	defer f.Close()

	records, err := decode(f)
	if err != nil {
		return nil, err
	}
	return records, nil
}
