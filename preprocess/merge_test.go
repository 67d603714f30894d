package preprocess

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-forecast-engine/dataset"
	"demand-forecast-engine/storage"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMerge_RowCountEqualsPrimaryFeed(t *testing.T) {
	sales := []dataset.SalesRecord{
		{Store: 1, Date: date(2010, 2, 5), WeeklySales: 100},
		{Store: 1, Date: date(2010, 2, 12), WeeklySales: 110},
		{Store: 2, Date: date(2010, 2, 5), WeeklySales: 200},
	}
	// Only one sales row has a feature match and store 2 has no
	// attributes; no row may be dropped for it.
	features := []dataset.FeatureRecord{
		{Store: 1, Date: date(2010, 2, 5), Temperature: 42.31, FuelPrice: 2.572, CPI: 211.1, Unemployment: 8.1},
	}
	stores := []dataset.StoreRecord{
		{Store: 1, Type: "A", Size: 151315},
	}

	merged, err := Merge(sales, features, stores, true)
	require.NoError(t, err)
	assert.Len(t, merged, len(sales))
}

func TestMerge_UnmatchedCovariatesAreMissing(t *testing.T) {
	sales := []dataset.SalesRecord{
		{Store: 1, Date: date(2010, 2, 5), WeeklySales: 100},
		{Store: 2, Date: date(2010, 2, 5), WeeklySales: 200},
	}
	features := []dataset.FeatureRecord{
		{Store: 1, Date: date(2010, 2, 5), Temperature: 42.31, FuelPrice: 2.572, CPI: 211.1, Unemployment: 8.1},
	}
	stores := []dataset.StoreRecord{
		{Store: 1, Type: "A", Size: 151315},
	}

	merged, err := Merge(sales, features, stores, true)
	require.NoError(t, err)

	// Matched row carries the covariates
	assert.Equal(t, 42.31, merged[0].Temperature)
	assert.Equal(t, "A", merged[0].Type)

	// Unmatched row carries the missing marker, not zero
	assert.True(t, dataset.IsMissing(merged[1].Temperature))
	assert.True(t, dataset.IsMissing(merged[1].Size))
	assert.Equal(t, "", merged[1].Type)
	assert.Equal(t, 200.0, merged[1].WeeklySales)
}

func TestMerge_DuplicateStoreKeyAssertion(t *testing.T) {
	sales := []dataset.SalesRecord{{Store: 1, Date: date(2010, 2, 5), WeeklySales: 100}}
	stores := []dataset.StoreRecord{
		{Store: 1, Type: "A", Size: 100},
		{Store: 1, Type: "B", Size: 200},
	}

	_, err := Merge(sales, nil, stores, true)
	assert.ErrorIs(t, err, ErrDuplicateStoreKey)
}

func TestMerge_DuplicateStoreKeyFirstMatchWins(t *testing.T) {
	sales := []dataset.SalesRecord{{Store: 1, Date: date(2010, 2, 5), WeeklySales: 100}}
	stores := []dataset.StoreRecord{
		{Store: 1, Type: "A", Size: 100},
		{Store: 1, Type: "B", Size: 200},
	}

	merged, err := Merge(sales, nil, stores, false)
	require.NoError(t, err)
	assert.Equal(t, "A", merged[0].Type)
	assert.Equal(t, 100.0, merged[0].Size)
}

func TestMerge_DuplicateFeatureKeyKeepsFirst(t *testing.T) {
	sales := []dataset.SalesRecord{{Store: 1, Date: date(2010, 2, 5), WeeklySales: 100}}
	features := []dataset.FeatureRecord{
		{Store: 1, Date: date(2010, 2, 5), Temperature: 40},
		{Store: 1, Date: date(2010, 2, 5), Temperature: 99},
	}

	merged, err := Merge(sales, features, nil, true)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, 40.0, merged[0].Temperature)
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestMerger_Run(t *testing.T) {
	dir := t.TempDir()
	salesPath := writeFile(t, dir, "sales.csv",
		"Store,Date,Weekly_Sales,Holiday_Flag\n1,05-02-2010,100,0\n1,12-02-2010,110,1\n")
	featuresPath := writeFile(t, dir, "features.csv",
		"Store,Date,Temperature,Fuel_Price,CPI,Unemployment\n1,05-02-2010,42.31,2.572,211.1,8.1\n")
	storesPath := writeFile(t, dir, "stores.csv",
		"Store,Type,Size\n1,A,151315\n")

	store, err := storage.NewFilesystemStore(filepath.Join(dir, "processed"))
	require.NoError(t, err)

	merger := NewMerger(store, true)
	merged, err := merger.Run(context.Background(), salesPath, featuresPath, storesPath)
	require.NoError(t, err)
	require.Len(t, merged, 2)

	// Run fully replaces the persisted table and it round-trips
	data, err := store.Get(context.Background(), storage.MergedTable)
	require.NoError(t, err)
	persisted, err := dataset.DecodeMerged(data)
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
	assert.Equal(t, 42.31, persisted[0].Temperature)
	assert.True(t, dataset.IsMissing(persisted[1].Temperature))
}

func TestMerger_Run_BadDateAbortsWithoutOutput(t *testing.T) {
	dir := t.TempDir()
	salesPath := writeFile(t, dir, "sales.csv",
		"Store,Date,Weekly_Sales\n1,garbage,100\n")
	featuresPath := writeFile(t, dir, "features.csv",
		"Store,Date\n")
	storesPath := writeFile(t, dir, "stores.csv",
		"Store\n")

	store, err := storage.NewFilesystemStore(filepath.Join(dir, "processed"))
	require.NoError(t, err)

	merger := NewMerger(store, true)
	_, err = merger.Run(context.Background(), salesPath, featuresPath, storesPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrBadDate)

	_, err = store.Get(context.Background(), storage.MergedTable)
	assert.ErrorIs(t, err, storage.ErrTableNotFound)
}
