package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-forecast-engine/dataset"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReconcile_InnerJoinLaw(t *testing.T) {
	actuals := []dataset.MergedRow{
		{Store: 1, Date: date(2012, 1, 6), WeeklySales: 100},
		{Store: 1, Date: date(2012, 1, 13), WeeklySales: 110}, // no forecast
		{Store: 2, Date: date(2012, 1, 6), WeeklySales: 200},  // no forecast
	}
	forecasts := []dataset.ForecastRow{
		{Store: 1, Date: date(2012, 1, 6), Predicted: 90},
		{Store: 3, Date: date(2012, 1, 6), Predicted: 50}, // no actual
	}

	rows := Reconcile(actuals, forecasts)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Store)
	assert.Equal(t, 100.0, rows[0].Actual)
	assert.Equal(t, 90.0, rows[0].Predicted)
}

func TestReconcile_ErrorColumns(t *testing.T) {
	actuals := []dataset.MergedRow{
		{Store: 1, Date: date(2012, 1, 6), WeeklySales: 100},
		{Store: 1, Date: date(2012, 1, 13), WeeklySales: 80},
	}
	forecasts := []dataset.ForecastRow{
		{Store: 1, Date: date(2012, 1, 6), Predicted: 90},
		{Store: 1, Date: date(2012, 1, 13), Predicted: 100},
	}

	rows := Reconcile(actuals, forecasts)
	require.Len(t, rows, 2)

	assert.Equal(t, 10.0, rows[0].AbsError)
	assert.True(t, rows[0].PctDefined)
	assert.InDelta(t, 10.0, rows[0].PctError, 1e-9)

	assert.Equal(t, 20.0, rows[1].AbsError)
	assert.InDelta(t, 25.0, rows[1].PctError, 1e-9)
}

func TestReconcile_ZeroActualUndefinedPct(t *testing.T) {
	actuals := []dataset.MergedRow{
		{Store: 1, Date: date(2012, 1, 6), WeeklySales: 0},
	}
	forecasts := []dataset.ForecastRow{
		{Store: 1, Date: date(2012, 1, 6), Predicted: 5},
	}

	rows := Reconcile(actuals, forecasts)
	require.Len(t, rows, 1)

	assert.Equal(t, 5.0, rows[0].AbsError)
	assert.False(t, rows[0].PctDefined)
	// Never an unbounded numeric value
	assert.False(t, rows[0].PctError != rows[0].PctError, "pct must not be NaN")
	assert.Equal(t, 0.0, rows[0].PctError)
}

func TestReconcile_ISOWeekBucket(t *testing.T) {
	actuals := []dataset.MergedRow{
		{Store: 1, Date: date(2012, 1, 6), WeeklySales: 100},   // 2012-01-06 is ISO week 1
		{Store: 1, Date: date(2012, 1, 13), WeeklySales: 100},  // ISO week 2
		{Store: 1, Date: date(2011, 1, 1), WeeklySales: 100},   // 2011-01-01 falls in ISO week 52 of 2010
		{Store: 1, Date: date(2012, 12, 28), WeeklySales: 100}, // ISO week 52
	}
	var forecasts []dataset.ForecastRow
	for _, a := range actuals {
		forecasts = append(forecasts, dataset.ForecastRow{Store: 1, Date: a.Date, Predicted: 90})
	}

	rows := Reconcile(actuals, forecasts)
	require.Len(t, rows, 4)
	assert.Equal(t, 1, rows[0].WeekOfYear)
	assert.Equal(t, 2, rows[1].WeekOfYear)
	assert.Equal(t, 52, rows[2].WeekOfYear)
	assert.Equal(t, 52, rows[3].WeekOfYear)

	for _, row := range rows {
		assert.GreaterOrEqual(t, row.WeekOfYear, 1)
		assert.LessOrEqual(t, row.WeekOfYear, 53)
	}
}
