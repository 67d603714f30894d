package analytics

import (
	"math"
	"time"

	"demand-forecast-engine/dataset"
)

// ReconciledRow joins one realized observation against its prediction.
// PctDefined is false when the actual is zero, in which case PctError
// holds no meaningful value and must be skipped by aggregations.
type ReconciledRow struct {
	Store      int
	Date       time.Time
	Actual     float64
	Predicted  float64
	AbsError   float64
	PctError   float64
	PctDefined bool
	WeekOfYear int
}

type joinKey struct {
	store int
	date  time.Time
}

// Reconcile inner-joins actuals against forecasts on (store, date) and
// computes error columns. Rows present on only one side are excluded:
// errors are only computable on the overlap, unlike the preprocessing
// merge which keeps every primary row.
func Reconcile(actuals []dataset.MergedRow, forecasts []dataset.ForecastRow) []ReconciledRow {
	predictedByKey := make(map[joinKey]float64, len(forecasts))
	for _, f := range forecasts {
		predictedByKey[joinKey{store: f.Store, date: f.Date}] = f.Predicted
	}

	var rows []ReconciledRow
	for _, a := range actuals {
		predicted, ok := predictedByKey[joinKey{store: a.Store, date: a.Date}]
		if !ok {
			continue
		}

		row := ReconciledRow{
			Store:     a.Store,
			Date:      a.Date,
			Actual:    a.WeeklySales,
			Predicted: predicted,
			AbsError:  math.Abs(a.WeeklySales - predicted),
		}
		if a.WeeklySales != 0 {
			row.PctError = row.AbsError / a.WeeklySales * 100
			row.PctDefined = true
		}
		_, row.WeekOfYear = a.Date.ISOWeek()

		rows = append(rows, row)
	}
	return rows
}
