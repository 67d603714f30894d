package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrBadDate       = errors.New("malformed date")
	ErrMissingColumn = errors.New("missing required column")
)

// Raw feed dates use day-before-month ordering.
var dateLayouts = []string{"02-01-2006", "02/01/2006", "2006-01-02"}

// ParseDate parses a raw feed date with day-first convention
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}

// FormatDate renders a date the way persisted tables store it
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// SalesRecord is one observation from the primary sales feed
type SalesRecord struct {
	Store       int
	Date        time.Time
	WeeklySales float64
	HolidayFlag int
}

// FeatureRecord is one row of time-varying covariates keyed by (store, date)
type FeatureRecord struct {
	Store        int
	Date         time.Time
	Temperature  float64
	FuelPrice    float64
	CPI          float64
	Unemployment float64
}

// StoreRecord holds static attributes keyed by store id
type StoreRecord struct {
	Store int
	Type  string
	Size  float64
}

// MergedRow is a sales observation with covariates attached by left join.
// Unmatched numeric covariates are NaN and unmatched categoricals are "".
type MergedRow struct {
	Store       int
	Date        time.Time
	WeeklySales float64
	HolidayFlag int

	Temperature  float64
	FuelPrice    float64
	CPI          float64
	Unemployment float64

	Type string
	Size float64
}

// ForecastRow is one predicted value for a store at a date. Rows over the
// training range carry in-sample fitted values; rows past it are the
// future horizon.
type ForecastRow struct {
	Store     int       `json:"store"`
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted"`
}

// Missing is the numeric missing-value marker for unmatched covariates
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether a covariate value is the missing marker
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Stores returns the distinct store ids in a merged table, ascending
func Stores(rows []MergedRow) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, row := range rows {
		if !seen[row.Store] {
			seen[row.Store] = true
			ids = append(ids, row.Store)
		}
	}
	sort.Ints(ids)
	return ids
}

// StoreSeries extracts the (date, target) series for one store, sorted
// ascending by date. Covariates are dropped.
func StoreSeries(rows []MergedRow, store int) ([]time.Time, []float64) {
	var dates []time.Time
	var values []float64
	for _, row := range rows {
		if row.Store == store {
			dates = append(dates, row.Date)
			values = append(values, row.WeeklySales)
		}
	}

	idx := make([]int, len(dates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return dates[idx[a]].Before(dates[idx[b]])
	})

	sortedDates := make([]time.Time, len(dates))
	sortedValues := make([]float64, len(values))
	for i, j := range idx {
		sortedDates[i] = dates[j]
		sortedValues[i] = values[j]
	}
	return sortedDates, sortedValues
}
