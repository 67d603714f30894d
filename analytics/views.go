package analytics

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StoreSummary holds one store's mean errors over the reconciled rows.
// MeanPctError averages only the rows where the percentage error is
// defined; PctSamples reports how many that was.
type StoreSummary struct {
	Store        int     `json:"store"`
	MeanAbsError float64 `json:"mean_abs_error"`
	MeanPctError float64 `json:"mean_pct_error"`
	PctSamples   int     `json:"pct_samples"`
}

// EntityErrorSummary reduces reconciled rows into one summary per store,
// sorted descending by mean absolute error for worst-first triage. Ties
// break by ascending store id.
func EntityErrorSummary(rows []ReconciledRow) []StoreSummary {
	absByStore := make(map[int][]float64)
	pctByStore := make(map[int][]float64)
	for _, row := range rows {
		absByStore[row.Store] = append(absByStore[row.Store], row.AbsError)
		if row.PctDefined {
			pctByStore[row.Store] = append(pctByStore[row.Store], row.PctError)
		}
	}

	summaries := make([]StoreSummary, 0, len(absByStore))
	for store, absErrors := range absByStore {
		summary := StoreSummary{
			Store:        store,
			MeanAbsError: stat.Mean(absErrors, nil),
		}
		if pctErrors := pctByStore[store]; len(pctErrors) > 0 {
			summary.MeanPctError = stat.Mean(pctErrors, nil)
			summary.PctSamples = len(pctErrors)
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].MeanAbsError != summaries[j].MeanAbsError {
			return summaries[i].MeanAbsError > summaries[j].MeanAbsError
		}
		return summaries[i].Store < summaries[j].Store
	})
	return summaries
}

// Surface is a dense store × ISO-week grid of mean absolute error.
// A zero cell means no reconciled rows landed there, not that the
// forecast was perfect.
type Surface struct {
	Stores []int
	Weeks  []int
	cells  map[surfaceKey]float64
}

type surfaceKey struct {
	store int
	week  int
}

// Cell returns the mean absolute error for (store, week), zero when no
// underlying rows exist
func (s *Surface) Cell(store, week int) float64 {
	return s.cells[surfaceKey{store: store, week: week}]
}

// ErrorSurface reduces reconciled rows into a dense surface over the
// cross-product of every observed store and every observed ISO week
func ErrorSurface(rows []ReconciledRow) *Surface {
	byCell := make(map[surfaceKey][]float64)
	storeSet := make(map[int]bool)
	weekSet := make(map[int]bool)
	for _, row := range rows {
		key := surfaceKey{store: row.Store, week: row.WeekOfYear}
		byCell[key] = append(byCell[key], row.AbsError)
		storeSet[row.Store] = true
		weekSet[row.WeekOfYear] = true
	}

	surface := &Surface{cells: make(map[surfaceKey]float64, len(byCell))}
	for store := range storeSet {
		surface.Stores = append(surface.Stores, store)
	}
	for week := range weekSet {
		surface.Weeks = append(surface.Weeks, week)
	}
	sort.Ints(surface.Stores)
	sort.Ints(surface.Weeks)

	for key, absErrors := range byCell {
		surface.cells[key] = stat.Mean(absErrors, nil)
	}
	return surface
}
