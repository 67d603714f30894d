package forecast

import "time"

// SeasonalNaiveModel repeats the value observed one season earlier,
// falling back to the last observation when the history is shorter than
// one full season
type SeasonalNaiveModel struct {
	period int
	dates  []time.Time
	values []float64
	fitted bool
}

// NewSeasonalNaiveModel creates a seasonal naive model with the given
// season length in periods
func NewSeasonalNaiveModel(period int) *SeasonalNaiveModel {
	return &SeasonalNaiveModel{period: period}
}

func (m *SeasonalNaiveModel) Name() string { return "seasonal_naive" }

// Fit records the training series
func (m *SeasonalNaiveModel) Fit(dates []time.Time, values []float64) error {
	if err := validateSeries(dates, values, 2); err != nil {
		return err
	}
	m.dates = append([]time.Time(nil), dates...)
	m.values = append([]float64(nil), values...)
	m.fitted = true
	return nil
}

// Predict emits the season-lagged value at each training date and at
// horizon weekly steps past the last one
func (m *SeasonalNaiveModel) Predict(horizon int) ([]Point, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if horizon <= 0 {
		return nil, ErrHorizonNotPositive
	}

	n := len(m.values)
	points := make([]Point, 0, n+horizon)
	for i, d := range m.dates {
		points = append(points, Point{Date: d, Value: m.lagged(i)})
	}
	for k, d := range futureDates(m.dates[n-1], horizon) {
		points = append(points, Point{Date: d, Value: m.lagged(n + k)})
	}
	return points, nil
}

// lagged resolves the value one season before index i, walking back
// whole seasons until it lands inside the history
func (m *SeasonalNaiveModel) lagged(i int) float64 {
	n := len(m.values)
	j := i - m.period
	for j >= n {
		j -= m.period
	}
	if j < 0 {
		if i < n {
			return m.values[i]
		}
		return m.values[n-1]
	}
	return m.values[j]
}
