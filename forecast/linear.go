package forecast

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Linear trend needs a couple of points beyond the degenerate two-point
// fit before the slope means anything.
const linearMinHistory = 3

// LinearModel fits an ordinary least squares trend line over time
type LinearModel struct {
	alpha, beta float64
	origin      time.Time
	dates       []time.Time
	fitted      bool
}

// NewLinearModel creates an unfitted linear trend model
func NewLinearModel() *LinearModel {
	return &LinearModel{}
}

func (m *LinearModel) Name() string { return "linear" }

// Fit estimates intercept and slope against weeks elapsed since the
// first observation
func (m *LinearModel) Fit(dates []time.Time, values []float64) error {
	if err := validateSeries(dates, values, linearMinHistory); err != nil {
		return err
	}

	m.origin = dates[0]
	x := make([]float64, len(dates))
	for i, d := range dates {
		x[i] = m.weeksSinceOrigin(d)
	}

	m.alpha, m.beta = stat.LinearRegression(x, values, nil, false)
	m.dates = append([]time.Time(nil), dates...)
	m.fitted = true
	return nil
}

// Predict evaluates the trend line at every training date and at horizon
// weekly steps past the last one
func (m *LinearModel) Predict(horizon int) ([]Point, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if horizon <= 0 {
		return nil, ErrHorizonNotPositive
	}

	points := make([]Point, 0, len(m.dates)+horizon)
	for _, d := range m.dates {
		points = append(points, Point{Date: d, Value: m.at(d)})
	}
	for _, d := range futureDates(m.dates[len(m.dates)-1], horizon) {
		points = append(points, Point{Date: d, Value: m.at(d)})
	}
	return points, nil
}

func (m *LinearModel) weeksSinceOrigin(d time.Time) float64 {
	return d.Sub(m.origin).Hours() / (24 * 7)
}

func (m *LinearModel) at(d time.Time) float64 {
	return m.alpha + m.beta*m.weeksSinceOrigin(d)
}
