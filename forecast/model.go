package forecast

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInsufficientHistory = errors.New("insufficient history to fit model")
	ErrHorizonNotPositive  = errors.New("forecast horizon must be positive")
	ErrSeriesLenMismatch   = errors.New("dates and values have different lengths")
	ErrNotFitted           = errors.New("model not fitted")
)

// Weekly cadence of the retail feeds. Future points continue one period
// after the last observed date.
const Cadence = 7 * 24 * time.Hour

// Point is one (date, value) pair of a univariate series
type Point struct {
	Date  time.Time
	Value float64
}

// Model is the opaque forecasting capability: fit a univariate series,
// then predict. Predict returns fitted values over the training range
// followed by exactly horizon future points at weekly cadence, which is
// what lets downstream reconciliation join predictions against realized
// history.
type Model interface {
	Fit(dates []time.Time, values []float64) error
	Predict(horizon int) ([]Point, error)
	Name() string
}

// NewModelFunc builds a fresh model instance for one store
type NewModelFunc func() Model

// ModelFactory resolves a configured model name to a constructor
func ModelFactory(name string) (NewModelFunc, error) {
	switch name {
	case "linear":
		return func() Model { return NewLinearModel() }, nil
	case "seasonal_naive":
		return func() Model { return NewSeasonalNaiveModel(52) }, nil
	default:
		return nil, fmt.Errorf("unknown forecast model %q", name)
	}
}

func validateSeries(dates []time.Time, values []float64, minHistory int) error {
	if len(dates) != len(values) {
		return fmt.Errorf("%w: %d dates, %d values", ErrSeriesLenMismatch, len(dates), len(values))
	}
	if len(values) < minHistory {
		return fmt.Errorf("%w: have %d observations, need %d", ErrInsufficientHistory, len(values), minHistory)
	}
	return nil
}

// futureDates returns horizon weekly dates continuing after last
func futureDates(last time.Time, horizon int) []time.Time {
	dates := make([]time.Time, horizon)
	for i := range dates {
		dates[i] = last.Add(time.Duration(i+1) * Cadence)
	}
	return dates
}
