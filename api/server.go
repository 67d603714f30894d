package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"demand-forecast-engine/dataset"
	"demand-forecast-engine/metrics"
	"demand-forecast-engine/storage"
)

// TableReader is the narrow slice of the table store the query service
// needs
type TableReader interface {
	Get(ctx context.Context, tableID string) ([]byte, error)
}

// Server is the read-only HTTP API over the persisted forecast table
type Server struct {
	router  *mux.Router
	store   TableReader
	limiter *rate.Limiter
	log     *logrus.Entry
}

// NewServer creates the query API server
func NewServer(store TableReader, rateLimit float64, rateBurst int) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
		log:     logrus.WithField("component", "api"),
	}
	s.setupRoutes()
	return s
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/forecast/{storeID}", s.withRateLimit(s.instrument("/forecast", s.getForecast))).Methods("GET")
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// withRateLimit rejects requests beyond the configured token bucket
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			metrics.RequestsThrottled.Inc()
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// instrument records request latency per route and status code
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(recorder, r)
		metrics.RequestDuration.
			WithLabelValues(route, strconv.Itoa(recorder.code)).
			Observe(time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// getForecast returns the persisted forecast rows for one store in
// persisted order. An unknown store id yields an empty array, not an
// error: the consumer distinguishes "no forecast yet" from "invalid id".
func (s *Server) getForecast(w http.ResponseWriter, r *http.Request) {
	storeID, err := strconv.Atoi(mux.Vars(r)["storeID"])
	if err != nil {
		http.Error(w, `{"error":"store id must be an integer"}`, http.StatusBadRequest)
		return
	}

	rows := []dataset.ForecastRow{}

	data, err := s.store.Get(r.Context(), storage.ForecastTable)
	if err != nil && !errors.Is(err, storage.ErrTableNotFound) {
		s.log.WithError(err).Error("failed to read forecast table")
		http.Error(w, `{"error":"forecast table unavailable"}`, http.StatusInternalServerError)
		return
	}
	if err == nil {
		all, decodeErr := dataset.DecodeForecast(data)
		if decodeErr != nil {
			s.log.WithError(decodeErr).Error("failed to decode forecast table")
			http.Error(w, `{"error":"forecast table unavailable"}`, http.StatusInternalServerError)
			return
		}
		for _, row := range all {
			if row.Store == storeID {
				rows = append(rows, row)
			}
		}
	}

	json.NewEncoder(w).Encode(rows)
}

// healthCheck reports service status and whether a forecast table has
// been produced yet
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	forecastReady := true
	if _, err := s.store.Get(r.Context(), storage.ForecastTable); err != nil {
		forecastReady = false
	}

	health := map[string]interface{}{
		"status":         "healthy",
		"timestamp":      time.Now().Format(time.RFC3339),
		"forecast_ready": forecastReady,
	}
	json.NewEncoder(w).Encode(health)
}
