package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Controller metrics
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "countdown_ticks_total",
			Help: "Total countdown ticks applied while counting",
		},
	)

	LifecycleState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "countdown_state",
			Help: "Current lifecycle state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	// Generation metrics
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countdown_generation_requests_total",
			Help: "Content generation requests by final outcome",
		},
		[]string{"outcome"},
	)

	GenerationAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "countdown_generation_attempts_total",
			Help: "Individual calls made to the generation backend",
		},
	)

	GenerationRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "countdown_generation_rate_limited_total",
			Help: "Generation attempts rejected by the backend rate limit",
		},
	)

	GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "countdown_generation_duration_seconds",
			Help:    "Time spent producing content, including backoff waits",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 40, 80},
		},
	)

	GenerationCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "countdown_generation_cache_hits_total",
			Help: "Generation requests served from the local cache",
		},
	)

	// Storage metrics
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "countdown_store_operations_total",
			Help: "Deadline store operations by operation and result",
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		LifecycleState,
		GenerationRequestsTotal,
		GenerationAttemptsTotal,
		GenerationRateLimited,
		GenerationDuration,
		GenerationCacheHits,
		StoreOperationsTotal,
	)
}

// SetLifecycleState marks state as the only active lifecycle state.
func SetLifecycleState(state string, all []string) {
	for _, s := range all {
		value := 0.0
		if s == state {
			value = 1
		}
		LifecycleState.WithLabelValues(s).Set(value)
	}
}

// ObserveStoreOperation counts a store call.
func ObserveStoreOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperationsTotal.WithLabelValues(op, result).Inc()
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
