// Package metrics exports sweep progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cwbudde/algo-pulse/measure/sweep"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "pulse_"

	outcomePass = "pass"
	outcomeFail = "fail"
)

// Observer implements sweep.Observer on Prometheus collectors.
type Observer struct {
	points    *prometheus.CounterVec
	retries   *prometheus.CounterVec
	amplitude *prometheus.GaugeVec
	latency   prometheus.Histogram
}

// NewObserver creates an observer and registers its collectors with reg.
// A nil reg uses the default registerer.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		points: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "points_total",
				Help: "Measured sweep points by outcome and failure tag",
			},
			[]string{"outcome", "tag"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "retries_total",
				Help: "Span consistency retries by pulser mode",
			},
			[]string{"mode"},
		),
		amplitude: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_amplitude_millivolts",
				Help: "Last measured amplitude by pulser mode and width",
			},
			[]string{"mode", "width"},
		),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "acquisition_seconds",
			Help:    "Waveform acquisition latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	for _, c := range []prometheus.Collector{o.points, o.retries, o.amplitude, o.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// ObserveRetry implements sweep.Observer.
func (o *Observer) ObserveRetry(p sweep.Point) {
	o.retries.WithLabelValues(p.Mode.String()).Inc()
}

// ObservePoint implements sweep.Observer.
func (o *Observer) ObservePoint(r sweep.Row, acquisition time.Duration) {
	o.latency.Observe(acquisition.Seconds())

	if !r.Pass {
		o.points.WithLabelValues(outcomeFail, r.Tag).Inc()
		return
	}

	o.points.WithLabelValues(outcomePass, "").Inc()
	o.amplitude.WithLabelValues(r.Point.Mode.String(), strconv.Itoa(r.Point.Width)).Set(r.Measured)
}

var _ sweep.Observer = (*Observer)(nil)

// Serve exposes g on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *log.Logger) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdown)
	}()

	if logger != nil {
		logger.Printf("metrics listening on %s", addr)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
