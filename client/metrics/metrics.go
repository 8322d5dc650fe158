// Package metrics instruments calls to the backing service with
// Prometheus counters, a latency histogram and an in-flight gauge.
package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fetcher"

// Collectors groups the metrics registered by [NewRoundTripper].
type Collectors struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

func newCollectors() *Collectors {
	return &Collectors{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total number of responses received from the backing service.",
			},
			[]string{"method", "code"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "Histogram of round trip latencies.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight requests.",
		}),
	}
}

// register adds every collector to reg, reusing collectors that an earlier
// client already registered.
func (c *Collectors) register(reg prometheus.Registerer) error {
	if err := registerOrReuse(reg, c.Requests, func(existing prometheus.Collector) bool {
		v, ok := existing.(*prometheus.CounterVec)
		if ok {
			c.Requests = v
		}
		return ok
	}); err != nil {
		return err
	}

	if err := registerOrReuse(reg, c.Duration, func(existing prometheus.Collector) bool {
		v, ok := existing.(*prometheus.HistogramVec)
		if ok {
			c.Duration = v
		}
		return ok
	}); err != nil {
		return err
	}

	return registerOrReuse(reg, c.InFlight, func(existing prometheus.Collector) bool {
		v, ok := existing.(prometheus.Gauge)
		if ok {
			c.InFlight = v
		}
		return ok
	})
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector, reuse func(prometheus.Collector) bool) error {
	err := reg.Register(c)
	if err == nil {
		return nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) && reuse(are.ExistingCollector) {
		return nil
	}

	return fmt.Errorf("registering collector: %w", err)
}

// NewRoundTripper registers the client collectors on reg and wraps next
// with them.
func NewRoundTripper(reg prometheus.Registerer, next http.RoundTripper) (http.RoundTripper, error) {
	if reg == nil {
		return nil, errors.New("registerer must not be nil")
	}
	if next == nil {
		next = http.DefaultTransport
	}

	c := newCollectors()
	if err := c.register(reg); err != nil {
		return nil, err
	}

	rt := promhttp.InstrumentRoundTripperCounter(c.Requests, next)
	rt = promhttp.InstrumentRoundTripperDuration(c.Duration, rt)
	rt = promhttp.InstrumentRoundTripperInFlight(c.InFlight, rt)

	return rt, nil
}
