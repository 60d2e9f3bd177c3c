package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitemapgen"

// Outcome labels for generation runs.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Recorder exposes generation metrics on its own registry. A nil Recorder
// ignores all observations.
type Recorder struct {
	registry    *prom.Registry
	runs        *prom.CounterVec
	duration    prom.Histogram
	entries     prom.Gauge
	skipped     *prom.CounterVec
	lastSuccess prom.Gauge
	documentLen prom.Gauge
}

// NewRecorder registers the generator metrics plus Go runtime and process
// collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prom.NewRegistry()
	r := &Recorder{
		registry: reg,
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sitemap generation runs by outcome",
		}, []string{"outcome"}),
		duration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of sitemap generation runs",
			Buckets:   prom.DefBuckets,
		}),
		entries: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_entries",
			Help:      "Entries written by the most recent successful run, root entry included",
		}),
		skipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_files_total",
			Help:      "Files left out of the sitemap by reason",
		}, []string{"reason"}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful run",
		}),
		documentLen: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_document_bytes",
			Help:      "Size of the most recently generated sitemap document",
		}),
	}
	reg.MustRegister(
		r.runs, r.duration, r.entries, r.skipped, r.lastSuccess, r.documentLen,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRun records the outcome of one run.
func (r *Recorder) ObserveRun(d time.Duration, err error) {
	if r == nil {
		return
	}
	r.duration.Observe(d.Seconds())
	if err != nil {
		r.runs.WithLabelValues(OutcomeFailed).Inc()
		return
	}
	r.runs.WithLabelValues(OutcomeSuccess).Inc()
	r.lastSuccess.SetToCurrentTime()
}

// ObserveDocument records what a successful run produced.
func (r *Recorder) ObserveDocument(entries, bytes int, skipped map[string]int) {
	if r == nil {
		return
	}
	r.entries.Set(float64(entries))
	r.documentLen.Set(float64(bytes))
	for reason, n := range skipped {
		r.skipped.WithLabelValues(reason).Add(float64(n))
	}
}

// HTTPHandler serves the registry in the Prometheus exposition format.
func (r *Recorder) HTTPHandler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
