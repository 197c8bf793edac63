/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter hooks for decode results. LoggerReporter writes structured log lines;
PrometheusReporter exports counters and a duration histogram.
*/

package core

import (
	"github.com/kleascm/protodec/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reporter is notified after every job.
type Reporter interface {
	OnCaptureDecoded(result *Result)
	OnCaptureFailed(result *Result)
}

// LoggerReporter logs results
type LoggerReporter struct {
	logger *logging.Logger
}

// NewLoggerReporter creates a LoggerReporter. A nil logger uses the package default.
func NewLoggerReporter(logger *logging.Logger) *LoggerReporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &LoggerReporter{logger: logger}
}

func (r *LoggerReporter) OnCaptureDecoded(result *Result) {
	for _, s := range result.Spans {
		r.logger.LogSpan(result.CaptureID, s.Start, s.End, map[string]interface{}{
			"mode":   string(result.Mode),
			"cached": result.Cached,
		})
	}
}

func (r *LoggerReporter) OnCaptureFailed(result *Result) {
	r.logger.LogDecodeFailure(result.CaptureID, result.Err, map[string]interface{}{
		"mode":   string(result.Mode),
		"origin": result.Origin,
	})
}

// PrometheusReporter exports decode metrics
type PrometheusReporter struct {
	results   *prometheus.CounterVec
	spans     prometheus.Counter
	bytes     prometheus.Counter
	cacheHits prometheus.Counter
	duration  *prometheus.HistogramVec
}

// NewPrometheusReporter registers protodec collectors on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusReporter(reg prometheus.Registerer) *PrometheusReporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &PrometheusReporter{
		results: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "protodec",
			Name:      "captures_total",
			Help:      "Captures processed, by decode mode and outcome.",
		}, []string{"mode", "outcome"}),
		spans: f.NewCounter(prometheus.CounterOpts{
			Namespace: "protodec",
			Name:      "messages_found_total",
			Help:      "Serialized messages located in captures.",
		}),
		bytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "protodec",
			Name:      "capture_bytes_total",
			Help:      "Bytes of capture data processed.",
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "protodec",
			Name:      "cache_hits_total",
			Help:      "Results served from the result store.",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "protodec",
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding one capture.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"mode"}),
	}
}

func (r *PrometheusReporter) OnCaptureDecoded(result *Result) {
	r.observe(result, "decoded")
	r.spans.Add(float64(len(result.Spans)))
	if result.Cached {
		r.cacheHits.Inc()
	}
}

func (r *PrometheusReporter) OnCaptureFailed(result *Result) {
	r.observe(result, "failed")
}

func (r *PrometheusReporter) observe(result *Result, outcome string) {
	mode := string(result.Mode)
	r.results.WithLabelValues(mode, outcome).Inc()
	r.bytes.Add(float64(result.Size))
	r.duration.WithLabelValues(mode).Observe(result.Duration.Seconds())
}
