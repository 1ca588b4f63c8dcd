package extraction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for timetable_extractions_total.
const (
	outcomeSuccess = "success"
	outcomeEmpty   = "empty"
	outcomeError   = "error"
)

// Metrics records extraction counters. A nil *Metrics records nothing.
type Metrics struct {
	extractions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	days        prometheus.Histogram
	fallbacks   prometheus.Counter
}

// NewMetrics registers the extraction collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_extractions_total",
			Help: "Timetable extractions by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timetable_extraction_duration_seconds",
			Help:    "Time spent extracting a timetable.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"method"}),
		days: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "timetable_extracted_days",
			Help:    "Number of days in a successful extraction.",
			Buckets: []float64{1, 7, 14, 28, 31, 62, 93, 186, 366},
		}),
		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "timetable_ai_fallbacks_total",
			Help: "AI extractions that failed and fell back to OCR.",
		}),
	}
}

func (m *Metrics) observe(method Method, outcome string, started time.Time, days int) {
	if m == nil {
		return
	}
	label := string(method)
	if label == "" {
		label = "none"
	}
	m.extractions.WithLabelValues(label, outcome).Inc()
	m.duration.WithLabelValues(label).Observe(time.Since(started).Seconds())
	if outcome == outcomeSuccess {
		m.days.Observe(float64(days))
	}
}

func (m *Metrics) aiFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}
