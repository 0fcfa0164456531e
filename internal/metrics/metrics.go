// Package metrics counts what the evaluator does. A Recorder is a
// match.Observer backed by Prometheus collectors on its own registry.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/roach88/mailpat/internal/pattern"
)

// Recorder collects evaluation metrics.
type Recorder struct {
	registry *prometheus.Registry

	LeafEvaluations *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	MessagesScanned *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		LeafEvaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailpat_leaf_evaluations_total",
				Help: "Total number of pattern leaves evaluated",
			},
			[]string{"kind", "result"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailpat_cache_lookups_total",
				Help: "Total number of aggregate predicate cache lookups",
			},
			[]string{"kind", "variant", "result"},
		),
		MessagesScanned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailpat_messages_scanned_total",
				Help: "Total number of messages a pattern was applied to",
			},
			[]string{"result"},
		),
		ScanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailpat_scan_duration_seconds",
				Help:    "Duration of mailbox scans in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// Registry returns the registry the collectors are registered with.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Leaf implements match.Observer.
func (r *Recorder) Leaf(kind pattern.Kind, matched bool) {
	r.LeafEvaluations.WithLabelValues(kind.String(), outcome(matched)).Inc()
}

// CacheLookup implements match.Observer.
func (r *Recorder) CacheLookup(kind pattern.Kind, all, hit bool) {
	variant := "any"
	if all {
		variant = "all"
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookups.WithLabelValues(kind.String(), variant, result).Inc()
}

// MessageScanned records the outcome of applying a pattern to one message.
func (r *Recorder) MessageScanned(matched bool) {
	r.MessagesScanned.WithLabelValues(outcome(matched)).Inc()
}

// ScanFinished records the duration of a mailbox scan.
func (r *Recorder) ScanFinished(d time.Duration) {
	r.ScanDuration.Observe(d.Seconds())
}

func outcome(matched bool) string {
	if matched {
		return "match"
	}
	return "nomatch"
}

// Sample is one counter value.
type Sample struct {
	Name   string  `json:"name"`
	Labels string  `json:"labels,omitempty"` // name="value" pairs, comma separated
	Value  float64 `json:"value"`
}

func (s Sample) String() string {
	if s.Labels == "" {
		return fmt.Sprintf("%s %g", s.Name, s.Value)
	}
	return fmt.Sprintf("%s{%s} %g", s.Name, s.Labels, s.Value)
}

// Snapshot gathers every counter with a non-zero value, sorted by name
// and labels. Histograms are reported by their sample count.
func (r *Recorder) Snapshot() ([]Sample, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var samples []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var v float64
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				v = m.GetCounter().GetValue()
			case dto.MetricType_HISTOGRAM:
				v = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			if v == 0 {
				continue
			}
			samples = append(samples, Sample{Name: mf.GetName(), Labels: labels(m), Value: v})
		}
	}
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}

func labels(m *dto.Metric) string {
	pairs := make([]string, 0, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		pairs = append(pairs, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	return strings.Join(pairs, ",")
}
