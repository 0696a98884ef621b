package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts imported records by outcome.
type Metrics struct {
	Records *prometheus.CounterVec
	Batches *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Records: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_import_records_total",
			Help: "Imported records by kind and outcome",
		}, []string{"domain", "kind", "outcome"}), // outcome: "written", "duplicate", "invalid"

		Batches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_import_batches_total",
			Help: "Import batches processed",
		}, []string{"domain", "kind"}),
	}
}

func (m *Metrics) ObserveBatch(domain, kind string, written, duplicates, invalid int) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(domain, kind).Inc()
	m.Records.WithLabelValues(domain, kind, "written").Add(float64(written))
	m.Records.WithLabelValues(domain, kind, "duplicate").Add(float64(duplicates))
	m.Records.WithLabelValues(domain, kind, "invalid").Add(float64(invalid))
}
