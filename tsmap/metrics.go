// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package tsmap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sourcemapx.safepic.fr/extractor"
)

// runMetrics lives for one command run and is exported as a node-exporter
// textfile when --metrics-file is set.
type runMetrics struct {
	reg       *prometheus.Registry
	entries   *prometheus.CounterVec
	documents *prometheus.CounterVec
	fetches   *prometheus.CounterVec
	bytes     prometheus.Counter
}

func newRunMetrics() *runMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &runMetrics{
		reg: reg,
		entries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sourcemapx_entries_total",
			Help: "Sourcemap entries processed, by outcome",
		}, []string{"outcome"}),
		documents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sourcemapx_documents_total",
			Help: "Sourcemap documents processed, by load status",
		}, []string{"status"}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sourcemapx_fetches_total",
			Help: "Remote fetches, by status",
		}, []string{"status"}),
		bytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "sourcemapx_bytes_written_total",
			Help: "Bytes written to recovered source files",
		}),
	}
}

func (m *runMetrics) observeReport(r *extractor.Report) {
	m.documents.WithLabelValues("loaded").Inc()
	for _, ev := range r.Events {
		m.entries.WithLabelValues(ev.Kind.String()).Inc()
	}
	m.bytes.Add(float64(r.Bytes))
}

func (m *runMetrics) observeBatch(br *extractor.BatchReport) {
	for _, d := range br.Documents {
		if d.Report != nil {
			m.observeReport(d.Report)
		}
	}
	m.documents.WithLabelValues("not_a_map").Add(float64(br.NotAMap))
	m.documents.WithLabelValues("missing_fields").Add(float64(br.MissingFields))
}

func (m *runMetrics) observeFetch(err error) {
	if err != nil {
		m.fetches.WithLabelValues("unavailable").Inc()
		return
	}
	m.fetches.WithLabelValues("ok").Inc()
}

func (m *runMetrics) writeFile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
