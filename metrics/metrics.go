// Package metrics provides an optional Prometheus-backed view of a
// connection's activity. It is entirely nil-safe: every method on a nil
// *Collector is a no-op, so the core connection and state-machine code can
// call into it unconditionally without a feature-flag branch at every call
// site.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds the counters and histograms tracked for one or more
// connections. Register it with a prometheus.Registerer of the caller's
// choosing.
type Collector struct {
	BytesRead     prometheus.Counter
	BytesWritten  prometheus.Counter
	QueriesTotal  prometheus.Counter
	QueriesFailed prometheus.Counter
	Reconnects    prometheus.Counter
	RowsReceived  prometheus.Counter
	QueryDuration prometheus.Histogram
}

// NewCollector constructs a Collector and registers its metrics with reg.
// Pass prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer to expose it on the process-wide endpoint.
func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	c := &Collector{
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_read_total",
			Help: "Total bytes read from the backend connection.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_written_total",
			Help: "Total bytes written to the backend connection.",
		}),
		QueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "queries_total",
			Help: "Total extended queries issued.",
		}),
		QueriesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "queries_failed_total",
			Help: "Total extended queries that failed.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reconnects_total",
			Help: "Total times the connection was re-established.",
		}),
		RowsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rows_received_total",
			Help: "Total DataRow messages received.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "query_duration_seconds",
			Help:    "Duration of an extended query from dispatch to CommandComplete.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.BytesRead, c.BytesWritten, c.QueriesTotal, c.QueriesFailed,
		c.Reconnects, c.RowsReceived, c.QueryDuration,
	)

	return c
}

func (c *Collector) addBytesRead(n int) {
	if c == nil {
		return
	}
	c.BytesRead.Add(float64(n))
}

func (c *Collector) addBytesWritten(n int) {
	if c == nil {
		return
	}
	c.BytesWritten.Add(float64(n))
}

func (c *Collector) incQueries() {
	if c == nil {
		return
	}
	c.QueriesTotal.Inc()
}

func (c *Collector) incQueriesFailed() {
	if c == nil {
		return
	}
	c.QueriesFailed.Inc()
}

func (c *Collector) incRows(n int) {
	if c == nil {
		return
	}
	c.RowsReceived.Add(float64(n))
}

func (c *Collector) observeQueryDuration(seconds float64) {
	if c == nil {
		return
	}
	c.QueryDuration.Observe(seconds)
}

// AddBytesRead records n bytes read from the wire. Safe on a nil Collector.
func (c *Collector) AddBytesRead(n int) { c.addBytesRead(n) }

// AddBytesWritten records n bytes written to the wire. Safe on a nil Collector.
func (c *Collector) AddBytesWritten(n int) { c.addBytesWritten(n) }

// IncQueries records one dispatched extended query. Safe on a nil Collector.
func (c *Collector) IncQueries() { c.incQueries() }

// IncQueriesFailed records one failed extended query. Safe on a nil Collector.
func (c *Collector) IncQueriesFailed() { c.incQueriesFailed() }

// IncRows records n rows delivered to a consumer. Safe on a nil Collector.
func (c *Collector) IncRows(n int) { c.incRows(n) }

// ObserveQueryDuration records the wall-clock duration of one extended
// query. Safe on a nil Collector.
func (c *Collector) ObserveQueryDuration(seconds float64) { c.observeQueryDuration(seconds) }
