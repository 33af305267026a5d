// Package metrics records run outcomes on a private Prometheus registry and
// writes them in the node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "order_etl"

// Recorder holds the collectors for one process.
type Recorder struct {
	Registry *prometheus.Registry

	rowsLoaded  *prometheus.GaugeVec
	tableStatus *prometheus.GaugeVec
	degraded    *prometheus.GaugeVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	runs        *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		rowsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_loaded",
			Help:      "Rows present in each table after the last load.",
		}, []string{"table"}),
		tableStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_ok",
			Help:      "1 if the table's row count matched its source after the last load.",
		}, []string{"table"}),
		degraded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_degraded",
			Help:      "1 if the dataset was read from the cache instead of the source.",
		}, []string{"dataset"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs by outcome.",
		}, []string{"outcome"}),
	}
	r.Registry.MustRegister(r.rowsLoaded, r.tableStatus, r.degraded, r.duration, r.lastSuccess, r.runs)
	return r
}

// Table records the outcome of one table load.
func (r *Recorder) Table(name string, rows int, ok bool) {
	r.rowsLoaded.WithLabelValues(name).Set(float64(rows))
	if ok {
		r.tableStatus.WithLabelValues(name).Set(1)
	} else {
		r.tableStatus.WithLabelValues(name).Set(0)
	}
}

// Degraded marks datasets served from the cache.
func (r *Recorder) Degraded(datasets []string) {
	for _, d := range datasets {
		r.degraded.WithLabelValues(d).Set(1)
	}
}

// Finish records the run duration and outcome.
func (r *Recorder) Finish(started time.Time, err error) {
	r.duration.Set(time.Since(started).Seconds())
	if err != nil {
		r.runs.WithLabelValues("failure").Inc()
		return
	}
	r.runs.WithLabelValues("success").Inc()
	r.lastSuccess.SetToCurrentTime()
}

// WriteTextfile writes the registry to path. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.Registry)
}
