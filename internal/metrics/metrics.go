// Package metrics exports pipeline run and task metrics in the Prometheus
// format. Collector implements pipeline.Observer.
package metrics

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moviepipe/moviepipe/internal/pipeline"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

const namespace = "moviepipe"

// Collector records run and task outcomes on its own registry.
type Collector struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	lastSuccess  prometheus.Gauge
	running      prometheus.Gauge
	tasks        *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	rows         *prometheus.GaugeVec
	topAvgRating prometheus.Gauge
}

// NewCollector creates a Collector with a fresh registry that also carries
// the Go runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      "1 while a run is executing.",
		}),
		tasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Task completions by task and status.",
		}, []string{"task", "status"}),
		taskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of tasks that ran.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"task"}),
		rows: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows",
			Help:      "Row counts of the last run by stage.",
		}, []string{"stage"}),
		topAvgRating: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "top_average_rating",
			Help:      "Highest average rating reported by the last analysis.",
		}),
	}
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) RunStarted(uuid.UUID) {
	c.running.Set(1)
}

func (c *Collector) TaskStarted(string) {}

func (c *Collector) TaskFinished(task string, status pipeline.Status, elapsed time.Duration, _ error) {
	c.tasks.WithLabelValues(task, status.String()).Inc()
	if status != pipeline.StatusSkipped {
		c.taskDuration.WithLabelValues(task).Observe(elapsed.Seconds())
	}
}

func (c *Collector) RunFinished(report *moviepipe.RunReport, err error) {
	c.running.Set(0)
	c.runDuration.Observe(report.Duration().Seconds())

	if err != nil {
		c.runs.WithLabelValues("failed").Inc()
		return
	}
	c.runs.WithLabelValues("success").Inc()
	c.lastSuccess.Set(float64(report.FinishedAt.Unix()))

	c.rows.WithLabelValues("movies_clean").Set(float64(report.MoviesKept))
	c.rows.WithLabelValues("ratings_clean").Set(float64(report.RatingsKept))
	c.rows.WithLabelValues("merged").Set(float64(report.MergedRows))
	c.rows.WithLabelValues("loaded").Set(float64(report.LoadedRows))
	if len(report.TopRated) > 0 {
		c.topAvgRating.Set(report.TopRated[0].AverageRating)
	}
}
