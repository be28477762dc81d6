package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "habitbell"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	tickDuration *prom.HistogramVec
	ticks        *prom.CounterVec
	reminders    *prom.CounterVec
	responses    *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them with reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		tickDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_tick_duration_seconds",
			Help:      "Time spent evaluating due habits in one tick",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		ticks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Scheduler ticks by result",
		}, []string{"result"}),
		reminders: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Due habits by outcome (sent, suppressed, failed)",
		}, []string{"outcome"}),
		responses: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Reminder responses recorded by status",
		}, []string{"status"}),
	}
	reg.MustRegister(pr.tickDuration, pr.ticks, pr.reminders, pr.responses)
	return pr
}

func (p *PrometheusRecorder) ObserveTick(result TickResult, d time.Duration) {
	if p == nil || p.ticks == nil {
		return
	}
	p.ticks.WithLabelValues(string(result)).Inc()
	p.tickDuration.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncReminder(outcome ReminderOutcome) {
	if p == nil || p.reminders == nil {
		return
	}
	p.reminders.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncResponse(status string) {
	if p == nil || p.responses == nil {
		return
	}
	p.responses.WithLabelValues(status).Inc()
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prom.Registry {
	reg := prom.NewRegistry()
	reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return reg
}

// HTTPHandler serves the metrics in reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
