// Package metrics exposes run metrics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nstehr/trackside/trackside-core/campaign"
	"github.com/nstehr/trackside/trackside-core/racing"
)

// Collector records what the bot sees and decides. It satisfies the
// observer interfaces of the bot, campaign, racing and agent packages.
type Collector struct {
	ticks        *prometheus.CounterVec
	tickDuration *prometheus.HistogramVec
	stages       *prometheus.CounterVec
	findAndAct   *prometheus.CounterVec
	attempts     prometheus.Histogram
	decisions    *prometheus.CounterVec
	raceScore    prometheus.Gauge
}

// NewCollector creates the collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackside_ticks_total",
			Help: "Dispatcher ticks by outcome",
		}, []string{"campaign", "outcome"}),
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trackside_tick_duration_seconds",
			Help:    "Time spent in one dispatcher tick",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"campaign"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackside_stage_consumed_total",
			Help: "Ticks consumed by each dispatcher stage",
		}, []string{"campaign", "stage"}),
		findAndAct: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackside_find_and_act_total",
			Help: "Find-and-act calls by template and result",
		}, []string{"template", "result"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackside_find_and_act_attempts",
			Help:    "Perception attempts used per find-and-act call",
			Buckets: []float64{1, 2, 3, 5, 10, 30},
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackside_race_decisions_total",
			Help: "Racing plan scheduler decisions by action",
		}, []string{"action"}),
		raceScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trackside_current_race_score",
			Help: "Score of the current race in the last scheduler decision",
		}),
	}
	reg.MustRegister(c.ticks, c.tickDuration, c.stages, c.findAndAct, c.attempts, c.decisions, c.raceScore)
	return c
}

// ObserveTick records one dispatcher tick.
func (c *Collector) ObserveTick(campaign, outcome string, d time.Duration) {
	c.ticks.WithLabelValues(campaign, outcome).Inc()
	c.tickDuration.WithLabelValues(campaign).Observe(d.Seconds())
}

// ObserveStage records which stage consumed a tick.
func (c *Collector) ObserveStage(tag campaign.Tag, stage campaign.Stage) {
	name := string(stage)
	if stage == campaign.StageNone {
		name = "none"
	}
	c.stages.WithLabelValues(string(tag), name).Inc()
}

// ObserveFindAndAct records one find-and-act call.
func (c *Collector) ObserveFindAndAct(template string, attempts int, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.findAndAct.WithLabelValues(template, result).Inc()
	c.attempts.Observe(float64(attempts))
}

// ObserveDecision records a scheduler decision.
func (c *Collector) ObserveDecision(d racing.Decision) {
	c.decisions.WithLabelValues(d.Action.String()).Inc()
	c.raceScore.Set(d.Score)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr until ctx is cancelled.
func StartServer(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
