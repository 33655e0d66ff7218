package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/campaign"
	"github.com/nstehr/trackside/trackside-core/racing"
)

var (
	_ bot.Observer            = (*Collector)(nil)
	_ campaign.StageObserver  = (*Collector)(nil)
	_ racing.DecisionObserver = (*Collector)(nil)
)

// value sums every sample of the named metric whose labels include want.
func value(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	samples:
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue samples
				}
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestNewCollectorRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	assert.NotNil(t, c)
	assert.Panics(t, func() { NewCollector(reg) }, "second registration should collide")
}

func TestObserveTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveTick("ao_haru", "handled", 2*time.Second)
	c.ObserveTick("ao_haru", "idle", time.Second)
	c.ObserveTick("ao_haru", "idle", time.Second)

	assert.Equal(t, 1.0, value(t, reg, "trackside_ticks_total", map[string]string{"outcome": "handled"}))
	assert.Equal(t, 2.0, value(t, reg, "trackside_ticks_total", map[string]string{"outcome": "idle"}))
	assert.Equal(t, 3.0, value(t, reg, "trackside_tick_duration_seconds", map[string]string{"campaign": "ao_haru"}))
}

func TestObserveStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveStage(campaign.TagUnityCup, campaign.StageConditions)
	c.ObserveStage(campaign.TagUnityCup, campaign.StageNone)

	assert.Equal(t, 1.0, value(t, reg, "trackside_stage_consumed_total", map[string]string{"stage": "campaign_conditions"}))
	assert.Equal(t, 1.0, value(t, reg, "trackside_stage_consumed_total", map[string]string{"stage": "none"}))
}

func TestObserveFindAndAct(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveFindAndAct("race_end", 1, true)
	c.ObserveFindAndAct("race_end", 30, false)

	assert.Equal(t, 1.0, value(t, reg, "trackside_find_and_act_total", map[string]string{"template": "race_end", "result": "hit"}))
	assert.Equal(t, 1.0, value(t, reg, "trackside_find_and_act_total", map[string]string{"template": "race_end", "result": "miss"}))
	assert.Equal(t, 2.0, value(t, reg, "trackside_find_and_act_attempts", nil))
}

func TestObserveDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveDecision(racing.Decision{Action: racing.Wait, Score: 65})
	c.ObserveDecision(racing.Decision{Action: racing.RaceNow, Score: 80, Race: &racing.ScoredRace{Score: 80}})

	assert.Equal(t, 1.0, value(t, reg, "trackside_race_decisions_total", map[string]string{"action": "wait"}))
	assert.Equal(t, 1.0, value(t, reg, "trackside_race_decisions_total", map[string]string{"action": "race_now"}))
	assert.Equal(t, 80.0, value(t, reg, "trackside_current_race_score", nil))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveTick("ura_finale", "handled", time.Second)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `trackside_ticks_total{campaign="ura_finale",outcome="handled"} 1`))
}
