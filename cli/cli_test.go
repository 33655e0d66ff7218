package cli

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstehr/trackside/trackside-core/config"
	"github.com/nstehr/trackside/trackside-core/ipc"
	"github.com/nstehr/trackside/trackside-core/metrics"
	"github.com/nstehr/trackside/trackside-core/model"
	"github.com/nstehr/trackside/trackside-core/racing"
)

const catalogJSON = `[
  {"name": "Japanese Derby", "date": "Classic Year Early May", "grade": "G1", "terrain": "Turf", "distanceType": "Medium", "fans": 30000, "turnNumber": 34},
  {"name": "Aoba Sho", "date": "Classic Year Early May", "grade": "G2", "terrain": "Turf", "distanceType": "Long", "fans": 9000, "turnNumber": 33}
]`

const planYAML = `
- raceName: Japanese Derby
  priority: 1
  turnNumber: 34
`

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := BuildCLI()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCatalogAndPlanCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRACKSIDE_DATABASE", filepath.Join(dir, "trackside.db"))

	out := run(t, "catalog", "import", "-f", writeFile(t, dir, "races.json", catalogJSON))
	assert.Equal(t, "imported 2 races\n", out)

	out = run(t, "catalog", "list", "--from", "33", "--to", "34")
	assert.Contains(t, out, "33\tG2\tTurf\tLong\tAoba Sho\t9000")
	assert.Contains(t, out, "34\tG1\tTurf\tMedium\tJapanese Derby\t30000")

	out = run(t, "plan", "set", "-f", writeFile(t, dir, "plan.yaml", planYAML))
	assert.Equal(t, "saved 1 planned races\n", out)

	out = run(t, "plan", "show")
	assert.Equal(t, "1\t34\tJapanese Derby\n", out)

	out = run(t, "plan", "--turn", "34", "--aptitude", "turf=A", "--aptitude", "medium=A")
	assert.Contains(t, out, "action: race_now")
	assert.Contains(t, out, "Japanese Derby (turn 34")

	out = run(t, "plan", "--turn", "30")
	assert.Contains(t, out, "action: wait")
	assert.Contains(t, out, "next:   Japanese Derby (turn 34")
}

func TestPlanRejectsBadAptitude(t *testing.T) {
	t.Setenv("TRACKSIDE_DATABASE", filepath.Join(t.TempDir(), "trackside.db"))
	cmd := BuildCLI()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"plan", "--aptitude", "snow=A"})
	assert.Error(t, cmd.Execute())
}

func TestParseAptitudes(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    model.Aptitudes
		wantErr bool
	}{
		{
			name:  "terrain and distance",
			pairs: []string{"Turf=A", "dirt=g", "short=B"},
			want: model.Aptitudes{
				Terrain:  map[model.Terrain]model.Aptitude{model.Turf: model.AptitudeA, model.Dirt: model.AptitudeG},
				Distance: map[model.Distance]model.Aptitude{model.Sprint: model.AptitudeB},
			},
		},
		{name: "missing grade", pairs: []string{"turf"}, wantErr: true},
		{name: "bad grade", pairs: []string{"turf=Z"}, wantErr: true},
		{name: "unknown key", pairs: []string{"snow=A"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAptitudes(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func testSessionDeps(t *testing.T, hello ipc.HelloMessage) (config.Config, sessionDeps) {
	t.Helper()
	cfg := config.Default()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })

	filter, err := racing.CompileFilter(cfg.Racing.Preferences())
	require.NoError(t, err)

	return cfg, sessionDeps{
		conn:      ipc.NewConnection(a, nil),
		hello:     hello,
		filter:    filter,
		collector: metrics.NewCollector(prometheus.NewRegistry()),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestNewSession(t *testing.T) {
	cfg, deps := testSessionDeps(t, ipc.HelloMessage{Device: "emulator-5554", Campaign: "unity_cup"})
	sess, err := newSession(cfg, deps)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.RunID)
}

func TestNewSessionUnknownCampaign(t *testing.T) {
	cfg, deps := testSessionDeps(t, ipc.HelloMessage{Device: "emulator-5554", Campaign: "grand_live"})
	_, err := newSession(cfg, deps)
	assert.ErrorContains(t, err, "unknown campaign")
}
