package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nstehr/trackside/trackside-core/agent"
	"github.com/nstehr/trackside/trackside-core/bot"
	"github.com/nstehr/trackside/trackside-core/campaign"
	"github.com/nstehr/trackside/trackside-core/config"
	"github.com/nstehr/trackside/trackside-core/ipc"
	"github.com/nstehr/trackside/trackside-core/metrics"
	"github.com/nstehr/trackside/trackside-core/racing"
	"github.com/nstehr/trackside/trackside-core/storage/sqlite"
)

func buildServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen for devices and drive their runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := newLogger(os.Stdout, cfg.Debug)
	slog.SetDefault(logger)

	store, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	filter, err := racing.CompileFilter(cfg.Racing.Preferences())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(ctx, cfg.Metrics.Addr, reg); err != nil {
				logger.Error("metrics server failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	srv := &ipc.Server{
		Path: cfg.Socket,
		OnHello: func(ctx context.Context, c *ipc.Connection, hello ipc.HelloMessage) (ipc.AckMessage, error) {
			sess, err := newSession(cfg, sessionDeps{
				conn:      c,
				hello:     hello,
				store:     store,
				filter:    filter,
				collector: collector,
				logger:    logger,
			})
			if err != nil {
				return ipc.AckMessage{}, err
			}
			go runSession(ctx, c, sess, logger)
			return ipc.AckMessage{Status: "ok", RunID: sess.RunID}, nil
		},
	}

	logger.Info("starting trackside", "socket", cfg.Socket, "campaign", cfg.Campaign)
	if err := srv.Serve(ctx); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}

type sessionDeps struct {
	conn      *ipc.Connection
	hello     ipc.HelloMessage
	store     *sqlite.Store
	filter    *racing.Filter
	collector *metrics.Collector
	logger    *slog.Logger
}

// newSession assembles the per-device run: remote device, bot, racing
// handler, campaign variant, dispatcher and agent session.
func newSession(cfg config.Config, deps sessionDeps) (*agent.Session, error) {
	log := deps.logger.With("device", deps.hello.Device)

	width, height := cfg.Screen.Width, cfg.Screen.Height
	if deps.hello.ScreenWidth > 0 && deps.hello.ScreenHeight > 0 {
		width, height = deps.hello.ScreenWidth, deps.hello.ScreenHeight
	}

	remote := ipc.NewRemoteDevice(deps.conn, cfg.Timing.RequestTimeout)
	b := bot.New(remote, bot.Options{
		DefaultTries:    cfg.Timing.DefaultTries,
		WaitBetween:     cfg.Timing.WaitBetween,
		TapSettle:       cfg.Timing.TapSettle,
		MinConfidence:   cfg.Timing.MinConfidence,
		PerceptionTries: cfg.Timing.PerceptionTries,
		ScreenWidth:     width,
		ScreenHeight:    height,
		Observer:        deps.collector,
		Logger:          log,
	})
	runner := racing.NewRunner(b)

	opts := racing.HandlerOptions{
		Catalog:         deps.store,
		Trainee:         remote,
		Config:          cfg.Racing.Scheduler(),
		Filter:          deps.filter,
		RaceWithoutPlan: cfg.Racing.RaceWithoutPlan,
		Observer:        deps.collector,
		Logger:          log,
	}
	if cfg.Racing.EnablePlan {
		opts.Plans = deps.store
	}
	races := racing.NewHandler(b, runner, opts)

	tag := cfg.Campaign
	if deps.hello.Campaign != "" {
		tag = deps.hello.Campaign
	}
	c, err := campaign.New(campaign.Tag(tag), campaign.Deps{
		Bot:              b,
		Runner:           runner,
		Selection:        cfg.Selection,
		TutorialAttempts: cfg.Tutorial.Attempts,
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}

	d := campaign.NewDispatcher(c, campaign.NewDefaults(b, remote, races), deps.collector, log)
	return agent.New(d, b, agent.Options{
		IdleWait: cfg.Timing.IdleWait,
		MaxTicks: cfg.Timing.MaxTicks,
		Sink:     remote,
		Observer: deps.collector,
		Logger:   log,
	}), nil
}

// runSession runs sess until it ends or the device disconnects, then closes
// the connection.
func runSession(ctx context.Context, c *ipc.Connection, sess *agent.Session, log *slog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	err := sess.Run(ctx)
	switch {
	case err == nil:
		log.Info("run finished", "run_id", sess.RunID)
	case errors.Is(err, agent.ErrStopped):
		log.Info("run stopped", "run_id", sess.RunID)
	default:
		log.Error("run failed", "run_id", sess.RunID, "error", err)
	}
	c.Close()
}
