package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"tzcal/internal/calendar"
	"tzcal/internal/clock"
	"tzcal/internal/config"
	appLog "tzcal/internal/log"
	"tzcal/internal/store"
	"tzcal/internal/tzconv"
	"tzcal/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
}

func main() {
	flags := parseFlags()
	appLog.SetLevel(appLog.ParseLevel(flags.logLevel))
	appLog.Info("tzcal starting", "version", version)

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		appLog.Debug(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		appLog.Error("failed to set GOMAXPROCS", err)
	}
	defer undo()

	if err := run(flags); err != nil {
		appLog.Error("tzcal exiting with error", err)
		os.Exit(1)
	}
	appLog.Info("tzcal exiting")
}

func run(flags flagConfig) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"default_view", conf.DefaultView,
		"default_timezones", len(conf.DefaultTimezones),
		"data_path", conf.DataPath,
	)

	st, err := store.Open(conf.DataPath)
	if err != nil {
		return err
	}
	defer st.Close()

	session, err := newSession(conf)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.LoadEvents(ctx, st); err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	if flags.once {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(session.Rebuild(time.Now()))
	}

	srv := web.NewServer(conf, st, session, clock.System{})
	live, err := clock.New(conf.RefreshCron, clock.System{}, srv.Target(), func(t clock.Tick) {
		if t.Layout != nil && len(t.Layout.Skipped) > 0 {
			appLog.Info("layout skipped events", "count", len(t.Layout.Skipped))
		}
	})
	if err != nil {
		return err
	}
	srv.AttachClock(live)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := live.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		live.Stop()
		return nil
	})
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	return g.Wait()
}

func newSession(conf *config.Config) (*calendar.Session, error) {
	ref, err := tzconv.Location(conf.Timezone)
	if err != nil {
		return nil, err
	}
	mode, err := calendar.ParseViewMode(conf.DefaultView)
	if err != nil {
		return nil, err
	}

	session := calendar.NewSession(calendar.Options{
		Reference: ref,
		WeekStart: calendar.ParseWeekStart(conf.WeekStart),
		Geometry:  calendar.NewGridGeometry(conf.HourHeightPx),
		Catalog:   conf.Timezones,
		MaxZones:  conf.MaxTimezones,
		View:      mode,
	}, time.Now())

	for _, zone := range conf.DefaultTimezones {
		if err := session.Zones.Add(zone); err != nil {
			appLog.Error("default timezone rejected", err, "zone", zone)
		}
	}
	return session, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/tzcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug, info or error")
	flag.BoolVar(&cfg.once, "once", false, "Print one layout as JSON and exit")

	flag.Parse()

	return cfg
}
