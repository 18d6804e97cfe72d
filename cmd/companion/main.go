// Reachy Mini companion: wake-word triggered voice conversations with
// robot movement over the Gemini Live API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/reachy-companion/internal/log"
	"github.com/teslashibe/reachy-companion/pkg/audioio"
	"github.com/teslashibe/reachy-companion/pkg/config"
	"github.com/teslashibe/reachy-companion/pkg/cost"
	"github.com/teslashibe/reachy-companion/pkg/orchestrator"
	"github.com/teslashibe/reachy-companion/pkg/robot"
	"github.com/teslashibe/reachy-companion/pkg/tools"
	"github.com/teslashibe/reachy-companion/pkg/wake"
	"github.com/teslashibe/reachy-companion/pkg/web"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to YAML config override file")
	simulate := flag.Bool("simulate", false, "Run without robot hardware")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Load and validate config, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *simulate {
		cfg.Reachy.Simulate = true
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log.Init(cfg.Logging.Level, cfg.Logging.File)

	if *dryRun {
		log.Info("configuration valid",
			"model", cfg.Gemini.Model,
			"wake_backend", cfg.Wake.Backend,
			"simulate", cfg.Reachy.Simulate)
		return
	}

	if !cfg.HasAPIKey() {
		fmt.Fprintln(os.Stderr, "GOOGLE_API_KEY is not set; get a key at aistudio.google.com")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Error("companion failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	detector, err := wake.New(cfg.Wake)
	if err != nil {
		return fmt.Errorf("wake backend: %w", err)
	}

	var mover robot.Mover
	if cfg.Reachy.Simulate {
		mover = robot.NewSimMover()
	} else {
		mover = robot.NewHTTPMover(cfg.Reachy.RobotIP, cfg.Robot.ExpressionSpeed)
	}

	// Device audio I/O is not wired on this build; the synthetic
	// endpoint keeps the rest of the loop runnable.
	if !cfg.Reachy.Simulate {
		log.Warn("no device audio endpoint available, using synthetic audio")
	}
	// 20ms blocks, paced at real time.
	endpoint := audioio.NewMockEndpoint(cfg.Gemini.InputSampleRate, cfg.Gemini.InputSampleRate/50,
		audioio.WithCaptureInterval(20*time.Millisecond))

	var store *cost.Store
	if cfg.Cost.DBPath != "" {
		store, err = cost.OpenStore(cfg.Cost.DBPath)
		if err != nil {
			return fmt.Errorf("cost store: %w", err)
		}
		defer store.Close()
	}
	tracker := cost.NewTracker(store, cfg.Cost.Pricing, cfg.Cost.DailyBudgetUSD)

	dispatcher := tools.NewRobotDispatcher(mover, cfg.Prompt.EnabledTools())
	orch := orchestrator.New(cfg, endpoint, mover, detector, dispatcher, tracker)

	if cfg.Web.Enabled {
		dashboard := web.NewServer(cfg.Web.Host, cfg.Web.Port, orch.Machine(), tracker, store)
		orch.OnToolCall = func(name string) { dashboard.RecordToolCall() }
		orch.OnTranscript = dashboard.RecordTranscript
		go func() {
			if err := dashboard.Start(); err != nil {
				log.Error("dashboard failed", "error", err)
			}
		}()
		defer func() {
			if err := dashboard.Shutdown(); err != nil {
				log.Warn("dashboard shutdown failed", "error", err)
			}
		}()
	}

	return orch.Run(ctx)
}
