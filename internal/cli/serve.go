package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/averith/murmur/internal/config"
	"github.com/averith/murmur/internal/logger"
	"github.com/averith/murmur/internal/maintenance"
	"github.com/averith/murmur/internal/metrics"
	"github.com/averith/murmur/internal/server"
	"github.com/averith/murmur/pkg/catalog"
	"github.com/averith/murmur/pkg/effect"
	"github.com/averith/murmur/pkg/engine"
	"github.com/averith/murmur/pkg/guard"
	"github.com/averith/murmur/pkg/intent"
	"github.com/averith/murmur/pkg/state"
	"github.com/averith/murmur/pkg/store"
	"github.com/averith/murmur/pkg/voice"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the turn server",
	Long: `Run the turn server in the foreground. The server exposes
/start-session and /chat-with-voice and shuts down cleanly on SIGINT
or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// app bundles the wired components so shutdown can walk them in order.
type app struct {
	server    *server.Server
	watcher   *catalog.Watcher
	scheduler *maintenance.Scheduler
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		Console:    true,
		Pretty:     true,
		Redaction:  cfg.Logging.Redaction,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxAgeDays: cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	a, err := buildApp(cfg, log.GetZerolog())
	if err != nil {
		return err
	}

	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Catalog watcher failed to start, continuing without hot reload")
		}
		defer a.watcher.Stop()
	}

	if a.scheduler != nil {
		a.scheduler.Start()
		defer a.scheduler.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	return a.server.Stop()
}

// buildApp wires config into a ready-to-start server.
func buildApp(cfg *config.Config, zlog zerolog.Logger) (*app, error) {
	// Catalog, optionally file-backed with hot reload.
	var (
		cat     *catalog.Catalog
		watcher *catalog.Watcher
		err     error
	)
	if cfg.Catalog.File != "" {
		cat, err = catalog.FromFile(cfg.Catalog.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		if cfg.Catalog.Watch {
			watcher, err = catalog.NewWatcher(cat, cfg.Catalog.File)
			if err != nil {
				return nil, fmt.Errorf("failed to create catalog watcher: %w", err)
			}
		}
	} else {
		cat = catalog.Default()
	}

	// Stores.
	orders, err := store.NewOrdersJournal(cfg.Stores.OrdersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open orders journal: %w", err)
	}
	cases, err := store.NewCaseFile(cfg.Stores.CasesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open case file: %w", err)
	}
	if err := cases.Seed(store.DefaultCases()); err != nil {
		return nil, fmt.Errorf("failed to seed cases: %w", err)
	}
	wellness, err := store.NewWellnessLog(cfg.Stores.WellnessFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open wellness log: %w", err)
	}

	// Resolver on the highest-priority profile.
	profile := pickProfile(cfg.Resolver.Profiles)
	factory := &intent.ProviderFactory{}
	provider, err := factory.NewProvider(intent.AuthProfile{
		ID:       profile.ID,
		Provider: profile.Provider,
		APIKey:   profile.APIKey,
		Model:    profile.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	model := profile.Model
	if model == "" {
		model = cfg.Resolver.Model
	}
	resolver := intent.NewResolver(provider, intent.ResolverConfig{
		Model:       model,
		Temperature: cfg.Resolver.Temperature,
		MaxTokens:   cfg.Resolver.MaxTokens,
		Timeout:     time.Duration(cfg.Resolver.Timeout) * time.Second,
		Scenarios:   cfg.Resolver.Scenarios,
	}, zlog)

	guards := []guard.GuardRail{
		guard.NewCommerceGuard(cat, zlog),
		guard.NewFraudCheckGuard(cases, zlog),
		guard.NewWellnessGuard(zlog),
		guard.NewImprovGuard(resolver.Scenarios(), zlog),
		guard.NewStoryGuard(zlog),
	}

	executor := effect.NewExecutor(cat, orders, cases, wellness, zlog)

	transcriber := voice.NewAssemblyAI(cfg.Voice.TranscriberKey, zlog)
	synthesizer := voice.NewMurf(voice.MurfConfig{
		APIKey:        cfg.Voice.Murf.APIKey,
		VoiceID:       cfg.Voice.Murf.VoiceID,
		FallbackVoice: cfg.Voice.Murf.FallbackVoice,
		Style:         cfg.Voice.Murf.Style,
		Locale:        cfg.Voice.Murf.Locale,
	}, zlog)

	m := metrics.NewMetrics()
	synthesizer.OnFallback(m.SynthesisFallbacksTotal.Inc)

	eng, err := engine.New(resolver, guards, executor, transcriber, synthesizer, m, engine.Config{}, zlog)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	var scheduler *maintenance.Scheduler
	if cfg.Maintenance.Enabled {
		scheduler = maintenance.NewScheduler(zlog)
		err := scheduler.Add(maintenance.Job{
			Name: "compact-orders",
			Spec: cfg.Maintenance.CompactSchedule,
			Run: func(ctx context.Context) error {
				kept, err := orders.Compact()
				if err != nil {
					return err
				}
				zlog.Info().Int("orders", kept).Msg("Orders journal compacted")
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register compaction job: %w", err)
		}
	}

	srv, err := server.NewServer(server.Options{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		RequestTimeout: time.Duration(cfg.Server.Timeout) * time.Second,
	}, eng, m.Handler(), zlog)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	zlog.Info().
		Str("provider", profile.Provider).
		Str("model", model).
		Int("variants", len(state.Variants())).
		Msg("Turn pipeline wired")

	return &app{
		server:    srv,
		watcher:   watcher,
		scheduler: scheduler,
	}, nil
}

// pickProfile returns the profile with the lowest priority value,
// treating ties by config order.
func pickProfile(profiles []config.ResolverProfile) config.ResolverProfile {
	sorted := make([]config.ResolverProfile, len(profiles))
	copy(sorted, profiles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted[0]
}
