package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"typeahead/internal/a11y"
	"typeahead/internal/app"
	"typeahead/internal/config"
	"typeahead/internal/history"
	"typeahead/internal/inject"
	"typeahead/internal/logging"
	"typeahead/internal/overlay"
	"typeahead/internal/predict"
	"typeahead/internal/target"
)

const version = "0.3.0"

var (
	configPath string
	verbose    bool
	dryRun     bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "typeahead",
	Short: "Inline LLM text completion for desktop applications",
	Long: `typeahead watches the desktop accessibility event stream for typing in
registered target widgets, asks a local Ollama model for a short
continuation, shows it next to the caret, and types it into the field
when the trigger key is pressed.

Run without arguments to start the daemon. Target widgets are described
in a JSON file (see "typeahead targets") which is hot-reloaded on save.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the registered target widget descriptors",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		descriptors, err := target.LoadDescriptors(cfg.TargetsPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Printf("No targets file at %s\n", cfg.TargetsPath)
				return nil
			}
			return err
		}
		fmt.Printf("%d target(s) in %s\n\n", len(descriptors), cfg.TargetsPath)
		for i, d := range descriptors {
			app := "?"
			if len(d.Path) > 0 && d.Path[0].Name != nil {
				app = *d.Path[0].Name
			}
			fmt.Printf("  %d. app=%s role=%s name=%q interfaces=%v\n",
				i+1, app, d.Role, d.Name, d.Interfaces)
		}
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent predictions and whether they were accepted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.History.Enabled {
			fmt.Println("History is disabled in the configuration.")
			return nil
		}
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()

		entries, err := store.Recent(historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No predictions recorded yet.")
			return nil
		}
		for _, e := range entries {
			mark := " "
			if e.Accepted {
				mark = "*"
			}
			fmt.Printf("%s %s  %-9s %4dms  %q -> %q\n",
				mark, e.RequestedAt.Format("2006-01-02 15:04:05"),
				e.Trigger, e.ElapsedMS, e.Content, e.Completion)
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("refusing to overwrite existing config at %s", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("typeahead %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: XDG config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log completions instead of injecting them")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")

	rootCmd.AddCommand(targetsCmd, historyCmd, initCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runDaemon() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logging.Configure(logging.Options{
		Enabled: cfg.Logging.Debug,
		Dir:     cfg.Logging.Dir,
		Level:   cfg.Logging.Level,
	}); err != nil {
		logger.Warn("file logging unavailable", zap.Error(err))
	}
	defer logging.Close()
	logging.Boot("typeahead %s starting", version)

	var injector inject.Injector
	var display overlay.Overlay = overlay.LogOverlay{}
	if dryRun {
		injector = dryRunInjector{}
		logger.Info("dry-run mode: completions will be logged, not typed")
	} else {
		if err := inject.CheckDependencies(); err != nil {
			return fmt.Errorf("injection unavailable: %w (use --dry-run to run without it)", err)
		}
		injector = inject.NewYdotool(cfg.Predict.Delimiter)
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("history disabled: store failed to open", zap.Error(err))
		} else {
			defer store.Close()
		}
	}

	descriptors, err := target.LoadDescriptors(cfg.TargetsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load targets: %w", err)
		}
		logger.Warn("no targets file yet, waiting for one to appear",
			zap.String("path", cfg.TargetsPath))
	}
	matcher := target.NewMatcher(descriptors)
	logger.Info("targets loaded", zap.Int("count", matcher.Len()))

	client := predict.NewClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLMTimeout(), predict.Options{
		Temperature: cfg.LLM.Temperature,
		TopK:        cfg.LLM.TopK,
		TopP:        cfg.LLM.TopP,
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := client.Verify(verifyCtx); err != nil {
		logger.Warn("model not reachable yet, will retry on first request", zap.Error(err))
	}
	cancel()

	source, err := a11y.NewSocketSource(cfg.Loop.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to open event socket: %w", err)
	}
	logger.Info("listening for accessibility events",
		zap.String("socket", cfg.Loop.SocketPath),
		zap.String("model", cfg.LLM.Model))

	daemon := app.New(app.Options{
		Config:   cfg,
		Matcher:  matcher,
		Source:   source,
		Overlay:  display,
		Injector: injector,
		History:  store,
		Request:  client.Complete,
	})

	err = daemon.Run(ctx)
	logging.Boot("typeahead stopped")
	return err
}

// dryRunInjector satisfies inject.Injector without touching the desktop.
type dryRunInjector struct{}

func (dryRunInjector) Type(text string) error {
	logging.Get(logging.CategoryInject).Info("dry-run: would type %q", text)
	return nil
}
