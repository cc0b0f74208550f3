package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	appanalysis "github.com/bryanwahyu/automaton-logwatch/internal/application/analysis"
	"github.com/bryanwahyu/automaton-logwatch/internal/config"
	domain "github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
	"github.com/bryanwahyu/automaton-logwatch/internal/infra/heuristic"
	"github.com/bryanwahyu/automaton-logwatch/internal/infra/httpserver"
	"github.com/bryanwahyu/automaton-logwatch/internal/infra/logsource"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	configPath    string
	heuristicFile string
)

var rootCmd = &cobra.Command{
	Use:   "logwatch",
	Short: "LLM-assisted access log analyzer",
	Long: `logwatch pulls recent access-log records, asks an LLM whether they
look like an attack, and serves the latest verdict over HTTP.`,
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP API",
	RunE:  runServe,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis and print the resulting state",
	RunE:  runAnalyze,
}

var heuristicsCmd = &cobra.Command{
	Use:   "heuristics",
	Short: "Scan the log file with pattern rules only, no LLM call",
	RunE:  runHeuristics,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("logwatch %s\n", Version)
		fmt.Printf("  Commit:     %s\n", Commit)
		fmt.Printf("  Build Time: %s\n", BuildTime)
	},
}

func init() {
	defaultPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to config.yaml")
	heuristicsCmd.Flags().StringVarP(&heuristicFile, "file", "f", "", "log file to scan (default: source.file.path)")

	rootCmd.AddCommand(serveCmd, analyzeCmd, heuristicsCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads config and configures logging. validate is skipped for
// commands that never reach the LLM.
func loadConfig(validate bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	setupLogging(cfg.Logging.Level, cfg.Logging.Format)
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	sched := appanalysis.NewScheduler(a.service, cfg.Analysis.Interval, a.metrics)
	if cfg.Source.Type == "file" && cfg.Source.File.Watch {
		w, err := logsource.NewWatcher(cfg.Source.File.Path, cfg.Source.File.Debounce, func() {
			if _, err := sched.Trigger(); err != nil && !errors.Is(err, domain.ErrBusy) {
				log.Warn().Err(err).Msg("watch-triggered run failed")
			}
		})
		if err != nil {
			return fmt.Errorf("watch %s: %w", cfg.Source.File.Path, err)
		}
		go w.Run(ctx)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Start(ctx)
	}()

	handler := httpserver.NewRouter(a.store, sched, httpserver.Options{
		APIKeys:     cfg.Server.APIKeys,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateBurst:   cfg.Server.RateLimit.Burst,
		RatePerSec:  cfg.Server.RateLimit.Rate,
		Metrics:     a.metrics,
		Health:      a.health,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("source", cfg.Source.Type).
			Str("provider", cfg.LLM.Provider).
			Dur("interval", cfg.Analysis.Interval).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		<-done
		return fmt.Errorf("server error: %w", err)
	}

	// graceful shutdown
	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	<-done
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.service.Run(ctx)
	if err != nil {
		return err
	}
	if res.Empty {
		log.Info().Msg("no log records to analyze")
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runHeuristics(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	path := heuristicFile
	if path == "" {
		path = cfg.Source.File.Path
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	reports := heuristic.AnalyzeText(string(data))
	log.Info().Int("flagged", len(reports)).Str("file", path).Msg("heuristic scan done")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
