package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/automaton-logwatch/internal/application"
	appanalysis "github.com/bryanwahyu/automaton-logwatch/internal/application/analysis"
	"github.com/bryanwahyu/automaton-logwatch/internal/config"
	"github.com/bryanwahyu/automaton-logwatch/internal/domain/ai"
	domain "github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
	"github.com/bryanwahyu/automaton-logwatch/internal/domain/history"
	"github.com/bryanwahyu/automaton-logwatch/internal/infra/ai/gemini"
	"github.com/bryanwahyu/automaton-logwatch/internal/infra/ai/openai"
	"github.com/bryanwahyu/automaton-logwatch/internal/infra/ai/prompt"
	"github.com/bryanwahyu/automaton-logwatch/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/automaton-logwatch/internal/infra/db/mysql"
	"github.com/bryanwahyu/automaton-logwatch/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-logwatch/internal/infra/db/sqlite"
	"github.com/bryanwahyu/automaton-logwatch/internal/infra/logsource"
	minioStore "github.com/bryanwahyu/automaton-logwatch/internal/infra/storage"
	"github.com/bryanwahyu/automaton-logwatch/internal/middleware"
)

func setupLogging(level, format string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

// app holds everything one process needs. close releases it in reverse order.
type app struct {
	cfg     *config.Config
	store   *appanalysis.Store
	service *appanalysis.Service
	metrics *middleware.Metrics
	health  map[string]middleware.HealthChecker
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		metrics: middleware.NewMetrics(),
		health:  map[string]middleware.HealthChecker{},
	}

	repo, err := a.buildHistory(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = appanalysis.NewStore(repo)

	source, err := buildSource(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	llm, err := buildLLM(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	a.service = &appanalysis.Service{
		Source:      source,
		Prompts:     prompt.Builder{},
		LLM:         llm,
		Extractor:   prompt.Extractor{Strategy: prompt.Strategy(cfg.Analysis.Extraction)},
		Store:       a.store,
		Clock:       application.SystemClock{},
		Observer:    a.metrics,
		Mode:        domain.Mode(cfg.Analysis.Mode),
		Concurrency: cfg.Analysis.Concurrency,
		CallTimeout: cfg.Analysis.CallTimeout,
	}

	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("minio init: %w", err)
		}
		a.service.Archive = store
		a.health["archive"] = middleware.PingChecker{Target: store}
	}
	return a, nil
}

// buildHistory returns nil for the "none" driver.
func (a *app) buildHistory(ctx context.Context) (history.Repository, error) {
	cfg := a.cfg
	var (
		db   *sql.DB
		repo history.Repository
		err  error
	)
	switch cfg.History.Driver {
	case "none":
		return nil, nil
	case "memory":
		return memory.NewHistoryRepository(cfg.History.MaxEntries), nil
	case "sqlite":
		db, err = sqlite.Open(ctx, cfg.History.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite open: %w", err)
		}
		repo = sqlite.NewHistoryRepository(db)
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		r := mysqlp.NewHistoryRepository(db)
		if err := r.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("mysql migrate: %w", err)
		}
		repo = r
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.History.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		r := postgres.NewHistoryRepository(db)
		if err := r.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		repo = r
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.History.Driver)
	}

	a.closers = append(a.closers, db.Close)
	if p, ok := repo.(middleware.Pinger); ok {
		a.health["history"] = middleware.PingChecker{Target: p}
	}
	return repo, nil
}

func buildSource(cfg *config.Config) (domain.LogSource, error) {
	switch cfg.Source.Type {
	case "file":
		return logsource.NewFile(cfg.Source.File.Path, cfg.Source.File.SplitLines), nil
	case "prometheus":
		p := cfg.Source.Prometheus
		return logsource.NewPrometheus(p.Address, p.Selector, p.Lookback, logsource.LabelNames{
			Method:   p.Labels.Method,
			Endpoint: p.Labels.Endpoint,
			Status:   p.Labels.Status,
			Client:   p.Labels.Client,
		})
	case "elasticsearch":
		e := cfg.Source.Elasticsearch
		return logsource.NewElasticsearch(logsource.ElasticsearchConfig{
			Addresses:      e.Addresses,
			Username:       e.Username,
			Password:       e.Password,
			APIKey:         e.APIKey,
			Index:          e.Index,
			TimestampField: e.TimestampField,
			MessageField:   e.MessageField,
			Lookback:       e.Lookback,
			Size:           e.Size,
		})
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

func buildLLM(ctx context.Context, cfg *config.Config) (ai.Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openai.NewClient(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model, cfg.LLM.OpenAI.BaseURL), nil
	case "gemini":
		c, err := gemini.NewClient(ctx, cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model, cfg.LLM.Gemini.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("gemini init: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
