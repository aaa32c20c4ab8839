// Package bootstrap wires configuration into a running service graph. Both binaries share it.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"doctor_reputation/internal/adapters/fetch"
	server "doctor_reputation/internal/adapters/http_server"
	"doctor_reputation/internal/adapters/observability"
	redisad "doctor_reputation/internal/adapters/redis"
	"doctor_reputation/internal/adapters/summarizer"
	"doctor_reputation/internal/app"
	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/pipeline"
	"doctor_reputation/internal/report"
	"doctor_reputation/internal/shared"
	"doctor_reputation/internal/sources"
	mysqlrepo "doctor_reputation/internal/storage/mysql"
)

type App struct {
	Service *app.Service
	Metrics *prometheus.Registry

	closers []func() error
}

// unavailable stands in when no summarizer credentials are configured.
type unavailable struct{}

func (unavailable) Complete(context.Context, string, int, float32) (string, error) {
	return "", errors.New("no summarizer API key configured")
}

// Build connects the stores and assembles the service. A configured database that cannot be reached
// is fatal, an unreachable cache only logs.
func Build(ctx context.Context, cfg shared.Config) (*App, error) {
	a := &App{Metrics: observability.InitRegistry()}

	reg, err := sources.NewRegistry(fetch.New(cfg.FetchRPS, cfg.FetchTimeout), sources.Config{
		RateMDs: sources.RateMDsConfig{
			BaseURL:     cfg.RateMDsBaseURL,
			SearchPages: cfg.RateMDsSearchPages,
			ReviewPages: cfg.RateMDsReviewPages,
		},
		RealSelf: sources.RealSelfConfig{
			SearchURL:      cfg.RealSelfSearchURL,
			APIURL:         cfg.RealSelfAPIURL,
			SiteURL:        cfg.RealSelfSiteURL,
			ImageBaseURL:   cfg.RealSelfImageURL,
			ReviewPageSize: cfg.RealSelfPageSize,
			ReviewPages:    cfg.RealSelfReviewPages,
			Pacing:         cfg.RealSelfPacing,
		},
		IWGC: sources.IWGCConfig{
			BaseURL:       cfg.IWGCBaseURL,
			ReviewPages:   cfg.IWGCReviewPages,
			MaxExpansions: cfg.IWGCMaxExpansions,
		},
		Disabled: cfg.SourcesDisabled,
	})
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rc.Ping(pctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed; serving uncached until it recovers")
		}
		cancel()
		cache = rc
		a.closers = append(a.closers, rc.Close)
	}

	var (
		misses  domain.MissLog
		archive domain.ReportArchive
	)
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		repo := mysqlrepo.New(db)
		if err := repo.Ping(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		if cfg.MySQLMigrate {
			if err := mysqlrepo.Migrate(db); err != nil {
				a.Close()
				return nil, err
			}
		}
		misses, archive = repo, repo
	}

	var sum domain.Summarizer = unavailable{}
	if cfg.SummarizerAPIKey != "" {
		sum, err = summarizer.New(ctx, summarizer.Config{
			Provider: cfg.SummarizerProvider,
			APIKey:   cfg.SummarizerAPIKey,
			Model:    cfg.SummarizerModel,
			BaseURL:  cfg.SummarizerBaseURL,
			Timeout:  cfg.SummarizerTimeout,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("summarizer: %w", err)
		}
	}

	synth := report.NewSynthesizer(sum, report.Config{
		Provider:        cfg.SummarizerProvider,
		MaxInputTokens:  cfg.PromptTokenBudget,
		MaxOutputTokens: cfg.SummarizerMaxTokens,
		Concurrency:     cfg.ReportConcurrency,
	})

	a.Service = app.NewService(
		pipeline.NewAggregator(reg, misses),
		synth,
		app.NewGateway(cache, cfg.CacheTTL()),
		archive,
	)
	return a, nil
}

// Router mounts the API and the metrics endpoint behind the shared middleware stack.
func (a *App) Router(timeout time.Duration) http.Handler {
	srv := server.New(timeout)
	srv.Mount("/metrics", observability.MetricsHandler(a.Metrics))
	srv.MountHandlers(&server.Handlers{Svc: a.Service})
	return srv.Mux()
}

// Close releases the stores in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
