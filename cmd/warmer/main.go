package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"doctor_reputation/internal/adapters/observability"
	"doctor_reputation/internal/bootstrap"
	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/shared"
)

var (
	modeFlag    string
	sourceFlag  string
	fileFlag    string
	workersFlag int
	refreshFlag bool
	rootCmd     = &cobra.Command{
		Use:   "warmer [query...]",
		Short: "Pre-populate the result cache for a list of queries",
		Long: "Runs each query through the same pipeline as the API so the next identical request is a cache hit.\n" +
			"Queries come from the arguments and from --file, one per line. Blank lines and lines starting with # are skipped.",
		RunE: run,
	}
)

func main() {
	rootCmd.Flags().StringVarP(&modeFlag, "mode", "m", string(domain.ModeSearch), "search | speciality | report")
	rootCmd.Flags().StringVarP(&sourceFlag, "source", "s", "", "source id (required for speciality and report)")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "file with one query per line")
	rootCmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "queries in flight (default WARM_WORKERS)")
	rootCmd.Flags().BoolVar(&refreshFlag, "refresh", false, "evict existing entries before recomputing")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := shared.Load()
	if err != nil {
		return err
	}
	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.SetLevel(cfg.LogLevel)

	queries := append([]string(nil), args...)
	if fileFlag != "" {
		fromFile, err := readQueries(fileFlag)
		if err != nil {
			return err
		}
		queries = append(queries, fromFile...)
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries given; pass them as arguments or with --file")
	}

	reqs := make([]domain.Request, 0, len(queries))
	for _, q := range queries {
		req := domain.Request{Mode: domain.Mode(modeFlag), Source: sourceFlag, Query: q}
		if err := req.Validate(); err != nil {
			return fmt.Errorf("query %q: %w", q, err)
		}
		reqs = append(reqs, req)
	}

	workers := workersFlag
	if workers <= 0 {
		workers = cfg.WarmWorkers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info().Str("mode", modeFlag).Int("queries", len(reqs)).Int("workers", workers).Bool("refresh", refreshFlag).
		Msg("warmer starting")
	res := a.Service.Warm(ctx, reqs, workers, refreshFlag)
	log.Info().Int64("ok", res.OK).Int64("failed", res.Failed).Msg("warming completed")

	if res.OK == 0 && res.Failed > 0 {
		return fmt.Errorf("all %d queries failed", res.Failed)
	}
	return nil
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
