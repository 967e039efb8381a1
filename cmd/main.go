package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ratingd/internal/adapters/activity"
	"ratingd/internal/adapters/repository"
	app "ratingd/internal/app"
	"ratingd/internal/config"
	"ratingd/internal/domain/season"
	"ratingd/pkg/fault"
	"ratingd/pkg/logger"
	"ratingd/pkg/metrics"
)

// Metrics server timeout constants.
const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

const usage = `usage: ratingd <command> [args]

commands:
  settle                   settle last month for the whole roster
  archive <next-season>    archive the season and reset every profile
  recompose <member-id>    recompose one member's total rating
  season [new-season]      print or set the current season
  snapshot <year> <month>  print the month's snapshot report
  refresh <member-id>      refresh a member's cached solved count
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		os.Stderr.WriteString("ratingd: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		os.Stderr.WriteString(usage)
		return fault.New(fault.Validation, "missing command")
	}

	// Initialize logging
	if err := logger.Init(); err != nil {
		return err
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := repository.NewSQLiteStore(cfg.DBPath, repository.WithLogger(log))
	if err != nil {
		return err
	}

	fetcher := activity.NewHTTPFetcher(cfg.ActivityURL, activity.WithFetcherLogger(log))

	svc := app.New(
		app.WithStore(store),
		app.WithFetcher(fetcher),
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithFetchLimits(cfg.FetchRPS, cfg.FetchBurst),
		app.WithScoringConfig(cfg.Scoring),
		app.WithPracticeConfig(cfg.Practice),
		app.WithLegacyConfig(cfg.Legacy),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(ctx, log, cfg.MetricsAddr)
		defer stopMetrics()
	}

	out, err := dispatch(ctx, svc, args)
	if err != nil {
		return err
	}
	if out != nil {
		return printJSON(out)
	}
	return nil
}

// dispatch maps the command line onto one service operation and returns
// whatever should be printed.
func dispatch(ctx context.Context, svc *app.Service, args []string) (any, error) {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "settle":
		summary, err := svc.BatchSettleLastMonth(ctx)
		if err != nil {
			return nil, err
		}
		return summary, nil

	case "archive":
		if len(rest) != 1 {
			return nil, fault.New(fault.Validation, "archive needs the next season, e.g. 2026-2027")
		}
		next, err := season.Parse(rest[0])
		if err != nil {
			return nil, err
		}
		summary, err := svc.ArchiveAndResetSeason(ctx, next)
		if err != nil {
			return nil, err
		}
		return summary, nil

	case "recompose":
		if len(rest) != 1 {
			return nil, fault.New(fault.Validation, "recompose needs a member id")
		}
		m, err := svc.UpdateTotalRating(ctx, rest[0])
		if err != nil {
			return nil, err
		}
		return m, nil

	case "season":
		switch len(rest) {
		case 0:
			current, err := svc.CurrentSeason(ctx)
			if err != nil {
				return nil, err
			}
			fmt.Println(current)
			return nil, nil
		case 1:
			return nil, svc.SetCurrentSeason(ctx, rest[0])
		default:
			return nil, fault.New(fault.Validation, "season takes at most one argument")
		}

	case "snapshot":
		if len(rest) != 2 {
			return nil, fault.New(fault.Validation, "snapshot needs a year and a month")
		}
		year, err := strconv.Atoi(rest[0])
		if err != nil {
			return nil, fault.New(fault.Validation, "bad year %q", rest[0])
		}
		month, err := strconv.Atoi(rest[1])
		if err != nil {
			return nil, fault.New(fault.Validation, "bad month %q", rest[1])
		}
		rows, err := svc.MonthSnapshot(ctx, season.Period{Year: year, Month: month})
		if err != nil {
			return nil, err
		}
		return rows, nil

	case "refresh":
		if len(rest) != 1 {
			return nil, fault.New(fault.Validation, "refresh needs a member id")
		}
		snap, err := svc.RefreshMemberActivity(ctx, rest[0])
		if err != nil {
			return nil, err
		}
		return snap, nil

	default:
		os.Stderr.WriteString(usage)
		return nil, fault.New(fault.Validation, "unknown command %q", cmd)
	}
}

// serveMetrics exposes the custom registry for scraping while a long
// command runs. The returned function shuts the listener down.
func serveMetrics(ctx context.Context, log logger.Logger, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "serving metrics", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "metrics server failed", logger.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
