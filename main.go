package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wildfunctions/evogp/pkg/archive"
	"github.com/wildfunctions/evogp/pkg/engine"
	"github.com/wildfunctions/evogp/pkg/pool"
	"github.com/wildfunctions/evogp/pkg/strategy"
	"github.com/wildfunctions/evogp/pkg/symreg"
)

func main() {
	cfg := engine.DefaultConfig()
	var configPath, metricsAddr string

	flag.StringVar(&configPath, "config", "", "YAML config file; flags given on the command line override it")
	flag.StringVar(&cfg.Target, "target", cfg.Target, "target function ("+strings.Join(symreg.Names(), ", ")+")")
	flag.StringVar(&cfg.Pool, "pool", cfg.Pool, "primitive pool ("+strings.Join(pool.Names(), ", ")+")")
	flag.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "evolution strategy ("+strings.Join(strategy.Names(), ", ")+")")
	flag.IntVar(&cfg.Population, "population", cfg.Population, "population size (mu)")
	flag.IntVar(&cfg.Offspring, "offspring", cfg.Offspring, "offspring per generation (lambda, 0 = twice the population)")
	flag.IntVar(&cfg.Generations, "generations", cfg.Generations, "generation budget across restarts")
	flag.IntVar(&cfg.Samples, "samples", cfg.Samples, "number of sample points")
	flag.Float64Var(&cfg.CxPb, "cxpb", cfg.CxPb, "crossover probability")
	flag.Float64Var(&cfg.MutPb, "mutpb", cfg.MutPb, "mutation probability")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 = random)")
	flag.StringVar(&cfg.Format, "format", cfg.Format, "output format (text, json)")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "verbose output per generation")
	flag.IntVar(&cfg.MaxDepth, "maxdepth", cfg.MaxDepth, "max depth of initial trees (exclusive)")
	flag.IntVar(&cfg.Limits.MaxHeight, "maxheight", cfg.Limits.MaxHeight, "max tree height after variation")
	flag.IntVar(&cfg.Limits.MaxSize, "maxsize", cfg.Limits.MaxSize, "max tree size after variation")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of parallel workers")
	flag.IntVar(&cfg.StagnationLimit, "stagnation", cfg.StagnationLimit, "generations without improvement before restart (0 = never)")
	flag.StringVar(&cfg.Archive, "archive", cfg.Archive, "badger directory to archive each generation's best")
	flag.StringVar(&cfg.Logbook, "logbook", cfg.Logbook, "xlsx file for the per-generation logbook")
	flag.StringVar(&metricsAddr, "metrics", "", "address to serve prometheus metrics on, e.g. :9090")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if configPath != "" {
		if err := overlayConfig(&cfg, configPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := run(cfg, metricsAddr, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// overlayConfig loads path over the defaults, then re-applies the flags set
// on the command line.
func overlayConfig(cfg *engine.Config, path string) error {
	explicit := map[string]string{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

	loaded, err := engine.LoadConfig(path, engine.DefaultConfig())
	if err != nil {
		return err
	}
	*cfg = loaded
	for name, value := range explicit {
		if err := flag.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

func run(cfg engine.Config, metricsAddr string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []engine.Option{engine.WithLogger(logger)}
	if cfg.Verbose {
		opts = append(opts, engine.WithProgress(os.Stderr))
	}

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, engine.WithRegisterer(reg))
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", metricsAddr, "err", err)
			}
		}()
		defer srv.Close()
	}

	if cfg.Archive != "" {
		if err := os.MkdirAll(cfg.Archive, 0o755); err != nil {
			return fmt.Errorf("creating archive dir: %w", err)
		}
		store, err := archive.Open(archive.Options{Dir: cfg.Archive, Logger: logger})
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, engine.WithArchive(store))
	}

	e, err := engine.New(cfg, opts...)
	if err != nil {
		return err
	}

	report, runErr := e.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		logger.Warn("interrupted, reporting best so far")
	}

	switch cfg.Format {
	case "json":
		if err := engine.WriteJSONFinal(os.Stdout, report); err != nil {
			return fmt.Errorf("writing JSON: %w", err)
		}
	default:
		engine.WriteTextFinal(os.Stdout, report)
	}
	return nil
}
