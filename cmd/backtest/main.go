package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/uhyunpark/tickreplay/params"
	"github.com/uhyunpark/tickreplay/pkg/api"
	"github.com/uhyunpark/tickreplay/pkg/backtest"
	"github.com/uhyunpark/tickreplay/pkg/marketdata"
	"github.com/uhyunpark/tickreplay/pkg/policy"
	"github.com/uhyunpark/tickreplay/pkg/report"
	"github.com/uhyunpark/tickreplay/pkg/sim"
	"github.com/uhyunpark/tickreplay/pkg/storage"
	"github.com/uhyunpark/tickreplay/pkg/util"
)

func main() {
	envPath := flag.String("env", "", "path to .env file (default: ./.env if present)")
	serve := flag.Bool("serve", false, "keep the API server up after the run until SIGINT/SIGTERM")
	seedList := flag.String("seeds", "", "comma-separated policy seeds; runs one isolated backtest per seed in parallel")
	flag.Parse()

	seeds, err := parseSeeds(*seedList)
	if err != nil {
		log.Fatalf("seeds: %v", err)
	}

	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv(*envPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Log.File != "" {
		logger, err = util.NewLoggerWithFile(cfg.Log.File, cfg.Log.Level)
	} else {
		logger, err = util.NewLogger(cfg.Log.Level)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Market data ----
	cols := marketdata.Columns{
		Timestamp: cfg.Data.TimestampColumn,
		BidPrice:  cfg.Data.BidPriceColumn,
		BidSize:   cfg.Data.BidSizeColumn,
		AskPrice:  cfg.Data.AskPriceColumn,
		AskSize:   cfg.Data.AskSizeColumn,
	}
	records, err := marketdata.LoadCSV(cfg.Data.Path, cols)
	if err != nil {
		sugar.Fatalw("market_data_load_failed", "path", cfg.Data.Path, "err", err)
	}
	src, err := marketdata.NewSource(records, cfg.Data.RecordsPerTick, cfg.Data.Ticks)
	if err != nil {
		sugar.Fatalw("market_data_invalid", "path", cfg.Data.Path, "rows", len(records), "err", err)
	}
	sugar.Infow("market_data_loaded",
		"path", cfg.Data.Path,
		"rows", len(records),
		"records_per_tick", cfg.Data.RecordsPerTick,
		"ticks", src.Len())

	// ---- Engine ----
	rule, err := sim.ParsePriceRule(cfg.Engine.PriceRule)
	if err != nil {
		sugar.Fatalw("config_invalid", "err", err)
	}
	engine, err := sim.New(cfg.SimConfig(), src,
		sim.WithLogger(sugar),
		sim.WithVerbose(cfg.Verbose),
		sim.WithPriceRule(rule))
	if err != nil {
		sugar.Fatalw("engine_init_failed", "err", err)
	}
	if cfg.Verbose {
		sugar.Info("verbose logging enabled")
	}

	// ---- Storage ----
	var store storage.RunStore = storage.NewInMemoryStore()
	if cfg.Store.Path != "" {
		ps, err := storage.NewPebbleStore(cfg.Store.Path)
		if err != nil {
			sugar.Fatalw("store_open_failed", "path", cfg.Store.Path, "err", err)
		}
		defer ps.Close()
		store = ps
	}
	var journal storage.Journal = storage.NewNopJournal()
	if cfg.Store.JournalPath != "" {
		fj, err := storage.NewFileJournal(cfg.Store.JournalPath)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "path", cfg.Store.JournalPath, "err", err)
		}
		defer fj.Close()
		journal = fj
	}

	// ---- API Server (optional) ----
	var publisher backtest.Publisher
	apiDone := make(chan error, 1)
	if *serve {
		apiServer := api.NewServer(store, sugar, cfg.API.AllowedOrigins)
		publisher = apiServer
		go func() {
			apiDone <- apiServer.Start(ctx, cfg.API.Addr)
		}()
	}

	// ---- Run ----
	if len(seeds) > 0 {
		runSweep(ctx, sugar, cfg, records, rule, seeds, backtest.Runner{
			Logger:    sugar,
			Store:     store,
			Journal:   journal,
			Clock:     util.RealClock{},
			Publisher: publisher,
		})
	} else {
		runner := &backtest.Runner{
			Engine:    engine,
			Policy:    randomPolicy(cfg, cfg.Policy.Seed),
			Logger:    sugar,
			Store:     store,
			Journal:   journal,
			Clock:     util.RealClock{},
			Publisher: publisher,
		}
		res, err := runner.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			sugar.Fatalw("run_failed", "run_id", runner.RunID, "err", err)
		}

		if err := report.WriteLedger(os.Stdout, res.Fills); err != nil {
			sugar.Errorw("ledger_write_failed", "err", err)
		}
		logSummary(sugar, res)
	}

	if *serve {
		sugar.Infow("api_serving", "addr", cfg.API.Addr)
		if err := <-apiDone; err != nil {
			sugar.Errorw("api_server_failed", "err", err)
		}
	}
}

// runSweep replays the same market data once per seed, each run on its own
// source and engine. Ledgers go to the store; stdout gets one line per run.
func runSweep(ctx context.Context, sugar *zap.SugaredLogger, cfg params.Config, records []marketdata.Record,
	rule sim.PriceRule, seeds []int64, shared backtest.Runner) {
	specs := make([]backtest.Spec, len(seeds))
	for i, seed := range seeds {
		seed := seed
		specs[i] = backtest.Spec{
			Label:   "seed-" + strconv.FormatInt(seed, 10),
			Config:  cfg.SimConfig(),
			Rule:    rule,
			Verbose: cfg.Verbose,
			Source: func() (sim.Source, error) {
				return marketdata.NewSource(records, cfg.Data.RecordsPerTick, cfg.Data.Ticks)
			},
			Policy: func() policy.Policy { return randomPolicy(cfg, seed) },
		}
	}

	results, err := backtest.RunMany(ctx, specs, shared)
	if err != nil && !errors.Is(err, context.Canceled) {
		sugar.Fatalw("sweep_failed", "runs", len(specs), "err", err)
	}
	for i, res := range results {
		if res == nil {
			continue
		}
		fmt.Fprintf(os.Stdout, "%s %s net=%s position=%d fills=%d %s\n",
			specs[i].Label, res.RunID, res.Summary.Net().String(), res.Position, len(res.Fills), res.Fingerprint)
		logSummary(sugar.With("label", specs[i].Label), res)
	}
}

func randomPolicy(cfg params.Config, seed int64) *policy.RandomPolicy {
	return policy.NewRandomPolicy(policy.RandomConfig{
		BidPercent:  cfg.Policy.BidPercent,
		Size:        cfg.Policy.Size(),
		Seed:        seed,
		CancelAfter: cfg.Policy.CancelAfter,
	})
}

func logSummary(sugar *zap.SugaredLogger, res *backtest.Result) {
	sugar.Infow("run_summary",
		"run_id", res.RunID,
		"status", res.Status,
		"bid_count", res.Summary.Bid.Count,
		"bid_price_sum", res.Summary.Bid.PriceSum.String(),
		"ask_count", res.Summary.Ask.Count,
		"ask_price_sum", res.Summary.Ask.PriceSum.String(),
		"net_volume", res.Summary.Net().String(),
		"position", res.Position,
		"fingerprint", res.Fingerprint)
}

// parseSeeds reads "1,2,3". An empty list means a single run with
// POLICY_SEED.
func parseSeeds(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var seeds []int64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", part, err)
		}
		seeds = append(seeds, v)
	}
	return seeds, nil
}
