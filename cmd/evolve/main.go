// Package main provides the entry point for the evolutionary strategy
// optimizer: load configuration and a market data window, evolve one
// population for a fixed number of generations (interactive mode) or
// hand it to the Evolution Driver's autonomous loop, and serve a
// read-only report/metrics surface. Adapted from the teacher's
// cmd/server/main.go flag-based CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tradingdna/evolve/internal/api"
	"github.com/tradingdna/evolve/internal/appctx"
	"github.com/tradingdna/evolve/internal/backtester"
	"github.com/tradingdna/evolve/internal/config"
	"github.com/tradingdna/evolve/internal/data"
	"github.com/tradingdna/evolve/internal/evolution"
	"github.com/tradingdna/evolve/internal/metrics"
	"github.com/tradingdna/evolve/internal/population"
	"github.com/tradingdna/evolve/internal/storage"
	"github.com/tradingdna/evolve/internal/workers"
	"github.com/tradingdna/evolve/pkg/types"
)

func main() {
	configPath := flag.String("config", "./evolve.yaml", "Path to YAML configuration")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	symbol := flag.String("symbol", "BTC-USD", "Target symbol")
	timeframe := flag.String("timeframe", "1h", "Target timeframe")
	popSize := flag.Int("population-size", 50, "Initial population size")
	generations := flag.Int("generations", 10, "Number of generations to run (interactive mode)")
	autonomous := flag.Bool("autonomous", false, "Run the population autonomously instead of a fixed number of generations")
	seed := flag.Int64("seed", 42, "RNG seed")
	httpAddr := flag.String("http", ":8090", "Report/metrics HTTP address")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer db.Close()

	app := appctx.New(db, cfg, logger)

	pop, err := population.New(fmt.Sprintf("pop-%s-%s", *symbol, *timeframe), "default", *symbol, *timeframe, *popSize, *seed)
	if err != nil {
		logger.Fatal("failed to construct population", zap.Error(err))
	}
	if err := seedPopulation(pop); err != nil {
		logger.Fatal("failed to seed initial cohort", zap.Error(err))
	}

	registry := metrics.NewRegistry(prometheus.DefaultRegisterer)

	reportStore := newReportStore()
	reportStore.setPopulation(pop)

	sim := backtester.New(cfg.Portfolio.RiskManagement.ToBacktesterConfig())
	pool := workers.NewPool(logger, workers.DefaultPoolConfig("fitness"))
	persist := func(ctx context.Context, pop *population.Population, rows []evolution.HistoryRow) error {
		if err := app.DB.SavePopulation(ctx, pop); err != nil {
			return err
		}
		for _, c := range pop.Chromosomes {
			if err := app.DB.SaveChromosome(ctx, c); err != nil {
				return err
			}
		}
		for _, row := range rows {
			if err := app.DB.SaveHistoryRow(ctx, storage.HistoryRow{
				PopulationID: row.PopulationID, Generation: row.Generation,
				BestFitness: row.BestFitness, AverageFitness: row.AverageFitness,
				WorstFitness: row.WorstFitness, Diversity: row.Diversity,
				MutationRate: row.MutationRate, At: row.At,
			}); err != nil {
				return err
			}
			registry.RecordGeneration(row.PopulationID, row.BestFitness, row.AverageFitness,
				row.WorstFitness, row.Diversity, row.MutationRate, len(pop.ActiveChromosomes()))
		}
		reportStore.setPopulation(pop)
		return nil
	}

	driver := evolution.NewDriver(logger, sim, cfg.Population.Evolution.ToFitnessWeights(),
		cfg.Population.Evolution.ToValidationConfig(), pool, persist)

	report := evolution.NewReport(pop.ID, evolution.HistoryRow{Generation: 0, BestFitness: pop.PerformanceScore})
	reportStore.setReport(pop.ID, report)

	server := api.NewServer(logger, *httpAddr, reportStore)
	go func() {
		if err := server.Start(); err != nil {
			logger.Warn("api server stopped", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	window := sampleWindow(*seed, 120)
	validator := data.NewDataQualityValidator(logger)
	windowPtrs := make([]*types.OHLCV, len(window))
	for i := range window {
		windowPtrs[i] = &window[i]
	}
	qualityReport := validator.Validate(windowPtrs, *symbol)
	report.SetDataQuality(qualityReport)
	if !qualityReport.IsUsable {
		logger.Fatal("market data window failed quality validation",
			zap.String("symbol", *symbol), zap.Int("quality_score", qualityReport.QualityScore))
	}

	if *autonomous {
		logger.Info("running autonomous evolution", zap.String("population_id", pop.ID))
		if err := driver.Start(ctx, pop, func() []types.OHLCV { return window }); err != nil {
			logger.Fatal("failed to start autonomous evolution", zap.Error(err))
		}
		<-sig
		driver.Stop(pop.ID)
	} else {
		for i := 0; i < *generations; i++ {
			row, err := driver.RunGeneration(ctx, pop, window)
			if err != nil {
				logger.Error("generation failed", zap.Error(err))
				break
			}
			report.Record(row)
			reportStore.setReport(pop.ID, report)
			logger.Info("generation complete",
				zap.Int("generation", row.Generation),
				zap.Float64("best_fitness", row.BestFitness),
				zap.Float64("diversity", row.Diversity),
			)
		}
		fmt.Println(report.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Stop(shutdownCtx)
}

// seedPopulation fills pop with a random initial cohort. Real deployments
// would load a saved cohort via storage.LoadChromosomes instead.
func seedPopulation(pop *population.Population) error {
	return pop.SeedRandomCohort(pop.MaxSize)
}

// sampleWindow generates n synthetic OHLCV bars seeded by seed, for
// exercising the driver against a fresh database with no market-data
// downloader wired up yet (the downloader is an external-collaborator I/O
// boundary per spec 6, not part of this module). Real deployments load a
// window via storage.LoadMarketData instead.
func sampleWindow(seed int64, n int) []types.OHLCV {
	r := rand.New(rand.NewSource(seed))
	bars := make([]types.OHLCV, n)
	price := 100.0
	start := time.Now().Add(-time.Duration(n) * time.Hour)
	for i := 0; i < n; i++ {
		change := (r.Float64() - 0.5) * 0.02 * price
		open := decimal.NewFromFloat(price)
		price += change
		if price <= 0 {
			price = 1
		}
		closeP := decimal.NewFromFloat(price)
		high := decimal.Max(open, closeP).Mul(decimal.NewFromFloat(1 + r.Float64()*0.005))
		low := decimal.Min(open, closeP).Mul(decimal.NewFromFloat(1 - r.Float64()*0.005))
		bars[i] = types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    decimal.NewFromFloat(1000 + r.Float64()*1000),
		}
	}
	return bars
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// reportStore is the in-process api.ReportSource backing the HTTP surface.
type reportStore struct {
	mu          sync.RWMutex
	populations map[string]*population.Population
	reports     map[string]*evolution.Report
}

func newReportStore() *reportStore {
	return &reportStore{
		populations: make(map[string]*population.Population),
		reports:     make(map[string]*evolution.Report),
	}
}

func (r *reportStore) setPopulation(p *population.Population) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.populations[p.ID] = p
}

func (r *reportStore) setReport(id string, report *evolution.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[id] = report
}

func (r *reportStore) Population(id string) (*population.Population, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.populations[id]
	return p, ok
}

func (r *reportStore) Report(id string) (*evolution.Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[id]
	return rep, ok
}
