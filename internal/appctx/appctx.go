// Package appctx provides a central dependency bag (store, config, clock,
// logger) built once by the CLI entrypoint, replacing package-level
// singletons. The Evolution Driver does not take a Context: it receives its
// collaborators as constructor arguments, and the RNG lives on each
// Population rather than here. Grounded
// on the explicit-injection shape of the teacher's
// orchestrator.TradingOrchestrator, which wires every component
// (event bus, regime detector, position sizer, worker pool, ...) as a
// constructor argument rather than a global.
package appctx

import (
	"time"

	"go.uber.org/zap"

	"github.com/tradingdna/evolve/internal/config"
	"github.com/tradingdna/evolve/internal/rng"
	"github.com/tradingdna/evolve/internal/storage"
)

// Context bundles the process-wide dependencies: the store, the loaded
// config, a clock and a logger. It holds no RNG stream (NewStream derives
// one on demand) and is not passed into the Driver's per-generation phases.
type Context struct {
	DB     *storage.Store
	Config *config.Config
	Clock  func() time.Time
	Logger *zap.Logger
}

// New builds a Context with Clock set to time.Now. It takes no RNG seed:
// each Population owns its own rng.Stream (see
// internal/population.Population.RNG), since RNG state is per-population,
// not process-global.
func New(db *storage.Store, cfg *config.Config, logger *zap.Logger) *Context {
	return &Context{
		DB:     db,
		Config: cfg,
		Clock:  time.Now,
		Logger: logger,
	}
}

// NewStream derives a fresh population RNG stream from seed, using the
// same policy internal/rng documents: (seed) alone determines the whole
// stream, independent of wall-clock time.
func (c *Context) NewStream(seed int64) *rng.Stream {
	return rng.NewStream(seed)
}
