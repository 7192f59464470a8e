package evolution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tradingdna/evolve/internal/backtester"
	"github.com/tradingdna/evolve/internal/chromosome"
	"github.com/tradingdna/evolve/internal/population"
	"github.com/tradingdna/evolve/internal/signals"
	"github.com/tradingdna/evolve/internal/workers"
	"github.com/tradingdna/evolve/pkg/types"
)

// HistoryRow is one append-only evolution_history entry, per spec 3's
// EvolutionHistory type.
type HistoryRow struct {
	PopulationID   string
	Generation     int
	BestFitness    float64
	AverageFitness float64
	WorstFitness   float64
	Diversity      float64
	MutationRate   float64
	At             time.Time
}

// Driver sequences one generation through Selection -> Reproduction ->
// Mutation -> Fitness -> Survivor Selection -> Persist, per spec 4.9.
// Grounded on the start/stop/pause shape of the teacher's
// autonomous.TradingAgent, generalized from a live trading loop to a
// generational evolution loop.
type Driver struct {
	logger           *zap.Logger
	aggregator       *signals.Aggregator
	simulator        *backtester.Simulator
	fitnessWeights   backtester.FitnessWeights
	validation       backtester.ValidationConfig
	pool             *workers.Pool
	persist          func(context.Context, *population.Population, []HistoryRow) error

	mu       sync.Mutex
	stopping map[string]chan struct{}
}

// NewDriver constructs a Driver. persist is called once per generation
// with the updated population and the new history row, inside what the
// caller is expected to run as a single atomic transaction.
func NewDriver(
	logger *zap.Logger,
	simulator *backtester.Simulator,
	weights backtester.FitnessWeights,
	validation backtester.ValidationConfig,
	pool *workers.Pool,
	persist func(context.Context, *population.Population, []HistoryRow) error,
) *Driver {
	return &Driver{
		logger:         logger,
		aggregator:     signals.New(),
		simulator:      simulator,
		fitnessWeights: weights,
		validation:     validation,
		pool:           pool,
		persist:        persist,
		stopping:       make(map[string]chan struct{}),
	}
}

// RunGeneration executes exactly one generation for pop against window,
// per spec 4.9's eight-step procedure.
func (d *Driver) RunGeneration(ctx context.Context, pop *population.Population, window []types.OHLCV) (HistoryRow, error) {
	active := pop.ActiveChromosomes()
	if len(active) == 0 {
		return HistoryRow{}, fmt.Errorf("population %s has no active chromosomes", pop.ID)
	}

	rngStream := pop.RNG()
	r := rngStream.Rand()

	// 1. Selection.
	numPairs := pop.MaxSize / 2
	pairs := SelectParents(r, active, numPairs)

	// 2. Reproduction.
	now := time.Now()
	offspring := make([]*chromosome.Chromosome, 0, len(pairs)*2)
	for _, pair := range pairs {
		c1, c2 := Reproduce(r, pair, pop.ID, pop.CurrentGeneration+1, now)
		offspring = append(offspring, c1, c2)
	}

	// 3. Mutation.
	MutatePopulation(r, offspring, pop.MutationRate, now)

	// 4. Fitness, via the bounded worker pool (spec 5: per-chromosome
	// fitness evaluation is embarrassingly parallel). offspring are fresh,
	// unattached chromosomes at this point, so mutating them ahead of the
	// commit below is safe: nothing observes them until the generation
	// commits in step 7.
	if err := d.evaluateFitness(ctx, pop, offspring, window); err != nil {
		return HistoryRow{}, err
	}

	// 5. Survivor selection. SelectSurvivors may return pointers into pop's
	// existing chromosome slice, so status changes land on clones rather
	// than in place -- nothing observable about pop changes until step 7
	// commits, so a failed persist leaves pop exactly as it was (spec 5: a
	// failed generation does not advance current_generation).
	survivors, archived := SelectSurvivors(active, offspring, pop.MaxSize, func(c *chromosome.Chromosome) float64 {
		return now.Sub(c.CreatedAt).Seconds()
	})

	existing := make(map[string]bool, len(pop.Chromosomes))
	for _, c := range pop.Chromosomes {
		existing[c.ID] = true
	}
	withStatus := func(cs []*chromosome.Chromosome, status chromosome.Status) []*chromosome.Chromosome {
		out := make([]*chromosome.Chromosome, len(cs))
		for i, c := range cs {
			if existing[c.ID] {
				c = c.Clone()
			}
			c.Status = status
			out[i] = c
		}
		return out
	}
	nextArchived := withStatus(archived, chromosome.StatusArchived)
	nextSurvivors := withStatus(survivors, chromosome.StatusActive)
	nextChromosomes := mergeSurvivors(pop.Chromosomes, nextSurvivors, nextArchived)

	// 6. Population bookkeeping, computed into locals so a failed persist
	// below never touches pop.
	nextGeneration := pop.CurrentGeneration + 1
	best, avg, worst := fitnessStats(nextSurvivors)
	nextDiversity := DiversityScore(nextSurvivors)

	next := *pop
	next.Chromosomes = nextChromosomes
	next.CurrentGeneration = nextGeneration
	next.PerformanceScore = best
	next.DiversityScore = nextDiversity

	row := HistoryRow{
		PopulationID:   pop.ID,
		Generation:     nextGeneration,
		BestFitness:    best,
		AverageFitness: avg,
		WorstFitness:   worst,
		Diversity:      nextDiversity,
		MutationRate:   pop.MutationRate,
		At:             now,
	}

	// 7. Persist (atomic, single transaction). Only once this succeeds do
	// we advance the caller's population in place.
	if d.persist != nil {
		if err := d.persist(ctx, &next, []HistoryRow{row}); err != nil {
			return HistoryRow{}, fmt.Errorf("persisting generation %d: %w", nextGeneration, err)
		}
	}

	*pop = next
	return row, nil
}

func (d *Driver) evaluateFitness(ctx context.Context, pop *population.Population, offspring []*chromosome.Chromosome, window []types.OHLCV) error {
	// Fitness evaluation here is a pure function of the chromosome and the
	// shared OHLCV window (the simulator and aggregator are deterministic),
	// so per-chromosome tasks need no derived RNG of their own. The upstream
	// operators (selection, reproduction, mutation) draw from the shared
	// population stream; rng.Stream.ForChromosome is not used by them.
	tasks := make([]workers.Task, len(offspring))
	for i, c := range offspring {
		c := c
		tasks[i] = func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			signalStream := d.aggregator.Aggregate(c, window)
			result := d.simulator.Run(window, signalStream)
			fitness := backtester.Fitness(result.Metrics, d.fitnessWeights, d.validation)
			f, _ := fitness.Float64()
			c.Metrics = result.Metrics
			c.RecordFitness(pop.CurrentGeneration+1, f, time.Now())
			return nil
		}
	}
	return d.pool.RunAll(ctx, tasks)
}

func mergeSurvivors(all, survivors, archived []*chromosome.Chromosome) []*chromosome.Chromosome {
	byID := make(map[string]*chromosome.Chromosome, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	for _, c := range survivors {
		byID[c.ID] = c
	}
	for _, c := range archived {
		byID[c.ID] = c
	}
	out := make([]*chromosome.Chromosome, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	return out
}

func fitnessStats(chromosomes []*chromosome.Chromosome) (best, avg, worst float64) {
	if len(chromosomes) == 0 {
		return 0, 0, 0
	}
	best = chromosomes[0].Fitness
	worst = chromosomes[0].Fitness
	var sum float64
	for _, c := range chromosomes {
		if c.Fitness > best {
			best = c.Fitness
		}
		if c.Fitness < worst {
			worst = c.Fitness
		}
		sum += c.Fitness
	}
	return best, sum / float64(len(chromosomes)), worst
}

// Start toggles pop into `evolving` and loops RunGeneration with the
// population's configured inter-generation delay until Stop is called or
// ctx is cancelled. Cancellation finishes the in-flight generation before
// reverting status to `active`, per spec 5's cancellation policy.
func (d *Driver) Start(ctx context.Context, pop *population.Population, windowFn func() []types.OHLCV) error {
	d.mu.Lock()
	if _, running := d.stopping[pop.ID]; running {
		d.mu.Unlock()
		return fmt.Errorf("population %s is already evolving", pop.ID)
	}
	stop := make(chan struct{})
	d.stopping[pop.ID] = stop
	pop.Status = population.StatusEvolving
	d.mu.Unlock()

	go d.loop(ctx, pop, windowFn, stop)
	return nil
}

// Stop signals the evolving loop for pop to finish its in-flight
// generation, then revert to `active`.
func (d *Driver) Stop(populationID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if stop, ok := d.stopping[populationID]; ok {
		close(stop)
		delete(d.stopping, populationID)
	}
}

func (d *Driver) loop(ctx context.Context, pop *population.Population, windowFn func() []types.OHLCV, stop chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			pop.Status = population.StatusActive
			return
		case <-stop:
			pop.Status = population.StatusActive
			return
		default:
		}

		if _, err := d.RunGeneration(context.WithoutCancel(ctx), pop, windowFn()); err != nil {
			d.logger.Error("generation failed", zap.String("population_id", pop.ID), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			pop.Status = population.StatusActive
			return
		case <-stop:
			pop.Status = population.StatusActive
			return
		case <-time.After(pop.GenerationInterval):
		}
	}
}
