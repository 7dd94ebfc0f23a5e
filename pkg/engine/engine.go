// Package engine wires a target, a primitive pool and a strategy into a
// complete symbolic regression run with restarts, logging, metrics and an
// optional archive.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wildfunctions/evogp/pkg/archive"
	"github.com/wildfunctions/evogp/pkg/ea"
	"github.com/wildfunctions/evogp/pkg/gp"
	"github.com/wildfunctions/evogp/pkg/pool"
	"github.com/wildfunctions/evogp/pkg/strategy"
	"github.com/wildfunctions/evogp/pkg/symreg"
)

var (
	errStagnated = errors.New("stagnated")
	errSolved    = errors.New("solved")
)

// Engine runs the evolutionary search.
type Engine struct {
	cfg      Config
	runID    uuid.UUID
	pset     *gp.PSet
	target   *symreg.Target
	data     *symreg.Dataset
	strategy strategy.Strategy
	toolbox  ea.FuncToolbox[*gp.Tree, symreg.Fitness]
	rng      *rand.Rand

	log      *slog.Logger
	progress io.Writer
	reg      prometheus.Registerer
	metrics  *Metrics
	store    *archive.Store
	seq      int // generations seen across attempts
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithProgress receives a line per generation when the config is verbose.
func WithProgress(w io.Writer) Option { return func(e *Engine) { e.progress = w } }

// WithRegisterer registers the engine's metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option { return func(e *Engine) { e.reg = reg } }

// WithArchive stores each generation's best individual in s.
func WithArchive(s *archive.Store) Option { return func(e *Engine) { e.store = s } }

// New creates a new engine from the given config.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := pool.Get(cfg.Pool)
	if err != nil {
		return nil, err
	}
	s, err := strategy.Get(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	target := symreg.Get(cfg.Target)
	if target == nil {
		return nil, fmt.Errorf("unknown target: %s (available: %v)", cfg.Target, symreg.Names())
	}
	pset, err := p.Build(target.Arity)
	if err != nil {
		return nil, err
	}

	if cfg.Seed == 0 {
		cfg.Seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	data, err := symreg.Sample(rng, target, cfg.Samples)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		runID:    uuid.New(),
		pset:     pset,
		target:   target,
		data:     data,
		strategy: s,
		rng:      rng,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		progress: io.Discard,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics, err = NewMetrics(e.reg); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	ops := &strategy.Operators{PSet: pset, Limits: cfg.Limits}
	e.toolbox = ops.Bind(ea.NewToolbox(e.evaluate, symreg.Better)).
		WithSelect(func(rng *rand.Rand, pop []strategy.Individual, k int) []strategy.Individual {
			return ea.SelTournament(rng, pop, k, cfg.Tournament, symreg.Better)
		}).
		WithMapper(ea.ParallelMapper(workers))
	return e, nil
}

// RunID identifies this run in logs, reports and the archive.
func (e *Engine) RunID() uuid.UUID { return e.runID }

// PSet returns the primitive set trees are built from.
func (e *Engine) PSet() *gp.PSet { return e.pset }

func (e *Engine) evaluate(ctx context.Context, t *gp.Tree) (symreg.Fitness, error) {
	start := time.Now()
	f := symreg.Evaluate(ctx, t, e.data, e.cfg.Weights)
	e.metrics.EvalSeconds.Observe(time.Since(start).Seconds())
	e.metrics.Evaluations.Inc()
	if f.IsWorst() {
		e.metrics.Failures.Inc()
	}
	return f, nil
}

// attempt tracks one restart.
type attempt struct {
	num       int
	gens      int
	bestExpr  string
	bestFit   symreg.Fitness
	bestAt    int
	sinceImpr int
	solved    bool
	reports   []GenerationReport
}

// Run executes the evolutionary loop until the generation budget is spent,
// a target is matched on every sample, or ctx is cancelled. The report is
// valid even when an error is returned.
func (e *Engine) Run(ctx context.Context) (FinalReport, error) {
	log := e.log.With("run", e.runID)
	log.Info("starting",
		"target", e.target.Name, "formula", e.target.Formula,
		"pool", e.cfg.Pool, "strategy", e.cfg.Strategy,
		"population", e.cfg.Population, "generations", e.cfg.Generations,
		"stagnation", e.cfg.StagnationLimit, "workers", e.cfg.Workers, "seed", e.cfg.Seed)

	if e.store != nil {
		if err := e.store.PutRun(&archive.Run{
			ID:       e.runID,
			Target:   e.target.Name,
			Pool:     e.cfg.Pool,
			Strategy: e.cfg.Strategy,
			Seed:     e.cfg.Seed,
		}); err != nil {
			return FinalReport{RunID: e.runID.String(), Config: e.cfg}, err
		}
	}

	hof := ea.NewHallOfFame[*gp.Tree, symreg.Fitness](e.cfg.HallOfFame, symreg.Better, (*gp.Tree).IsSubtreeEffectivelySame)
	var (
		attempts []AttemptResult
		logbook  []GenerationReport
		runErr   error
	)
	used := 0
	for num := 1; used < e.cfg.Generations; num++ {
		a := &attempt{num: num, bestFit: symreg.WorstFitness()}
		e.metrics.Attempts.Inc()
		log.Info("attempt started", "attempt", num, "budget", e.cfg.Generations-used)

		err := e.runAttempt(ctx, log, a, e.cfg.Generations-used, hof)
		used += max(a.gens, 1)
		logbook = append(logbook, a.reports...)
		res := a.result()
		attempts = append(attempts, res)
		if e.cfg.Verbose {
			WriteAttemptSummary(e.progress, res)
		}
		log.Info("attempt finished", "attempt", num, "generations", a.gens,
			"best", a.bestFit.Combined, "mse", a.bestFit.MSE, "solved", a.solved)
		if err != nil {
			runErr = err
			break
		}
		if a.solved {
			break
		}
	}

	report := e.final(attempts, hof)
	if e.cfg.Verbose {
		report.Generations = logbook
	}
	if e.cfg.Logbook != "" {
		if err := WriteLogbookXLSX(e.cfg.Logbook, logbook, attempts); err != nil {
			log.Error("logbook not written", "path", e.cfg.Logbook, "err", err)
			runErr = errors.Join(runErr, err)
		} else {
			log.Info("logbook written", "path", e.cfg.Logbook)
		}
	}
	return report, runErr
}

func (e *Engine) runAttempt(ctx context.Context, log *slog.Logger, a *attempt, budget int, hof *ea.HallOfFame[*gp.Tree, symreg.Fitness]) error {
	pop, err := strategy.Initialize(e.rng, e.pset, e.cfg.Population, e.cfg.MinDepth, e.cfg.MaxDepth)
	if err != nil {
		return err
	}
	tb := e.toolbox.WithOnGeneration(func(gen int, pop []strategy.Individual) error {
		return e.onGeneration(log, a, gen, pop, hof)
	})
	_, err = e.strategy.Run(ctx, e.rng, tb, pop, e.cfg.params(budget))
	if errors.Is(err, errStagnated) || errors.Is(err, errSolved) {
		return nil
	}
	return err
}

func (e *Engine) onGeneration(log *slog.Logger, a *attempt, gen int, pop []strategy.Individual, hof *ea.HallOfFame[*gp.Tree, symreg.Fitness]) error {
	a.gens = gen
	e.seq++
	hof.Update(pop)
	e.metrics.Generations.Inc()

	best := ea.SelBest(pop, 1, symreg.Better)[0]
	report := GenerationReport{
		Attempt:     a.num,
		Generation:  gen,
		BestFitness: *best.Fitness,
		BestExpr:    e.pset.Format(best.Value),
	}
	scored := 0
	for _, ind := range pop {
		report.AvgSize += float64(ind.Value.Size())
		if ind.Fitness.IsWorst() {
			report.Failed++
			continue
		}
		report.AvgFitness += ind.Fitness.Combined
		scored++
	}
	report.AvgSize /= float64(len(pop))
	if scored > 0 {
		report.AvgFitness /= float64(scored)
	}
	a.reports = append(a.reports, report)

	improved := symreg.Better(*best.Fitness, a.bestFit)
	if improved {
		a.bestExpr, a.bestFit, a.bestAt, a.sinceImpr = report.BestExpr, *best.Fitness, gen, 0
		e.metrics.BestFitness.Set(a.bestFit.Combined)
		log.Info("new best", "attempt", a.num, "gen", gen,
			"fitness", a.bestFit.Combined, "mse", a.bestFit.MSE, "size", a.bestFit.Size, "expr", report.BestExpr)
	} else if gen > 0 {
		a.sinceImpr++
	}
	log.Debug("generation", "attempt", a.num, "gen", gen,
		"best", report.BestFitness.Combined, "avg", report.AvgFitness, "avg_size", report.AvgSize, "failed", report.Failed)
	if e.cfg.Verbose {
		WriteTextReport(e.progress, report)
	}

	if err := e.archive(a, best); err != nil {
		return err
	}

	if a.bestFit.Hits == e.data.Len() {
		a.solved = true
		log.Info("solved", "attempt", a.num, "gen", gen, "expr", report.BestExpr)
		return errSolved
	}
	if e.cfg.StagnationLimit > 0 && a.sinceImpr >= e.cfg.StagnationLimit {
		log.Info("stagnated", "attempt", a.num, "gen", gen, "since_improvement", a.sinceImpr)
		return errStagnated
	}
	return nil
}

func (e *Engine) archive(a *attempt, best strategy.Individual) error {
	if e.store == nil || best.Fitness.IsWorst() {
		return nil
	}
	doc, err := e.pset.Serialize(best.Value)
	if err != nil {
		return err
	}
	return e.store.Put(&archive.Record{
		RunID:      e.runID,
		Attempt:    a.num,
		Generation: e.seq,
		Fitness:    *best.Fitness,
		Expression: e.pset.Format(best.Value),
		Tree:       doc,
	})
}

func (a *attempt) result() AttemptResult {
	return AttemptResult{
		Attempt:        a.num,
		Generations:    a.gens,
		BestFoundAtGen: a.bestAt,
		BestExpr:       a.bestExpr,
		BestFitness:    a.bestFit,
		Solved:         a.solved,
		Timestamp:      time.Now().UTC(),
	}
}

func (e *Engine) final(attempts []AttemptResult, hof *ea.HallOfFame[*gp.Tree, symreg.Fitness]) FinalReport {
	r := FinalReport{
		RunID:       e.runID.String(),
		Config:      e.cfg,
		BestFitness: symreg.WorstFitness(),
		Attempts:    attempts,
	}
	for _, m := range hof.Members() {
		doc, err := e.pset.Serialize(m.Value)
		if err != nil {
			e.log.Warn("hall of fame member not serializable", "err", err)
		}
		r.HallOfFame = append(r.HallOfFame, HallOfFameEntry{
			Expr:    e.pset.Format(m.Value),
			Fitness: *m.Fitness,
			Tree:    doc,
		})
	}
	if len(r.HallOfFame) > 0 {
		r.BestExpr = r.HallOfFame[0].Expr
		r.BestFitness = r.HallOfFame[0].Fitness
		r.BestTree = r.HallOfFame[0].Tree
	}
	return r
}
