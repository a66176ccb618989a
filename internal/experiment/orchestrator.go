package experiment

// #region imports
import (
	"context"
	"log"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/driftlab/phasewalk/internal/chain"
	"github.com/driftlab/phasewalk/internal/oracle"
)

// #endregion

// #region orchestrator

// Orchestrator fans an experiment's trials out over a bounded worker pool.
// The oracle is shared (its limiter paces all trials together); everything
// else is per-trial, including the random source, so results do not depend
// on scheduling order.
type Orchestrator struct {
	gen oracle.Generator
}

// New builds an orchestrator over the given oracle.
func New(gen oracle.Generator) *Orchestrator {
	return &Orchestrator{gen: gen}
}

// #endregion

// #region run

// Run executes every trial of cfg and collects the results into their
// cross-product slots. A trial failure is recorded in place and never aborts
// siblings; cancellation marks the remaining trials failed. The returned
// error covers configuration problems only.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (Result, error) {
	if err := validate(cfg); err != nil {
		return Result{}, err
	}

	trials := expand(cfg)
	res := Result{
		ExperimentID: uuid.New().String(),
		Name:         cfg.Name,
		Seed:         cfg.Seed,
		Trials:       make([]TrialResult, len(trials)),
	}

	log.Printf("[EXP] %s: %d trials (%d personalities x %d prompts x %d temperatures), batch %d",
		res.ExperimentID, len(trials),
		len(cfg.Personalities), len(cfg.Prompts), len(cfg.Temperatures), cfg.BatchSize)

	workers := cfg.BatchSize
	if workers > len(trials) {
		workers = len(trials)
	}

	tasks := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range tasks {
				res.Trials[slot] = o.runTrial(ctx, cfg, trials[slot])
			}
		}()
	}
	for i := range trials {
		tasks <- i
	}
	close(tasks)
	wg.Wait()

	log.Printf("[EXP] %s: done, %d/%d trials failed", res.ExperimentID, res.Failed(), len(trials))
	return res, nil
}

// runTrial samples one chain with its own seeded random source. The sampler
// already marks oracle failures on the partial result; the guard below
// covers any error path that did not.
func (o *Orchestrator) runTrial(ctx context.Context, cfg Config, tr Trial) TrialResult {
	rng := rand.New(rand.NewSource(TrialSeed(cfg.Seed, tr.Index)))
	sampler := chain.New(o.gen, cfg.Params, rng)

	run, err := sampler.Run(ctx, chain.Config{
		Personality: tr.Personality,
		Prompt:      tr.Prompt,
		Schedule:    chain.ConstantSchedule(tr.Temperature, cfg.StepsPerChain),
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		log.Printf("[EXP] trial %s failed: %v", tr.Key, err)
		if !run.Failed {
			run.Failed = true
			run.Error = err.Error()
		}
	}
	return TrialResult{Trial: tr, Chain: run}
}

// #endregion
