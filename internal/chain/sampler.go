// Package chain walks Metropolis-Hastings trajectories: propose a response
// through the oracle, score it, accept or reject by the Metropolis criterion,
// and carry the accepted context forward.
package chain

// #region imports
import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/driftlab/phasewalk/internal/oracle"
	"github.com/driftlab/phasewalk/internal/thermo"
)

// #endregion

// #region constants

// contextWindow is how many runes of the last accepted response feed the
// next prompt.
const contextWindow = 100

// #endregion

// #region sampler

// Sampler owns one chain at a time. The rng drives both the scorer's noise
// term and the acceptance draws, one seeded source per chain, so concurrent
// trials never share random state and a seed reproduces the whole walk.
type Sampler struct {
	gen    oracle.Generator
	params thermo.Params
	scorer *thermo.Scorer
	rng    *rand.Rand
}

// New builds a sampler over the given oracle, constants, and random source.
func New(gen oracle.Generator, params thermo.Params, rng *rand.Rand) *Sampler {
	return &Sampler{
		gen:    gen,
		params: params,
		scorer: thermo.NewScorer(params, rng),
		rng:    rng,
	}
}

// #endregion

// #region run

// Run walks one chain. The personality is read-only throughout; only the
// prompt context evolves, and only on acceptance. The oracle call is the
// sole suspension point. An oracle failure (retries already exhausted inside
// the boundary) terminates the chain: the partial result comes back with
// Failed set, never silently truncated into a "complete" chain.
func (s *Sampler) Run(ctx context.Context, cfg Config) (Result, error) {
	if err := validate(cfg); err != nil {
		return Result{}, err
	}

	res := Result{
		ChainID:     uuid.New().String(),
		Personality: cfg.Personality,
		Prompt:      cfg.Prompt,
	}

	system := cfg.Personality.SystemPrompt()
	prompt := cfg.Prompt
	var lastAccepted *thermo.EnergyRecord

	for i, temp := range cfg.Schedule {
		candidate, err := s.gen.Generate(ctx, oracle.Request{
			System:      system,
			Prompt:      prompt,
			Temperature: temp,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			res.Failed = true
			res.Error = err.Error()
			return res, fmt.Errorf("chain %s: step %d: %w", res.ChainID, i, err)
		}

		energy := s.scorer.Score(candidate, temp, lastAccepted)
		accepted, prob := s.accept(energy.DeltaEnergy, temp)

		res.Steps = append(res.Steps, Step{
			Index:       i,
			Temperature: temp,
			Candidate:   candidate,
			Energy:      energy,
			Accepted:    accepted,
			AcceptProb:  prob,
		})

		if accepted {
			res.Accepted++
			res.Context = append(res.Context, candidate)
			kept := energy
			lastAccepted = &kept
			prompt = Continuation(candidate)
		}
	}

	return res, nil
}

// #endregion

// #region acceptance

// accept applies the Metropolis criterion: a non-positive energy delta is
// always taken, a positive one with probability exp(-dE / (k_B * T)) against
// a single uniform draw.
func (s *Sampler) accept(delta, temp float64) (bool, float64) {
	if delta <= 0 {
		return true, 1.0
	}
	p := math.Exp(-delta / (s.params.Boltzmann * temp))
	return s.rng.Float64() < p, p
}

// #endregion

// #region prompt-building

// Continuation builds the follow-up prompt from the previous response. The
// dream pipeline chains prompts the same way.
func Continuation(response string) string {
	return fmt.Sprintf("Continuing from the previous thought: %s...", truncateRunes(response, contextWindow))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// #endregion

// #region validation

// validate fails fast on inputs that would make the walk ill-defined.
func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Prompt) == "" {
		return fmt.Errorf("chain: prompt must not be empty")
	}
	if len(cfg.Schedule) == 0 {
		return fmt.Errorf("chain: temperature schedule must not be empty")
	}
	for i, temp := range cfg.Schedule {
		if temp <= 0 {
			return fmt.Errorf("chain: schedule[%d] temperature %v must be > 0", i, temp)
		}
	}
	return nil
}

// #endregion
