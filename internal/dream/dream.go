// Package dream runs the temperature-ladder dream pipeline: one response per
// rung with the personality drifting between rungs, then a three-voice
// interpretation of the whole sequence.
package dream

// #region imports
import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/driftlab/phasewalk/internal/chain"
	"github.com/driftlab/phasewalk/internal/oracle"
	"github.com/driftlab/phasewalk/internal/persona"
	"github.com/driftlab/phasewalk/internal/thermo"
)

// #endregion

// #region config

// Interpretation temperatures match the source pipeline: narration warm,
// meaning extraction cool, the lucid rewrite in between.
const (
	narrativeTemp = 0.7
	meaningTemp   = 0.5
	lucidTemp     = 0.8
)

// Config controls one dream sequence.
type Config struct {
	BaseTemp  float64
	MaxTemp   float64
	Steps     int
	MaxTokens int
}

// DefaultConfig is the standard ladder: five rungs from 0.7 to 2.0.
func DefaultConfig() Config {
	return Config{
		BaseTemp: 0.7,
		MaxTemp:  2.0,
		Steps:    5,
	}
}

func validate(cfg Config, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("dream: prompt must not be empty")
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("dream: steps must be positive, got %d", cfg.Steps)
	}
	if cfg.BaseTemp <= 0 || cfg.MaxTemp < cfg.BaseTemp {
		return fmt.Errorf("dream: bad temperature ladder [%v, %v]", cfg.BaseTemp, cfg.MaxTemp)
	}
	return nil
}

// #endregion

// #region types

// State is one rung of the ladder: the personality that dreamed it, the
// response, and its energy record.
type State struct {
	Temperature float64
	Energy      thermo.EnergyRecord
	Personality persona.Personality
	Response    string
}

// Sequence is a complete dream run. Final holds the personality after the
// last drift, one step beyond the last state's.
type Sequence struct {
	States []State
	Final  persona.Personality
}

// Responses lists the dream fragments in ladder order.
func (s Sequence) Responses() []string {
	out := make([]string, len(s.States))
	for i, st := range s.States {
		out[i] = st.Response
	}
	return out
}

// Interpretation is the three-voice reading of a sequence.
type Interpretation struct {
	Narrative string
	Meaning   string
	Lucid     string
}

// #endregion

// #region dreamer

// Dreamer walks the temperature ladder. Unlike the Metropolis sampler there
// is no acceptance step: every response enters the sequence, and the
// personality itself drifts with temperature.
type Dreamer struct {
	gen    oracle.Generator
	scorer *thermo.Scorer
	varier *persona.Generator
}

// New builds a dreamer over the given oracle and random source. The rng
// drives both scorer noise and personality drift.
func New(gen oracle.Generator, params thermo.Params, rng *rand.Rand) *Dreamer {
	return &Dreamer{
		gen:    gen,
		scorer: thermo.NewScorer(params, rng),
		varier: persona.NewGeneratorFrom(rng),
	}
}

// #endregion

// #region run

// Run climbs the ladder once. Each rung scores fresh (no delta against
// earlier rungs), the personality drifts after every response, and the next
// prompt continues from the current response.
func (d *Dreamer) Run(ctx context.Context, p persona.Personality, prompt string, cfg Config) (Sequence, error) {
	if err := validate(cfg, prompt); err != nil {
		return Sequence{}, err
	}

	var seq Sequence
	current := p
	for i, temp := range ladder(cfg.BaseTemp, cfg.MaxTemp, cfg.Steps) {
		response, err := d.gen.Generate(ctx, oracle.Request{
			System:      current.DreamPrompt(temp),
			Prompt:      prompt,
			Temperature: temp,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return seq, fmt.Errorf("dream: rung %d: %w", i, err)
		}

		seq.States = append(seq.States, State{
			Temperature: temp,
			Energy:      d.scorer.Score(response, temp, nil),
			Personality: current,
			Response:    response,
		})

		current = d.varier.Vary(current, temp)
		prompt = chain.Continuation(response)
	}
	seq.Final = current
	return seq, nil
}

// ladder spaces n temperatures evenly from base to max inclusive.
func ladder(base, max float64, n int) []float64 {
	if n == 1 {
		return []float64{base}
	}
	out := make([]float64, n)
	step := (max - base) / float64(n-1)
	for i := range out {
		out[i] = base + float64(i)*step
	}
	return out
}

// #endregion

// #region interpret

// Interpret reads the sequence three ways: a narrative over the fragments, a
// deeper meaning conditioned on the personality, and a lucid rewrite of the
// narrative guided by the meaning.
func (d *Dreamer) Interpret(ctx context.Context, seq Sequence, p persona.Personality, cfg Config) (Interpretation, error) {
	if len(seq.States) == 0 {
		return Interpretation{}, fmt.Errorf("dream: nothing to interpret")
	}
	fragments := strings.Join(seq.Responses(), "\n")

	narrative, err := d.gen.Generate(ctx, oracle.Request{
		System:      "You are a dream interpreter creating a narrative.",
		Prompt:      "Create a coherent narrative from these dream fragments:\n" + fragments,
		Temperature: narrativeTemp,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return Interpretation{}, fmt.Errorf("dream: narrative: %w", err)
	}

	meaning, err := d.gen.Generate(ctx, oracle.Request{
		System: "You are a dream interpreter analyzing meaning.",
		Prompt: fmt.Sprintf(
			"Given a personality with:\nGoals: %s\nSelf-image: %s\nWorld-view: %s\n\nWhat is the deeper meaning of these dream fragments?\n%s",
			strings.Join(p.Goals, "; "), p.SelfImage, p.WorldView, fragments),
		Temperature: meaningTemp,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return Interpretation{}, fmt.Errorf("dream: meaning: %w", err)
	}

	lucid, err := d.gen.Generate(ctx, oracle.Request{
		System: "You are creating a lucid dream version.",
		Prompt: fmt.Sprintf(
			"Given this dream narrative:\n%s\n\nAnd its interpretation:\n%s\n\nRewrite the narrative as if the dreamer became lucid and could control the dream.\nConsider the personality traits:\nGoals: %s\nSelf-image: %s\nWorld-view: %s",
			narrative, meaning, strings.Join(p.Goals, "; "), p.SelfImage, p.WorldView),
		Temperature: lucidTemp,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return Interpretation{}, fmt.Errorf("dream: lucid: %w", err)
	}

	return Interpretation{Narrative: narrative, Meaning: meaning, Lucid: lucid}, nil
}

// #endregion
