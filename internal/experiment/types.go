package experiment

// #region imports
import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/driftlab/phasewalk/internal/chain"
	"github.com/driftlab/phasewalk/internal/persona"
	"github.com/driftlab/phasewalk/internal/thermo"
)

// #endregion

// #region config

// Config describes one experiment: the full cross product of personalities,
// prompts, and temperatures, with one constant-temperature chain per cell.
type Config struct {
	Name          string
	Personalities []persona.Personality
	Prompts       []string
	Temperatures  []float64
	StepsPerChain int
	BatchSize     int
	Seed          int64
	MaxTokens     int
	Params        thermo.Params
}

func validate(cfg Config) error {
	if len(cfg.Personalities) == 0 {
		return fmt.Errorf("experiment: no personalities")
	}
	if len(cfg.Prompts) == 0 {
		return fmt.Errorf("experiment: no prompts")
	}
	for i, p := range cfg.Prompts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("experiment: prompt %d is empty", i)
		}
	}
	if len(cfg.Temperatures) == 0 {
		return fmt.Errorf("experiment: no temperatures")
	}
	for i, temp := range cfg.Temperatures {
		if temp <= 0 {
			return fmt.Errorf("experiment: temperature %d must be positive, got %v", i, temp)
		}
	}
	if cfg.StepsPerChain <= 0 {
		return fmt.Errorf("experiment: steps per chain must be positive, got %d", cfg.StepsPerChain)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("experiment: batch size must be positive, got %d", cfg.BatchSize)
	}
	return nil
}

// #endregion

// #region trial

// TrialSeed derives the private random seed for the trial at index.
// Replaying a stored chain depends on this staying stable.
func TrialSeed(base int64, index int) int64 {
	return base + int64(index)
}

// Trial is one cell of the cross product. Key is stable across runs
// ("p0/r1/t2"); Index offsets the experiment seed for the trial's private
// random source.
type Trial struct {
	Index       int
	Key         string
	Personality persona.Personality
	Prompt      string
	Temperature float64
}

// expand builds the trial list in deterministic order: personalities
// outermost, then prompts, then temperatures.
func expand(cfg Config) []Trial {
	trials := make([]Trial, 0, len(cfg.Personalities)*len(cfg.Prompts)*len(cfg.Temperatures))
	for i, p := range cfg.Personalities {
		for j, prompt := range cfg.Prompts {
			for k, temp := range cfg.Temperatures {
				trials = append(trials, Trial{
					Index:       len(trials),
					Key:         fmt.Sprintf("p%d/r%d/t%d", i, j, k),
					Personality: p,
					Prompt:      prompt,
					Temperature: temp,
				})
			}
		}
	}
	return trials
}

// #endregion

// #region result

// TrialResult pairs a trial with its sampled chain. A failed chain stays in
// its slot with the failure marker set; it never displaces siblings.
type TrialResult struct {
	Trial Trial
	Chain chain.Result
}

// Result is a complete experiment. Trials appear in cross-product order
// regardless of completion order.
type Result struct {
	ExperimentID string
	Name         string
	Seed         int64
	Trials       []TrialResult
}

// Chains flattens the trial results in trial order.
func (r Result) Chains() []chain.Result {
	out := make([]chain.Result, len(r.Trials))
	for i, tr := range r.Trials {
		out[i] = tr.Chain
	}
	return out
}

// Failed counts trials whose chain carries the failure marker.
func (r Result) Failed() int {
	n := 0
	for _, tr := range r.Trials {
		if tr.Chain.Failed {
			n++
		}
	}
	return n
}

// #endregion

// #region schedules

// TemperatureGrid builds n evenly spaced temperatures from min to max
// inclusive.
func TemperatureGrid(min, max float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{min}
	}
	out := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := range out {
		out[i] = min + float64(i)*step
	}
	return out
}

// UniformTemperatures draws n temperatures uniformly from [min, max).
func UniformTemperatures(min, max float64, n int, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = min + rng.Float64()*(max-min)
	}
	return out
}

// #endregion
