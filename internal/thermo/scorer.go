// Package thermo scores generated text with thermodynamic quantities:
// coherence, entropy, enthalpy, and the free energy that drives the
// Metropolis acceptance rule.
package thermo

// #region imports
import (
	"math"
	"math/rand"
	"strings"

	"github.com/driftlab/phasewalk/internal/phase"
)

// #endregion

// #region coherence-weights

// Blend weights for the coherence and entropy estimators.
const (
	lexicalWeight    = 0.7
	structuralWeight = 0.3
	charEntropyShare = 0.3
	wordEntropyShare = 0.7
)

// #endregion

// #region scorer

// Scorer computes EnergyRecords. The random source supplies the thermal
// noise term only; it must come from the caller so a fixed seed reproduces
// identical scores. rng may be nil when Params.NoiseScale is 0.
type Scorer struct {
	params Params
	rng    *rand.Rand
}

// NewScorer builds a scorer with the given constants and noise source.
func NewScorer(params Params, rng *rand.Rand) *Scorer {
	return &Scorer{params: params, rng: rng}
}

// #endregion

// #region score

// Score computes the full energy record for one response at one temperature.
// prev is the last accepted record of the chain; nil means first step, which
// scores with DeltaEnergy 0. Empty text is well-defined: coherence floors to
// Params.Epsilon and entropy is 0. No side effects beyond the noise draw.
func (s *Scorer) Score(text string, temperature float64, prev *EnergyRecord) EnergyRecord {
	coherence := measureCoherence(text)
	if coherence < s.params.Epsilon {
		coherence = s.params.Epsilon
	}

	entropy := measureEntropy(text)
	enthalpy := -math.Log(coherence)

	free := enthalpy - temperature*entropy
	if s.params.NoiseScale > 0 {
		free += s.rng.NormFloat64() * s.params.NoiseScale * temperature
	}

	delta := 0.0
	if prev != nil {
		delta = free - prev.FreeEnergy
	}

	return EnergyRecord{
		Coherence:      coherence,
		Entropy:        entropy,
		Enthalpy:       enthalpy,
		FreeEnergy:     free,
		DeltaEnergy:    delta,
		OrderParameter: orderParameter(temperature, s.params.CriticalTemp),
		Temperature:    temperature,
		Phase:          phase.Classify(temperature),
	}
}

// #endregion

// #region coherence

// measureCoherence blends lexical diversity with structural regularity.
// Lexical: unique words over total words. Structural: inverse of the
// variance of sentence lengths, so evenly sized sentences score higher.
// Returns 0 for empty text; Score applies the epsilon floor.
func measureCoherence(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	uniqueRatio := float64(len(unique)) / float64(len(words))

	var lengths []float64
	for _, sent := range strings.Split(text, ".") {
		if strings.TrimSpace(sent) == "" {
			continue
		}
		lengths = append(lengths, float64(len(strings.Fields(sent))))
	}
	structural := 1.0 / (1.0 + variance(lengths))

	return lexicalWeight*uniqueRatio + structuralWeight*structural
}

// #endregion

// #region entropy

// measureEntropy blends character-level and word-level Shannon entropy
// (natural log, so the unit is nats). Empty text has zero entropy.
func measureEntropy(text string) float64 {
	if text == "" {
		return 0
	}

	charCounts := make(map[rune]int)
	for _, r := range text {
		charCounts[r]++
	}
	charH := shannon(countValues(charCounts))

	wordH := 0.0
	words := strings.Fields(text)
	if len(words) > 0 {
		wordCounts := make(map[string]int, len(words))
		for _, w := range words {
			wordCounts[w]++
		}
		wordH = shannon(countValuesString(wordCounts))
	}

	return charEntropyShare*charH + wordEntropyShare*wordH
}

// shannon computes Shannon entropy in nats over raw occurrence counts.
func shannon(counts []int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log(p)
	}
	return h
}

func countValues(m map[rune]int) []int {
	out := make([]int, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func countValuesString(m map[string]int) []int {
	out := make([]int, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// #endregion

// #region order-parameter

// orderParameter follows mean-field critical behavior: (1 - T/Tc)^0.5 in the
// ordered regime below Tc, exponential decay above it.
func orderParameter(temperature, critical float64) float64 {
	ratio := temperature / critical
	if temperature < critical {
		return math.Sqrt(1 - ratio)
	}
	return math.Exp(-ratio)
}

// #endregion

// #region variance

// variance is the population variance. Empty or single-element input is 0.
func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return v / float64(len(xs))
}

// #endregion
