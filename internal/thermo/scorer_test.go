package thermo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/driftlab/phasewalk/internal/phase"
)

// helper: scorer with noise disabled for exact arithmetic.
func quietScorer() *Scorer {
	p := DefaultParams()
	p.NoiseScale = 0
	return NewScorer(p, nil)
}

// helper: scorer with default noise and a fixed seed.
func seededScorer(seed int64) *Scorer {
	return NewScorer(DefaultParams(), rand.New(rand.NewSource(seed)))
}

// 1. Fully diverse single sentence: unique ratio 1, variance 0 -> coherence 1.0,
// enthalpy exactly 0.
func TestScore_PerfectCoherence(t *testing.T) {
	rec := quietScorer().Score("alpha beta gamma delta", 0.5, nil)
	if rec.Coherence != 1.0 {
		t.Errorf("expected coherence 1.0, got %v", rec.Coherence)
	}
	if rec.Enthalpy != 0 {
		t.Errorf("expected enthalpy 0 at coherence 1.0, got %v", rec.Enthalpy)
	}
}

// 2. Repeated words lower coherence: "the the the the" has unique ratio 0.25,
// one sentence of 4 words -> structural 1.0 -> coherence 0.7*0.25 + 0.3 = 0.475.
func TestScore_RepetitionLowersCoherence(t *testing.T) {
	rec := quietScorer().Score("the the the the", 0.5, nil)
	if math.Abs(rec.Coherence-0.475) > 1e-12 {
		t.Errorf("expected coherence 0.475, got %v", rec.Coherence)
	}
	if rec.Enthalpy <= 0 {
		t.Errorf("expected positive enthalpy below coherence 1.0, got %v", rec.Enthalpy)
	}
}

// 3. Empty text is well-defined: coherence floors to epsilon, entropy is 0,
// free energy equals the (large) enthalpy with noise off.
func TestScore_EmptyText(t *testing.T) {
	p := DefaultParams()
	rec := quietScorer().Score("", 1.0, nil)
	if rec.Coherence != p.Epsilon {
		t.Errorf("expected coherence floored to %v, got %v", p.Epsilon, rec.Coherence)
	}
	if rec.Entropy != 0 {
		t.Errorf("expected entropy 0 for empty text, got %v", rec.Entropy)
	}
	if rec.Enthalpy != -math.Log(p.Epsilon) {
		t.Errorf("expected enthalpy -ln(epsilon), got %v", rec.Enthalpy)
	}
	if rec.FreeEnergy != rec.Enthalpy {
		t.Errorf("expected free energy == enthalpy with zero entropy and noise, got %v", rec.FreeEnergy)
	}
}

// 4. Enthalpy is never negative: coherence tops out at 1.0.
func TestScore_EnthalpyNonNegative(t *testing.T) {
	texts := []string{
		"",
		"one",
		"a b c d e f g",
		"same same same. same same same.",
		"The quick brown fox jumps over the lazy dog. Pack my box.",
	}
	s := quietScorer()
	for _, text := range texts {
		rec := s.Score(text, 1.0, nil)
		if rec.Coherence <= 0 || rec.Coherence > 1.0 {
			t.Errorf("%q: coherence %v outside (0,1]", text, rec.Coherence)
		}
		if rec.Enthalpy < 0 {
			t.Errorf("%q: negative enthalpy %v", text, rec.Enthalpy)
		}
		if rec.Entropy < 0 {
			t.Errorf("%q: negative entropy %v", text, rec.Entropy)
		}
	}
}

// 5. Free energy formula with noise off: F = H - T*S exactly.
func TestScore_FreeEnergyFormula(t *testing.T) {
	text := "ideas drift apart as the temperature climbs past every threshold"
	for _, temp := range []float64{0.1, 0.8, 1.5, 2.0} {
		rec := quietScorer().Score(text, temp, nil)
		want := rec.Enthalpy - temp*rec.Entropy
		if math.Abs(rec.FreeEnergy-want) > 1e-12 {
			t.Errorf("T=%v: expected F=%v, got %v", temp, want, rec.FreeEnergy)
		}
	}
}

// 6. Delta is measured against the supplied previous record, 0 without one.
func TestScore_DeltaEnergy(t *testing.T) {
	s := quietScorer()
	first := s.Score("a steady opening thought", 0.5, nil)
	if first.DeltaEnergy != 0 {
		t.Errorf("expected delta 0 on first score, got %v", first.DeltaEnergy)
	}
	second := s.Score("a second thought with rather more wandering words inside", 0.5, &first)
	want := second.FreeEnergy - first.FreeEnergy
	if second.DeltaEnergy != want {
		t.Errorf("expected delta %v, got %v", want, second.DeltaEnergy)
	}
}

// 7. Idempotence under a fixed seed: identical inputs and identical noise
// draws yield identical records.
func TestScore_ReproducibleUnderSeed(t *testing.T) {
	text := "the dream repeats itself exactly when the seed repeats"
	a := seededScorer(42).Score(text, 1.2, nil)
	b := seededScorer(42).Score(text, 1.2, nil)
	if a != b {
		t.Errorf("expected identical records under the same seed:\n%+v\n%+v", a, b)
	}
}

// 8. The noise term is exactly NormFloat64 * NoiseScale * T from the injected
// source, and nothing else touches the deterministic part.
func TestScore_NoiseTerm(t *testing.T) {
	text := "noise rides on top of the deterministic free energy"
	temp := 1.5

	quiet := quietScorer().Score(text, temp, nil)
	noisy := seededScorer(7).Score(text, temp, nil)

	wantNoise := rand.New(rand.NewSource(7)).NormFloat64() * DefaultParams().NoiseScale * temp
	got := noisy.FreeEnergy - quiet.FreeEnergy
	if math.Abs(got-wantNoise) > 1e-12 {
		t.Errorf("expected noise %v, got %v", wantNoise, got)
	}
}

// 9. Order parameter: 1 at T=0, mean-field branch below Tc, exponential decay
// at and above Tc.
func TestScore_OrderParameter(t *testing.T) {
	if got := orderParameter(0, 1.0); got != 1.0 {
		t.Errorf("expected order parameter 1 at T=0, got %v", got)
	}
	if got := orderParameter(0.5, 1.0); math.Abs(got-math.Sqrt(0.5)) > 1e-12 {
		t.Errorf("expected sqrt(0.5) at T=0.5, got %v", got)
	}
	if got := orderParameter(1.0, 1.0); math.Abs(got-math.Exp(-1)) > 1e-12 {
		t.Errorf("expected exp(-1) at T=Tc, got %v", got)
	}
	if got := orderParameter(2.0, 1.0); math.Abs(got-math.Exp(-2)) > 1e-12 {
		t.Errorf("expected exp(-2) at T=2Tc, got %v", got)
	}
}

// 10. Temperature and phase are threaded onto the record unchanged.
func TestScore_TemperatureAndPhase(t *testing.T) {
	for _, temp := range []float64{0.5, 0.8, 1.5, 2.0} {
		rec := quietScorer().Score("some response text", temp, nil)
		if rec.Temperature != temp {
			t.Errorf("expected temperature %v on record, got %v", temp, rec.Temperature)
		}
		if rec.Phase != phase.Classify(temp) {
			t.Errorf("T=%v: expected phase %s, got %s", temp, phase.Classify(temp), rec.Phase)
		}
	}
}

// 11. Shannon entropy: uniform two-symbol distribution is ln(2), a single
// symbol is 0.
func TestShannon(t *testing.T) {
	if got := shannon([]int{1, 1}); math.Abs(got-math.Log(2)) > 1e-12 {
		t.Errorf("expected ln(2), got %v", got)
	}
	if got := shannon([]int{4}); got != 0 {
		t.Errorf("expected 0 for single symbol, got %v", got)
	}
	if got := shannon(nil); got != 0 {
		t.Errorf("expected 0 for no counts, got %v", got)
	}
}

// 12. Variance: constant input is 0, {1,3} is 1 (population variance).
func TestVariance(t *testing.T) {
	if got := variance([]float64{2, 2, 2}); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := variance([]float64{1, 3}); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := variance(nil); got != 0 {
		t.Errorf("expected 0 for empty input, got %v", got)
	}
}

// 13. Word-level entropy dominates the blend: a text with diverse words has
// higher entropy than the same length of one repeated word.
func TestMeasureEntropy_Blend(t *testing.T) {
	diverse := measureEntropy("river stone cloud ember glass")
	repeated := measureEntropy("river river river river river")
	if diverse <= repeated {
		t.Errorf("expected diverse text entropy (%v) above repeated (%v)", diverse, repeated)
	}
	if got := measureEntropy(""); got != 0 {
		t.Errorf("expected 0 for empty text, got %v", got)
	}
}
