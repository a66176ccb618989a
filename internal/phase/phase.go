// Package phase maps sampling temperature onto discrete behavioral phases.
package phase

// #region phase

// Phase labels the behavioral regime of a sampled response.
type Phase string

const (
	Coherent     Phase = "coherent"
	SemiCoherent Phase = "semi-coherent"
	Chaotic      Phase = "chaotic"
)

// #endregion

// #region boundaries

// Temperature boundaries between phases. Each band is closed on its lower
// bound and open on its upper bound, so every temperature lands in exactly
// one phase.
const (
	CoherentToSemi = 0.8
	SemiToChaotic  = 1.5
)

// #endregion

// #region classify

// Classify maps a temperature to its phase. Memoryless: the label is a
// function of the temperature alone, never of the chain's history, so
// there is no hysteresis at the boundaries.
func Classify(temperature float64) Phase {
	if temperature < CoherentToSemi {
		return Coherent
	}
	if temperature < SemiToChaotic {
		return SemiCoherent
	}
	return Chaotic
}

// #endregion

// #region all

// All returns every phase in ascending temperature order.
func All() []Phase {
	return []Phase{Coherent, SemiCoherent, Chaotic}
}

// #endregion
