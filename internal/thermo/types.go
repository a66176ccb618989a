package thermo

// #region imports
import (
	"github.com/driftlab/phasewalk/internal/phase"
)

// #endregion

// #region params

// Params holds the physical constants of the scoring model.
type Params struct {
	Epsilon      float64 // numerical floor for coherence; it feeds a logarithm
	NoiseScale   float64 // stddev of thermal noise per unit temperature; 0 disables noise
	Boltzmann    float64 // k_B analogue in the Metropolis acceptance exponent
	CriticalTemp float64 // critical temperature for the order parameter
}

// DefaultParams returns the reference constants.
func DefaultParams() Params {
	return Params{
		Epsilon:      1e-10,
		NoiseScale:   0.1,
		Boltzmann:    1.0,
		CriticalTemp: 1.0,
	}
}

// #endregion

// #region energy-record

// EnergyRecord is the scored snapshot of one sampled response. Immutable:
// created once per response and never updated.
type EnergyRecord struct {
	Coherence      float64 // lexical/structural self-consistency, in (0,1]
	Entropy        float64 // information entropy of the response, >= 0
	Enthalpy       float64 // -ln(coherence), >= 0, 0 at coherence 1.0
	FreeEnergy     float64 // enthalpy - T*entropy + thermal noise
	DeltaEnergy    float64 // free energy minus the previous record's, 0 without one
	OrderParameter float64 // critical-exponent diagnostic, not used for acceptance
	Temperature    float64
	Phase          phase.Phase
}

// #endregion
