// Package aggregate turns chains of scored steps into phase statistics:
// occupancy, separation, stability, and free-energy structure over
// temperature.
package aggregate

// #region imports
import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/driftlab/phasewalk/internal/chain"
	"github.com/driftlab/phasewalk/internal/phase"
	"github.com/driftlab/phasewalk/internal/thermo"
)

// #endregion

// #region errors

// ErrInsufficientData marks a group with too few steps to aggregate. It is
// the explicit replacement for every would-be division by zero in this
// package.
var ErrInsufficientData = errors.New("aggregate: insufficient data")

// #endregion

// #region occupancy

// Occupancy maps each phase to its share of steps. Shares over a non-empty
// group sum to 1.
type Occupancy map[phase.Phase]float64

// OccupancyOf counts steps per phase and normalizes by the group size.
func OccupancyOf(records []thermo.EnergyRecord) (Occupancy, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("occupancy over empty group: %w", ErrInsufficientData)
	}
	occ := Occupancy{}
	for _, p := range phase.All() {
		occ[p] = 0
	}
	for _, rec := range records {
		occ[rec.Phase]++
	}
	total := float64(len(records))
	for p := range occ {
		occ[p] /= total
	}
	return occ, nil
}

// Dominant returns the phase with the largest share. Ties resolve to the
// lower-temperature phase, only for presentation; the separation test below
// never uses this.
func (o Occupancy) Dominant() phase.Phase {
	best := phase.Coherent
	bestShare := math.Inf(-1)
	for _, p := range phase.All() {
		if o[p] > bestShare {
			best = p
			bestShare = o[p]
		}
	}
	return best
}

// #endregion

// #region separation

// SeparationResult reports the majority test for one target phase, carrying
// the occupancy vector it was decided on.
type SeparationResult struct {
	Target    phase.Phase
	Separated bool
	Share     float64
	Occupancy Occupancy
	Reason    string
}

// Separation tests whether the target phase holds a strict majority:
// P(target) > sum of all other shares. An exact tie fails; the inequality
// is strict.
func Separation(records []thermo.EnergyRecord, target phase.Phase) (SeparationResult, error) {
	occ, err := OccupancyOf(records)
	if err != nil {
		return SeparationResult{Target: target}, err
	}

	share := occ[target]
	rest := 0.0
	for p, s := range occ {
		if p != target {
			rest += s
		}
	}

	res := SeparationResult{
		Target:    target,
		Separated: share > rest,
		Share:     share,
		Occupancy: occ,
	}
	if res.Separated {
		res.Reason = fmt.Sprintf("phase %s holds %.3f of mass against %.3f", target, share, rest)
	} else {
		res.Reason = fmt.Sprintf("phase %s holds %.3f of mass, needs strict majority over %.3f", target, share, rest)
	}
	return res, nil
}

// #endregion

// #region profile

// ProfileOf exposes the free-energy sequence in step order, untouched: no
// smoothing, no sorting. Trend analysis belongs to the consumer.
func ProfileOf(records []thermo.EnergyRecord) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.FreeEnergy)
	}
	return out
}

// TempStat is the free-energy summary at one temperature.
type TempStat struct {
	Temperature    float64
	MeanFreeEnergy float64
	StdFreeEnergy  float64
	Count          int
}

// TemperatureProfile groups records by exact temperature and returns
// per-temperature free-energy statistics in ascending temperature order.
func TemperatureProfile(records []thermo.EnergyRecord) []TempStat {
	byTemp := map[float64][]float64{}
	for _, rec := range records {
		byTemp[rec.Temperature] = append(byTemp[rec.Temperature], rec.FreeEnergy)
	}

	temps := make([]float64, 0, len(byTemp))
	for t := range byTemp {
		temps = append(temps, t)
	}
	sort.Float64s(temps)

	out := make([]TempStat, 0, len(temps))
	for _, t := range temps {
		energies := byTemp[t]
		m := mean(energies)
		out = append(out, TempStat{
			Temperature:    t,
			MeanFreeEnergy: m,
			StdFreeEnergy:  math.Sqrt(varianceAround(energies, m)),
			Count:          len(energies),
		})
	}
	return out
}

// #endregion

// #region stability

// Stability summarizes how settled a chain's phase label is.
type Stability struct {
	TransitionRate float64     // adjacent phase changes over (steps-1)
	Concentration  float64     // max occupancy share; 1.0 = single phase
	Dominant       phase.Phase // presentation only
}

// StabilityOf computes the transition rate and occupancy concentration for
// one ordered group of steps. A single step has rate 0 by definition.
func StabilityOf(records []thermo.EnergyRecord) (Stability, error) {
	occ, err := OccupancyOf(records)
	if err != nil {
		return Stability{}, err
	}

	rate := 0.0
	if len(records) > 1 {
		changes := 0
		for i := 1; i < len(records); i++ {
			if records[i].Phase != records[i-1].Phase {
				changes++
			}
		}
		rate = float64(changes) / float64(len(records)-1)
	}

	dominant := occ.Dominant()
	return Stability{
		TransitionRate: rate,
		Concentration:  occ[dominant],
		Dominant:       dominant,
	}, nil
}

// #endregion

// #region landscape

// Landscape carries the energy-landscape diagnostics over a temperature
// sweep: how strongly free energy tracks temperature and where it moves
// fastest.
type Landscape struct {
	EnergyTempCorrelation float64 // Pearson r over raw (T, F) pairs
	MaxEnergyDerivative   float64 // max |dF/dT| over the binned profile
	TransitionTemperature float64 // temperature at the steepest change
	TransitionSharpness   float64 // stddev of the derivative
}

// LandscapeOf needs at least two distinct temperatures; constant-temperature
// groups have no landscape to measure. The derivative runs over the
// per-temperature mean profile (central differences inside, one-sided at the
// edges) so repeated temperatures never produce a zero denominator.
func LandscapeOf(records []thermo.EnergyRecord) (Landscape, error) {
	profile := TemperatureProfile(records)
	if len(profile) < 2 {
		return Landscape{}, fmt.Errorf("landscape needs >=2 distinct temperatures: %w", ErrInsufficientData)
	}

	temps := make([]float64, len(records))
	energies := make([]float64, len(records))
	for i, rec := range records {
		temps[i] = rec.Temperature
		energies[i] = rec.FreeEnergy
	}

	gradient := profileGradient(profile)
	maxAbs, maxIdx := 0.0, 0
	for i, g := range gradient {
		if a := math.Abs(g); a >= maxAbs {
			maxAbs = a
			maxIdx = i
		}
	}

	gm := mean(gradient)
	return Landscape{
		EnergyTempCorrelation: pearson(temps, energies),
		MaxEnergyDerivative:   maxAbs,
		TransitionTemperature: profile[maxIdx].Temperature,
		TransitionSharpness:   math.Sqrt(varianceAround(gradient, gm)),
	}, nil
}

// profileGradient differentiates mean free energy with respect to
// temperature.
func profileGradient(profile []TempStat) []float64 {
	n := len(profile)
	grad := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case i == 0:
			grad[i] = (profile[1].MeanFreeEnergy - profile[0].MeanFreeEnergy) /
				(profile[1].Temperature - profile[0].Temperature)
		case i == n-1:
			grad[i] = (profile[n-1].MeanFreeEnergy - profile[n-2].MeanFreeEnergy) /
				(profile[n-1].Temperature - profile[n-2].Temperature)
		default:
			grad[i] = (profile[i+1].MeanFreeEnergy - profile[i-1].MeanFreeEnergy) /
				(profile[i+1].Temperature - profile[i-1].Temperature)
		}
	}
	return grad
}

// #endregion

// #region summary

// Summary is the ensemble rollup for one group of chains. Statistics come
// from complete chains only; failed chains are counted, not mixed into the
// distributions.
type Summary struct {
	Chains             int
	Failed             int
	Steps              int
	Accepted           int
	AcceptanceRate     float64
	MeanTransitionRate float64
	Occupancy          Occupancy
	Concentration      float64
	Dominant           phase.Phase
}

// Summarize rolls a group of chains up into one Summary. With no complete
// chains the counts still come back, alongside ErrInsufficientData.
func Summarize(chains []chain.Result) (Summary, error) {
	sum := Summary{Chains: len(chains)}

	var pooled []thermo.EnergyRecord
	rateSum, rated := 0.0, 0
	for _, c := range chains {
		if c.Failed {
			sum.Failed++
			continue
		}
		sum.Steps += len(c.Steps)
		sum.Accepted += c.Accepted
		pooled = append(pooled, c.Records()...)

		if st, err := StabilityOf(c.Records()); err == nil {
			rateSum += st.TransitionRate
			rated++
		}
	}

	if len(pooled) == 0 {
		return sum, fmt.Errorf("no complete chains in group: %w", ErrInsufficientData)
	}

	sum.AcceptanceRate = float64(sum.Accepted) / float64(sum.Steps)
	if rated > 0 {
		sum.MeanTransitionRate = rateSum / float64(rated)
	}

	occ, err := OccupancyOf(pooled)
	if err != nil {
		return sum, err
	}
	sum.Occupancy = occ
	sum.Dominant = occ.Dominant()
	sum.Concentration = occ[sum.Dominant]
	return sum, nil
}

// #endregion

// #region math-helpers

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}

func varianceAround(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	v := 0.0
	for _, x := range xs {
		d := x - m
		v += d * d
	}
	return v / float64(len(xs))
}

// pearson is the sample correlation coefficient. Degenerate variance on
// either axis yields 0 rather than NaN.
func pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) == 0 {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// #endregion
