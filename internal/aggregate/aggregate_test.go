package aggregate

import (
	"errors"
	"math"
	"testing"

	"github.com/driftlab/phasewalk/internal/chain"
	"github.com/driftlab/phasewalk/internal/phase"
	"github.com/driftlab/phasewalk/internal/thermo"
)

// helper: record at a temperature with a given free energy.
func rec(temp, free float64) thermo.EnergyRecord {
	return thermo.EnergyRecord{
		Temperature: temp,
		FreeEnergy:  free,
		Phase:       phase.Classify(temp),
	}
}

// helper: records along a temperature schedule.
func recsAt(temps ...float64) []thermo.EnergyRecord {
	out := make([]thermo.EnergyRecord, 0, len(temps))
	for _, t := range temps {
		out = append(out, rec(t, 0))
	}
	return out
}

// 1. Scenario: every step at T=2.0 puts the whole mass in the chaotic phase.
func TestOccupancy_AllChaotic(t *testing.T) {
	occ, err := OccupancyOf(recsAt(2.0, 2.0, 2.0, 2.0, 2.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if occ[phase.Chaotic] != 1.0 {
		t.Errorf("expected chaotic share 1.0, got %v", occ[phase.Chaotic])
	}
	if occ[phase.Coherent] != 0 || occ[phase.SemiCoherent] != 0 {
		t.Errorf("expected zero mass elsewhere, got %v", occ)
	}
}

// 2. Shares are normalized and sum to 1.
func TestOccupancy_Normalized(t *testing.T) {
	occ, err := OccupancyOf(recsAt(0.5, 0.5, 1.0, 1.0, 1.6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if occ[phase.Coherent] != 0.4 || occ[phase.SemiCoherent] != 0.4 || occ[phase.Chaotic] != 0.2 {
		t.Errorf("expected shares 0.4/0.4/0.2, got %v", occ)
	}
	sum := 0.0
	for _, share := range occ {
		if share < 0 || share > 1 {
			t.Errorf("share %v outside [0,1]", share)
		}
		sum += share
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("expected shares summing to 1, got %v", sum)
	}
}

// 3. The empty group is an explicit insufficient-data result.
func TestOccupancy_Empty(t *testing.T) {
	if _, err := OccupancyOf(nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

// 4. Separation demands a strict majority; an exact tie fails.
func TestSeparation(t *testing.T) {
	majority, err := Separation(recsAt(0.5, 0.5, 0.5, 2.0), phase.Coherent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !majority.Separated || majority.Share != 0.75 {
		t.Errorf("expected separated at share 0.75, got %+v", majority)
	}

	tie, err := Separation(recsAt(0.5, 0.5, 2.0, 2.0), phase.Coherent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tie.Separated {
		t.Error("expected exact tie to fail the separation test")
	}
	if tie.Share != 0.5 {
		t.Errorf("expected tie share 0.5, got %v", tie.Share)
	}
	if tie.Occupancy == nil {
		t.Error("expected the deciding occupancy vector on the result")
	}

	minority, err := Separation(recsAt(0.5, 2.0, 2.0, 2.0), phase.Coherent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minority.Separated {
		t.Error("expected minority share to fail")
	}

	if _, err := Separation(nil, phase.Coherent); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for empty group, got %v", err)
	}
}

// 5. Stability: transition rate counts adjacent label changes, concentration
// is the dominant share.
func TestStability(t *testing.T) {
	// phases C C S S Ch: changes at steps 2 and 4 -> rate 2/4.
	st, err := StabilityOf(recsAt(0.5, 0.5, 1.0, 1.0, 1.6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.TransitionRate != 0.5 {
		t.Errorf("expected transition rate 0.5, got %v", st.TransitionRate)
	}
	if st.Concentration != 0.4 {
		t.Errorf("expected concentration 0.4, got %v", st.Concentration)
	}

	single, err := StabilityOf(recsAt(1.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if single.TransitionRate != 0 {
		t.Errorf("expected rate 0 for a single step, got %v", single.TransitionRate)
	}
	if single.Concentration != 1.0 {
		t.Errorf("expected concentration 1.0 for a single step, got %v", single.Concentration)
	}

	if _, err := StabilityOf(nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}

	stable, err := StabilityOf(recsAt(2.0, 2.0, 2.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stable.TransitionRate != 0 || stable.Concentration != 1.0 || stable.Dominant != phase.Chaotic {
		t.Errorf("expected perfectly stable chaotic chain, got %+v", stable)
	}
}

// 6. The free-energy profile preserves step order, untouched.
func TestProfile_Order(t *testing.T) {
	records := []thermo.EnergyRecord{rec(0.5, 3.0), rec(0.5, 1.0), rec(0.5, 2.0)}
	profile := ProfileOf(records)
	want := []float64{3.0, 1.0, 2.0}
	if len(profile) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(profile))
	}
	for i := range want {
		if profile[i] != want[i] {
			t.Errorf("entry %d: expected %v, got %v", i, want[i], profile[i])
		}
	}
}

// 7. TemperatureProfile groups by temperature, sorted ascending.
func TestTemperatureProfile(t *testing.T) {
	records := []thermo.EnergyRecord{rec(1.0, 2.0), rec(0.5, 1.0), rec(1.0, 4.0)}
	profile := TemperatureProfile(records)
	if len(profile) != 2 {
		t.Fatalf("expected 2 temperature bins, got %d", len(profile))
	}
	if profile[0].Temperature != 0.5 || profile[1].Temperature != 1.0 {
		t.Errorf("expected ascending temperatures, got %+v", profile)
	}
	if profile[0].MeanFreeEnergy != 1.0 || profile[0].Count != 1 {
		t.Errorf("T=0.5: expected mean 1.0 count 1, got %+v", profile[0])
	}
	if profile[1].MeanFreeEnergy != 3.0 || profile[1].Count != 2 {
		t.Errorf("T=1.0: expected mean 3.0 count 2, got %+v", profile[1])
	}
	if profile[1].StdFreeEnergy != 1.0 {
		t.Errorf("T=1.0: expected std 1.0, got %v", profile[1].StdFreeEnergy)
	}
}

// 8. Landscape over a clean linear sweep: perfect correlation.
func TestLandscape_Linear(t *testing.T) {
	records := []thermo.EnergyRecord{rec(0.5, 1.0), rec(1.0, 2.0), rec(1.5, 3.0)}
	ls, err := LandscapeOf(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ls.EnergyTempCorrelation != 1.0 {
		t.Errorf("expected correlation 1.0 on a linear sweep, got %v", ls.EnergyTempCorrelation)
	}
	if math.Abs(ls.MaxEnergyDerivative-2.0) > 1e-12 {
		t.Errorf("expected constant derivative 2.0, got %v", ls.MaxEnergyDerivative)
	}
	if ls.TransitionSharpness > 1e-12 {
		t.Errorf("expected zero sharpness on a linear sweep, got %v", ls.TransitionSharpness)
	}
}

// 9. Landscape finds the steepest segment of a kinked profile.
func TestLandscape_Transition(t *testing.T) {
	// flat from 0.5 to 1.0, then a jump to 3.0 at T=1.5
	records := []thermo.EnergyRecord{rec(0.5, 0), rec(1.0, 0), rec(1.5, 3.0)}
	ls, err := LandscapeOf(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// gradient over the binned profile: [0, 3, 6]
	if math.Abs(ls.MaxEnergyDerivative-6.0) > 1e-12 {
		t.Errorf("expected max derivative 6.0, got %v", ls.MaxEnergyDerivative)
	}
	if ls.TransitionTemperature != 1.5 {
		t.Errorf("expected transition at T=1.5, got %v", ls.TransitionTemperature)
	}
	if math.Abs(ls.TransitionSharpness-math.Sqrt(6)) > 1e-12 {
		t.Errorf("expected sharpness sqrt(6), got %v", ls.TransitionSharpness)
	}
}

// 10. Constant-temperature groups have no landscape.
func TestLandscape_Insufficient(t *testing.T) {
	if _, err := LandscapeOf(recsAt(1.0, 1.0, 1.0)); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := LandscapeOf(nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData on empty input, got %v", err)
	}
}

// helper: complete chain result with the given step phases via temperatures.
func completeChain(accepted int, temps ...float64) chain.Result {
	res := chain.Result{ChainID: "c", Accepted: accepted}
	for i, temp := range temps {
		res.Steps = append(res.Steps, chain.Step{
			Index:       i,
			Temperature: temp,
			Energy:      rec(temp, 0),
			Accepted:    i < accepted,
		})
	}
	return res
}

// 11. Summarize pools complete chains and counts failures separately.
func TestSummarize(t *testing.T) {
	chains := []chain.Result{
		completeChain(3, 2.0, 2.0, 2.0),
		completeChain(2, 2.0, 2.0, 2.0),
		{ChainID: "failed", Failed: true, Error: "oracle gave up"},
	}

	sum, err := Summarize(chains)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Chains != 3 || sum.Failed != 1 {
		t.Errorf("expected 3 chains with 1 failure, got %d/%d", sum.Chains, sum.Failed)
	}
	if sum.Steps != 6 || sum.Accepted != 5 {
		t.Errorf("expected 6 steps with 5 accepted, got %d/%d", sum.Steps, sum.Accepted)
	}
	if math.Abs(sum.AcceptanceRate-5.0/6.0) > 1e-12 {
		t.Errorf("expected acceptance rate 5/6, got %v", sum.AcceptanceRate)
	}
	if sum.Occupancy[phase.Chaotic] != 1.0 {
		t.Errorf("expected pooled chaotic occupancy 1.0, got %v", sum.Occupancy)
	}
	if sum.Dominant != phase.Chaotic || sum.Concentration != 1.0 {
		t.Errorf("expected dominant chaotic at concentration 1, got %s/%v", sum.Dominant, sum.Concentration)
	}
	if sum.MeanTransitionRate != 0 {
		t.Errorf("expected mean transition rate 0 for constant-T chains, got %v", sum.MeanTransitionRate)
	}
}

// 12. A group with only failed chains keeps its counts but reports
// insufficient data.
func TestSummarize_AllFailed(t *testing.T) {
	chains := []chain.Result{
		{ChainID: "a", Failed: true},
		{ChainID: "b", Failed: true},
	}
	sum, err := Summarize(chains)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if sum.Chains != 2 || sum.Failed != 2 {
		t.Errorf("expected counts preserved, got %+v", sum)
	}
}
