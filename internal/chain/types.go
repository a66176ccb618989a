package chain

// #region imports
import (
	"github.com/driftlab/phasewalk/internal/persona"
	"github.com/driftlab/phasewalk/internal/thermo"
)

// #endregion

// #region config

// Config describes one chain run: a fixed personality, an opening prompt,
// and one temperature per step.
type Config struct {
	Personality persona.Personality
	Prompt      string
	Schedule    []float64
	MaxTokens   int
}

// ConstantSchedule builds a schedule holding temp for every one of steps.
func ConstantSchedule(temp float64, steps int) []float64 {
	out := make([]float64, steps)
	for i := range out {
		out[i] = temp
	}
	return out
}

// #endregion

// #region step

// Step records one Metropolis proposal. Rejected proposals keep their
// EnergyRecord and acceptance probability so acceptance-rate statistics
// stay computable; they just never enter the context.
type Step struct {
	Index       int
	Temperature float64
	Candidate   string
	Energy      thermo.EnergyRecord
	Accepted    bool
	AcceptProb  float64
}

// #endregion

// #region result

// Result is one complete trajectory. Append-only while the sampler runs,
// read-only once returned. Context holds the accepted responses in order;
// rejected candidates appear only in Steps.
type Result struct {
	ChainID     string
	Personality persona.Personality
	Prompt      string
	Steps       []Step
	Context     []string
	Accepted    int
	Failed      bool
	Error       string
}

// AcceptanceRate is accepted proposals over total proposals, 0 for an empty
// chain.
func (r Result) AcceptanceRate() float64 {
	if len(r.Steps) == 0 {
		return 0
	}
	return float64(r.Accepted) / float64(len(r.Steps))
}

// FinalResponse returns the last accepted response, or "" when nothing was
// accepted.
func (r Result) FinalResponse() string {
	if len(r.Context) == 0 {
		return ""
	}
	return r.Context[len(r.Context)-1]
}

// Records extracts every step's energy record in step order, the shape the
// aggregator consumes.
func (r Result) Records() []thermo.EnergyRecord {
	out := make([]thermo.EnergyRecord, 0, len(r.Steps))
	for _, st := range r.Steps {
		out = append(out, st.Energy)
	}
	return out
}

// #endregion
