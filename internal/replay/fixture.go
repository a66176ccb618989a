package replay

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/driftlab/phasewalk/internal/persona"
	"github.com/driftlab/phasewalk/internal/thermo"
)

// #endregion

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a fully
// scripted chain plus the per-step outcomes it must reproduce.
type Fixture struct {
	Name        string              `json:"name"`
	Seed        int64               `json:"seed"`
	Params      FixtureParams       `json:"params"`
	Personality persona.Personality `json:"personality"`
	Prompt      string              `json:"prompt"`
	Schedule    []float64           `json:"schedule"`
	Responses   []string            `json:"responses"`
	Expected    []FixtureExpected   `json:"expected"`
}

// FixtureParams mirrors thermo.Params with JSON tags. Zero values for
// epsilon, boltzmann, and critical_temp fall back to the defaults; a zero
// noise_scale is meaningful (deterministic replay) and passes through.
type FixtureParams struct {
	Epsilon      float64 `json:"epsilon"`
	NoiseScale   float64 `json:"noise_scale"`
	Boltzmann    float64 `json:"boltzmann"`
	CriticalTemp float64 `json:"critical_temp"`
}

// FixtureExpected captures the expected outcome of one step.
type FixtureExpected struct {
	Accepted bool   `json:"accepted"`
	Phase    string `json:"phase"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToParams converts FixtureParams to domain constants.
func (p *FixtureParams) ToParams() thermo.Params {
	out := thermo.DefaultParams()
	out.NoiseScale = p.NoiseScale
	if p.Epsilon > 0 {
		out.Epsilon = p.Epsilon
	}
	if p.Boltzmann > 0 {
		out.Boltzmann = p.Boltzmann
	}
	if p.CriticalTemp > 0 {
		out.CriticalTemp = p.CriticalTemp
	}
	return out
}

// #endregion fixture-loader
