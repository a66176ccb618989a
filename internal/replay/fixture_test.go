package replay

// #region imports
import (
	"os"
	"path/filepath"
	"testing"

	"github.com/driftlab/phasewalk/internal/thermo"
)

// #endregion

const fixtureJSON = `{
  "name": "rising_ladder",
  "seed": 42,
  "params": {"epsilon": 1e-10, "noise_scale": 0, "boltzmann": 1.0, "critical_temp": 1.0},
  "personality": {
    "goals": ["trace the shape of storms"],
    "self_image": "weather-watching system",
    "world_view": "A sky of readable patterns"
  },
  "prompt": "Tell me about yourself",
  "schedule": [0.5, 0.8, 1.5],
  "responses": [
    "the rain maps the window into rivers",
    "the rain maps the window into rivers",
    "the rain maps the window into rivers"
  ],
  "expected": [
    {"accepted": true, "phase": "coherent"},
    {"accepted": true, "phase": "semi-coherent"},
    {"accepted": true, "phase": "chaotic"}
  ]
}`

// helper: write a fixture body to a temp file.
func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// 1. A fixture file loads with every section intact.
func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture(writeFixture(t, fixtureJSON))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Name != "rising_ladder" || f.Seed != 42 {
		t.Errorf("header wrong: %s/%d", f.Name, f.Seed)
	}
	if len(f.Schedule) != 3 || f.Schedule[1] != 0.8 {
		t.Errorf("schedule wrong: %v", f.Schedule)
	}
	if len(f.Responses) != 3 || len(f.Expected) != 3 {
		t.Errorf("script wrong: %d responses, %d expected", len(f.Responses), len(f.Expected))
	}
	if f.Personality.SelfImage != "weather-watching system" {
		t.Errorf("personality wrong: %+v", f.Personality)
	}
	if !f.Expected[1].Accepted || f.Expected[1].Phase != "semi-coherent" {
		t.Errorf("expected block wrong: %+v", f.Expected[1])
	}
}

// 2. Missing files and broken JSON both surface as errors.
func TestLoadFixture_Errors(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
	if _, err := LoadFixture(writeFixture(t, "{not json")); err == nil {
		t.Error("expected an error for broken JSON")
	}
}

// 3. Zero-valued params fall back to defaults, except noise, which stays off.
func TestFixtureParams_ToParams(t *testing.T) {
	var empty FixtureParams
	got := empty.ToParams()
	want := thermo.DefaultParams()
	if got.Epsilon != want.Epsilon || got.Boltzmann != want.Boltzmann || got.CriticalTemp != want.CriticalTemp {
		t.Errorf("expected defaults for zero params, got %+v", got)
	}
	if got.NoiseScale != 0 {
		t.Errorf("replay noise must default to 0, got %v", got.NoiseScale)
	}

	custom := FixtureParams{Epsilon: 1e-6, NoiseScale: 0.2, Boltzmann: 2.0, CriticalTemp: 1.4}
	got = custom.ToParams()
	if got.Epsilon != 1e-6 || got.NoiseScale != 0.2 || got.Boltzmann != 2.0 || got.CriticalTemp != 1.4 {
		t.Errorf("explicit params must pass through, got %+v", got)
	}
}
