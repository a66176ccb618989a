package results

// #region imports
import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/driftlab/phasewalk/internal/experiment"
	"github.com/driftlab/phasewalk/internal/persona"
	"github.com/driftlab/phasewalk/internal/phase"
)

// #endregion

// #region params

// Params mirrors the parameter block stored with each experiment header and
// embedded in export metadata.
type Params struct {
	Samples      int       `json:"n_samples"`
	Steps        int       `json:"n_steps"`
	BatchSize    int       `json:"batch_size"`
	Temperatures []float64 `json:"temperatures"`
	Seed         int64     `json:"seed"`
	MaxTokens    int       `json:"max_tokens"`
	NoiseScale   float64   `json:"noise_scale"`
}

func paramsDoc(cfg experiment.Config) Params {
	return Params{
		Samples:      len(cfg.Personalities),
		Steps:        cfg.StepsPerChain,
		BatchSize:    cfg.BatchSize,
		Temperatures: cfg.Temperatures,
		Seed:         cfg.Seed,
		MaxTokens:    cfg.MaxTokens,
		NoiseScale:   cfg.Params.NoiseScale,
	}
}

// #endregion

// #region generation-id

// GenerationID builds a content-hashed export identifier:
// name_YYYYMMDD_HHMMSS_ plus the first 8 hex digits of the payload's MD5.
func GenerationID(name string, payload any) string {
	raw, _ := json.Marshal(payload)
	sum := md5.Sum(raw)
	return fmt.Sprintf("%s_%s_%x", name, time.Now().Format("20060102_150405"), sum[:4])
}

// #endregion

// #region export

// ExportMeta heads an export document.
type ExportMeta struct {
	ExperimentID string `json:"experiment_id"`
	Timestamp    string `json:"timestamp"`
	Parameters   Params `json:"parameters"`
	Model        string `json:"model"`
}

// ExportState is one sampled state in an export document.
type ExportState struct {
	Temperature float64             `json:"temperature"`
	Energy      float64             `json:"energy"`
	Entropy     float64             `json:"entropy"`
	Enthalpy    float64             `json:"enthalpy"`
	Coherence   float64             `json:"coherence"`
	Personality persona.Personality `json:"personality"`
	Phase       phase.Phase         `json:"phase"`
	Response    string              `json:"response"`
}

// ExportDoc is the {metadata, states} document consumed by downstream
// analysis tooling.
type ExportDoc struct {
	Metadata ExportMeta    `json:"metadata"`
	States   []ExportState `json:"states"`
}

// BuildExport flattens every recorded step into an export document. Partial
// chains contribute the steps they completed before failing.
func BuildExport(res experiment.Result, cfg experiment.Config, model string) ExportDoc {
	doc := ExportDoc{
		Metadata: ExportMeta{
			ExperimentID: res.ExperimentID,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Parameters:   paramsDoc(cfg),
			Model:        model,
		},
	}
	for _, tr := range res.Trials {
		for _, st := range tr.Chain.Steps {
			doc.States = append(doc.States, ExportState{
				Temperature: st.Temperature,
				Energy:      st.Energy.FreeEnergy,
				Entropy:     st.Energy.Entropy,
				Enthalpy:    st.Energy.Enthalpy,
				Coherence:   st.Energy.Coherence,
				Personality: tr.Trial.Personality,
				Phase:       st.Energy.Phase,
				Response:    st.Candidate,
			})
		}
	}
	return doc
}

// ExportJSON writes doc to path, pretty-printed, creating parent
// directories as needed.
func ExportJSON(path string, doc ExportDoc) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// #endregion
