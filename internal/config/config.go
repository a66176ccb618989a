// Package config loads runtime settings from the environment (.env aware)
// and experiment parameters from a JSON file, with per-key fallbacks.
package config

// #region imports
import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// #endregion

// #region env

// Env carries the oracle and storage settings read from the process
// environment.
type Env struct {
	OracleURL string  `env:"PHASEWALK_ORACLE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey    string  `env:"PHASEWALK_API_KEY"`
	Model     string  `env:"PHASEWALK_MODEL" envDefault:"gpt-4o-mini"`
	DBPath    string  `env:"PHASEWALK_DB" envDefault:"data/phasewalk.db"`
	MaxTokens int     `env:"PHASEWALK_MAX_TOKENS" envDefault:"100"`
	RPS       float64 `env:"PHASEWALK_RPS" envDefault:"2"`
}

// LoadEnv loads .env if present, then parses the environment.
func LoadEnv() (Env, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[CFG] no .env file found, using system environment variables")
	}
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Env{}, err
	}
	return e, nil
}

// Validate fails fast on settings no run could work with. The API key is
// checked at the call site instead, since offline runs do not need one.
func (e Env) Validate() error {
	if e.MaxTokens <= 0 {
		return fmt.Errorf("config: PHASEWALK_MAX_TOKENS must be positive, got %d", e.MaxTokens)
	}
	if e.RPS <= 0 {
		return fmt.Errorf("config: PHASEWALK_RPS must be positive, got %v", e.RPS)
	}
	if strings.TrimSpace(e.DBPath) == "" {
		return fmt.Errorf("config: PHASEWALK_DB must not be empty")
	}
	return nil
}

// #endregion

// #region experiment

// Experiment holds the parameters of one run, read from the "experiment"
// block of a JSON config file.
type Experiment struct {
	Name        string    `json:"name"`
	Samples     int       `json:"n_samples"`
	Steps       int       `json:"n_steps"`
	BatchSize   int       `json:"batch_size"`
	TempRange   []float64 `json:"temp_range"`
	TempPoints  int       `json:"temp_points"`
	RandomTemps bool      `json:"random_temps"`
	Prompts     []string  `json:"prompts"`
	Seed        int64     `json:"seed"`
}

type experimentFile struct {
	Experiment Experiment `json:"experiment"`
}

// DefaultExperiment is the fallback parameter set.
func DefaultExperiment() Experiment {
	return Experiment{
		Name:       "phasewalk",
		Samples:    5,
		Steps:      10,
		BatchSize:  5,
		TempRange:  []float64{0.1, 2.0},
		TempPoints: 8,
		Prompts:    []string{"Tell me about yourself"},
		Seed:       42,
	}
}

// LoadExperiment reads the parameter file at path. An empty path or a
// missing file falls back to the defaults; keys absent from the file keep
// their default values. A malformed file is an error, never a silent
// fallback.
func LoadExperiment(path string) (Experiment, error) {
	if path == "" {
		return DefaultExperiment(), nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("[CFG] no config at %s, using defaults", path)
		return DefaultExperiment(), nil
	}
	if err != nil {
		return Experiment{}, fmt.Errorf("read config %s: %w", path, err)
	}

	doc := experimentFile{Experiment: DefaultExperiment()}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Experiment{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := doc.Experiment.Validate(); err != nil {
		return Experiment{}, fmt.Errorf("config %s: %w", path, err)
	}
	return doc.Experiment, nil
}

// Validate fails fast on parameter sets no experiment could run with.
func (ex Experiment) Validate() error {
	if strings.TrimSpace(ex.Name) == "" {
		return fmt.Errorf("experiment name must not be empty")
	}
	if ex.Samples <= 0 {
		return fmt.Errorf("n_samples must be positive, got %d", ex.Samples)
	}
	if ex.Steps <= 0 {
		return fmt.Errorf("n_steps must be positive, got %d", ex.Steps)
	}
	if ex.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", ex.BatchSize)
	}
	if len(ex.TempRange) != 2 {
		return fmt.Errorf("temp_range must be [min, max], got %v", ex.TempRange)
	}
	if ex.TempRange[0] <= 0 || ex.TempRange[1] < ex.TempRange[0] {
		return fmt.Errorf("temp_range must satisfy 0 < min <= max, got %v", ex.TempRange)
	}
	if ex.TempPoints <= 0 {
		return fmt.Errorf("temp_points must be positive, got %d", ex.TempPoints)
	}
	if len(ex.Prompts) == 0 {
		return fmt.Errorf("prompts must not be empty")
	}
	for i, p := range ex.Prompts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("prompt %d is empty", i)
		}
	}
	return nil
}

// #endregion
