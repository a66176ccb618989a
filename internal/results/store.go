package results

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/driftlab/phasewalk/internal/experiment"
)

// #endregion

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    created_at    TEXT NOT NULL,
    seed          INTEGER NOT NULL,
    model         TEXT NOT NULL,
    params_json   TEXT NOT NULL,
    total_chains  INTEGER NOT NULL,
    failed_chains INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chains (
    id               TEXT PRIMARY KEY,
    experiment_id    TEXT NOT NULL,
    trial_key        TEXT NOT NULL,
    personality_json TEXT NOT NULL,
    prompt           TEXT NOT NULL,
    temperature      REAL NOT NULL,
    steps            INTEGER NOT NULL,
    accepted         INTEGER NOT NULL,
    failed           INTEGER NOT NULL DEFAULT 0,
    error            TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS steps (
    chain_id     TEXT NOT NULL,
    idx          INTEGER NOT NULL,
    temperature  REAL NOT NULL,
    coherence    REAL NOT NULL,
    entropy      REAL NOT NULL,
    enthalpy     REAL NOT NULL,
    free_energy  REAL NOT NULL,
    delta_energy REAL NOT NULL,
    order_param  REAL NOT NULL,
    phase        TEXT NOT NULL,
    accepted     INTEGER NOT NULL,
    accept_prob  REAL NOT NULL,
    response     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chains_experiment ON chains(experiment_id);
CREATE INDEX IF NOT EXISTS idx_steps_chain ON steps(chain_id, idx);
`

// #endregion

// #region rows

// ExperimentRow is one stored experiment header.
type ExperimentRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	CreatedAt    string `db:"created_at"`
	Seed         int64  `db:"seed"`
	Model        string `db:"model"`
	ParamsJSON   string `db:"params_json"`
	TotalChains  int    `db:"total_chains"`
	FailedChains int    `db:"failed_chains"`
}

// ChainRow is one stored chain header.
type ChainRow struct {
	ID              string  `db:"id"`
	ExperimentID    string  `db:"experiment_id"`
	TrialKey        string  `db:"trial_key"`
	PersonalityJSON string  `db:"personality_json"`
	Prompt          string  `db:"prompt"`
	Temperature     float64 `db:"temperature"`
	Steps           int     `db:"steps"`
	Accepted        int     `db:"accepted"`
	Failed          int     `db:"failed"`
	Error           string  `db:"error"`
}

// StepRow is one stored Metropolis step with its full energy record.
type StepRow struct {
	ChainID     string  `db:"chain_id"`
	Idx         int     `db:"idx"`
	Temperature float64 `db:"temperature"`
	Coherence   float64 `db:"coherence"`
	Entropy     float64 `db:"entropy"`
	Enthalpy    float64 `db:"enthalpy"`
	FreeEnergy  float64 `db:"free_energy"`
	DeltaEnergy float64 `db:"delta_energy"`
	OrderParam  float64 `db:"order_param"`
	Phase       string  `db:"phase"`
	Accepted    int     `db:"accepted"`
	AcceptProb  float64 `db:"accept_prob"`
	Response    string  `db:"response"`
}

// #endregion

// #region store

// Store persists experiments in SQLite.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// #endregion

// #region save

// SaveExperiment writes the whole experiment in one transaction: the header
// row, one row per chain, and bulk-inserted step rows.
func (s *Store) SaveExperiment(res experiment.Result, cfg experiment.Config, model string) error {
	params, err := json.Marshal(paramsDoc(cfg))
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO experiments
		(id, name, created_at, seed, model, params_json, total_chains, failed_chains)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ExperimentID, res.Name, time.Now().UTC().Format(time.RFC3339),
		res.Seed, model, string(params), len(res.Trials), res.Failed(),
	); err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO steps
		(chain_id, idx, temperature, coherence, entropy, enthalpy, free_energy,
		 delta_energy, order_param, phase, accepted, accept_prob, response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, tr := range res.Trials {
		personality, err := json.Marshal(tr.Trial.Personality)
		if err != nil {
			return fmt.Errorf("marshal personality %s: %w", tr.Trial.Key, err)
		}

		chainID := tr.Chain.ChainID
		if chainID == "" {
			// a trial that failed before sampling still needs a row
			chainID = uuid.New().String()
		}
		failed := 0
		if tr.Chain.Failed {
			failed = 1
		}

		if _, err := tx.Exec(`INSERT INTO chains
			(id, experiment_id, trial_key, personality_json, prompt, temperature,
			 steps, accepted, failed, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			chainID, res.ExperimentID, tr.Trial.Key, string(personality),
			tr.Trial.Prompt, tr.Trial.Temperature, len(tr.Chain.Steps),
			tr.Chain.Accepted, failed, tr.Chain.Error,
		); err != nil {
			return fmt.Errorf("insert chain %s: %w", tr.Trial.Key, err)
		}

		for _, st := range tr.Chain.Steps {
			accepted := 0
			if st.Accepted {
				accepted = 1
			}
			if _, err := stmt.Exec(
				chainID, st.Index, st.Temperature,
				st.Energy.Coherence, st.Energy.Entropy, st.Energy.Enthalpy,
				st.Energy.FreeEnergy, st.Energy.DeltaEnergy, st.Energy.OrderParameter,
				string(st.Energy.Phase), accepted, st.AcceptProb, st.Candidate,
			); err != nil {
				return fmt.Errorf("insert step %s/%d: %w", tr.Trial.Key, st.Index, err)
			}
		}
	}

	return tx.Commit()
}

// #endregion

// #region queries

// ListExperiments returns the most recent experiment headers, newest first.
func (s *Store) ListExperiments(limit int) ([]ExperimentRow, error) {
	var rows []ExperimentRow
	err := s.conn.Select(&rows, `
		SELECT id, name, created_at, seed, model, params_json, total_chains, failed_chains
		FROM experiments ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	return rows, err
}

// GetExperiment returns one experiment header by ID.
func (s *Store) GetExperiment(id string) (ExperimentRow, error) {
	var row ExperimentRow
	err := s.conn.Get(&row, `
		SELECT id, name, created_at, seed, model, params_json, total_chains, failed_chains
		FROM experiments WHERE id = ?`, id)
	return row, err
}

// GetChain returns one chain header by ID.
func (s *Store) GetChain(id string) (ChainRow, error) {
	var row ChainRow
	err := s.conn.Get(&row, `
		SELECT id, experiment_id, trial_key, personality_json, prompt, temperature,
		       steps, accepted, failed, error
		FROM chains WHERE id = ?`, id)
	return row, err
}

// ListChains returns an experiment's chains in trial order.
func (s *Store) ListChains(experimentID string) ([]ChainRow, error) {
	var rows []ChainRow
	err := s.conn.Select(&rows, `
		SELECT id, experiment_id, trial_key, personality_json, prompt, temperature,
		       steps, accepted, failed, error
		FROM chains WHERE experiment_id = ? ORDER BY rowid`, experimentID)
	return rows, err
}

// ChainSteps returns a chain's steps in walk order.
func (s *Store) ChainSteps(chainID string) ([]StepRow, error) {
	var rows []StepRow
	err := s.conn.Select(&rows, `
		SELECT chain_id, idx, temperature, coherence, entropy, enthalpy, free_energy,
		       delta_energy, order_param, phase, accepted, accept_prob, response
		FROM steps WHERE chain_id = ? ORDER BY idx`, chainID)
	return rows, err
}

// #endregion
