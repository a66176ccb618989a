package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/driftlab/phasewalk/internal/aggregate"
	"github.com/driftlab/phasewalk/internal/config"
	"github.com/driftlab/phasewalk/internal/phase"
	"github.com/driftlab/phasewalk/internal/results"
	"github.com/driftlab/phasewalk/internal/thermo"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "database path (default PHASEWALK_DB)")
	last := flag.Int("last", 20, "show N most recent experiments")
	experimentID := flag.String("experiment", "", "show one experiment's chains")
	chainID := flag.String("chain", "", "show one chain's steps")
	jsonOut := flag.Bool("json", false, "output as JSON instead of tables")
	flag.Parse()

	if *experimentID != "" && *chainID != "" {
		fmt.Fprintln(os.Stderr, "usage: inspect [--db path] [--last N | --experiment id | --chain id] [--json]")
		os.Exit(2)
	}

	path := *dbPath
	if path == "" {
		envCfg, err := config.LoadEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
		path = envCfg.DBPath
	}

	store, err := results.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *chainID != "":
		err = runChainMode(store, *chainID, *jsonOut)
	case *experimentID != "":
		err = runExperimentMode(store, *experimentID, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type experimentRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	Age       string `json:"age,omitempty"`
	Seed      int64  `json:"seed"`
	Model     string `json:"model"`
	Chains    int    `json:"chains"`
	Failed    int    `json:"failed"`
}

func runListMode(store *results.Store, last int, jsonOut bool) error {
	rows, err := store.ListExperiments(last)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no experiments found")
		return nil
	}

	out := make([]experimentRow, len(rows))
	for i, r := range rows {
		out[i] = experimentRow{
			ID:        r.ID,
			Name:      r.Name,
			CreatedAt: r.CreatedAt,
			Seed:      r.Seed,
			Model:     r.Model,
			Chains:    r.TotalChains,
			Failed:    r.FailedChains,
		}
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			out[i].Age = humanize.Time(t)
		}
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("%-10s  %-20s  %6s  %6s  %8s  %-14s  %s\n",
		"ID", "Name", "Chains", "Failed", "Seed", "Model", "Created")
	fmt.Printf("%-10s+-%-20s+-%6s+-%6s+-%8s+-%-14s+-%s\n",
		"----------", "--------------------", "------", "------", "--------", "--------------", "--------------------")
	for _, r := range out {
		created := r.Age
		if created == "" {
			created = r.CreatedAt
		}
		fmt.Printf("%-10s  %-20s  %6d  %6d  %8d  %-14s  %s\n",
			shortID(r.ID), r.Name, r.Chains, r.Failed, r.Seed, r.Model, created)
	}
	return nil
}

// #endregion list-mode

// #region experiment-mode

type chainSummary struct {
	ID          string  `json:"id"`
	TrialKey    string  `json:"trial_key"`
	Temperature float64 `json:"temperature"`
	Steps       int     `json:"steps"`
	Accepted    int     `json:"accepted"`
	Failed      bool    `json:"failed"`
	Error       string  `json:"error,omitempty"`
}

type experimentDetail struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	CreatedAt string             `json:"created_at"`
	Seed      int64              `json:"seed"`
	Model     string             `json:"model"`
	Params    json.RawMessage    `json:"params,omitempty"`
	Chains    []chainSummary     `json:"chains"`
	Occupancy map[string]float64 `json:"occupancy,omitempty"`
}

func runExperimentMode(store *results.Store, experimentID string, jsonOut bool) error {
	exp, err := store.GetExperiment(experimentID)
	if err != nil {
		return err
	}
	chains, err := store.ListChains(experimentID)
	if err != nil {
		return err
	}

	detail := experimentDetail{
		ID:        exp.ID,
		Name:      exp.Name,
		CreatedAt: exp.CreatedAt,
		Seed:      exp.Seed,
		Model:     exp.Model,
		Chains:    make([]chainSummary, len(chains)),
	}
	if exp.ParamsJSON != "" {
		detail.Params = json.RawMessage(exp.ParamsJSON)
	}

	// Occupancy is recomputed from the stored steps rather than trusted
	// from a cached column, so it always matches what is in the database.
	var records []thermo.EnergyRecord
	for i, c := range chains {
		detail.Chains[i] = chainSummary{
			ID:          c.ID,
			TrialKey:    c.TrialKey,
			Temperature: c.Temperature,
			Steps:       c.Steps,
			Accepted:    c.Accepted,
			Failed:      c.Failed != 0,
			Error:       c.Error,
		}
		steps, err := store.ChainSteps(c.ID)
		if err != nil {
			return err
		}
		for _, s := range steps {
			records = append(records, thermo.EnergyRecord{
				Temperature: s.Temperature,
				FreeEnergy:  s.FreeEnergy,
				Phase:       phase.Phase(s.Phase),
			})
		}
	}
	if occ, err := aggregate.OccupancyOf(records); err == nil {
		detail.Occupancy = make(map[string]float64, len(occ))
		for ph, share := range occ {
			detail.Occupancy[string(ph)] = share
		}
	}

	if jsonOut {
		return printJSON(detail)
	}

	fmt.Printf("Experiment: %s\n", detail.ID)
	fmt.Printf("Name:       %s\n", detail.Name)
	fmt.Printf("Created:    %s\n", detail.CreatedAt)
	fmt.Printf("Seed:       %d\n", detail.Seed)
	fmt.Printf("Model:      %s\n", detail.Model)

	fmt.Printf("\n%-10s  %-12s  %6s  %6s  %9s  %s\n",
		"Chain", "Key", "Temp", "Steps", "Accepted", "Status")
	fmt.Printf("%-10s+-%-12s+-%6s+-%6s+-%9s+-%s\n",
		"----------", "------------", "------", "------", "---------", "------------------------------")
	for _, c := range detail.Chains {
		status := "ok"
		if c.Failed {
			status = "failed: " + preview(c.Error, 40)
		}
		fmt.Printf("%-10s  %-12s  %6.2f  %6d  %9d  %s\n",
			shortID(c.ID), c.TrialKey, c.Temperature, c.Steps, c.Accepted, status)
	}

	if detail.Occupancy != nil {
		fmt.Printf("\nPhase occupancy:\n")
		for _, ph := range phase.All() {
			fmt.Printf("  %-14s %6.1f%%\n", ph, 100*detail.Occupancy[string(ph)])
		}
	}
	return nil
}

// #endregion experiment-mode

// #region chain-mode

type stepDetail struct {
	Idx         int     `json:"idx"`
	Temperature float64 `json:"temperature"`
	Coherence   float64 `json:"coherence"`
	Entropy     float64 `json:"entropy"`
	FreeEnergy  float64 `json:"free_energy"`
	DeltaEnergy float64 `json:"delta_energy"`
	Phase       string  `json:"phase"`
	Accepted    bool    `json:"accepted"`
	AcceptProb  float64 `json:"accept_prob"`
	Response    string  `json:"response"`
}

type chainDetail struct {
	ID          string          `json:"id"`
	Experiment  string          `json:"experiment_id"`
	TrialKey    string          `json:"trial_key"`
	Prompt      string          `json:"prompt"`
	Temperature float64         `json:"temperature"`
	Personality json.RawMessage `json:"personality,omitempty"`
	Failed      bool            `json:"failed"`
	Error       string          `json:"error,omitempty"`
	Steps       []stepDetail    `json:"steps"`
}

func runChainMode(store *results.Store, chainID string, jsonOut bool) error {
	c, err := store.GetChain(chainID)
	if err != nil {
		return err
	}
	steps, err := store.ChainSteps(chainID)
	if err != nil {
		return err
	}

	detail := chainDetail{
		ID:          c.ID,
		Experiment:  c.ExperimentID,
		TrialKey:    c.TrialKey,
		Prompt:      c.Prompt,
		Temperature: c.Temperature,
		Failed:      c.Failed != 0,
		Error:       c.Error,
		Steps:       make([]stepDetail, len(steps)),
	}
	if c.PersonalityJSON != "" {
		detail.Personality = json.RawMessage(c.PersonalityJSON)
	}
	for i, s := range steps {
		detail.Steps[i] = stepDetail{
			Idx:         s.Idx,
			Temperature: s.Temperature,
			Coherence:   s.Coherence,
			Entropy:     s.Entropy,
			FreeEnergy:  s.FreeEnergy,
			DeltaEnergy: s.DeltaEnergy,
			Phase:       s.Phase,
			Accepted:    s.Accepted != 0,
			AcceptProb:  s.AcceptProb,
			Response:    s.Response,
		}
	}

	if jsonOut {
		return printJSON(detail)
	}

	fmt.Printf("Chain:       %s\n", detail.ID)
	fmt.Printf("Experiment:  %s\n", detail.Experiment)
	fmt.Printf("Key:         %s\n", detail.TrialKey)
	fmt.Printf("Temperature: %.2f\n", detail.Temperature)
	fmt.Printf("Prompt:      %s\n", preview(detail.Prompt, 60))
	if detail.Failed {
		fmt.Printf("Failed:      %s\n", detail.Error)
	}

	fmt.Printf("\n%4s  %5s  %9s  %8s  %8s  %8s  %-14s  %-4s  %6s  %s\n",
		"Step", "Temp", "Coherence", "Entropy", "Free", "Delta", "Phase", "Acc", "Prob", "Response")
	fmt.Printf("%4s+-%5s+-%9s+-%8s+-%8s+-%8s+-%-14s+-%-4s+-%6s+-%s\n",
		"----", "-----", "---------", "--------", "--------", "--------", "--------------", "----", "------", "----------------------------")
	for _, s := range detail.Steps {
		acc := "no"
		if s.Accepted {
			acc = "yes"
		}
		fmt.Printf("%4d  %5.2f  %9.4f  %8.4f  %+8.3f  %+8.3f  %-14s  %-4s  %6.3f  %s\n",
			s.Idx, s.Temperature, s.Coherence, s.Entropy, s.FreeEnergy, s.DeltaEnergy,
			s.Phase, acc, s.AcceptProb, preview(s.Response, 40))
	}
	return nil
}

// #endregion chain-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func preview(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	r := []rune(flat)
	if len(r) <= n {
		return flat
	}
	return string(r[:n]) + "..."
}

// #endregion output
