package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/driftlab/phasewalk/internal/chain"
	"github.com/driftlab/phasewalk/internal/config"
	"github.com/driftlab/phasewalk/internal/experiment"
	"github.com/driftlab/phasewalk/internal/persona"
	"github.com/driftlab/phasewalk/internal/replay"
	"github.com/driftlab/phasewalk/internal/results"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	dbPath := flag.String("db", "", "database path (DB mode, default PHASEWALK_DB)")
	chainID := flag.String("chain", "", "stored chain to replay (DB mode)")
	jsonOut := flag.Bool("json", false, "print the comparison as JSON")
	verbose := flag.Bool("v", false, "print the replayed energy trace")
	flag.Parse()

	if (*fixturePath == "") == (*chainID == "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --chain CHAIN_ID [--db path/to/phasewalk.db]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *jsonOut, *verbose)
	} else {
		exitCode = runDBMode(*dbPath, *chainID, *jsonOut, *verbose)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string, jsonOut, verbose bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return replayAndCompare(f, jsonOut, verbose)
}

// #endregion fixture-mode

// #region db-mode

func runDBMode(dbPath, chainID string, jsonOut, verbose bool) int {
	path := dbPath
	if path == "" {
		envCfg, err := config.LoadEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		path = envCfg.DBPath
	}

	store, err := results.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	f, err := fixtureFromStore(store, chainID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rebuild chain: %v\n", err)
		return 2
	}
	return replayAndCompare(f, jsonOut, verbose)
}

// fixtureFromStore rebuilds a replayable fixture for a stored chain. The
// responses, schedule, and expected outcomes come from its step rows; the
// private seed is the experiment seed plus the chain's trial position; the
// noise scale comes from the stored params. Everything else stayed at the
// defaults when the chain first ran.
func fixtureFromStore(store *results.Store, chainID string) (*replay.Fixture, error) {
	c, err := store.GetChain(chainID)
	if err != nil {
		return nil, err
	}
	exp, err := store.GetExperiment(c.ExperimentID)
	if err != nil {
		return nil, err
	}
	steps, err := store.ChainSteps(chainID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("chain %s has no recorded steps", chainID)
	}

	siblings, err := store.ListChains(c.ExperimentID)
	if err != nil {
		return nil, err
	}
	index := -1
	for i, s := range siblings {
		if s.ID == chainID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("chain %s not listed under experiment %s", chainID, c.ExperimentID)
	}

	var p persona.Personality
	if err := json.Unmarshal([]byte(c.PersonalityJSON), &p); err != nil {
		return nil, fmt.Errorf("parse stored personality: %w", err)
	}
	var params results.Params
	if exp.ParamsJSON != "" {
		if err := json.Unmarshal([]byte(exp.ParamsJSON), &params); err != nil {
			return nil, fmt.Errorf("parse stored params: %w", err)
		}
	}

	f := &replay.Fixture{
		Name:        c.TrialKey,
		Seed:        experiment.TrialSeed(exp.Seed, index),
		Params:      replay.FixtureParams{NoiseScale: params.NoiseScale},
		Personality: p,
		Prompt:      c.Prompt,
		Schedule:    make([]float64, len(steps)),
		Responses:   make([]string, len(steps)),
		Expected:    make([]replay.FixtureExpected, len(steps)),
	}
	for i, s := range steps {
		f.Schedule[i] = s.Temperature
		f.Responses[i] = s.Response
		f.Expected[i] = replay.FixtureExpected{Accepted: s.Accepted != 0, Phase: s.Phase}
	}
	return f, nil
}

// #endregion db-mode

// #region output

func replayAndCompare(f *replay.Fixture, jsonOut, verbose bool) int {
	res, err := replay.Run(context.Background(), f)
	if err != nil && len(res.Steps) == 0 {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay stopped early: %v\n", err)
	}

	mismatches := replay.Compare(res, f.Expected)

	if verbose && !jsonOut {
		printTrace(res)
	}
	if jsonOut {
		return printJSONReport(f, res, mismatches)
	}
	return printComparison(f, res, mismatches)
}

func printComparison(f *replay.Fixture, res chain.Result, mismatches []replay.Mismatch) int {
	fmt.Printf("%-6s| %-24s| %-24s| %s\n", "Step", "Expected", "Replayed", "Match")
	fmt.Printf("%-6s+%-25s+%-25s+%s\n",
		"------", "-------------------------", "-------------------------", "------")

	total := min(len(f.Expected), len(res.Steps))
	matches := 0
	for i := 0; i < total; i++ {
		exp := stepLabel(f.Expected[i].Accepted, f.Expected[i].Phase)
		got := stepLabel(res.Steps[i].Accepted, string(res.Steps[i].Energy.Phase))
		match := "DIFF"
		if exp == got {
			match = "OK"
			matches++
		}
		fmt.Printf("%-6d| %-24s| %-24s| %s\n", i, exp, got, match)
	}
	if len(f.Expected) != len(res.Steps) {
		fmt.Printf("step count: expected %d, replayed %d\n", len(f.Expected), len(res.Steps))
	}

	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, matches, total-matches)

	if len(mismatches) > 0 {
		return 1
	}
	return 0
}

func stepLabel(accepted bool, ph string) string {
	word := "reject"
	if accepted {
		word = "accept"
	}
	return word + "/" + ph
}

func printTrace(res chain.Result) {
	fmt.Printf("%-6s %5s  %9s  %8s  %8s  %8s  %-14s  %-4s  %6s\n",
		"Step", "Temp", "Coherence", "Entropy", "Free", "Delta", "Phase", "Acc", "Prob")
	for _, st := range res.Steps {
		acc := "no"
		if st.Accepted {
			acc = "yes"
		}
		fmt.Printf("%-6d %5.2f  %9.4f  %8.4f  %+8.3f  %+8.3f  %-14s  %-4s  %6.3f\n",
			st.Index, st.Temperature, st.Energy.Coherence, st.Energy.Entropy,
			st.Energy.FreeEnergy, st.Energy.DeltaEnergy, st.Energy.Phase, acc, st.AcceptProb)
	}
	fmt.Println()
}

type jsonMismatch struct {
	Step  int    `json:"step"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

type jsonReport struct {
	Name       string         `json:"name"`
	Steps      int            `json:"steps"`
	Accepted   int            `json:"accepted"`
	Failed     bool           `json:"failed,omitempty"`
	Match      bool           `json:"match"`
	Mismatches []jsonMismatch `json:"mismatches"`
}

func printJSONReport(f *replay.Fixture, res chain.Result, mismatches []replay.Mismatch) int {
	report := jsonReport{
		Name:       f.Name,
		Steps:      len(res.Steps),
		Accepted:   res.Accepted,
		Failed:     res.Failed,
		Match:      len(mismatches) == 0,
		Mismatches: make([]jsonMismatch, len(mismatches)),
	}
	for i, m := range mismatches {
		report.Mismatches[i] = jsonMismatch{Step: m.Step, Field: m.Field, Want: m.Want, Got: m.Got}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal json: %v\n", err)
		return 2
	}
	fmt.Println(string(data))

	if !report.Match {
		return 1
	}
	return 0
}

// #endregion output
