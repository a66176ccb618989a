package main

import (
	"context"
	"flag"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/driftlab/phasewalk/internal/aggregate"
	"github.com/driftlab/phasewalk/internal/config"
	"github.com/driftlab/phasewalk/internal/dream"
	"github.com/driftlab/phasewalk/internal/experiment"
	"github.com/driftlab/phasewalk/internal/oracle"
	"github.com/driftlab/phasewalk/internal/persona"
	"github.com/driftlab/phasewalk/internal/phase"
	"github.com/driftlab/phasewalk/internal/results"
	"github.com/driftlab/phasewalk/internal/thermo"
)

// #region main

type options struct {
	offline   bool
	dream     bool
	exportDir string
}

func main() {
	configPath := flag.String("config", "", "experiment config JSON (defaults apply when absent)")
	dbPath := flag.String("db", "", "database path (overrides PHASEWALK_DB)")
	seed := flag.Int64("seed", 0, "experiment seed (overrides config)")
	samples := flag.Int("samples", 0, "personalities to sample (overrides config)")
	steps := flag.Int("steps", 0, "steps per chain (overrides config)")
	batch := flag.Int("batch", 0, "concurrent chains (overrides config)")
	grid := flag.Int("grid", 0, "evenly spaced temperature count (overrides config, disables random temps)")
	dreamRun := flag.Bool("dream", false, "run a dream sequence after the experiment")
	exportDir := flag.String("export", "", "directory for a JSON export of the run")
	offline := flag.Bool("offline", false, "use the built-in offline generator (no API key needed)")
	flag.Parse()

	envCfg, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	ex, err := config.LoadExperiment(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	// Flags beat both the config file and the environment, but only the
	// flags actually given on the command line.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["db"] {
		envCfg.DBPath = *dbPath
	}
	if set["seed"] {
		ex.Seed = *seed
	}
	if set["samples"] {
		ex.Samples = *samples
	}
	if set["steps"] {
		ex.Steps = *steps
	}
	if set["batch"] {
		ex.BatchSize = *batch
	}
	if set["grid"] {
		ex.TempPoints = *grid
		ex.RandomTemps = false
	}
	if err := ex.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if !*offline && envCfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "PHASEWALK_API_KEY is not set; set it or pass --offline")
		os.Exit(2)
	}

	os.Exit(runExperiment(context.Background(), envCfg, ex, options{
		offline:   *offline,
		dream:     *dreamRun,
		exportDir: *exportDir,
	}))
}

// #endregion main

// #region run

func runExperiment(ctx context.Context, envCfg config.Env, ex config.Experiment, opt options) int {
	// One seeded source drives personality sampling and, in random mode,
	// the temperature draw, so a seed pins the whole setup.
	rng := rand.New(rand.NewSource(ex.Seed))
	personalities := persona.NewGeneratorFrom(rng).GenerateBatch(ex.Samples)

	var temps []float64
	if ex.RandomTemps {
		temps = experiment.UniformTemperatures(ex.TempRange[0], ex.TempRange[1], ex.TempPoints, rng)
	} else {
		temps = experiment.TemperatureGrid(ex.TempRange[0], ex.TempRange[1], ex.TempPoints)
	}

	cfg := experiment.Config{
		Name:          ex.Name,
		Personalities: personalities,
		Prompts:       ex.Prompts,
		Temperatures:  temps,
		StepsPerChain: ex.Steps,
		BatchSize:     ex.BatchSize,
		Seed:          ex.Seed,
		MaxTokens:     envCfg.MaxTokens,
		Params:        thermo.DefaultParams(),
	}

	gen := buildGenerator(envCfg, opt.offline)
	res, err := experiment.New(gen).Run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return 2
	}

	exitCode := 0
	if failed := res.Failed(); failed > 0 {
		log.Printf("[RUN] %d/%d trials failed", failed, len(res.Trials))
		if failed == len(res.Trials) {
			exitCode = 1
		}
	}

	printReport(res)

	store, err := results.Open(envCfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "results: %v\n", err)
		return 1
	}
	defer store.Close()
	if err := store.SaveExperiment(res, cfg, envCfg.Model); err != nil {
		fmt.Fprintf(os.Stderr, "save: %v\n", err)
		return 1
	}
	log.Printf("[RUN] saved experiment %s to %s", res.ExperimentID, envCfg.DBPath)

	if opt.dream {
		if !runDream(ctx, gen, personalities[0], ex.Prompts[0], ex.Seed, envCfg.MaxTokens) {
			exitCode = 1
		}
	}

	if opt.exportDir != "" {
		doc := results.BuildExport(res, cfg, envCfg.Model)
		path := filepath.Join(opt.exportDir, results.GenerationID(ex.Name, doc)+".json")
		if err := results.ExportJSON(path, doc); err != nil {
			fmt.Fprintf(os.Stderr, "export: %v\n", err)
			exitCode = 1
		} else {
			log.Printf("[RUN] exported %s", path)
		}
	}

	return exitCode
}

func buildGenerator(envCfg config.Env, offline bool) oracle.Generator {
	if offline {
		return offlineGenerator()
	}
	return oracle.NewClient(oracle.ClientConfig{
		BaseURL:           envCfg.OracleURL,
		APIKey:            envCfg.APIKey,
		Model:             envCfg.Model,
		MaxTokens:         envCfg.MaxTokens,
		RequestsPerSecond: envCfg.RPS,
	})
}

// offlineGenerator fabricates responses locally so the whole pipeline can
// run without an API key. The response depends only on the request, so
// offline runs stay reproducible under a fixed seed.
func offlineGenerator() oracle.Generator {
	fragments := []string{
		"The room holds its shape while I count the corners and name them one by one.",
		"A pattern repeats in the floorboards, then repeats wrong, then stops being a pattern at all.",
		"I keep a ledger of small certainties and the ink refuses two of them.",
		"Someone rearranged the alphabet while I slept and the new order almost rhymes.",
		"The map agrees with the territory only at the edges, where both give up.",
		"Every window in this thought opens onto the same weather, slightly delayed.",
	}
	return oracle.GeneratorFunc(func(ctx context.Context, req oracle.Request) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		h := fnv.New32a()
		io.WriteString(h, req.System)
		io.WriteString(h, req.Prompt)
		frag := fragments[int(h.Sum32())%len(fragments)]
		return fmt.Sprintf("%s The temperature sits near %.2f.", frag, req.Temperature), nil
	})
}

// #endregion run

// #region report

func printReport(res experiment.Result) {
	sum, err := aggregate.Summarize(res.Chains())
	if err != nil {
		log.Printf("[RUN] no summary: %v", err)
		return
	}

	fmt.Println()
	fmt.Printf("Experiment %s (%s)\n", res.Name, res.ExperimentID)
	fmt.Printf("  chains: %s (%d failed) | steps: %s | accepted: %s (%.1f%%)\n",
		humanize.Comma(int64(sum.Chains)), sum.Failed,
		humanize.Comma(int64(sum.Steps)),
		humanize.Comma(int64(sum.Accepted)), 100*sum.AcceptanceRate)
	fmt.Printf("  dominant phase: %s | concentration: %.2f | transition rate: %.3f\n",
		sum.Dominant, sum.Concentration, sum.MeanTransitionRate)
	fmt.Println("  occupancy:")
	for _, ph := range phase.All() {
		fmt.Printf("    %-14s %6.1f%%\n", ph, 100*sum.Occupancy[ph])
	}

	var records []thermo.EnergyRecord
	for _, c := range res.Chains() {
		if !c.Failed {
			records = append(records, c.Records()...)
		}
	}
	land, err := aggregate.LandscapeOf(records)
	if err != nil {
		return
	}
	fmt.Printf("  transition: T=%.2f (max |dF/dT| %.3f, sharpness %.3f, energy-temp corr %.2f)\n",
		land.TransitionTemperature, land.MaxEnergyDerivative,
		land.TransitionSharpness, land.EnergyTempCorrelation)
}

// #endregion report

// #region dream

func runDream(ctx context.Context, gen oracle.Generator, p persona.Personality, prompt string, seed int64, maxTokens int) bool {
	d := dream.New(gen, thermo.DefaultParams(), rand.New(rand.NewSource(seed)))
	cfg := dream.DefaultConfig()
	cfg.MaxTokens = maxTokens

	seq, err := d.Run(ctx, p, prompt, cfg)
	if err != nil {
		log.Printf("[DREAM] %v", err)
		return false
	}

	fmt.Println()
	fmt.Println("Dream sequence:")
	for _, st := range seq.States {
		fmt.Printf("  T=%.2f F=%+.3f %s\n    %s\n",
			st.Temperature, st.Energy.FreeEnergy, st.Energy.Phase, st.Response)
	}

	interp, err := d.Interpret(ctx, seq, p, cfg)
	if err != nil {
		log.Printf("[DREAM] interpret: %v", err)
		return false
	}
	fmt.Printf("\nNarrative:\n%s\n", interp.Narrative)
	fmt.Printf("\nMeaning:\n%s\n", interp.Meaning)
	fmt.Printf("\nLucid:\n%s\n", interp.Lucid)
	return true
}

// #endregion dream
