package replay

// #region imports
import (
	"context"
	"math/rand"
	"strconv"

	"github.com/driftlab/phasewalk/internal/chain"
	"github.com/driftlab/phasewalk/internal/oracle"
)

// #endregion

// #region types

// Mismatch describes one divergence between a replayed chain and its
// fixture's expectations.
type Mismatch struct {
	Step  int
	Field string // "accepted" | "phase" | "steps"
	Want  string
	Got   string
}

// Summary provides aggregate stats over replayed chains.
type Summary struct {
	Chains   int
	Steps    int
	Accepted int
	Rejected int
	Failed   int
}

// #endregion types

// #region replay

// Run replays the fixture's chain against its scripted responses with the
// fixture seed. The oracle never leaves the process. A partial result comes
// back with the error when the script runs out before the schedule does.
func Run(ctx context.Context, f *Fixture) (chain.Result, error) {
	sampler := chain.New(
		oracle.NewScripted(f.Responses...),
		f.Params.ToParams(),
		rand.New(rand.NewSource(f.Seed)),
	)
	return sampler.Run(ctx, chain.Config{
		Personality: f.Personality,
		Prompt:      f.Prompt,
		Schedule:    f.Schedule,
	})
}

// Compare checks the replayed result step by step against the fixture's
// expectations. An empty slice means the replay reproduced the fixture.
func Compare(res chain.Result, expected []FixtureExpected) []Mismatch {
	var out []Mismatch

	if len(res.Steps) != len(expected) {
		out = append(out, Mismatch{
			Step:  min(len(res.Steps), len(expected)),
			Field: "steps",
			Want:  strconv.Itoa(len(expected)),
			Got:   strconv.Itoa(len(res.Steps)),
		})
	}

	for i := 0; i < len(res.Steps) && i < len(expected); i++ {
		step, want := res.Steps[i], expected[i]
		if step.Accepted != want.Accepted {
			out = append(out, Mismatch{
				Step:  i,
				Field: "accepted",
				Want:  strconv.FormatBool(want.Accepted),
				Got:   strconv.FormatBool(step.Accepted),
			})
		}
		if string(step.Energy.Phase) != want.Phase {
			out = append(out, Mismatch{
				Step:  i,
				Field: "phase",
				Want:  want.Phase,
				Got:   string(step.Energy.Phase),
			})
		}
	}
	return out
}

// Summarize computes aggregate stats over replayed chains.
func Summarize(results []chain.Result) Summary {
	s := Summary{Chains: len(results)}
	for _, r := range results {
		s.Steps += len(r.Steps)
		s.Accepted += r.Accepted
		s.Rejected += len(r.Steps) - r.Accepted
		if r.Failed {
			s.Failed++
		}
	}
	return s
}

// #endregion replay
