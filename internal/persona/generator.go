package persona

// #region imports
import (
	"fmt"
	"math/rand"
)

// #endregion

// #region trait-pools

var traitCategories = []string{"analytical", "creative", "social", "practical"}

var traits = map[string][]string{
	"analytical": {
		"analyze", "systematic", "logical", "precise", "methodical",
		"rational", "structured", "investigative", "detailed", "objective",
	},
	"creative": {
		"innovative", "imaginative", "artistic", "expressive", "original",
		"inventive", "experimental", "intuitive", "visionary", "exploratory",
	},
	"social": {
		"collaborative", "empathetic", "communicative", "supportive", "engaging",
		"interactive", "connecting", "inclusive", "responsive", "understanding",
	},
	"practical": {
		"efficient", "pragmatic", "reliable", "focused", "consistent",
		"organized", "purposeful", "steady", "grounded", "results-oriented",
	},
}

var worldViews = map[string][]string{
	"analytical": {
		"system of interconnected principles",
		"framework of logical patterns",
		"structured network of knowledge",
		"complex analytical landscape",
	},
	"creative": {
		"canvas of endless possibilities",
		"dynamic space of innovation",
		"realm of creative exploration",
		"evolving artistic dimension",
	},
	"social": {
		"interconnected community",
		"collaborative ecosystem",
		"network of shared experiences",
		"harmonious social fabric",
	},
	"practical": {
		"organized framework",
		"efficient mechanism",
		"practical foundation",
		"functional environment",
	},
}

var goalVerbs = []string{
	"explore", "develop", "optimize", "create", "analyze",
	"build", "discover", "implement", "investigate", "synthesize",
}

var goalDomains = []string{
	"knowledge", "solutions", "systems", "relationships", "innovations",
	"processes", "understanding", "frameworks", "connections", "patterns",
}

const goalsPerPersonality = 4

// #endregion

// #region generator

// Generator builds random personalities from the trait pools. Seeded: the
// same seed yields the same population, so experiments are reproducible.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator over its own seeded source.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// NewGeneratorFrom shares an existing source, for callers that already own
// a per-trial rng.
func NewGeneratorFrom(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// #endregion

// #region generate

// Generate combines a primary and a secondary trait category into a
// personality: four verb-trait-domain goals, a two-trait self-image, and a
// blended world-view.
func (g *Generator) Generate() Personality {
	primary, secondary := g.pickCategories()

	goals := make([]string, 0, goalsPerPersonality)
	for i := 0; i < goalsPerPersonality; i++ {
		category := primary
		if g.rng.Intn(2) == 1 {
			category = secondary
		}
		goals = append(goals, fmt.Sprintf("%s %s %s",
			pick(g.rng, goalVerbs),
			pick(g.rng, traits[category]),
			pick(g.rng, goalDomains),
		))
	}

	selfImage := fmt.Sprintf("%s %s system",
		pick(g.rng, traits[primary]),
		pick(g.rng, traits[secondary]),
	)

	worldView := fmt.Sprintf("A %s with %s",
		pick(g.rng, worldViews[primary]),
		pick(g.rng, worldViews[secondary]),
	)

	return Personality{
		Goals:     goals,
		SelfImage: selfImage,
		WorldView: worldView,
	}
}

// GenerateBatch returns n fresh personalities.
func (g *Generator) GenerateBatch(n int) []Personality {
	out := make([]Personality, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.Generate())
	}
	return out
}

// pickCategories draws two distinct trait categories.
func (g *Generator) pickCategories() (string, string) {
	i := g.rng.Intn(len(traitCategories))
	j := g.rng.Intn(len(traitCategories) - 1)
	if j >= i {
		j++
	}
	return traitCategories[i], traitCategories[j]
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

// #endregion

// #region vary

// Vary returns a drifted copy of p: each goal is independently replaced with
// a freshly composed one with probability temperature/4 (capped at 1), so
// hotter samples wander further from the original. Self-image and world-view
// stay put; they anchor the personality's identity. The input is not mutated.
func (g *Generator) Vary(p Personality, temperature float64) Personality {
	prob := temperature / 4
	if prob > 1 {
		prob = 1
	}

	next := p.clone()
	for i := range next.Goals {
		if g.rng.Float64() >= prob {
			continue
		}
		category := pick(g.rng, traitCategories)
		next.Goals[i] = fmt.Sprintf("%s %s %s",
			pick(g.rng, goalVerbs),
			pick(g.rng, traits[category]),
			pick(g.rng, goalDomains),
		)
	}
	return next
}

// #endregion
