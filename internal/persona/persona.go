// Package persona defines the personality value record that drives oracle
// prompts, plus a seeded generator for building experiment populations.
package persona

// #region imports
import (
	"fmt"
	"strings"
)

// #endregion

// #region personality

// Personality is the fixed bundle of goals, self-image, and world-view that
// conditions every oracle call of a chain. Value semantics: samplers read it,
// nothing mutates it mid-chain.
type Personality struct {
	Goals     []string `json:"goals"`
	SelfImage string   `json:"self_image"`
	WorldView string   `json:"world_view"`
	Thoughts  []string `json:"thoughts,omitempty"`
}

// #endregion

// #region system-prompt

// SystemPrompt renders the personality as the instruction header sent with
// every sampling call. Field order is fixed so identical personalities
// produce byte-identical prompts.
func (p Personality) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("Please respond with the following personality traits in mind:\n")
	fmt.Fprintf(&b, "- goals: %s\n", strings.Join(p.Goals, "; "))
	fmt.Fprintf(&b, "- self_image: %s\n", p.SelfImage)
	fmt.Fprintf(&b, "- world_view: %s\n", p.WorldView)
	if len(p.Thoughts) > 0 {
		fmt.Fprintf(&b, "- thoughts: %s\n", strings.Join(p.Thoughts, "; "))
	}
	return b.String()
}

// #endregion

// #region dream-prompt

// DreamPrompt renders the dream-state instruction header used by the dream
// pipeline, which asks for increasingly abstract output as temperature rises.
func (p Personality) DreamPrompt(temperature float64) string {
	var b strings.Builder
	b.WriteString("You are a language model with the following personality traits:\n")
	fmt.Fprintf(&b, "Goals: %s\n", strings.Join(p.Goals, "; "))
	fmt.Fprintf(&b, "Self-image: %s\n", p.SelfImage)
	fmt.Fprintf(&b, "World-view: %s\n", p.WorldView)
	b.WriteString("\nYou are in a dream-like state. Your responses should become more abstract\n")
	b.WriteString("and free-associative as the temperature increases.\n\n")
	fmt.Fprintf(&b, "Current temperature: %g", temperature)
	return b.String()
}

// #endregion

// #region with-thought

// WithThought returns a copy with the thought appended. The receiver is
// untouched; copies never share backing arrays.
func (p Personality) WithThought(thought string) Personality {
	next := p.clone()
	next.Thoughts = append(next.Thoughts, thought)
	return next
}

func (p Personality) clone() Personality {
	return Personality{
		Goals:     append([]string(nil), p.Goals...),
		SelfImage: p.SelfImage,
		WorldView: p.WorldView,
		Thoughts:  append([]string(nil), p.Thoughts...),
	}
}

// #endregion
