package oracle

// #region imports
import (
	"context"
	"errors"
	"sync"
)

// #endregion

// #region errors

// ErrScriptExhausted is returned once a Scripted oracle has served every
// canned response.
var ErrScriptExhausted = errors.New("oracle: scripted responses exhausted")

// #endregion

// #region scripted

// Scripted serves a fixed response list in order. It backs replay fixtures
// and tests: no network, fully deterministic, safe for concurrent use.
type Scripted struct {
	mu        sync.Mutex
	responses []string
	next      int
}

// NewScripted builds a scripted oracle over the given responses.
func NewScripted(responses ...string) *Scripted {
	return &Scripted{responses: responses}
}

// Generate returns the next canned response, ErrScriptExhausted past the
// end. The request content is ignored; only call order matters.
func (s *Scripted) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.responses) {
		return "", ErrScriptExhausted
	}
	out := s.responses[s.next]
	s.next++
	return out, nil
}

// Served reports how many responses have been handed out.
func (s *Scripted) Served() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// #endregion
