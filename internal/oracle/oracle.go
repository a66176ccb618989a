// Package oracle is the boundary to the external text-generation service.
// The sampler only ever sees this package's Generator interface: one call,
// final success or final failure, with retry/backoff and rate limiting
// handled inside the boundary.
package oracle

// #region imports
import (
	"context"
)

// #endregion

// #region request

// Request is one generation call. Temperature is passed through to the
// service's own sampling; MaxTokens 0 means the client default.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// #endregion

// #region generator

// Generator produces text for a request. Implementations must honor ctx
// cancellation; the sampler treats a returned error as final.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// #endregion
