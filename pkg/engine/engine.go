// Package engine is the boundary to the analysis engine collaborator. The
// engine is opaque: given a symbol and a date it produces a decision string,
// or raises an error with a human-readable message. Nothing here inspects
// the decision beyond carrying it to the result store.
package engine

import (
	"context"
)

// Request is the Resolved Request: the fully defaulted tuple actually sent
// to the engine for one invocation.
type Request struct {
	Symbol string
	Date   string

	// Provider configuration, resolved once at runner start.
	Provider        string
	BackendURL      string
	DeepThinkModel  string
	QuickThinkModel string
	MaxDebateRounds int
	OnlineTools     bool
}

// Engine performs one synchronous analysis. Implementations block until the
// decision is available or the invocation fails.
type Engine interface {
	Propagate(ctx context.Context, req Request) (decision string, err error)
}
