// Package application holds the use cases. Each one owns its span, RED metrics and a single
// use_case_done log line.
package application

import "context"

// UseCase is the shape every command-style use case satisfies.
type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// IDGenerator hands out opaque unique identifiers.
type IDGenerator interface {
	NewID() string
}
