package filter

import (
	"context"

	"github.com/s0up4200/missionctl/transmission"
)

// Filter defines the basic interface for transfer filters
type Filter interface {
	// Evaluate checks if a transfer matches the filter criteria
	Evaluate(t transmission.Torrent) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Match is Evaluate with the runtime error surfaced
	Match(t transmission.Torrent) (bool, error)

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

// Evaluator applies a filter to a transfer list, keeping list order
type Evaluator interface {
	Evaluate(ctx context.Context, filter CompiledFilter, torrents []transmission.Torrent) ([]transmission.Torrent, error)
}
