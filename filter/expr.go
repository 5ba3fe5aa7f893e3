package filter

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/missionctl/transmission"
)

const (
	mebibyte = 1 << 20
	gibibyte = 1 << 30
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// exprCompiler implements CachingCompiler for expr-based filters
type exprCompiler struct {
	cache *lruCache
}

// Compile compiles an expression into an executable filter. Field names are
// checked at compile time against the transfer environment.
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(newEnvironment(transmission.Torrent{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate reports whether the transfer matches. Runtime errors count as no match.
func (f *exprFilter) Evaluate(t transmission.Torrent) bool {
	ok, err := f.Match(t)
	return err == nil && ok
}

// Match evaluates the filter against a transfer
func (f *exprFilter) Match(t transmission.Torrent) (bool, error) {
	result, err := expr.Run(f.program, newEnvironment(t))
	if err != nil {
		return false, &EvaluationError{
			Expression:  f.expression,
			TorrentID:   t.ID,
			TorrentName: t.Name,
			Err:         err,
		}
	}

	// AsBool guarantees the type
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// newEnvironment exposes a transfer's fields and the helper functions.
// The zero transfer doubles as the type environment for compilation.
func newEnvironment(t transmission.Torrent) map[string]any {
	env := make(map[string]any, 24)
	addHelperFunctions(env)

	env["ID"] = t.ID
	env["Name"] = t.Name
	env["TotalSize"] = t.TotalSize
	env["PercentDone"] = t.PercentDone
	env["Status"] = t.Status.String()
	env["StatusCode"] = int(t.Status)
	env["PeersSendingToUs"] = t.PeersSendingToUs
	env["PeersConnected"] = t.PeersConnected
	env["Done"] = t.IsDone()
	env["Stopped"] = t.IsStopped()
	env["DownloadDir"] = t.DownloadDir
	env["RateDownload"] = t.RateDownload
	env["RateUpload"] = t.RateUpload
	env["HasError"] = t.Error != 0
	env["ErrorString"] = t.ErrorString

	return env
}

// addHelperFunctions adds the helper functions to env.
// lower and upper are expr builtins and need no entry.
func addHelperFunctions(env map[string]any) {
	// Case-insensitive string helpers; the bare contains/startsWith/endsWith
	// operators of expr stay case-sensitive.
	env["icontains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["hasPrefix"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["hasSuffix"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}

	// status("seeding") yields the numeric code compared against StatusCode, -1 if unknown
	env["status"] = func(name string) int {
		s, ok := transmission.ParseStatus(strings.ToLower(name))
		if !ok {
			return -1
		}
		return int(s)
	}

	// Size helpers
	env["gib"] = func(n float64) float64 {
		return n * gibibyte
	}
	env["mib"] = func(n float64) float64 {
		return n * mebibyte
	}
}
