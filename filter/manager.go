package filter

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/s0up4200/missionctl/transmission"
)

// Manager holds named filter presets and applies them to transfer lists
type Manager struct {
	compiler  Compiler
	evaluator Evaluator
	presets   map[string]CompiledFilter
	mu        sync.RWMutex
}

// ManagerOption configures a filter manager
type ManagerOption func(*Manager)

// WithCompiler sets a custom compiler
func WithCompiler(compiler Compiler) ManagerOption {
	return func(m *Manager) {
		m.compiler = compiler
	}
}

// WithEvaluator sets a custom evaluator
func WithEvaluator(evaluator Evaluator) ManagerOption {
	return func(m *Manager) {
		m.evaluator = evaluator
	}
}

// NewManager creates a new filter manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		compiler:  NewExprCompiler(WithCache(100)),
		evaluator: NewConcurrentEvaluator(),
		presets:   make(map[string]CompiledFilter),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Register compiles and stores one preset, replacing any with the same name
func (m *Manager) Register(name, expression string) error {
	filter, err := m.compiler.Compile(expression)
	if err != nil {
		return fmt.Errorf("failed to compile preset '%s': %w", name, err)
	}

	m.mu.Lock()
	m.presets[presetKey(name)] = filter
	m.mu.Unlock()

	return nil
}

// Replace swaps the whole preset set. Nothing changes unless every
// expression compiles, so a bad config reload keeps the previous presets.
func (m *Manager) Replace(presets map[string]string) error {
	compiled := make(map[string]CompiledFilter, len(presets))
	for name, expression := range presets {
		filter, err := m.compiler.Compile(expression)
		if err != nil {
			return fmt.Errorf("failed to compile preset '%s': %w", name, err)
		}
		compiled[presetKey(name)] = filter
	}

	m.mu.Lock()
	m.presets = compiled
	m.mu.Unlock()

	return nil
}

// Get returns a compiled preset by name
func (m *Manager) Get(name string) (CompiledFilter, bool) {
	m.mu.RLock()
	filter, ok := m.presets[presetKey(name)]
	m.mu.RUnlock()
	return filter, ok
}

// presetKey folds case; config keys arrive lowercased from viper
func presetKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names returns the registered preset names, sorted
func (m *Manager) Names() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.presets))
	for name := range m.presets {
		names = append(names, name)
	}
	m.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Resolve picks the filter for a listing: an explicit expression wins over a
// preset name; neither yields nil, meaning no filtering.
func (m *Manager) Resolve(expression, preset string) (CompiledFilter, error) {
	if strings.TrimSpace(expression) != "" {
		return m.compiler.Compile(expression)
	}
	if preset == "" {
		return nil, nil
	}

	filter, ok := m.Get(preset)
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownPreset, preset, strings.Join(m.Names(), ", "))
	}
	return filter, nil
}

// Apply filters torrents with f. A nil filter returns the list unchanged.
func (m *Manager) Apply(ctx context.Context, f CompiledFilter, torrents []transmission.Torrent) ([]transmission.Torrent, error) {
	if f == nil {
		return torrents, nil
	}
	return m.evaluator.Evaluate(ctx, f, torrents)
}
