// Package validation walks configuration trees and dispatches each node to
// the validator registered for its exact kind.
package validation

import (
	"context"
	"sync"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/metrics"
	"github.com/rzbill/keel/pkg/secrets"
	"github.com/rzbill/keel/pkg/types"
)

// Func validates a single node.
type Func func(*Context, types.Node)

// Registry maps node kinds to validators.
type Registry struct {
	mu         sync.RWMutex
	validators map[types.Kind][]Func
	logger     log.Logger
	metrics    *metrics.Metrics
	checks     Checks
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger log.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithMetrics records problem counts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithChecks sets the external checks used by built-in validators.
func WithChecks(c Checks) Option {
	return func(r *Registry) { r.checks = c }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		validators: make(map[types.Kind][]Func),
		logger:     log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("validation")
	return r
}

// Register adds a validator for nodes of type T. Dispatch uses the exact
// kind of T; validators registered for one type never see another.
func Register[T types.Node](r *Registry, fn func(*Context, T)) {
	var zero T
	kind := zero.Kind()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[kind] = append(r.validators[kind], func(c *Context, n types.Node) {
		if typed, ok := n.(T); ok {
			fn(c, typed)
		}
	})
}

// Has reports whether any validator is registered for kind.
func (r *Registry) Has(kind types.Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.validators[kind]) > 0
}

func (r *Registry) lookup(kind types.Kind) []Func {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.validators[kind]
}

// Validate checks node and its subtree. Children are validated before
// their parent. Secret references are resolved through session, which may
// be nil when no validator needs clear values.
func (r *Registry) Validate(ctx context.Context, node types.Node, session *secrets.Session) *ProblemSet {
	problems := NewProblemSet()
	if node == nil {
		return problems
	}
	w := &walker{registry: r, ctx: ctx, session: session, problems: problems}
	w.visit(node)

	for sev, n := range problems.Counts() {
		r.metrics.RecordProblems(sev.String(), n)
	}
	r.logger.Debug("Validated subtree",
		log.Path(types.PathOf(node)),
		log.Int("problems", problems.Len()),
		log.Str("max_severity", problems.MaxSeverity().String()))
	return problems
}

type walker struct {
	registry *Registry
	ctx      context.Context
	session  *secrets.Session
	problems *ProblemSet
}

func (w *walker) visit(n types.Node) {
	for _, child := range n.Children() {
		w.visit(child)
	}

	c := &Context{
		Context:  w.ctx,
		node:     n,
		session:  w.session,
		checks:   w.registry.checks,
		problems: w.problems,
	}
	if coll, ok := n.(types.Collection); ok {
		checkUniqueNames(c, coll)
	}
	for _, fn := range w.registry.lookup(n.Kind()) {
		fn(c, n)
	}
}

func checkUniqueNames(c *Context, coll types.Collection) {
	seen := make(map[string]bool)
	for _, item := range coll.Items() {
		name := item.NodeName()
		if seen[name] {
			c.Error("duplicate name %q", name).
				WithRemediation("rename or remove one of the entries named %q", name)
			continue
		}
		seen[name] = true
	}
}
