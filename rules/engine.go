package rules

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/fold"
	"github.com/outofforest/sigma/pattern"
	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

// Config stores configuration of the engine.
type Config struct {
	// MaxSteps limits the number of rules applied to one tree.
	MaxSteps int

	// Fold enables constant folding of created nodes.
	Fold bool
}

// DefaultConfig is the default engine configuration.
var DefaultConfig = Config{
	MaxSteps: 1000,
	Fold:     true,
}

// Stop tells why rewriting finished.
type Stop int

// Stop reasons.
const (
	StopFixpoint Stop = iota
	StopRepeated
	StopMaxSteps
)

// String returns the name of the reason.
func (s Stop) String() string {
	switch s {
	case StopFixpoint:
		return "fixpoint"
	case StopRepeated:
		return "repeated"
	case StopMaxSteps:
		return "maxSteps"
	default:
		return "unknown"
	}
}

// Result summarizes rewriting.
type Result struct {
	Steps   int
	Applied []string
	Stop    Stop
}

// Counts returns the number of times each rule was applied.
func (r Result) Counts() map[string]int {
	return lo.CountValues(r.Applied)
}

// Engine applies rules to trees until none of them matches.
type Engine struct {
	config Config
	rules  []compiled
}

// New creates engine.
func New(config Config, rules []Rule) (*Engine, error) {
	if config.MaxSteps <= 0 {
		return nil, errors.Errorf("max steps must be positive, got %d", config.MaxSteps)
	}
	compiledRules, err := compile(rules)
	if err != nil {
		return nil, err
	}
	return &Engine{
		config: config,
		rules:  compiledRules,
	}, nil
}

// Rules returns names of rules in the order they are tried.
func (e *Engine) Rules() []string {
	return lo.Map(e.rules, func(r compiled, _ int) string { return r.name })
}

// Apply rewrites root in place. In each step the first node in pre-order matched by any rule is replaced.
// Rules are tried in the order they were defined. Rewriting stops once nothing matches, tree returns to
// the state seen before or MaxSteps rules have been applied.
// If error is returned, root holds the tree produced by the last successful step.
func (e *Engine) Apply(ctx context.Context, root tree.Tree) (tree.Tree, Result, error) {
	log := logger.Get(ctx)

	var result Result
	if e.config.Fold {
		var err error
		root, _, err = e.transform(ctx, root, 0, func(target tree.Tree, reducer pattern.Reducer) (bool, error) {
			if reducer == nil {
				return false, nil
			}
			return fold.Deep(target)
		})
		if err != nil {
			return root, result, err
		}
	}

	seen := map[uint64]struct{}{}
	for {
		if err := ctx.Err(); err != nil {
			return root, result, errors.WithStack(err)
		}

		hash := root.Hash()
		if _, exists := seen[hash]; exists {
			log.Debug("Repeated state detected", zap.Int("steps", result.Steps))
			result.Stop = StopRepeated
			return root, result, nil
		}
		seen[hash] = struct{}{}

		if result.Steps >= e.config.MaxSteps {
			log.Warn("Maximum number of steps reached", zap.Int("steps", result.Steps))
			result.Stop = StopMaxSteps
			return root, result, nil
		}

		r, node, found := e.find(root)
		if !found {
			result.Stop = StopFixpoint
			return root, result, nil
		}

		var applied bool
		var err error
		root, applied, err = e.transform(ctx, root, node.Offset()-root.Offset(),
			func(target tree.Tree, reducer pattern.Reducer) (bool, error) {
				_, ok, err := pattern.MatchReplaceReduce(target, r.pattern, r.template, reducer)
				return ok, err
			})
		if err != nil {
			return root, result, errors.Wrapf(err, "applying rule %s", r.name)
		}
		if !applied {
			return root, result, errors.Wrapf(types.ErrGeneric, "rule %s matched but was not applied", r.name)
		}

		result.Steps++
		result.Applied = append(result.Applied, r.name)
		log.Debug("Rule applied", zap.String("rule", r.name), zap.Int("step", result.Steps))
	}
}

func (e *Engine) find(root tree.Tree) (compiled, tree.Tree, bool) {
	for node := range root.SelfAndDescendants() {
		for _, r := range e.rules {
			var ctx pattern.Context
			if pattern.Match(r.pattern, node, &ctx) {
				return r, node, true
			}
		}
	}
	return compiled{}, tree.Tree{}, false
}

var errUnchanged = errors.New("tree unchanged")

// transform runs fn on a copy of root created under checkpoint and, if fn succeeds and reports change,
// moves the copy over root. Root is never left half-rewritten. fn receives the node of the copy located
// offset blocks after its root. Folding is disabled and fn retried if integer overflows.
func (e *Engine) transform(
	ctx context.Context,
	root tree.Tree,
	offset int,
	fn func(target tree.Tree, reducer pattern.Reducer) (bool, error),
) (tree.Tree, bool, error) {
	a := root.Arena()
	var reducer pattern.Reducer
	if e.config.Fold {
		reducer = fold.Reduce
	}

	var clone tree.Tree
	err := arena.Execute(ctx, a, func() error {
		var err error
		clone, err = tree.Clone(a, root)
		if err != nil {
			return err
		}
		changed, err := fn(tree.In(a, clone.Offset()+offset), reducer)
		if err != nil {
			return err
		}
		if !changed {
			return errUnchanged
		}
		return nil
	}, func(err error) bool {
		if reducer == nil || !errors.Is(err, types.ErrIntegerOverflow) {
			return false
		}
		logger.Get(ctx).Debug("Folding disabled after integer overflow", zap.Error(err))
		reducer = nil
		return true
	})
	switch {
	case errors.Is(err, errUnchanged):
		return root, false, nil
	case err != nil:
		return root, false, err
	default:
		return root.MoveTreeOverTree(clone), true, nil
	}
}
