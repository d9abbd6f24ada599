package pattern

import (
	"iter"

	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

type binding struct {
	first   tree.Tree
	n       int
	anyTree bool
	bound   bool
}

// Context stores trees bound to placeholders. It is a value, copying it snapshots the bindings.
type Context struct {
	bindings [types.NumberOfTags]binding
}

// Bind binds single tree to the placeholder.
func (c *Context) Bind(tag types.Tag, t tree.Tree) {
	c.bind(tag, t, 1, false)
}

// BindRun binds n consecutive siblings starting at first to the absorbing placeholder.
func (c *Context) BindRun(tag types.Tag, first tree.Tree, n int) {
	c.bind(tag, first, n, true)
}

// Bound returns the first tree and the number of trees bound to the placeholder.
func (c Context) Bound(tag types.Tag) (tree.Tree, int, bool) {
	b := c.bindings[tag]
	return b.first, b.n, b.bound
}

// Trees iterates over trees bound to the placeholder.
func (c Context) Trees(tag types.Tag) iter.Seq[tree.Tree] {
	return func(yield func(tree.Tree) bool) {
		b := c.bindings[tag]
		if !b.bound {
			return
		}
		t := b.first
		for i := range b.n {
			if !yield(t) {
				return
			}
			if i < b.n-1 {
				t = t.NextTree()
			}
		}
	}
}

// Empty returns true if nothing is bound.
func (c Context) Empty() bool {
	for _, b := range c.bindings {
		if b.bound {
			return false
		}
	}
	return true
}

func (c *Context) bind(tag types.Tag, first tree.Tree, n int, anyTree bool) {
	c.bindings[tag] = binding{
		first:   first,
		n:       n,
		anyTree: anyTree,
		bound:   true,
	}
}

// matchContext tracks sibling lists of the variadic nodes being matched, on both source and pattern side,
// so absorbing placeholders never take trees from outside their own sibling list.
type matchContext struct {
	localSourceRoot  tree.Tree
	localSourceEnd   int
	localPatternRoot tree.Tree
	localPatternEnd  int

	globalSourceRoot  tree.Tree
	globalSourceEnd   int
	globalPatternRoot tree.Tree
	globalPatternEnd  int
}

func newMatchContext(source, pattern tree.Tree) matchContext {
	sourceEnd := source.Offset() + source.TreeSize()
	patternEnd := pattern.Offset() + pattern.TreeSize()
	return matchContext{
		localSourceRoot:   source,
		localSourceEnd:    sourceEnd,
		localPatternRoot:  pattern,
		localPatternEnd:   patternEnd,
		globalSourceRoot:  source,
		globalSourceEnd:   sourceEnd,
		globalPatternRoot: pattern,
		globalPatternEnd:  patternEnd,
	}
}

func (mc *matchContext) setLocal(source, pattern tree.Tree) {
	mc.localSourceRoot = source
	mc.localSourceEnd = source.Offset() + source.TreeSize()
	mc.localPatternRoot = pattern
	mc.localPatternEnd = pattern.Offset() + pattern.TreeSize()
}

func (mc *matchContext) setLocalToParent() {
	sourceParent, _, ok := mc.globalSourceRoot.ParentOf(mc.localSourceRoot)
	if !ok {
		panic("local source root has no parent")
	}
	patternParent, _, ok := mc.globalPatternRoot.ParentOf(mc.localPatternRoot)
	if !ok {
		panic("local pattern root has no parent")
	}
	mc.setLocal(sourceParent, patternParent)
}

// remainingLocalTrees returns the number of siblings starting at node in the local source list.
func (mc *matchContext) remainingLocalTrees(node tree.Tree) int {
	if node.Offset() == mc.localSourceEnd {
		return 0
	}
	_, position, ok := mc.localSourceRoot.ParentOf(node)
	if !ok {
		panic("node is not a child of local source root")
	}
	return mc.localSourceRoot.NumberOfChildren() - position
}
