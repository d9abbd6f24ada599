// Package pattern matches trees against patterns containing placeholders and builds trees from templates.
package pattern

import (
	"github.com/pkg/errors"

	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

// Match unifies source with pattern. Bindings are stored in ctx only if match succeeds.
// Trees already bound in ctx must be matched by identical trees.
func Match(pattern, source tree.Tree, ctx *Context) bool {
	if canEarlyEscape(pattern, source) {
		return false
	}

	attempt := *ctx
	if !matchNodes(source, pattern, &attempt, newMatchContext(source, pattern)) {
		return false
	}
	*ctx = attempt
	return true
}

func matchNodes(source, pattern tree.Tree, ctx *Context, mc matchContext) bool {
	for pattern.Offset() != mc.globalPatternEnd {
		if pattern.Offset() == mc.localPatternEnd {
			// Whole local pattern matched, local source must be exhausted too.
			if source.Offset() != mc.localSourceEnd {
				return false
			}
			mc.setLocalToParent()
			continue
		}

		// Once local source is exhausted only empty placeholders may remain in pattern.
		onlyEmpty := source.Offset() == mc.localSourceEnd

		if pattern.Type() == types.TypePlaceholder {
			tag, filter := pattern.Placeholder()
			b := ctx.bindings[tag]
			switch {
			case b.bound:
				if b.anyTree != (filter != types.FilterOne) {
					panic(errors.Wrapf(types.ErrPattern, "placeholder %s used with different filters", tag))
				}
				bound := b.first
				for i := range b.n {
					if source.Offset() == mc.localSourceEnd || !bound.Identical(source) {
						return false
					}
					source = source.NextTree()
					if i < b.n-1 {
						bound = bound.NextTree()
					}
				}
			case onlyEmpty && filter != types.FilterZeroOrMore:
				return false
			case filter != types.FilterOne:
				return matchAnyTrees(tag, filter, source, pattern, ctx, mc)
			default:
				ctx.bind(tag, source, 1, false)
				source = source.NextTree()
			}
			pattern = pattern.NextNode()
			continue
		}

		if onlyEmpty {
			return false
		}

		// Absorbing placeholders live among children of simple n-ary nodes so the number of children may differ.
		naryMatch := source.Type().IsSimpleNAry() && source.Type() == pattern.Type()
		if naryMatch || source.IdenticalNode(pattern) {
			if naryMatch {
				requireSingleAbsorbing(pattern)
			}
			if source.NumberOfChildren() > 0 || pattern.NumberOfChildren() > 0 {
				mc.setLocal(source, pattern)
			}
			source = source.NextNode()
			pattern = pattern.NextNode()
			continue
		}

		if !matchSquashed(source, pattern, ctx) {
			return false
		}
		source = source.NextTree()
		pattern = pattern.NextTree()
	}
	return source.Offset() == mc.globalSourceEnd
}

// matchAnyTrees gives the placeholder a growing run of siblings until the rest of the pattern matches.
func matchAnyTrees(
	tag types.Tag,
	filter types.Filter,
	source, pattern tree.Tree,
	ctx *Context,
	mc matchContext,
) bool {
	maxTrees := mc.remainingLocalTrees(source)
	var n int
	if filter == types.FilterOneOrMore {
		n = 1
	}
	ctx.bind(tag, source, n, true)
	rest := source
	for range n {
		rest = rest.NextTree()
	}

	attempt := *ctx
	for !matchNodes(rest, pattern.NextNode(), &attempt, mc) {
		if n >= maxTrees {
			return false
		}
		rest = rest.NextTree()
		n++
		attempt = *ctx
		attempt.bindings[tag].n = n
	}
	*ctx = attempt
	return true
}

// matchSquashed matches source against sum or product pattern which reduces to a single child once its
// empty placeholders are removed. Context may be modified even if false is returned.
func matchSquashed(source, pattern tree.Tree, ctx *Context) bool {
	if !squashable(pattern.Type()) {
		return false
	}
	requireSingleAbsorbing(pattern)

	var minChildren int
	var toCheck tree.Tree
	var check bool
	var emptied [types.NumberOfTags]bool
	for _, child := range pattern.Children() {
		if child.Type() == types.TypePlaceholder {
			tag, filter := child.Placeholder()
			b := ctx.bindings[tag]
			switch {
			case b.bound:
				// Placeholder emptied here and met again can't take the source anymore.
				emptied[tag] = false
				minChildren += b.n
				if b.n > 0 {
					toCheck, check = child, true
				}
			case filter != types.FilterZeroOrMore:
				minChildren++
				ctx.bind(tag, source, 1, filter == types.FilterOneOrMore)
			default:
				ctx.bind(tag, source, 0, true)
				emptied[tag] = true
			}
		} else {
			minChildren++
			toCheck, check = child, true
		}
		if minChildren > 1 {
			return false
		}
	}

	if minChildren == 0 {
		tag := -1
		for i, e := range emptied {
			if e {
				tag = i
			}
		}
		if tag < 0 {
			// All placeholders were empty already, only the neutral element matches.
			return (pattern.Type() == types.TypeAdd && source.Type() == types.TypeZero) ||
				(pattern.Type() == types.TypeMult && source.Type() == types.TypeOne)
		}
		ctx.bind(types.Tag(tag), source, 1, true)
	}

	if !check {
		return true
	}
	return matchNodes(source, toCheck, ctx, newMatchContext(source, toCheck))
}

// requireSingleAbsorbing panics if more than one child of variadic pattern node may absorb a run of siblings.
// Greedy absorption stays linear only under this restriction.
func requireSingleAbsorbing(pattern tree.Tree) {
	if absorbingChildren(pattern) > 1 {
		panic(errors.Wrapf(types.ErrPattern, "more than one absorbing placeholder among children of %s",
			pattern.Type()))
	}
}

func absorbingChildren(pattern tree.Tree) int {
	var n int
	for _, child := range pattern.Children() {
		if child.Type() != types.TypePlaceholder {
			continue
		}
		if _, filter := child.Placeholder(); filter != types.FilterOne {
			n++
		}
	}
	return n
}

func squashable(t types.Type) bool {
	return t == types.TypeAdd || t == types.TypeMult
}

// canEarlyEscape returns true if pattern can't match source for sure.
func canEarlyEscape(pattern, source tree.Tree) bool {
	if pattern.Type() == source.Type() || pattern.Type() == types.TypePlaceholder {
		return false
	}
	if !squashable(pattern.Type()) {
		return true
	}

	// x may still match A*·B.
	var minChildren int
	for _, child := range pattern.Children() {
		if child.Type() == types.TypePlaceholder {
			if _, filter := child.Placeholder(); filter == types.FilterZeroOrMore {
				continue
			}
		}
		minChildren++
		if minChildren > 1 {
			return true
		}
	}
	return false
}
