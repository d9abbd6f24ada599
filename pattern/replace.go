package pattern

import (
	"github.com/pkg/errors"

	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

// MatchReplace replaces node with template if it matches pattern. The new view of node is returned.
func MatchReplace(node, pattern, template tree.Tree) (tree.Tree, bool, error) {
	return matchReplace(node, pattern, template, nil)
}

// MatchReplaceReduce works like MatchReplace but created nodes are folded by reducer.
func MatchReplaceReduce(node, pattern, template tree.Tree, reducer Reducer) (tree.Tree, bool, error) {
	return matchReplace(node, pattern, template, reducer)
}

// matchReplace moves bound trees out of node into a list at the end of the arena, overwrites node with that list,
// creates template from the list and finally moves the created tree over node.
// If error is returned after match succeeded, node holds the list of bound trees. Callers needing atomicity
// run it on a copy under arena checkpoint.
func matchReplace(node, pattern, template tree.Tree, reducer Reducer) (tree.Tree, bool, error) {
	a := node.Arena()
	var ctx Context

	// Whole node is bound, nothing has to be detached.
	if pattern.Type() == types.TypePlaceholder {
		tag, _ := pattern.Placeholder()
		ctx.Bind(tag, node)
		created, err := Create(a, template, ctx, reducer)
		if err != nil {
			return node, false, err
		}
		return node.MoveTreeOverTree(created), true, nil
	}

	if !Match(pattern, node, &ctx) {
		return node, false, nil
	}

	var handles [types.NumberOfTags]arena.Handle
	defer func() {
		for _, h := range handles {
			h.Release()
		}
	}()

	var bound int
	for tag, b := range ctx.bindings {
		if !b.bound {
			continue
		}
		bound += b.n
		offset := a.Size()
		if b.n > 0 {
			offset = b.first.Offset()
		}
		h, err := a.Reference(offset)
		if err != nil {
			return node, false, err
		}
		handles[tag] = h
	}

	list, err := tree.AppendNAry(nil, types.TypeList, bound)
	if err != nil {
		return node, false, err
	}
	if bound+len(list) > a.Available() {
		return node, false, errors.Wrapf(types.ErrCapacityExceeded, "detaching %d bound trees", bound)
	}

	// Each detached tree is replaced by 0 following node so node stays well-formed.
	zeros := make([]byte, bound)
	for i := range zeros {
		zeros[i] = byte(types.TypeZero)
	}
	if err := a.InsertBlocks(node.Offset()+node.TreeSize(), zeros, false); err != nil {
		return node, false, err
	}
	if _, err := a.Push(list); err != nil {
		return node, false, err
	}

	// Detached trees are appended after the list.
	listSize := len(list)
	for tag, b := range ctx.bindings {
		if !b.bound || b.n == 0 {
			continue
		}
		first, _ := handles[tag].Offset()
		for range b.n {
			// Next bound sibling takes the place of the detached one.
			listSize += tree.In(a, first).DetachTree().TreeSize()
		}
	}

	node = node.MoveTreeOverTree(tree.In(a, a.Size()-listSize))

	for tag, b := range ctx.bindings {
		if !b.bound {
			continue
		}
		first, ok := tree.At(handles[tag])
		if !ok {
			return node, false, errors.Wrapf(types.ErrGeneric, "bound trees of %s lost", types.Tag(tag))
		}
		ctx.bindings[tag].first = first
	}

	created, err := Create(a, template, ctx, reducer)
	if err != nil {
		return node, false, err
	}
	return node.MoveTreeOverTree(created), true, nil
}
