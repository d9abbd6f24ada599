// Package nary provides operations on nodes storing their number of children in the header.
package nary

import (
	"cmp"

	"github.com/pkg/errors"

	"github.com/outofforest/sigma/k"
	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

// CompareFunc defines order of children.
type CompareFunc func(u, v tree.Tree) int

// SetNumberOfChildren updates the number of children stored in the header.
func SetNumberOfChildren(nary tree.Tree, n int) {
	t := nary.Type()
	if !t.IsNAry() {
		panic(errors.Errorf("%s is not n-ary", t))
	}
	if n < 0 || n > types.MaxChildren(t) {
		panic(errors.Errorf("%d children exceed limit of %s", n, t))
	}
	header, size := types.EncodeNumberOfChildren(t, n)
	nary.Arena().ReplaceBlocks(nary.Offset()+1, header[:size])
}

// AddChildAt moves child to the index-th position of nary and returns nary's new view.
// Child must not be stored inside nary.
func AddChildAt(nary, child tree.Tree, index int) (tree.Tree, error) {
	n := nary.NumberOfChildren()
	if n == types.MaxChildren(nary.Type()) {
		return tree.Tree{}, errors.Wrapf(types.ErrCapacityExceeded, "%s already has %d children", nary.Type(), n)
	}

	insertionPoint := nary.NextTree()
	if index < n {
		insertionPoint = nary.Child(index)
	}
	SetNumberOfChildren(nary, n+1)
	if child.Offset() < nary.Offset() {
		nary = tree.In(nary.Arena(), nary.Offset()-child.TreeSize())
	}
	insertionPoint.MoveTreeBefore(child)
	return nary, nil
}

// AddOrMergeChildAt adds child to nary. Children of the child are merged into nary if their types are the same.
func AddOrMergeChildAt(nary, child tree.Tree, index int) (tree.Tree, error) {
	if child.Type() != nary.Type() {
		return AddChildAt(nary, child, index)
	}

	n := nary.NumberOfChildren() + child.NumberOfChildren()
	if n > types.MaxChildren(nary.Type()) {
		return tree.Tree{}, errors.Wrapf(types.ErrCapacityExceeded, "merging %d children into %s", n, nary.Type())
	}
	nary, err := AddChildAt(nary, child, index)
	if err != nil {
		return tree.Tree{}, err
	}
	nary.Child(index).RemoveNode()
	SetNumberOfChildren(nary, n)
	return nary, nil
}

// DetachChildAt moves the index-th child to the end of the arena and returns it there.
func DetachChildAt(nary tree.Tree, index int) tree.Tree {
	child := nary.Child(index).DetachTree()
	SetNumberOfChildren(nary, nary.NumberOfChildren()-1)
	return child
}

// RemoveChildAt removes the index-th child.
func RemoveChildAt(nary tree.Tree, index int) {
	nary.Child(index).RemoveTree()
	SetNumberOfChildren(nary, nary.NumberOfChildren()-1)
}

// CloneSubRange pushes copy of nary containing only children in range [from, to).
func CloneSubRange(nary tree.Tree, from, to int) (tree.Tree, error) {
	a := nary.Arena()
	result, err := tree.PushNAry(a, nary.Type(), to-from)
	if err != nil {
		return tree.Tree{}, err
	}
	if to == from {
		return result, nil
	}

	start := nary.Child(from)
	end := start
	for range to - from {
		end = end.NextTree()
	}
	for child := start; child.Offset() < end.Offset(); child = child.NextTree() {
		if _, err := tree.Clone(a, child); err != nil {
			return tree.Tree{}, err
		}
	}
	return result, nil
}

// Flatten merges children of the same type as nary into it.
// types.ErrCapacityExceeded is returned and nary is left untouched if the merged children don't fit the header.
func Flatten(nary tree.Tree) (bool, error) {
	if merged := flattenedChildren(nary, nary.Type()); merged > types.MaxChildren(nary.Type()) {
		return false, errors.Wrapf(types.ErrCapacityExceeded, "flattening gives %d children to %s", merged,
			nary.Type())
	}

	n := nary.NumberOfChildren()
	var modified bool
	child := nary.NextNode()
	for i := 0; i < n; {
		if child.Type() != nary.Type() {
			child = child.NextTree()
			i++
			continue
		}
		modified = true
		n += child.NumberOfChildren() - 1
		child.RemoveNode()
	}
	if modified {
		SetNumberOfChildren(nary, n)
	}
	return modified, nil
}

func flattenedChildren(nary tree.Tree, t types.Type) int {
	var n int
	for _, child := range nary.Children() {
		if child.Type() == t {
			n += flattenedChildren(child, t)
			continue
		}
		n++
	}
	return n
}

// SquashIfUnary replaces nary with its only child.
func SquashIfUnary(nary tree.Tree) bool {
	if nary.NumberOfChildren() != 1 {
		return false
	}
	nary.MoveTreeOverTree(nary.NextNode())
	return true
}

// SquashIfEmpty replaces empty sum with 0 and empty product with 1.
func SquashIfEmpty(nary tree.Tree) (bool, error) {
	if nary.NumberOfChildren() > 0 {
		return false, nil
	}

	var neutral tree.Tree
	switch nary.Type() {
	case types.TypeAdd:
		neutral = k.Zero
	case types.TypeMult:
		neutral = k.One
	default:
		return false, nil
	}
	if _, err := nary.CloneTreeOverTree(neutral); err != nil {
		return false, err
	}
	return true, nil
}

// Sanitize flattens nary and squashes it if it has less than two children.
func Sanitize(nary tree.Tree) (bool, error) {
	flattened, err := Flatten(nary)
	if err != nil {
		return false, err
	}
	if nary.NumberOfChildren() == 0 {
		squashed, err := SquashIfEmpty(nary)
		return squashed || flattened, err
	}
	return SquashIfUnary(nary) || flattened, nil
}

// Sort orders children of nary in place. The order of equal children is preserved.
// types.ErrSort is returned if compare is not antisymmetric, children are left partially sorted then.
func Sort(nary tree.Tree, compare CompareFunc) (bool, error) {
	if compare == nil {
		compare = tree.Compare
	}

	n := nary.NumberOfChildren()
	if n < 2 {
		return false, nil
	}

	var modified bool
	first := nary.NextNode()
	child := first.NextTree()
	for range n - 1 {
		// Moving child backwards keeps the end of the sorted prefix in place.
		end := child.Offset() + child.TreeSize()
		for position := first; position.Offset() < child.Offset(); position = position.NextTree() {
			c, err := antisymmetric(compare, position, child)
			if err != nil {
				return modified, err
			}
			if c > 0 {
				position.MoveTreeBefore(child)
				modified = true
				break
			}
		}
		child = tree.In(nary.Arena(), end)
	}
	return modified, nil
}

// SortedInsertChild moves child into sorted nary keeping the order.
func SortedInsertChild(nary, child tree.Tree, compare CompareFunc) (tree.Tree, error) {
	if compare == nil {
		compare = tree.Compare
	}

	children := make([]tree.Tree, 0, nary.NumberOfChildren())
	for _, c := range nary.Children() {
		children = append(children, c)
	}
	lo, hi := 0, len(children)
	for lo < hi {
		m := (lo + hi) / 2
		if compare(children[m], child) < 0 {
			lo = m + 1
		} else {
			hi = m
		}
	}
	return AddChildAt(nary, child, lo)
}

func antisymmetric(compare CompareFunc, u, v tree.Tree) (int, error) {
	c := cmp.Compare(compare(u, v), 0)
	if r := cmp.Compare(compare(v, u), 0); r != -c {
		return 0, errors.Wrapf(types.ErrSort, "comparison of %s and %s is not antisymmetric", u.Type(), v.Type())
	}
	return c, nil
}
