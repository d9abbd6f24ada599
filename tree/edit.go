package tree

import (
	"github.com/pkg/errors"

	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/types"
)

// Clone copies the tree to the end of the arena.
func Clone(a *arena.Arena, src Tree) (Tree, error) {
	return End(a).cloneAt(src, true, true, true)
}

// CloneNode copies the node without its children to the end of the arena.
func CloneNode(a *arena.Arena, src Tree) (Tree, error) {
	return End(a).cloneAt(src, true, false, true)
}

// CloneNodeBefore inserts copy of the src node before the tree.
func (t Tree) CloneNodeBefore(src Tree) (Tree, error) {
	return t.cloneAt(src, true, false, false)
}

// CloneTreeBefore inserts copy of the src tree before the tree.
func (t Tree) CloneTreeBefore(src Tree) (Tree, error) {
	return t.cloneAt(src, true, true, false)
}

// CloneNodeAt inserts copy of the src node at the position of the tree, references to the tree are moved to the copy.
func (t Tree) CloneNodeAt(src Tree) (Tree, error) {
	return t.cloneAt(src, true, false, true)
}

// CloneTreeAt inserts copy of the src tree at the position of the tree, references to the tree are moved to the copy.
func (t Tree) CloneTreeAt(src Tree) (Tree, error) {
	return t.cloneAt(src, true, true, true)
}

// CloneNodeAfter inserts copy of the src node right after the header of the tree.
func (t Tree) CloneNodeAfter(src Tree) (Tree, error) {
	return t.cloneAt(src, false, false, false)
}

// CloneTreeAfter inserts copy of the src tree right after the header of the tree.
func (t Tree) CloneTreeAfter(src Tree) (Tree, error) {
	return t.cloneAt(src, false, true, false)
}

// MoveNodeBefore moves the src node before the tree.
func (t Tree) MoveNodeBefore(src Tree) Tree {
	return t.moveAt(src, true, false, false)
}

// MoveTreeBefore moves the src tree before the tree.
func (t Tree) MoveTreeBefore(src Tree) Tree {
	return t.moveAt(src, true, true, false)
}

// MoveNodeAt moves the src node to the position of the tree, references to the tree are moved to it.
func (t Tree) MoveNodeAt(src Tree) Tree {
	return t.moveAt(src, true, false, true)
}

// MoveTreeAt moves the src tree to the position of the tree, references to the tree are moved to it.
func (t Tree) MoveTreeAt(src Tree) Tree {
	return t.moveAt(src, true, true, true)
}

// MoveNodeAfter moves the src node right after the header of the tree.
func (t Tree) MoveNodeAfter(src Tree) Tree {
	return t.moveAt(src, false, false, false)
}

// MoveTreeAfter moves the src tree right after the header of the tree.
func (t Tree) MoveTreeAfter(src Tree) Tree {
	return t.moveAt(src, false, true, false)
}

// CloneNodeOverNode replaces the node with copy of the src node.
func (t Tree) CloneNodeOverNode(src Tree) (Tree, error) {
	return t.cloneOver(src, false, false)
}

// CloneTreeOverNode replaces the node with copy of the src tree.
func (t Tree) CloneTreeOverNode(src Tree) (Tree, error) {
	return t.cloneOver(src, false, true)
}

// CloneNodeOverTree replaces the tree with copy of the src node.
func (t Tree) CloneNodeOverTree(src Tree) (Tree, error) {
	return t.cloneOver(src, true, false)
}

// CloneTreeOverTree replaces the tree with copy of the src tree.
func (t Tree) CloneTreeOverTree(src Tree) (Tree, error) {
	return t.cloneOver(src, true, true)
}

// MoveNodeOverNode replaces the node with the src node.
func (t Tree) MoveNodeOverNode(src Tree) Tree {
	return t.moveOver(src, false, false)
}

// MoveTreeOverNode replaces the node with the src tree.
func (t Tree) MoveTreeOverNode(src Tree) Tree {
	return t.moveOver(src, false, true)
}

// MoveNodeOverTree replaces the tree with the src node.
func (t Tree) MoveNodeOverTree(src Tree) Tree {
	return t.moveOver(src, true, false)
}

// MoveTreeOverTree replaces the tree with the src tree.
func (t Tree) MoveTreeOverTree(src Tree) Tree {
	return t.moveOver(src, true, true)
}

// RemoveNode removes the node keeping its children in place.
func (t Tree) RemoveNode() {
	t.arena.RemoveBlocks(t.offset, t.NodeSize())
}

// RemoveTree removes the tree.
func (t Tree) RemoveTree() {
	t.arena.RemoveBlocks(t.offset, t.TreeSize())
}

// DetachNode moves the node to the end of the arena and returns it there.
func (t Tree) DetachNode() Tree {
	return t.detach(false)
}

// DetachTree moves the tree to the end of the arena and returns it there.
func (t Tree) DetachTree() Tree {
	return t.detach(true)
}

// SwapWith exchanges two disjoint trees.
func (t Tree) SwapWith(v Tree) {
	if t.offset > v.offset {
		v.SwapWith(t)
		return
	}
	if v.HasAncestor(t, true) {
		panic("swapped trees must be disjoint")
	}

	first := t.offset
	v.MoveTreeBefore(t)
	// v did not move because t was moved from its left side.
	In(t.arena, first).MoveTreeBefore(v)
}

// SetValue overwrites i-th header block of the node.
func (t Tree) SetValue(i int, v byte) {
	t.arena.ReplaceBlocks(t.offset+1+i, []byte{v})
}

// ReplaceWith replaces the tree with replacement if it is identical to target.
func (t Tree) ReplaceWith(target, replacement Tree) (bool, error) {
	if !t.Identical(target) {
		return false, nil
	}
	_, err := t.CloneTreeOverTree(replacement)
	return err == nil, err
}

// DeepReplaceWith replaces every occurrence of target inside the tree with replacement.
// Target and replacement must not be stored inside the tree.
func (t Tree) DeepReplaceWith(target, replacement Tree) (bool, error) {
	var changed bool
	end, err := t.arena.Reference(t.offset + t.TreeSize())
	if err != nil {
		return false, err
	}
	defer end.Release()

	node := t
	for {
		endOffset, _ := end.Offset()
		if node.offset >= endOffset {
			return changed, nil
		}
		replaced, err := node.ReplaceWith(target, replacement)
		if err != nil {
			return changed, err
		}
		if replaced {
			changed = true
			node = node.NextTree()
			continue
		}
		node = node.NextNode()
	}
}

func (t Tree) cloneAt(src Tree, before, isTree, at bool) (Tree, error) {
	dest := t.offset
	if !before {
		dest += t.NodeSize()
	}
	n := src.size(isTree)
	if err := insert(t.arena, dest, src, 0, n, at); err != nil {
		return Tree{}, err
	}
	return In(t.arena, dest), nil
}

func (t Tree) moveAt(src Tree, before, isTree, at bool) Tree {
	dest := t.offset
	if !before {
		dest += t.NodeSize()
	}
	n := src.size(isTree)
	t.arena.MoveBlocks(dest, src.offset, n, at)
	if dest > src.offset {
		return In(t.arena, dest-n)
	}
	return In(t.arena, dest)
}

func (t Tree) cloneOver(src Tree, oldIsTree, newIsTree bool) (Tree, error) {
	oldSize := t.size(oldIsTree)
	newSize := src.size(newIsTree)
	if t.Is(src) && oldSize == newSize {
		return t, nil
	}

	// Source starting before the replaced blocks and running into them is copied in two steps: its head is
	// inserted in front of the replaced blocks, then the rest of it starts exactly where they do.
	var head int
	if src.arena == t.arena && src.offset < t.offset && t.offset < src.offset+newSize {
		head = t.offset - src.offset
	}
	if grow := head + max(0, newSize-head-oldSize); grow > t.arena.Available() {
		return Tree{}, errors.Wrapf(types.ErrCapacityExceeded, "replacing %d blocks with %d blocks", oldSize, newSize)
	}

	dest := t.offset
	if head > 0 {
		if err := t.arena.InsertFrom(dest, src.offset, head, false); err != nil {
			return Tree{}, err
		}
		dest += head
		newSize -= head
		src = In(t.arena, dest)
	}

	minSize := min(oldSize, newSize)
	if src.arena == t.arena {
		t.arena.ReplaceFrom(dest, src.offset, minSize)
	} else {
		t.arena.ReplaceBlocks(dest, src.node()[:minSize])
	}
	switch {
	case oldSize > newSize:
		t.arena.RemoveBlocks(dest+minSize, oldSize-newSize)
	case newSize > oldSize:
		if err := insert(t.arena, dest+minSize, src, minSize, newSize-oldSize, false); err != nil {
			return Tree{}, err
		}
	}
	return t, nil
}

func (t Tree) moveOver(src Tree, oldIsTree, newIsTree bool) Tree {
	oldSize := t.size(oldIsTree)
	newSize := src.size(newIsTree)
	if t.offset == src.offset && oldSize == newSize {
		return t
	}
	if newIsTree && t.HasAncestor(src, true) {
		panic("tree can't be moved over its own descendant")
	}
	if oldIsTree && src.HasAncestor(t, true) {
		// src is taken out of the replaced tree before it is removed.
		oldSize -= newSize
	}

	final := t.offset
	t.arena.MoveBlocks(t.offset, src.offset, newSize, false)
	if t.offset > src.offset {
		final -= newSize
	}
	t.arena.RemoveBlocks(final+newSize, oldSize)
	return In(t.arena, final)
}

func (t Tree) detach(isTree bool) Tree {
	n := t.size(isTree)
	dest := t.arena.Size()
	t.arena.MoveBlocks(dest, t.offset, n, true)
	return In(t.arena, dest-n)
}

func (t Tree) size(isTree bool) int {
	if isTree {
		return t.TreeSize()
	}
	return t.NodeSize()
}

// insert copies n blocks of src starting at its skip-th block into the arena at dest.
func insert(a *arena.Arena, dest int, src Tree, skip, n int, at bool) error {
	if src.arena == a {
		return a.InsertFrom(dest, src.offset+skip, n, at)
	}
	return a.InsertBlocks(dest, src.node()[skip:skip+n], at)
}
