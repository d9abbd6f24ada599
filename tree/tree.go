package tree

import (
	"bytes"
	"iter"

	"github.com/cespare/xxhash"

	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/types"
)

// Tree is a view of a node and all its descendants. It points either into the arena or into immutable blocks.
// Views into the arena are invalidated by edits, handles are used to follow trees across them.
type Tree struct {
	arena  *arena.Arena
	blocks []byte
	offset int
}

// In returns view of the tree stored in the arena at offset.
func In(a *arena.Arena, offset int) Tree {
	return Tree{arena: a, offset: offset}
}

// End returns view pointing right after the last block of the arena, where new trees are pushed.
func End(a *arena.Arena) Tree {
	return Tree{arena: a, offset: a.Size()}
}

// At returns view of the tree referenced by the handle. False is returned if tree does not exist anymore.
func At(h arena.Handle) (Tree, bool) {
	offset, ok := h.Offset()
	if !ok {
		return Tree{}, false
	}
	return In(h.Arena(), offset), true
}

// Literal returns view of the immutable tree stored in blocks.
func Literal(blocks []byte) Tree {
	return Tree{blocks: blocks}
}

// Arena returns the arena tree is stored in, nil for immutable trees.
func (t Tree) Arena() *arena.Arena {
	return t.arena
}

// Offset returns the offset of the tree.
func (t Tree) Offset() int {
	return t.offset
}

// Editable returns true if tree is stored in the arena.
func (t Tree) Editable() bool {
	return t.arena != nil
}

// Is returns true if both views point to the same place.
func (t Tree) Is(u Tree) bool {
	if t.offset != u.offset || t.arena != u.arena {
		return false
	}
	if t.arena != nil {
		return true
	}
	return len(t.blocks) == len(u.blocks) && (len(t.blocks) == 0 || &t.blocks[0] == &u.blocks[0])
}

// Reference creates handle following the tree across edits.
func (t Tree) Reference() (arena.Handle, error) {
	return t.arena.Reference(t.offset)
}

// Type returns the type of the node.
func (t Tree) Type() types.Type {
	return types.Type(t.node()[0])
}

// Value returns i-th header block of the node.
func (t Tree) Value(i int) byte {
	return t.node()[1+i]
}

// NodeSize returns the number of blocks taken by the node.
func (t Tree) NodeSize() int {
	return types.NodeSize(t.node())
}

// TreeSize returns the number of blocks taken by the node and its descendants.
func (t Tree) TreeSize() int {
	if t.arena != nil {
		return t.arena.NextTree(t.offset) - t.offset
	}
	return types.TreeSize(t.node())
}

// NumberOfChildren returns the number of children.
func (t Tree) NumberOfChildren() int {
	return types.NumberOfChildren(t.node())
}

// IsNAry returns true if number of children is stored in the node.
func (t Tree) IsNAry() bool {
	return t.Type().IsNAry()
}

// NodeBytes returns the blocks of the node.
func (t Tree) NodeBytes() []byte {
	return t.node()[:t.NodeSize()]
}

// Bytes returns the blocks of the tree.
func (t Tree) Bytes() []byte {
	return t.node()[:t.TreeSize()]
}

// NextNode returns the node following this one, which is its first child if there is any.
func (t Tree) NextNode() Tree {
	t.offset += t.NodeSize()
	return t
}

// NextTree returns the tree following this one.
func (t Tree) NextTree() Tree {
	t.offset += t.TreeSize()
	return t
}

// Child returns i-th child.
func (t Tree) Child(i int) Tree {
	child := t.NextNode()
	for ; i > 0; i-- {
		child = child.NextTree()
	}
	return child
}

// Children iterates over children. Tree must not be edited during iteration.
func (t Tree) Children() iter.Seq2[int, Tree] {
	return func(yield func(int, Tree) bool) {
		n := t.NumberOfChildren()
		child := t.NextNode()
		for i := range n {
			if !yield(i, child) {
				return
			}
			if i < n-1 {
				child = child.NextTree()
			}
		}
	}
}

// Descendants iterates over descendants in pre-order, the tree itself excluded.
func (t Tree) Descendants() iter.Seq[Tree] {
	return func(yield func(Tree) bool) {
		end := t.offset + t.TreeSize()
		for node := t.NextNode(); node.offset < end; node = node.NextNode() {
			if !yield(node) {
				return
			}
		}
	}
}

// SelfAndDescendants iterates over the tree and its descendants in pre-order.
func (t Tree) SelfAndDescendants() iter.Seq[Tree] {
	return func(yield func(Tree) bool) {
		if !yield(t) {
			return
		}
		for node := range t.Descendants() {
			if !yield(node) {
				return
			}
		}
	}
}

// NumberOfDescendants returns the number of nodes in the tree.
func (t Tree) NumberOfDescendants(includeSelf bool) int {
	var n int
	if includeSelf {
		n++
	}
	for range t.Descendants() {
		n++
	}
	return n
}

// IdenticalNode returns true if nodes have the same blocks.
func (t Tree) IdenticalNode(u Tree) bool {
	return bytes.Equal(t.NodeBytes(), u.NodeBytes())
}

// Identical returns true if trees have the same blocks.
func (t Tree) Identical(u Tree) bool {
	return bytes.Equal(t.Bytes(), u.Bytes())
}

// Hash returns hash of the tree content.
func (t Tree) Hash() uint64 {
	return xxhash.Sum64(t.Bytes())
}

// IndexOfChild returns the position of child, -1 if it is not a child of the tree.
func (t Tree) IndexOfChild(child Tree) int {
	for i, c := range t.Children() {
		if c.offset == child.offset {
			return i
		}
	}
	return -1
}

// HasAncestor returns true if tree is a descendant of node.
func (t Tree) HasAncestor(node Tree, includeSelf bool) bool {
	if t.offset < node.offset {
		return false
	}
	if t.offset == node.offset {
		return includeSelf
	}
	return t.offset < node.offset+node.TreeSize()
}

// ParentOf finds the parent of descendant and its position among parent's children by scanning down from the tree.
func (t Tree) ParentOf(descendant Tree) (Tree, int, bool) {
	if descendant.offset < t.offset {
		return Tree{}, 0, false
	}

	var parent Tree
	var hasParent bool
	var position int
	node := t
	for {
		next := node.offset + node.TreeSize()
		if descendant.offset >= next {
			if !hasParent {
				return Tree{}, 0, false
			}
			position++
			node.offset = next
			continue
		}
		if descendant.offset == node.offset {
			return parent, position, hasParent
		}
		parent, hasParent = node, true
		position = 0
		node = node.NextNode()
	}
}

// CommonAncestor finds the deepest tree containing both u and v by scanning down from the tree.
func (t Tree) CommonAncestor(u, v Tree) (Tree, bool) {
	if u.offset > v.offset {
		u, v = v, u
	}
	if u.offset < t.offset {
		return Tree{}, false
	}

	var parent Tree
	var hasParent bool
	node := t
	for {
		next := node.offset + node.TreeSize()
		if u.offset >= next {
			if !hasParent {
				return Tree{}, false
			}
			node.offset = next
			continue
		}
		if v.offset >= next {
			return parent, hasParent
		}
		if u.offset == node.offset {
			return node, true
		}
		parent, hasParent = node, true
		node = node.NextNode()
	}
}

func (t Tree) data() []byte {
	if t.arena != nil {
		return t.arena.Blocks()
	}
	return t.blocks
}

func (t Tree) node() []byte {
	return t.data()[t.offset:]
}
