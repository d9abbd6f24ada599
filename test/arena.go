package test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/notation"
	"github.com/outofforest/sigma/tree"
)

// NewArena creates arena released once test finishes.
func NewArena(t testing.TB, size uint64) *arena.Arena {
	a, deallocFunc, err := arena.New(arena.Config{
		Size:          size,
		MaxReferences: arena.DefaultMaxReferences,
	})
	require.NoError(t, err)
	t.Cleanup(deallocFunc)
	return a
}

// Parse parses the expression into the arena.
func Parse(t testing.TB, a *arena.Arena, s string) tree.Tree {
	root, err := notation.Parse(a, s)
	require.NoError(t, err)
	return root
}

// Roots returns trees stored in the arena, failing the test if blocks don't form a forest.
func Roots(t testing.TB, a *arena.Arena) []tree.Tree {
	roots := []tree.Tree{}
	for offset := 0; offset < a.Size(); {
		root := tree.In(a, offset)
		offset += root.TreeSize()
		require.LessOrEqual(t, offset, a.Size(), "tree at %d exceeds the arena", root.Offset())
		roots = append(roots, root)
	}
	return roots
}
