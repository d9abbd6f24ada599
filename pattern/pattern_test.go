package pattern_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/fold"
	"github.com/outofforest/sigma/k"
	"github.com/outofforest/sigma/pattern"
	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

func newArena(t *testing.T, size uint64) *arena.Arena {
	a, deallocFunc, err := arena.New(arena.Config{
		Size:          size,
		MaxReferences: 32,
	})
	require.NoError(t, err)
	t.Cleanup(deallocFunc)
	return a
}

func clone(t *testing.T, a *arena.Arena, src tree.Tree) tree.Tree {
	c, err := tree.Clone(a, src)
	require.NoError(t, err)
	return c
}

func bound(t *testing.T, ctx pattern.Context, tag types.Tag) []tree.Tree {
	_, n, ok := ctx.Bound(tag)
	require.True(t, ok)
	var trees []tree.Tree
	for tr := range ctx.Trees(tag) {
		trees = append(trees, tr)
	}
	require.Len(t, trees, n)
	return trees
}

func requireIdentical(t *testing.T, expected []tree.Tree, actual []tree.Tree) {
	require.Len(t, actual, len(expected))
	for i := range expected {
		require.True(t, expected[i].Identical(actual[i]), "tree %d differs", i)
	}
}

func TestMatchBindsWholeOperands(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	// 2*(3+4)
	root := clone(t, a, k.Mult(k.Int(2), k.Add(k.Int(3), k.Int(4))))

	var ctx pattern.Context
	requireT.True(pattern.Match(k.Mult(k.A, k.Plus(k.B)), root, &ctx))
	requireIdentical(t, []tree.Tree{k.Int(2)}, bound(t, ctx, types.TagA))
	requireIdentical(t, []tree.Tree{k.Add(k.Int(3), k.Int(4))}, bound(t, ctx, types.TagB))

	first, _, _ := ctx.Bound(types.TagB)
	requireT.True(first.Is(root.Child(1)))
}

func TestMatchAbsorbsRun(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	root := clone(t, a, k.Mult(k.Int(2), k.Add(k.Int(3), k.Int(4)), k.Sym("x")))

	var ctx pattern.Context
	requireT.True(pattern.Match(k.Mult(k.A, k.Plus(k.B)), root, &ctx))
	requireIdentical(t, []tree.Tree{k.Add(k.Int(3), k.Int(4)), k.Sym("x")}, bound(t, ctx, types.TagB))

	ctx = pattern.Context{}
	requireT.True(pattern.Match(k.Mult(k.Star(k.A), k.Sym("x")), root, &ctx))
	requireIdentical(t, []tree.Tree{k.Int(2), k.Add(k.Int(3), k.Int(4))}, bound(t, ctx, types.TagA))

	ctx = pattern.Context{}
	requireT.True(pattern.Match(k.Mult(k.Int(2), k.Star(k.A), k.Add(k.Int(3), k.Int(4)), k.Sym("x")), root, &ctx))
	requireIdentical(t, nil, bound(t, ctx, types.TagA))
}

func TestWildcardBoundary(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	root := clone(t, a, k.Add(k.Sym("x"), k.Mult(k.Sym("y"), k.Sym("z")), k.Sym("w")))

	var ctx pattern.Context
	requireT.True(pattern.Match(k.Add(k.A, k.Mult(k.Plus(k.B)), k.C), root, &ctx))
	requireIdentical(t, []tree.Tree{k.Sym("y"), k.Sym("z")}, bound(t, ctx, types.TagB))
	requireIdentical(t, []tree.Tree{k.Sym("w")}, bound(t, ctx, types.TagC))

	// Run inside product can't reach the sibling of the product.
	ctx = pattern.Context{}
	requireT.False(pattern.Match(k.Add(k.A, k.Mult(k.Sym("y"), k.Plus(k.B))), root, &ctx))
	requireT.True(ctx.Empty())

	// Run of sum can't reach inside the product.
	ctx = pattern.Context{}
	requireT.False(pattern.Match(k.Add(k.Plus(k.A), k.Sym("z"), k.Sym("w")), root, &ctx))

	// Source Add(Mult(1,2),3) must not match Add(Mult(A),B,C).
	other := clone(t, a, k.Add(k.Mult(k.One, k.Two), k.Int(3)))
	ctx = pattern.Context{}
	requireT.False(pattern.Match(k.Add(k.Mult(k.A), k.B, k.C), other, &ctx))
}

func TestMatchFailureKeepsContext(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	root := clone(t, a, k.Add(k.Sym("x"), k.Sym("y")))

	var ctx pattern.Context
	ctx.Bind(types.TagA, k.Sym("q"))
	requireT.False(pattern.Match(k.Add(k.B, k.A), root, &ctx))
	_, _, ok := ctx.Bound(types.TagB)
	requireT.False(ok)
	requireIdentical(t, []tree.Tree{k.Sym("q")}, bound(t, ctx, types.TagA))

	requireT.True(pattern.Match(k.Add(k.B, k.C), root, &ctx))
	requireIdentical(t, []tree.Tree{k.Sym("x")}, bound(t, ctx, types.TagB))
	requireIdentical(t, []tree.Tree{k.Sym("q")}, bound(t, ctx, types.TagA))
}

func TestMatchRepeatedPlaceholder(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	same := clone(t, a, k.Add(k.Pow(k.Sym("x"), k.Two), k.Pow(k.Sym("x"), k.Two)))
	different := clone(t, a, k.Add(k.Pow(k.Sym("x"), k.Two), k.Pow(k.Sym("y"), k.Two)))

	var ctx pattern.Context
	requireT.True(pattern.Match(k.Add(k.A, k.A), same, &ctx))
	ctx = pattern.Context{}
	requireT.False(pattern.Match(k.Add(k.A, k.A), different, &ctx))
	ctx = pattern.Context{}
	requireT.True(pattern.Match(k.Add(k.Pow(k.A, k.B), k.Pow(k.C, k.B)), different, &ctx))
	requireIdentical(t, []tree.Tree{k.Two}, bound(t, ctx, types.TagB))
}

func TestMatchSquashed(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	x := clone(t, a, k.Sym("x"))

	var ctx pattern.Context
	requireT.True(pattern.Match(k.Mult(k.Star(k.A), k.B), x, &ctx))
	requireIdentical(t, nil, bound(t, ctx, types.TagA))
	requireIdentical(t, []tree.Tree{k.Sym("x")}, bound(t, ctx, types.TagB))

	ctx = pattern.Context{}
	requireT.True(pattern.Match(k.Add(k.Plus(k.A)), x, &ctx))
	requireIdentical(t, []tree.Tree{k.Sym("x")}, bound(t, ctx, types.TagA))

	ctx = pattern.Context{}
	requireT.True(pattern.Match(k.Add(k.Star(k.A)), x, &ctx))
	requireIdentical(t, []tree.Tree{k.Sym("x")}, bound(t, ctx, types.TagA))

	ctx = pattern.Context{}
	requireT.False(pattern.Match(k.Add(k.A, k.B), x, &ctx))
	requireT.False(pattern.Match(k.Pow(k.A, k.B), x, &ctx))
	requireT.True(ctx.Empty())

	// x matches x·B* squashed to x.
	ctx = pattern.Context{}
	requireT.True(pattern.Match(k.Mult(k.Sym("x"), k.Star(k.B)), x, &ctx))
	requireIdentical(t, nil, bound(t, ctx, types.TagB))

	zero := clone(t, a, k.Zero)
	ctx = pattern.Context{}
	ctx.BindRun(types.TagA, zero, 0)
	requireT.True(pattern.Match(k.Add(k.Star(k.A)), zero, &ctx))
	requireT.False(pattern.Match(k.Mult(k.Star(k.A)), zero, &ctx))
}

func TestMultipleAbsorbingPlaceholdersPanic(t *testing.T) {
	a := newArena(t, 1024)

	root := clone(t, a, k.Add(k.Sym("x"), k.Sym("y")))
	p := k.Add(k.Star(k.A), k.Plus(k.B))
	require.Panics(t, func() {
		var ctx pattern.Context
		pattern.Match(p, root, &ctx)
	})
	require.ErrorIs(t, pattern.Validate(p), types.ErrPattern)
}

func TestValidate(t *testing.T) {
	requireT := require.New(t)

	requireT.NoError(pattern.Validate(k.Add(k.A, k.Mult(k.Plus(k.B)), k.Star(k.C))))
	requireT.ErrorIs(pattern.Validate(k.Pow(k.Plus(k.A), k.B)), types.ErrPattern)
	requireT.ErrorIs(pattern.Validate(k.Add(k.A, k.Mult(k.Plus(k.A)))), types.ErrPattern)

	requireT.NoError(pattern.ValidateRule(
		k.Mult(k.A, k.Add(k.B, k.Plus(k.C))),
		k.Add(k.Mult(k.A, k.B), k.Mult(k.A, k.Add(k.Plus(k.C)))),
	))
	requireT.NoError(pattern.ValidateRule(k.Mult(k.Star(k.A), k.B), k.Add(k.Star(k.A), k.Star(k.A), k.B)))
	requireT.ErrorIs(pattern.ValidateRule(k.Cos(k.A), k.Sin(k.B)), types.ErrPattern)
	requireT.ErrorIs(pattern.ValidateRule(k.Add(k.Plus(k.A)), k.Add(k.A)), types.ErrPattern)
	requireT.ErrorIs(pattern.ValidateRule(k.Add(k.Plus(k.A)), k.Cos(k.Plus(k.A))), types.ErrPattern)
}

func TestCreate(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	src := clone(t, a, k.List(k.Sym("x"), k.Sym("y"), k.Sym("z")))
	var ctx pattern.Context
	ctx.Bind(types.TagA, src.Child(0))
	ctx.BindRun(types.TagB, src.Child(1), 2)
	ctx.BindRun(types.TagC, src.Child(1), 1)
	ctx.BindRun(types.TagD, src.Child(1), 0)

	created, err := pattern.Create(a, k.Mult(k.Plus(k.B), k.A), ctx, nil)
	requireT.NoError(err)
	requireT.True(created.Identical(k.Mult(k.Sym("y"), k.Sym("z"), k.Sym("x"))))

	created, err = pattern.Create(a, k.Pow(k.A, k.Add(k.Plus(k.C))), ctx, nil)
	requireT.NoError(err)
	requireT.True(created.Identical(k.Pow(k.Sym("x"), k.Sym("y"))))

	created, err = pattern.Create(a, k.Add(k.Star(k.D)), ctx, nil)
	requireT.NoError(err)
	requireT.True(created.Identical(k.Zero))

	created, err = pattern.Create(a, k.Set(k.Star(k.C)), ctx, nil)
	requireT.NoError(err)
	requireT.True(created.Identical(k.Set(k.Sym("y"))))

	created, err = pattern.Create(a, k.Add(k.A, k.Add(k.Plus(k.B))), ctx, nil)
	requireT.NoError(err)
	requireT.True(created.Identical(k.Add(k.Sym("x"), k.Sym("y"), k.Sym("z"))))

	created, err = pattern.Create(a, k.Cos(k.Int(1)), pattern.Context{}, nil)
	requireT.NoError(err)
	requireT.True(created.Identical(k.Cos(k.One)))
	requireT.Equal(a.Size(), created.NextTree().Offset())
}

func TestCreateFailureLeavesNothing(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 16)

	x := clone(t, a, k.Sym("x"))
	var ctx pattern.Context
	ctx.Bind(types.TagA, x)
	size := a.Size()

	_, err := pattern.Create(a, k.Add(k.A, k.B), ctx, nil)
	requireT.ErrorIs(err, types.ErrPattern)
	requireT.Equal(size, a.Size())

	_, err = pattern.Create(a, k.Add(k.A, k.A, k.A, k.A), ctx, nil)
	requireT.ErrorIs(err, types.ErrCapacityExceeded)
	requireT.Equal(size, a.Size())
	requireT.Zero(a.Depth())
}

func TestCreateFlatteningOverflowLeavesNothing(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 4096)

	xs := make([]tree.Tree, 0, 199)
	for range 199 {
		xs = append(xs, k.Sym("x"))
	}
	ys := make([]tree.Tree, 0, 100)
	for range 100 {
		ys = append(ys, k.Sym("y"))
	}
	list := clone(t, a, k.List(xs...))
	sum := clone(t, a, k.Add(ys...))

	var ctx pattern.Context
	ctx.BindRun(types.TagA, list.NextNode(), 199)
	ctx.Bind(types.TagB, sum)
	size := a.Size()

	_, err := pattern.Create(a, k.Add(k.Star(k.A), k.B), ctx, nil)
	requireT.ErrorIs(err, types.ErrCapacityExceeded)
	requireT.Equal(size, a.Size())
	requireT.Zero(a.Depth())
	requireT.True(sum.Identical(k.Add(ys...)))
}

func TestMatchCreate(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	root := clone(t, a, k.Pow(k.Sym("x"), k.Int(3)))
	created, ok, err := pattern.MatchCreate(a, root, k.Pow(k.A, k.B), k.Mult(k.B, k.Pow(k.A, k.Sub(k.B, k.One))))
	requireT.NoError(err)
	requireT.True(ok)
	requireT.True(created.Identical(k.Mult(k.Int(3), k.Pow(k.Sym("x"), k.Sub(k.Int(3), k.One)))))

	size := a.Size()
	_, ok, err = pattern.MatchCreate(a, root, k.Cos(k.A), k.A)
	requireT.NoError(err)
	requireT.False(ok)
	requireT.Equal(size, a.Size())
}

func TestDistributiveRewriteFolds(t *testing.T) {
	requireT := require.New(t)

	p := k.Mult(k.A, k.Add(k.B, k.Plus(k.C)))
	template := k.Add(k.Mult(k.A, k.B), k.Mult(k.A, k.Add(k.Plus(k.C))))

	a := newArena(t, 1024)
	root := clone(t, a, k.Mult(k.Int(2), k.Add(k.Int(3), k.Int(4))))
	root, ok, err := pattern.MatchReplaceReduce(root, p, template, fold.Reduce)
	requireT.NoError(err)
	requireT.True(ok)
	requireT.True(root.Identical(k.Int(14)))
	requireT.Equal(root.TreeSize(), a.Size())

	a = newArena(t, 1024)
	root = clone(t, a, k.Mult(k.Int(2), k.Add(k.Int(3), k.Int(4))))
	root, ok, err = pattern.MatchReplace(root, p, template)
	requireT.NoError(err)
	requireT.True(ok)
	requireT.True(root.Identical(k.Add(k.Mult(k.Int(2), k.Int(3)), k.Mult(k.Int(2), k.Int(4)))))
	requireT.Equal(root.TreeSize(), a.Size())
}

func TestMatchReplaceInsideParent(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	root := clone(t, a, k.Add(k.One, k.Mult(k.Sym("x"), k.Add(k.Sym("y"), k.Sym("z"))), k.Two))
	hTwo, err := root.Child(2).Reference()
	requireT.NoError(err)

	_, ok, err := pattern.MatchReplace(
		root.Child(1),
		k.Mult(k.A, k.Add(k.B, k.Plus(k.C))),
		k.Add(k.Mult(k.A, k.B), k.Mult(k.A, k.Add(k.Plus(k.C)))),
	)
	requireT.NoError(err)
	requireT.True(ok)
	requireT.True(root.Identical(k.Add(
		k.One,
		k.Add(k.Mult(k.Sym("x"), k.Sym("y")), k.Mult(k.Sym("x"), k.Sym("z"))),
		k.Two,
	)))
	requireT.Equal(root.TreeSize(), a.Size())

	two, ok := tree.At(hTwo)
	requireT.True(ok)
	requireT.True(two.Is(root.Child(2)))
}

func TestMatchReplaceRepeatsBinding(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	root := clone(t, a, k.List(k.Mult(k.Sym("a"), k.Sym("b"), k.Sym("c")), k.Sym("end")))
	node, ok, err := pattern.MatchReplace(root.Child(0), k.Mult(k.A, k.Plus(k.B)),
		k.Add(k.Mult(k.Plus(k.B), k.A), k.Pow(k.A, k.Two), k.Mult(k.Plus(k.B))))
	requireT.NoError(err)
	requireT.True(ok)
	requireT.True(node.Is(root.Child(0)))
	requireT.True(root.Identical(k.List(
		k.Add(
			k.Mult(k.Sym("b"), k.Sym("c"), k.Sym("a")),
			k.Pow(k.Sym("a"), k.Two),
			k.Mult(k.Sym("b"), k.Sym("c")),
		),
		k.Sym("end"),
	)))
	requireT.Equal(root.TreeSize(), a.Size())
}

func TestMatchReplaceWholeNode(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	root := clone(t, a, k.Add(k.Sym("x"), k.Sym("y")))
	_, ok, err := pattern.MatchReplace(root.Child(0), k.A, k.Cos(k.A))
	requireT.NoError(err)
	requireT.True(ok)
	requireT.True(root.Identical(k.Add(k.Cos(k.Sym("x")), k.Sym("y"))))
	requireT.Equal(root.TreeSize(), a.Size())
}

func TestMatchReplaceSquashedSource(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	root := clone(t, a, k.List(k.Sym("x")))
	_, ok, err := pattern.MatchReplace(root.Child(0), k.Mult(k.Star(k.A), k.B), k.Pow(k.B, k.Two))
	requireT.NoError(err)
	requireT.True(ok)
	requireT.True(root.Identical(k.List(k.Pow(k.Sym("x"), k.Two))))
	requireT.Equal(root.TreeSize(), a.Size())
}

func TestMatchReplaceNoMatch(t *testing.T) {
	requireT := require.New(t)
	a := newArena(t, 1024)

	root := clone(t, a, k.Add(k.Sym("x"), k.Sym("y")))
	blocks := append([]byte{}, a.Blocks()...)

	node, ok, err := pattern.MatchReplace(root, k.Mult(k.A, k.B), k.A)
	requireT.NoError(err)
	requireT.False(ok)
	requireT.True(node.Is(root))
	requireT.Equal(blocks, a.Blocks())
}
