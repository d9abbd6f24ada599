package notation_test

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/k"
	"github.com/outofforest/sigma/notation"
	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

func TestParse(t *testing.T) {
	big2 := new(big.Int).Lsh(big.NewInt(1), 100)
	tests := []struct {
		input    string
		expected tree.Tree
	}{
		{input: "(mult 2 (add 3 4))", expected: k.Mult(k.Two, k.Add(k.Int(3), k.Int(4)))},
		{input: " ( mult  A B+ ) ", expected: k.Mult(k.A, k.Plus(k.B))},
		{input: "(add C* x)", expected: k.Add(k.Star(k.C), k.Sym("x"))},
		{input: "(pow x -1/2)", expected: k.Pow(k.Sym("x"), k.Rat(-1, 2))},
		{input: "1267650600228229401496703205376", expected: k.BigInt(big2)},
		{input: "(cos (mult #pi #i))", expected: k.Cos(k.Mult(k.Pi, k.I))},
		{input: "#undef", expected: k.Undefined},
		{input: "-2.5", expected: k.Float(-2.5)},
		{input: "\"x y\"", expected: k.Sym("x y")},
		{input: "(rack 'a' (voffset:1 (rack '2')))", expected: k.Rack(k.CodePoint('a'),
			k.VerticalOffset(types.VerticalOffsetSubscript, k.Rack(k.CodePoint('2'))))},
		{input: "(list)", expected: k.List()},
		{input: "(set X velocity_2)", expected: k.Set(k.Sym("X"), k.Sym("velocity_2"))},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			requireT := require.New(t)
			parsed, err := notation.Literal(test.input)
			requireT.NoError(err)
			requireT.True(parsed.Identical(test.expected), notation.Format(parsed))
		})
	}
}

func TestParseIntoArena(t *testing.T) {
	requireT := require.New(t)

	a, deallocFunc, err := arena.New(arena.Config{Size: 8, MaxReferences: 1})
	requireT.NoError(err)
	t.Cleanup(deallocFunc)

	root, err := notation.Parse(a, "(add 3 4)")
	requireT.NoError(err)
	requireT.Equal(0, root.Offset())
	requireT.True(root.Editable())
	requireT.True(root.Identical(k.Add(k.Int(3), k.Int(4))))

	_, err = notation.Parse(a, "(add 3 4)")
	requireT.ErrorIs(err, types.ErrCapacityExceeded)
	requireT.Equal(root.TreeSize(), a.Size())
}

func TestFormatRoundTrip(t *testing.T) {
	for _, input := range []string{
		"(mult 2 (add 3 4))",
		"(add A (mult B+) C*)",
		"(pow x 1/2)",
		"-340282366920938463463374607431768211456",
		"(div 0.5 1e+300)",
		"(list 2.0 #nan #inf #-inf)",
		"(set #pi #e #i #undef)",
		"(sub \"A\" \"x+1\")",
		"(fraction (rack '1') (rack 'x' (parens (rack '∑'))))",
		"(voffset:3 (rack))",
		"(opposite (factorial (abs (sqrt (ln (sin y))))))",
	} {
		requireT := require.New(t)
		parsed, err := notation.Literal(input)
		requireT.NoError(err, input)
		requireT.Equal(input, notation.Format(parsed))
	}
}

func TestFormat(t *testing.T) {
	requireT := require.New(t)

	requireT.Equal("(mult 2 (add 3 4))", notation.Format(k.Mult(k.Two, k.Add(k.Int(3), k.Int(4)))))
	requireT.Equal("(add A B+ C*)", notation.Format(k.Add(k.A, k.Plus(k.B), k.Star(k.C))))
	requireT.Equal("-3/4", notation.Format(k.Rat(-3, 4)))
	requireT.Equal("3.0", notation.Format(k.Float(3)))
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"(",
		")",
		"(add 1",
		"(add 1))",
		"(frobnicate 1)",
		"(pow 1)",
		"(cos 1 2)",
		"(zero)",
		"(add:1 x)",
		"(voffset:300 (rack))",
		"1/0",
		"1.2.3",
		"#tau",
		"\"x",
		"'ab'",
		"x+y",
		"(list " + strings.Repeat("1 ", 256) + ")",
	} {
		_, err := notation.Literal(input)
		require.Error(t, err, input)
	}

	_, err := notation.Literal("(list " + strings.Repeat("1 ", 256) + ")")
	require.ErrorIs(t, err, types.ErrCapacityExceeded)
	_, err = notation.Literal("(add 1")
	require.ErrorIs(t, err, types.ErrGeneric)
}

func TestMustLiteral(t *testing.T) {
	require.True(t, notation.MustLiteral("(add x 1)").Identical(k.Add(k.Sym("x"), k.One)))
	require.Panics(t, func() {
		notation.MustLiteral("(add x")
	})
}
