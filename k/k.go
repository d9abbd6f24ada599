// Package k builds immutable trees used as patterns, templates and constants.
// Builders panic on invalid input because literals are constructed once, during initialization.
package k

import (
	"math/big"

	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

// Placeholders matching exactly one tree.
var (
	A = Placeholder(types.TagA, types.FilterOne)
	B = Placeholder(types.TagB, types.FilterOne)
	C = Placeholder(types.TagC, types.FilterOne)
	D = Placeholder(types.TagD, types.FilterOne)
	E = Placeholder(types.TagE, types.FilterOne)
	F = Placeholder(types.TagF, types.FilterOne)
	G = Placeholder(types.TagG, types.FilterOne)
	H = Placeholder(types.TagH, types.FilterOne)
)

// Constants.
var (
	Pi        = tree.Literal(tree.AppendConstant(nil, types.ConstantPi))
	EulerE    = tree.Literal(tree.AppendConstant(nil, types.ConstantE))
	I         = tree.Literal(tree.AppendConstant(nil, types.ConstantI))
	Undefined = tree.Literal(tree.AppendNode(nil, types.TypeUndefined))
	Zero      = Int(0)
	One       = Int(1)
	Two       = Int(2)
	MinusOne  = Int(-1)
	Half      = Rat(1, 2)
)

// Placeholder returns placeholder node.
func Placeholder(tag types.Tag, filter types.Filter) tree.Tree {
	return tree.Literal(tree.AppendPlaceholder(nil, tag, filter))
}

// Plus turns placeholder into the one absorbing one or more siblings.
func Plus(p tree.Tree) tree.Tree {
	tag, _ := p.Placeholder()
	return Placeholder(tag, types.FilterOneOrMore)
}

// Star turns placeholder into the one absorbing zero or more siblings.
func Star(p tree.Tree) tree.Tree {
	tag, _ := p.Placeholder()
	return Placeholder(tag, types.FilterZeroOrMore)
}

// Int returns integer.
func Int(v int64) tree.Tree {
	return tree.Literal(tree.AppendInt64(nil, v))
}

// BigInt returns integer.
func BigInt(v *big.Int) tree.Tree {
	return tree.Literal(must(tree.AppendInteger(nil, v)))
}

// Rat returns rational num/den.
func Rat(num, den int64) tree.Tree {
	return tree.Literal(must(tree.AppendRational(nil, big.NewRat(num, den))))
}

// Float returns float.
func Float(v float64) tree.Tree {
	return tree.Literal(tree.AppendFloat(nil, v))
}

// Sym returns user symbol.
func Sym(name string) tree.Tree {
	return tree.Literal(must(tree.AppendSymbol(nil, name)))
}

// CodePoint returns code point layout.
func CodePoint(r rune) tree.Tree {
	return tree.Literal(tree.AppendCodePoint(nil, r))
}

// Add returns the sum.
func Add(children ...tree.Tree) tree.Tree {
	return NAry(types.TypeAdd, children...)
}

// Mult returns the product.
func Mult(children ...tree.Tree) tree.Tree {
	return NAry(types.TypeMult, children...)
}

// List returns the list.
func List(children ...tree.Tree) tree.Tree {
	return NAry(types.TypeList, children...)
}

// Set returns the set.
func Set(children ...tree.Tree) tree.Tree {
	return NAry(types.TypeSet, children...)
}

// Rack returns the rack layout.
func Rack(children ...tree.Tree) tree.Tree {
	return NAry(types.TypeRackLayout, children...)
}

// Pow returns base^exponent.
func Pow(base, exponent tree.Tree) tree.Tree {
	return Node(types.TypePow, nil, base, exponent)
}

// Sub returns a-b.
func Sub(a, b tree.Tree) tree.Tree {
	return Node(types.TypeSub, nil, a, b)
}

// Div returns a/b.
func Div(a, b tree.Tree) tree.Tree {
	return Node(types.TypeDiv, nil, a, b)
}

// Opposite returns -a.
func Opposite(a tree.Tree) tree.Tree {
	return Node(types.TypeOpposite, nil, a)
}

// Sqrt returns the square root.
func Sqrt(a tree.Tree) tree.Tree {
	return Node(types.TypeSqrt, nil, a)
}

// Ln returns the natural logarithm.
func Ln(a tree.Tree) tree.Tree {
	return Node(types.TypeLn, nil, a)
}

// Cos returns the cosine.
func Cos(a tree.Tree) tree.Tree {
	return Node(types.TypeCos, nil, a)
}

// Sin returns the sine.
func Sin(a tree.Tree) tree.Tree {
	return Node(types.TypeSin, nil, a)
}

// Abs returns the absolute value.
func Abs(a tree.Tree) tree.Tree {
	return Node(types.TypeAbs, nil, a)
}

// Factorial returns the factorial.
func Factorial(a tree.Tree) tree.Tree {
	return Node(types.TypeFactorial, nil, a)
}

// Fraction returns the fraction layout.
func Fraction(numerator, denominator tree.Tree) tree.Tree {
	return Node(types.TypeFractionLayout, nil, numerator, denominator)
}

// Parentheses returns the parentheses layout.
func Parentheses(rack tree.Tree) tree.Tree {
	return Node(types.TypeParenthesesLayout, nil, rack)
}

// VerticalOffset returns the vertical offset layout.
func VerticalOffset(flags byte, rack tree.Tree) tree.Tree {
	return Node(types.TypeVerticalOffsetLayout, []byte{flags}, rack)
}

// NAry returns n-ary node of given type.
func NAry(t types.Type, children ...tree.Tree) tree.Tree {
	b := must(tree.AppendNAry(nil, t, len(children)))
	for _, c := range children {
		b = append(b, c.Bytes()...)
	}
	return tree.Literal(b)
}

// Node returns node of fixed arity.
func Node(t types.Type, header []byte, children ...tree.Tree) tree.Tree {
	if t.IsNAry() {
		return NAry(t, children...)
	}
	if n := types.Layouts[t].Arity; n != len(children) {
		panic("invalid number of children")
	}
	b := tree.AppendNode(nil, t, header...)
	for _, c := range children {
		b = append(b, c.Bytes()...)
	}
	return tree.Literal(b)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
