package types

const (
	// MaxIntegerDigits is the maximum number of magnitude bytes stored by big integer node.
	MaxIntegerDigits = 32

	// MaxNAryChildren is the maximum number of children of n-ary node storing its count in one block.
	MaxNAryChildren = 0xff

	// MaxNAry16Children is the maximum number of children of n-ary node storing its count in two blocks.
	MaxNAry16Children = 0xffff

	// MaxSymbolLength is the maximum length of user symbol name.
	MaxSymbolLength = 0xff
)

// Type is the tag stored in the first block of every node.
type Type byte

const (
	// TypeZero is integer 0.
	TypeZero Type = iota

	// TypeOne is integer 1.
	TypeOne

	// TypeTwo is integer 2.
	TypeTwo

	// TypeMinusOne is integer -1.
	TypeMinusOne

	// TypeHalf is rational 1/2.
	TypeHalf

	// TypeIntegerShort is integer fitting in one signed block.
	TypeIntegerShort

	// TypeIntegerPosBig is positive integer stored as little-endian magnitude.
	TypeIntegerPosBig

	// TypeIntegerNegBig is negative integer stored as little-endian magnitude.
	TypeIntegerNegBig

	// TypeRationalShort is rational with signed one-block numerator and unsigned one-block denominator.
	TypeRationalShort

	// TypeRationalPosBig is positive rational stored as little-endian numerator and denominator magnitudes.
	TypeRationalPosBig

	// TypeRationalNegBig is negative rational stored as little-endian numerator and denominator magnitudes.
	TypeRationalNegBig

	// TypeFloat is IEEE-754 double.
	TypeFloat

	// TypeUserSymbol is a named variable.
	TypeUserSymbol

	// TypeConstant is a mathematical constant.
	TypeConstant

	// TypeUndefined is the undefined value.
	TypeUndefined

	// TypeAdd is the n-ary sum.
	TypeAdd

	// TypeMult is the n-ary product.
	TypeMult

	// TypePow is the power.
	TypePow

	// TypeSub is the subtraction.
	TypeSub

	// TypeDiv is the division.
	TypeDiv

	// TypeOpposite is the unary minus.
	TypeOpposite

	// TypeSqrt is the square root.
	TypeSqrt

	// TypeLn is the natural logarithm.
	TypeLn

	// TypeCos is the cosine.
	TypeCos

	// TypeSin is the sine.
	TypeSin

	// TypeAbs is the absolute value.
	TypeAbs

	// TypeFactorial is the factorial.
	TypeFactorial

	// TypeList is the n-ary list.
	TypeList

	// TypeSet is the n-ary set.
	TypeSet

	// TypePlaceholder is the pattern wildcard.
	TypePlaceholder

	// TypeRackLayout is a horizontal sequence of layouts.
	TypeRackLayout

	// TypeCodePointLayout is a single character.
	TypeCodePointLayout

	// TypeFractionLayout is numerator rack over denominator rack.
	TypeFractionLayout

	// TypeParenthesesLayout is a rack surrounded by parentheses.
	TypeParenthesesLayout

	// TypeVerticalOffsetLayout is a superscript or subscript rack.
	TypeVerticalOffsetLayout

	numberOfTypes
)

// Constant enumerates mathematical constants stored by TypeConstant node.
type Constant byte

const (
	// ConstantPi is π.
	ConstantPi Constant = iota

	// ConstantE is Euler's number.
	ConstantE

	// ConstantI is the imaginary unit.
	ConstantI
)

// VerticalOffset flags.
const (
	// VerticalOffsetSubscript marks subscript instead of superscript.
	VerticalOffsetSubscript byte = 1 << iota

	// VerticalOffsetPrefix places the offset before the base.
	VerticalOffsetPrefix
)
