package types

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// LayoutKind defines how node header is encoded.
type LayoutKind byte

const (
	// LayoutFixed means header has fixed size and node has fixed number of children.
	LayoutFixed LayoutKind = iota

	// LayoutSized means first header block stores the number of payload blocks following it.
	LayoutSized

	// LayoutSized2 means first two header blocks store the sizes of two payloads following them.
	LayoutSized2

	// LayoutNAry means first header block stores the number of children.
	LayoutNAry

	// LayoutNAry16 means first two header blocks store the number of children, little-endian.
	LayoutNAry16
)

// Layout describes the encoding of a node type.
type Layout struct {
	Name       string
	Kind       LayoutKind
	HeaderSize int
	Arity      int
}

// Layouts is the encoding table indexed by type.
var Layouts = [numberOfTypes]Layout{
	TypeZero:                 {Name: "zero"},
	TypeOne:                  {Name: "one"},
	TypeTwo:                  {Name: "two"},
	TypeMinusOne:             {Name: "minusone"},
	TypeHalf:                 {Name: "half"},
	TypeIntegerShort:         {Name: "int", HeaderSize: 1},
	TypeIntegerPosBig:        {Name: "intpos", Kind: LayoutSized},
	TypeIntegerNegBig:        {Name: "intneg", Kind: LayoutSized},
	TypeRationalShort:        {Name: "rational", HeaderSize: 2},
	TypeRationalPosBig:       {Name: "ratpos", Kind: LayoutSized2},
	TypeRationalNegBig:       {Name: "ratneg", Kind: LayoutSized2},
	TypeFloat:                {Name: "float", HeaderSize: 8},
	TypeUserSymbol:           {Name: "symbol", Kind: LayoutSized},
	TypeConstant:             {Name: "constant", HeaderSize: 1},
	TypeUndefined:            {Name: "undef"},
	TypeAdd:                  {Name: "add", Kind: LayoutNAry, HeaderSize: 1},
	TypeMult:                 {Name: "mult", Kind: LayoutNAry, HeaderSize: 1},
	TypePow:                  {Name: "pow", Arity: 2},
	TypeSub:                  {Name: "sub", Arity: 2},
	TypeDiv:                  {Name: "div", Arity: 2},
	TypeOpposite:             {Name: "opposite", Arity: 1},
	TypeSqrt:                 {Name: "sqrt", Arity: 1},
	TypeLn:                   {Name: "ln", Arity: 1},
	TypeCos:                  {Name: "cos", Arity: 1},
	TypeSin:                  {Name: "sin", Arity: 1},
	TypeAbs:                  {Name: "abs", Arity: 1},
	TypeFactorial:            {Name: "factorial", Arity: 1},
	TypeList:                 {Name: "list", Kind: LayoutNAry, HeaderSize: 1},
	TypeSet:                  {Name: "set", Kind: LayoutNAry, HeaderSize: 1},
	TypePlaceholder:          {Name: "placeholder", HeaderSize: 1},
	TypeRackLayout:           {Name: "rack", Kind: LayoutNAry16, HeaderSize: 2},
	TypeCodePointLayout:      {Name: "codepoint", HeaderSize: 4},
	TypeFractionLayout:       {Name: "fraction", Arity: 2},
	TypeParenthesesLayout:    {Name: "parens", Arity: 1},
	TypeVerticalOffsetLayout: {Name: "voffset", HeaderSize: 1, Arity: 1},
}

// Valid returns true if type is known.
func (t Type) Valid() bool {
	return t < numberOfTypes
}

// String returns the name of the type.
func (t Type) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return Layouts[t].Name
}

// IsNAry returns true if number of children is stored in the header.
func (t Type) IsNAry() bool {
	k := Layouts[t].Kind
	return k == LayoutNAry || k == LayoutNAry16
}

// IsSimpleNAry returns true if number of children is stored in one header block.
func (t Type) IsSimpleNAry() bool {
	return Layouts[t].Kind == LayoutNAry
}

// IsInteger returns true for all the integer encodings.
func (t Type) IsInteger() bool {
	switch t {
	case TypeZero, TypeOne, TypeTwo, TypeMinusOne, TypeIntegerShort, TypeIntegerPosBig, TypeIntegerNegBig:
		return true
	default:
		return false
	}
}

// IsRational returns true for integers and rationals.
func (t Type) IsRational() bool {
	switch t {
	case TypeHalf, TypeRationalShort, TypeRationalPosBig, TypeRationalNegBig:
		return true
	default:
		return t.IsInteger()
	}
}

// IsNumber returns true for all the numeric leaves.
func (t Type) IsNumber() bool {
	return t.IsRational() || t == TypeFloat
}

// IsLayout returns true for layout nodes.
func (t Type) IsLayout() bool {
	return t >= TypeRackLayout && t < numberOfTypes
}

// NodeSize returns the number of blocks taken by the node starting at b[0], header included.
func NodeSize(b []byte) int {
	l := &Layouts[b[0]]
	switch l.Kind {
	case LayoutSized:
		return 2 + int(b[1])
	case LayoutSized2:
		return 3 + int(b[1]) + int(b[2])
	default:
		return 1 + l.HeaderSize
	}
}

// NumberOfChildren returns the number of children of the node starting at b[0].
func NumberOfChildren(b []byte) int {
	l := &Layouts[b[0]]
	switch l.Kind {
	case LayoutNAry:
		return int(b[1])
	case LayoutNAry16:
		return int(binary.LittleEndian.Uint16(b[1:]))
	default:
		return l.Arity
	}
}

// TreeSize returns the number of blocks taken by the tree starting at b[0].
func TreeSize(b []byte) int {
	var offset int
	for remaining := 1; remaining > 0; remaining-- {
		remaining += NumberOfChildren(b[offset:])
		offset += NodeSize(b[offset:])
	}
	return offset
}

// CheckTree verifies that b holds exactly one well-formed tree. Unlike TreeSize it never reads beyond b.
func CheckTree(b []byte) error {
	var offset int
	for remaining := 1; remaining > 0; remaining-- {
		if offset == len(b) {
			return errors.Wrapf(ErrGeneric, "tree is truncated at block %d", offset)
		}
		t := Type(b[offset])
		if !t.Valid() {
			return errors.Wrapf(ErrGeneric, "invalid type %d at block %d", b[offset], offset)
		}
		if len(b)-offset < headerPrefix(t) {
			return errors.Wrapf(ErrGeneric, "header of %s at block %d is truncated", t, offset)
		}
		size := NodeSize(b[offset:])
		if len(b)-offset < size {
			return errors.Wrapf(ErrGeneric, "node %s at block %d is truncated", t, offset)
		}
		remaining += NumberOfChildren(b[offset:])
		offset += size
	}
	if offset != len(b) {
		return errors.Wrapf(ErrGeneric, "tree takes %d blocks, %d given", offset, len(b))
	}
	return nil
}

// headerPrefix is the number of blocks required to compute the size of the node.
func headerPrefix(t Type) int {
	switch l := &Layouts[t]; l.Kind {
	case LayoutSized:
		return 2
	case LayoutSized2:
		return 3
	default:
		return 1 + l.HeaderSize
	}
}

// EncodeNumberOfChildren returns the header blocks storing number of children of n-ary node.
func EncodeNumberOfChildren(t Type, n int) ([2]byte, int) {
	var header [2]byte
	if Layouts[t].Kind == LayoutNAry16 {
		binary.LittleEndian.PutUint16(header[:], uint16(n))
		return header, 2
	}
	header[0] = byte(n)
	return header, 1
}

// MaxChildren returns the maximum number of children n-ary node may have.
func MaxChildren(t Type) int {
	if Layouts[t].Kind == LayoutNAry16 {
		return MaxNAry16Children
	}
	return MaxNAryChildren
}
