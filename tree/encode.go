package tree

import (
	"encoding/binary"
	"math"
	"math/big"
	"slices"

	"github.com/pkg/errors"

	"github.com/outofforest/sigma/types"
)

// AppendNode appends node of given type and header to b.
func AppendNode(b []byte, t types.Type, header ...byte) []byte {
	return append(append(b, byte(t)), header...)
}

// AppendNAry appends n-ary node with n children to b.
func AppendNAry(b []byte, t types.Type, n int) ([]byte, error) {
	if !t.IsNAry() {
		return nil, errors.Errorf("type %s is not n-ary", t)
	}
	if n < 0 || n > types.MaxChildren(t) {
		return nil, errors.Wrapf(types.ErrCapacityExceeded, "%d children exceed limit of %s", n, t)
	}
	header, size := types.EncodeNumberOfChildren(t, n)
	return AppendNode(b, t, header[:size]...), nil
}

// AppendInt64 appends the integer to b using the shortest encoding.
func AppendInt64(b []byte, v int64) []byte {
	switch {
	case v == 0:
		return AppendNode(b, types.TypeZero)
	case v == 1:
		return AppendNode(b, types.TypeOne)
	case v == 2:
		return AppendNode(b, types.TypeTwo)
	case v == -1:
		return AppendNode(b, types.TypeMinusOne)
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return AppendNode(b, types.TypeIntegerShort, byte(int8(v)))
	}

	t := types.TypeIntegerPosBig
	magnitude := uint64(v)
	if v < 0 {
		t = types.TypeIntegerNegBig
		magnitude = uint64(-v)
	}
	var digits [8]byte
	binary.LittleEndian.PutUint64(digits[:], magnitude)
	n := 8
	for digits[n-1] == 0 {
		n--
	}
	return append(append(b, byte(t), byte(n)), digits[:n]...)
}

// AppendInteger appends the integer to b using the shortest encoding.
func AppendInteger(b []byte, v *big.Int) ([]byte, error) {
	if v.IsInt64() {
		return AppendInt64(b, v.Int64()), nil
	}

	digits := v.Bytes()
	if len(digits) > types.MaxIntegerDigits {
		return nil, errors.Wrapf(types.ErrIntegerOverflow, "integer takes %d bytes", len(digits))
	}
	t := types.TypeIntegerPosBig
	if v.Sign() < 0 {
		t = types.TypeIntegerNegBig
	}
	b = append(b, byte(t), byte(len(digits)))
	return appendLittleEndian(b, digits), nil
}

// AppendRational appends the rational to b using the shortest encoding.
func AppendRational(b []byte, v *big.Rat) ([]byte, error) {
	if v.IsInt() {
		return AppendInteger(b, v.Num())
	}

	num := v.Num()
	den := v.Denom()
	if num.IsInt64() && den.IsInt64() {
		n, d := num.Int64(), den.Int64()
		if n == 1 && d == 2 {
			return AppendNode(b, types.TypeHalf), nil
		}
		if n >= math.MinInt8 && n <= math.MaxInt8 && d <= math.MaxUint8 {
			return AppendNode(b, types.TypeRationalShort, byte(int8(n)), byte(d)), nil
		}
	}

	numDigits := num.Bytes()
	denDigits := den.Bytes()
	if len(numDigits) > types.MaxIntegerDigits || len(denDigits) > types.MaxIntegerDigits {
		return nil, errors.Wrapf(types.ErrIntegerOverflow, "rational takes %d/%d bytes", len(numDigits),
			len(denDigits))
	}
	t := types.TypeRationalPosBig
	if v.Sign() < 0 {
		t = types.TypeRationalNegBig
	}
	b = append(b, byte(t), byte(len(numDigits)), byte(len(denDigits)))
	b = appendLittleEndian(b, numDigits)
	return appendLittleEndian(b, denDigits), nil
}

// AppendFloat appends the float to b.
func AppendFloat(b []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(append(b, byte(types.TypeFloat)), math.Float64bits(v))
}

// AppendSymbol appends the user symbol to b.
func AppendSymbol(b []byte, name string) ([]byte, error) {
	if name == "" || len(name) > types.MaxSymbolLength {
		return nil, errors.Wrapf(types.ErrGeneric, "invalid symbol length %d", len(name))
	}
	return append(append(b, byte(types.TypeUserSymbol), byte(len(name))), name...), nil
}

// AppendConstant appends the constant to b.
func AppendConstant(b []byte, c types.Constant) []byte {
	return AppendNode(b, types.TypeConstant, byte(c))
}

// AppendPlaceholder appends the placeholder to b.
func AppendPlaceholder(b []byte, tag types.Tag, filter types.Filter) []byte {
	return AppendNode(b, types.TypePlaceholder, types.PlaceholderValue(tag, filter))
}

// AppendCodePoint appends the code point layout to b.
func AppendCodePoint(b []byte, r rune) []byte {
	return binary.LittleEndian.AppendUint32(append(b, byte(types.TypeCodePointLayout)), uint32(r))
}

func appendLittleEndian(b []byte, bigEndian []byte) []byte {
	start := len(b)
	b = append(b, bigEndian...)
	slices.Reverse(b[start:])
	return b
}

func bigFromLittleEndian(b []byte) *big.Int {
	bigEndian := slices.Clone(b)
	slices.Reverse(bigEndian)
	return new(big.Int).SetBytes(bigEndian)
}

// Integer returns the value of integer node.
func (t Tree) Integer() (*big.Int, bool) {
	switch t.Type() {
	case types.TypeZero:
		return big.NewInt(0), true
	case types.TypeOne:
		return big.NewInt(1), true
	case types.TypeTwo:
		return big.NewInt(2), true
	case types.TypeMinusOne:
		return big.NewInt(-1), true
	case types.TypeIntegerShort:
		return big.NewInt(int64(int8(t.Value(0)))), true
	case types.TypeIntegerPosBig:
		return bigFromLittleEndian(t.node()[2:t.NodeSize()]), true
	case types.TypeIntegerNegBig:
		v := bigFromLittleEndian(t.node()[2:t.NodeSize()])
		return v.Neg(v), true
	default:
		return nil, false
	}
}

// Rational returns the value of rational node, integers included.
func (t Tree) Rational() (*big.Rat, bool) {
	if v, ok := t.Integer(); ok {
		return new(big.Rat).SetInt(v), true
	}

	switch t.Type() {
	case types.TypeHalf:
		return big.NewRat(1, 2), true
	case types.TypeRationalShort:
		return big.NewRat(int64(int8(t.Value(0))), int64(t.Value(1))), true
	case types.TypeRationalPosBig, types.TypeRationalNegBig:
		node := t.node()
		numEnd := 3 + int(node[1])
		num := bigFromLittleEndian(node[3:numEnd])
		den := bigFromLittleEndian(node[numEnd : numEnd+int(node[2])])
		if t.Type() == types.TypeRationalNegBig {
			num.Neg(num)
		}
		return new(big.Rat).SetFrac(num, den), true
	default:
		return nil, false
	}
}

// Float returns the value of float node.
func (t Tree) Float() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(t.node()[1:9]))
}

// Name returns the name of user symbol.
func (t Tree) Name() string {
	return string(t.node()[2:t.NodeSize()])
}

// Constant returns the constant kind.
func (t Tree) Constant() types.Constant {
	return types.Constant(t.Value(0))
}

// CodePoint returns the character of code point layout.
func (t Tree) CodePoint() rune {
	return rune(binary.LittleEndian.Uint32(t.node()[1:5]))
}

// Placeholder returns the tag and filter of placeholder node.
func (t Tree) Placeholder() (types.Tag, types.Filter) {
	v := t.Value(0)
	return types.PlaceholderTag(v), types.PlaceholderFilter(v)
}
