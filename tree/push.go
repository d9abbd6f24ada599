package tree

import (
	"math/big"

	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/types"
)

// PushNode pushes node of given type and header to the end of the arena.
func PushNode(a *arena.Arena, t types.Type, header ...byte) (Tree, error) {
	return push(a, AppendNode(nil, t, header...))
}

// PushNAry pushes n-ary node expecting n children to be pushed after it.
func PushNAry(a *arena.Arena, t types.Type, n int) (Tree, error) {
	b, err := AppendNAry(nil, t, n)
	if err != nil {
		return Tree{}, err
	}
	return push(a, b)
}

// PushRack pushes rack layout expecting n children to be pushed after it.
func PushRack(a *arena.Arena, n int) (Tree, error) {
	return PushNAry(a, types.TypeRackLayout, n)
}

// PushInteger pushes integer node.
func PushInteger(a *arena.Arena, v int64) (Tree, error) {
	return push(a, AppendInt64(nil, v))
}

// PushBigInteger pushes integer node, types.ErrIntegerOverflow is returned if value is too big to be stored.
func PushBigInteger(a *arena.Arena, v *big.Int) (Tree, error) {
	b, err := AppendInteger(nil, v)
	if err != nil {
		return Tree{}, err
	}
	return push(a, b)
}

// PushRational pushes rational node.
func PushRational(a *arena.Arena, v *big.Rat) (Tree, error) {
	b, err := AppendRational(nil, v)
	if err != nil {
		return Tree{}, err
	}
	return push(a, b)
}

// PushFloat pushes float node.
func PushFloat(a *arena.Arena, v float64) (Tree, error) {
	return push(a, AppendFloat(nil, v))
}

// PushSymbol pushes user symbol.
func PushSymbol(a *arena.Arena, name string) (Tree, error) {
	b, err := AppendSymbol(nil, name)
	if err != nil {
		return Tree{}, err
	}
	return push(a, b)
}

// PushConstant pushes constant node.
func PushConstant(a *arena.Arena, c types.Constant) (Tree, error) {
	return push(a, AppendConstant(nil, c))
}

// PushPlaceholder pushes placeholder node.
func PushPlaceholder(a *arena.Arena, tag types.Tag, filter types.Filter) (Tree, error) {
	return push(a, AppendPlaceholder(nil, tag, filter))
}

// PushCodePoint pushes code point layout.
func PushCodePoint(a *arena.Arena, r rune) (Tree, error) {
	return push(a, AppendCodePoint(nil, r))
}

func push(a *arena.Arena, b []byte) (Tree, error) {
	offset, err := a.Push(b)
	if err != nil {
		return Tree{}, err
	}
	return In(a, offset), nil
}
