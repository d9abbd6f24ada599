package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckTree(t *testing.T) {
	requireT := require.New(t)

	// (add 1 (cos x))
	tree := []byte{
		byte(TypeAdd), 2,
		byte(TypeOne),
		byte(TypeCos), byte(TypeUserSymbol), 1, 'x',
	}
	requireT.NoError(CheckTree(tree))
	requireT.Equal(len(tree), TreeSize(tree))

	for _, b := range [][]byte{
		nil,
		{byte(numberOfTypes)},
		{byte(TypeAdd)},
		{byte(TypeAdd), 5},
		{byte(TypeUserSymbol), 3, 'x'},
		{byte(TypeRackLayout), 1},
		{byte(TypeCos)},
		append(tree, byte(TypeOne)),
		tree[:len(tree)-1],
	} {
		requireT.ErrorIs(CheckTree(b), ErrGeneric)
	}
}
