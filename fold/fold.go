// Package fold evaluates operations on rational numbers in place.
package fold

import (
	"math/big"

	"github.com/outofforest/sigma/nary"
	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

// maxExponent limits exponents evaluated by power folding.
const maxExponent = 512

// Reduce folds the node assuming its children are folded already. It may be used as pattern.Reducer.
func Reduce(node tree.Tree) error {
	_, err := reduce(node)
	return err
}

// Deep folds the whole tree bottom-up.
func Deep(node tree.Tree) (bool, error) {
	var changed bool
	for i := range node.NumberOfChildren() {
		c, err := Deep(node.Child(i))
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	c, err := reduce(node)
	return changed || c, err
}

func reduce(node tree.Tree) (bool, error) {
	switch node.Type() {
	case types.TypeAdd:
		return reduceNAry(node, new(big.Rat), func(acc, v *big.Rat) { acc.Add(acc, v) })
	case types.TypeMult:
		return reduceNAry(node, big.NewRat(1, 1), func(acc, v *big.Rat) { acc.Mul(acc, v) })
	case types.TypeOpposite:
		v, ok := node.Child(0).Rational()
		if !ok {
			return false, nil
		}
		return replace(node, v.Neg(v))
	case types.TypeSub:
		u, v, ok := operands(node)
		if !ok {
			return false, nil
		}
		return replace(node, u.Sub(u, v))
	case types.TypeDiv:
		u, v, ok := operands(node)
		if !ok || v.Sign() == 0 {
			return false, nil
		}
		return replace(node, u.Quo(u, v))
	case types.TypePow:
		return reducePow(node)
	default:
		return false, nil
	}
}

func reduceNAry(node tree.Tree, acc *big.Rat, op func(acc, v *big.Rat)) (bool, error) {
	neutral := new(big.Rat).Set(acc)
	var numbers int
	for _, child := range node.Children() {
		if v, ok := child.Rational(); ok {
			op(acc, v)
			numbers++
		}
	}

	n := node.NumberOfChildren()
	absorbing := node.Type() == types.TypeMult && numbers > 0 && acc.Sign() == 0
	if numbers == n || absorbing {
		return replace(node, acc)
	}
	if numbers == 0 || (numbers == 1 && acc.Cmp(neutral) != 0) {
		return false, nil
	}

	var folded []byte
	if acc.Cmp(neutral) != 0 {
		var err error
		if folded, err = tree.AppendRational(nil, acc); err != nil {
			return false, err
		}
	}
	for i := n - 1; i >= 0; i-- {
		if node.Child(i).Type().IsRational() {
			nary.RemoveChildAt(node, i)
		}
	}
	if folded != nil {
		if _, err := node.NextNode().CloneTreeBefore(tree.Literal(folded)); err != nil {
			return false, err
		}
		nary.SetNumberOfChildren(node, node.NumberOfChildren()+1)
	}
	_, err := nary.Sanitize(node)
	return true, err
}

func reducePow(node tree.Tree) (bool, error) {
	base, ok := node.Child(0).Rational()
	if !ok {
		return false, nil
	}
	exponent, ok := node.Child(1).Integer()
	if !ok || !exponent.IsInt64() {
		return false, nil
	}
	e := exponent.Int64()
	if e > maxExponent || e < -maxExponent || (e <= 0 && base.Sign() == 0) {
		return false, nil
	}

	negative := e < 0
	if negative {
		e = -e
	}
	num := new(big.Int).Exp(base.Num(), big.NewInt(e), nil)
	den := new(big.Int).Exp(base.Denom(), big.NewInt(e), nil)
	result := new(big.Rat).SetFrac(num, den)
	if negative {
		result.Inv(result)
	}
	return replace(node, result)
}

func operands(node tree.Tree) (*big.Rat, *big.Rat, bool) {
	u, ok := node.Child(0).Rational()
	if !ok {
		return nil, nil, false
	}
	v, ok := node.Child(1).Rational()
	if !ok {
		return nil, nil, false
	}
	return u, v, true
}

func replace(node tree.Tree, v *big.Rat) (bool, error) {
	b, err := tree.AppendRational(nil, v)
	if err != nil {
		return false, err
	}
	if _, err := node.CloneTreeOverTree(tree.Literal(b)); err != nil {
		return false, err
	}
	return true, nil
}
