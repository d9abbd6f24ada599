package tree

import (
	"bytes"
	"cmp"
)

// Compare defines the default total order of trees. Rational numbers are ordered by value and placed before
// everything else, other nodes are ordered by type, then by header, then by children.
func Compare(u, v Tree) int {
	uRational, vRational := u.Type().IsRational(), v.Type().IsRational()
	switch {
	case uRational && vRational:
		ru, _ := u.Rational()
		rv, _ := v.Rational()
		if c := ru.Cmp(rv); c != 0 {
			return c
		}
		return bytes.Compare(u.NodeBytes(), v.NodeBytes())
	case uRational:
		return -1
	case vRational:
		return 1
	}

	if c := cmp.Compare(u.Type(), v.Type()); c != 0 {
		return c
	}
	if c := bytes.Compare(u.NodeBytes(), v.NodeBytes()); c != 0 {
		return c
	}

	nu, nv := u.NumberOfChildren(), v.NumberOfChildren()
	cu, cv := u.NextNode(), v.NextNode()
	for i := range min(nu, nv) {
		if c := Compare(cu, cv); c != 0 {
			return c
		}
		if i < min(nu, nv)-1 {
			cu, cv = cu.NextTree(), cv.NextTree()
		}
	}
	return cmp.Compare(nu, nv)
}
