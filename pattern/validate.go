package pattern

import (
	"github.com/pkg/errors"

	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

// Validate checks that pattern may be matched. Absorbing placeholders must be children of simple variadic nodes,
// at most one per node, and every tag must be used with the same kind of filter.
func Validate(pattern tree.Tree) error {
	_, err := placeholders(pattern)
	return err
}

// ValidateRule checks pattern and verifies that template uses only placeholders bound by pattern.
func ValidateRule(pattern, template tree.Tree) error {
	bound, err := placeholders(pattern)
	if err != nil {
		return err
	}
	used, err := placeholders(template)
	if err != nil && !errors.Is(err, errMultipleAbsorbing) {
		return err
	}
	for tag, anyTree := range used {
		boundAny, ok := bound[tag]
		if !ok {
			return errors.Wrapf(types.ErrPattern, "placeholder %s is not bound by pattern", tag)
		}
		if boundAny != anyTree {
			return errors.Wrapf(types.ErrPattern, "placeholder %s used with different filters", tag)
		}
	}
	return nil
}

var errMultipleAbsorbing = errors.Wrap(types.ErrPattern, "more than one absorbing placeholder")

// placeholders returns tags used by the tree, mapped to true if they absorb runs of siblings.
func placeholders(t tree.Tree) (map[types.Tag]bool, error) {
	tags := map[types.Tag]bool{}
	var multiple bool
	for node := range t.SelfAndDescendants() {
		if node.IsNAry() && absorbingChildren(node) > 1 {
			multiple = true
		}
		if node.Type() != types.TypePlaceholder {
			continue
		}

		tag, filter := node.Placeholder()
		if tag >= types.NumberOfTags || filter > types.FilterOneOrMore {
			return nil, errors.Wrapf(types.ErrPattern, "invalid placeholder %#x", node.Value(0))
		}
		anyTree := filter != types.FilterOne
		if prev, ok := tags[tag]; ok && prev != anyTree {
			return nil, errors.Wrapf(types.ErrPattern, "placeholder %s used with different filters", tag)
		}
		tags[tag] = anyTree

		if anyTree {
			parent, _, ok := t.ParentOf(node)
			if !ok || !parent.Type().IsSimpleNAry() {
				return nil, errors.Wrapf(types.ErrPattern, "absorbing placeholder %s outside variadic node", tag)
			}
		}
	}
	if multiple {
		return tags, errors.WithStack(errMultipleAbsorbing)
	}
	return tags, nil
}
