package pattern

import (
	"github.com/pkg/errors"

	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/nary"
	"github.com/outofforest/sigma/tree"
	"github.com/outofforest/sigma/types"
)

// Reducer folds the node created at the end of the arena in place.
type Reducer func(node tree.Tree) error

// Create builds tree from template at the end of the arena, substituting placeholders with clones of trees
// bound in ctx. Created variadic nodes other than sets are sanitized. If reducer is given, it is called on every
// created node once its children are complete. Nothing is left in the arena if error is returned.
func Create(a *arena.Arena, template tree.Tree, ctx Context, reducer Reducer) (tree.Tree, error) {
	top := a.Size()
	err := a.Run(func() error {
		return create(a, template, ctx, tree.Tree{}, false, reducer)
	})
	if err != nil {
		return tree.Tree{}, err
	}
	return tree.In(a, top), nil
}

// MatchCreate matches source against pattern and creates template using the bindings.
func MatchCreate(a *arena.Arena, source, pattern, template tree.Tree) (tree.Tree, bool, error) {
	var ctx Context
	if !Match(pattern, source, &ctx) {
		return tree.Tree{}, false, nil
	}
	created, err := Create(a, template, ctx, nil)
	if err != nil {
		return tree.Tree{}, false, err
	}
	return created, true, nil
}

// create pushes template. If withinNAry is set, header of template has been already pushed as inserted
// and only its children are created here.
func create(
	a *arena.Arena,
	template tree.Tree,
	ctx Context,
	inserted tree.Tree,
	withinNAry bool,
	reducer Reducer,
) error {
	end := template.Offset() + template.TreeSize()
	node := template
	if withinNAry {
		node = template.NextNode()
	}

	for node.Offset() < end {
		if node.Type() != types.TypePlaceholder {
			n := node.NumberOfChildren()
			switch {
			case node.Type().IsSimpleNAry():
				// Whole variadic node is created recursively so its number of children may be adjusted.
				created, err := tree.CloneNode(a, node)
				if err != nil {
					return err
				}
				if err := create(a, node, ctx, created, true, reducer); err != nil {
					return err
				}
				if err := finish(created, reducer); err != nil {
					return err
				}
				node = node.NextTree()
			case withinNAry && n > 0:
				// Placeholders inside must not modify the enclosing variadic node.
				if err := create(a, node, ctx, tree.Tree{}, false, reducer); err != nil {
					return err
				}
				node = node.NextTree()
			default:
				created, err := tree.CloneNode(a, node)
				if err != nil {
					return err
				}
				node = node.NextNode()
				if reducer != nil {
					for range n {
						if err := create(a, node, ctx, tree.Tree{}, false, reducer); err != nil {
							return err
						}
						node = node.NextTree()
					}
					if err := reducer(created); err != nil {
						return err
					}
				}
			}
			continue
		}

		tag, filter := node.Placeholder()
		b := ctx.bindings[tag]
		if !b.bound {
			return errors.Wrapf(types.ErrPattern, "placeholder %s is not bound", tag)
		}
		if b.anyTree != (filter != types.FilterOne) {
			return errors.Wrapf(types.ErrPattern, "placeholder %s used with different filters", tag)
		}
		if !withinNAry && b.n != 1 {
			return errors.Wrapf(types.ErrPattern, "%d trees bound to %s can't be created outside variadic node",
				b.n, tag)
		}

		if b.n != 1 {
			if err := setNumberOfChildren(inserted, inserted.NumberOfChildren()+b.n-1); err != nil {
				return err
			}
		}
		src := b.first
		for i := range b.n {
			if _, err := tree.Clone(a, src); err != nil {
				return err
			}
			if i < b.n-1 {
				src = src.NextTree()
			}
		}
		node = node.NextNode()
	}
	return nil
}

func finish(created tree.Tree, reducer Reducer) error {
	if created.Type() != types.TypeSet {
		if _, err := nary.Sanitize(created); err != nil {
			return err
		}
	}
	if reducer != nil {
		return reducer(created)
	}
	return nil
}

func setNumberOfChildren(node tree.Tree, n int) error {
	if n > types.MaxChildren(node.Type()) {
		return errors.Wrapf(types.ErrCapacityExceeded, "%d children exceed limit of %s", n, node.Type())
	}
	nary.SetNumberOfChildren(node, n)
	return nil
}
