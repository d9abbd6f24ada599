package test

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"testing"

	"golang.org/x/exp/constraints"

	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/notation"
	"github.com/outofforest/sigma/tree"
)

// Context returns context carrying logger, canceled once test finishes.
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), logger.New(logger.DefaultConfig)))
	t.Cleanup(cancel)
	return ctx
}

// SortedKeys returns keys of the map in ascending order.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	return keys
}

// CollectFormatted collects trees produced by iterator in notation.
func CollectFormatted(seq iter.Seq[tree.Tree]) []string {
	items := []string{}
	for t := range seq {
		items = append(items, notation.Format(t))
	}
	return items
}

// RunArenas runs fn n times concurrently, each call gets its own arena.
func RunArenas(
	ctx context.Context,
	n int,
	config arena.Config,
	fn func(ctx context.Context, i int, a *arena.Arena) error,
) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for i := range n {
			spawn(fmt.Sprintf("arena-%02d", i), parallel.Continue, func(ctx context.Context) error {
				a, deallocFunc, err := arena.New(config)
				if err != nil {
					return err
				}
				defer deallocFunc()

				return fn(ctx, i, a)
			})
		}
		return nil
	})
}
