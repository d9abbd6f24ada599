package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/history"
	"github.com/outofforest/sigma/notation"
	"github.com/outofforest/sigma/rules"
	"github.com/outofforest/sigma/tree"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sigma",
		Short:         "Rewrites algebraic expressions with pattern rules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRewriteCommand(),
		newFormatCommand(),
		newHashCommand(),
		newHistoryCommand(),
	)
	return root
}

type rewriteFlags struct {
	rulesFile       string
	maxSteps        int
	noFold          bool
	arenaSize       uint64
	useMmap         bool
	useHugePages    bool
	historyFile     string
	historyCapacity uint64
}

func newRewriteCommand() *cobra.Command {
	var flags rewriteFlags
	cmd := &cobra.Command{
		Use:   "rewrite [expression...]",
		Short: "Applies rules to expressions, each one is rewritten concurrently in its own arena",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rewrite(cmd.Context(), cmd.OutOrStdout(), flags, args)
		},
	}
	cmd.Flags().StringVarP(&flags.rulesFile, "rules", "r", "", "rules file in YAML or TOML format")
	cmd.Flags().IntVar(&flags.maxSteps, "max-steps", rules.DefaultConfig.MaxSteps,
		"maximum number of rules applied to one expression")
	cmd.Flags().BoolVar(&flags.noFold, "no-fold", false, "disables constant folding")
	cmd.Flags().Uint64Var(&flags.arenaSize, "arena-size", arena.DefaultSize, "number of blocks in each arena")
	cmd.Flags().BoolVar(&flags.useMmap, "mmap", false, "allocates arenas using mmap")
	cmd.Flags().BoolVar(&flags.useHugePages, "huge-pages", false, "uses huge pages for mmap-allocated arenas")
	cmd.Flags().StringVar(&flags.historyFile, "history", "", "file to export inputs and outputs to")
	cmd.Flags().Uint64Var(&flags.historyCapacity, "history-capacity", history.DefaultConfig.Capacity,
		"number of bytes available for history records")
	lo.Must0(cmd.MarkFlagRequired("rules"))
	return cmd
}

type outcome struct {
	input  []byte
	output []byte
	result rules.Result
}

func rewrite(ctx context.Context, out io.Writer, flags rewriteFlags, expressions []string) error {
	runID := uuid.New()
	log := logger.Get(ctx).With(zap.Stringer("runID", runID))
	ctx = logger.WithLogger(ctx, log)

	rs, err := rules.LoadFile(flags.rulesFile)
	if err != nil {
		return err
	}
	config := rules.DefaultConfig
	config.MaxSteps = flags.maxSteps
	config.Fold = !flags.noFold
	engine, err := rules.New(config, rs)
	if err != nil {
		return err
	}
	log.Info("Rules loaded", zap.Strings("rules", engine.Rules()))

	outcomes := make([]outcome, len(expressions))
	err = parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for i, expression := range expressions {
			spawn(fmt.Sprintf("expression-%02d", i), parallel.Continue, func(ctx context.Context) error {
				o, err := rewriteExpression(ctx, engine, flags, expression)
				if err != nil {
					return errors.Wrapf(err, "rewriting expression %d", i)
				}
				outcomes[i] = o
				log.Info("Expression rewritten",
					zap.Int("expression", i),
					zap.Int("steps", o.result.Steps),
					zap.Stringer("stop", o.result.Stop),
					zap.Any("applied", o.result.Counts()))
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, o := range outcomes {
		if _, err := fmt.Fprintln(out, notation.Format(tree.Literal(o.output))); err != nil {
			return errors.WithStack(err)
		}
	}

	if flags.historyFile == "" {
		return nil
	}
	return exportHistory(flags, expressions, outcomes)
}

func rewriteExpression(
	ctx context.Context,
	engine *rules.Engine,
	flags rewriteFlags,
	expression string,
) (outcome, error) {
	a, deallocFunc, err := arena.New(arena.Config{
		Size:          flags.arenaSize,
		MaxReferences: arena.DefaultMaxReferences,
		UseMmap:       flags.useMmap,
		UseHugePages:  flags.useHugePages,
	})
	if err != nil {
		return outcome{}, err
	}
	defer deallocFunc()

	root, err := notation.Parse(a, expression)
	if err != nil {
		return outcome{}, err
	}
	input := slices.Clone(root.Bytes())

	root, result, err := engine.Apply(ctx, root)
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		input:  input,
		output: slices.Clone(root.Bytes()),
		result: result,
	}, nil
}

func exportHistory(flags rewriteFlags, expressions []string, outcomes []outcome) error {
	l, err := history.New(history.Config{
		Capacity:   flags.historyCapacity,
		MaxEntries: uint64(2 * len(outcomes)),
	})
	if err != nil {
		return err
	}
	for i, o := range outcomes {
		if _, err := l.Append(expressions[i], tree.Literal(o.input)); err != nil {
			return err
		}
		if _, err := l.Append(fmt.Sprintf("%s after %d steps", expressions[i], o.result.Steps),
			tree.Literal(o.output)); err != nil {
			return err
		}
	}

	f, err := os.Create(flags.historyFile)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	if err := l.Export(f); err != nil {
		return err
	}
	return errors.WithStack(f.Sync())
}

func newFormatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "format [expression...]",
		Short: "Prints expressions in canonical notation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, expression := range args {
				t, err := notation.Literal(expression)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), notation.Format(t)); err != nil {
					return errors.WithStack(err)
				}
			}
			return nil
		},
	}
}

func newHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash [expression...]",
		Short: "Prints content hash and blake3 checksum of expressions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, expression := range args {
				t, err := notation.Literal(expression)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%016x %x %s\n", t.Hash(), blake3.Sum256(t.Bytes()),
					notation.Format(t)); err != nil {
					return errors.WithStack(err)
				}
			}
			return nil
		},
	}
}

func newHistoryCommand() *cobra.Command {
	config := history.DefaultConfig
	cmd := &cobra.Command{
		Use:   "history [file]",
		Short: "Prints trees stored in exported history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.WithStack(err)
			}
			defer f.Close()

			l, err := history.Import(f, config)
			if err != nil {
				return err
			}

			a, deallocFunc, err := arena.New(arena.DefaultConfig)
			if err != nil {
				return err
			}
			defer deallocFunc()

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "log %s\n", l.ID()); err != nil {
				return errors.WithStack(err)
			}
			for _, e := range l.Entries() {
				a.Flush()
				t, err := l.Revive(a, e)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(out, "%d %x %q %s\n", e.Sequence, e.Checksum[:8], e.Label,
					notation.Format(t)); err != nil {
					return errors.WithStack(err)
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&config.Capacity, "capacity", config.Capacity, "number of bytes available for records")
	cmd.Flags().Uint64Var(&config.MaxEntries, "max-entries", config.MaxEntries, "maximum number of records")
	return cmd
}
