package rules_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/sigma/arena"
	"github.com/outofforest/sigma/notation"
	"github.com/outofforest/sigma/rules"
	"github.com/outofforest/sigma/test"
	"github.com/outofforest/sigma/types"
)

const yamlRules = `
rules:
  - name: distribute
    pattern: (mult A (add B C+))
    template: (add (mult A B) (mult A (add C+)))
  - name: square
    pattern: (mult A A)
    template: (pow A 2)
`

const tomlRules = `
[[rules]]
name = "distribute"
pattern = "(mult A (add B C+))"
template = "(add (mult A B) (mult A (add C+)))"

[[rules]]
name = "square"
pattern = "(mult A A)"
template = "(pow A 2)"
`

var expectedRules = []rules.Rule{
	{
		Name:     "distribute",
		Pattern:  "(mult A (add B C+))",
		Template: "(add (mult A B) (mult A (add C+)))",
	},
	{
		Name:     "square",
		Pattern:  "(mult A A)",
		Template: "(pow A 2)",
	},
}

func TestLoad(t *testing.T) {
	requireT := require.New(t)

	loaded, err := rules.Load(strings.NewReader(yamlRules), rules.FormatYAML)
	requireT.NoError(err)
	requireT.Equal(expectedRules, loaded)

	loaded, err = rules.Load(strings.NewReader(tomlRules), rules.FormatTOML)
	requireT.NoError(err)
	requireT.Equal(expectedRules, loaded)

	loaded, err = rules.Load(strings.NewReader(""), rules.FormatYAML)
	requireT.NoError(err)
	requireT.Empty(loaded)

	_, err = rules.Load(strings.NewReader("rules:\n  - name: x\n    unknown: y\n"), rules.FormatYAML)
	requireT.Error(err)
	_, err = rules.Load(strings.NewReader("[[rules]]\nname = \"x\"\nunknown = \"y\"\n"), rules.FormatTOML)
	requireT.Error(err)
}

func TestLoadFile(t *testing.T) {
	requireT := require.New(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "rules.yml")
	requireT.NoError(os.WriteFile(yamlPath, []byte(yamlRules), 0o600))
	tomlPath := filepath.Join(dir, "rules.TOML")
	requireT.NoError(os.WriteFile(tomlPath, []byte(tomlRules), 0o600))

	loaded, err := rules.LoadFile(yamlPath)
	requireT.NoError(err)
	requireT.Equal(expectedRules, loaded)

	loaded, err = rules.LoadFile(tomlPath)
	requireT.NoError(err)
	requireT.Equal(expectedRules, loaded)

	_, err = rules.LoadFile(filepath.Join(dir, "rules.json"))
	requireT.Error(err)
	_, err = rules.LoadFile(filepath.Join(dir, "missing.yaml"))
	requireT.Error(err)
}

func TestNewRejectsInvalidRules(t *testing.T) {
	for _, rs := range [][]rules.Rule{
		{{Name: "", Pattern: "A", Template: "A"}},
		{{Name: "a", Pattern: "(add A", Template: "A"}},
		{{Name: "a", Pattern: "A", Template: "(cos"}},
		{{Name: "a", Pattern: "(cos A)", Template: "(sin B)"}},
		{{Name: "a", Pattern: "(add A* B+)", Template: "(add A* B+)"}},
		{{Name: "a", Pattern: "A", Template: "A"}, {Name: "a", Pattern: "B", Template: "B"}},
	} {
		_, err := rules.New(rules.DefaultConfig, rs)
		require.Error(t, err)
	}

	_, err := rules.New(rules.Config{}, expectedRules)
	require.Error(t, err)

	_, err = rules.New(rules.DefaultConfig, []rules.Rule{{Name: "a", Pattern: "(cos A)", Template: "(sin B)"}})
	require.ErrorIs(t, err, types.ErrPattern)
}

func TestApply(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	engine, err := rules.New(rules.DefaultConfig, expectedRules)
	requireT.NoError(err)
	requireT.Equal([]string{"distribute", "square"}, engine.Rules())

	a := test.NewArena(t, 1024)
	root := test.Parse(t, a, "(mult x (add y z))")
	root, result, err := engine.Apply(ctx, root)
	requireT.NoError(err)
	requireT.Equal("(add (mult x y) (mult x z))", notation.Format(root))
	requireT.Equal([]string{"(mult x y)", "x", "y", "(mult x z)", "x", "z"},
		test.CollectFormatted(root.Descendants()))
	requireT.Equal(rules.StopFixpoint, result.Stop)
	requireT.Equal([]string{"distribute"}, result.Applied)
	requireT.Equal(1, result.Steps)
	requireT.Equal(root.TreeSize(), a.Size())

	// Rules apply to descendants too.
	a = test.NewArena(t, 1024)
	root = test.Parse(t, a, "(cos (mult (sin x) (sin x)))")
	root, result, err = engine.Apply(ctx, root)
	requireT.NoError(err)
	requireT.Equal("(cos (pow (sin x) 2))", notation.Format(root))
	requireT.Equal(map[string]int{"square": 1}, result.Counts())
	requireT.Equal(root.TreeSize(), a.Size())
}

func TestApplyFolds(t *testing.T) {
	requireT := require.New(t)
	ctx := test.Context(t)

	engine, err := rules.New(rules.DefaultConfig, expectedRules)
	requireT.NoError(err)

	a := test.NewArena(t, 1024)
	root := test.Parse(t, a, "(mult 2 (add 3 4))")
	root, result, err := engine.Apply(ctx, root)
	requireT.NoError(err)
	requireT.Equal("14", notation.Format(root))
	requireT.Zero(result.Steps)

	a = test.NewArena(t, 1024)
	root = test.Parse(t, a, "(mult 2 (add 3 x))")
	root, result, err = engine.Apply(ctx, root)
	requireT.NoError(err)
	requireT.Equal("(add 6 (mult 2 x))", notation.Format(root))
	requireT.Equal(1, result.Steps)

	config := rules.DefaultConfig
	config.Fold = false
	engine, err = rules.New(config, expectedRules)
	requireT.NoError(err)

	a = test.NewArena(t, 1024)
	root = test.Parse(t, a, "(mult 2 (add 3 4))")
	root, _, err = engine.Apply(ctx, root)
	requireT.NoError(err)
	requireT.Equal("(add (mult 2 3) (mult 2 4))", notation.Format(root))
}

func TestApplyStopsOnRepeatedState(t *testing.T) {
	requireT := require.New(t)

	engine, err := rules.New(rules.DefaultConfig, []rules.Rule{
		{Name: "commute", Pattern: "(add A B)", Template: "(add B A)"},
	})
	requireT.NoError(err)

	a := test.NewArena(t, 1024)
	root, result, err := engine.Apply(test.Context(t), test.Parse(t, a, "(add x y)"))
	requireT.NoError(err)
	requireT.Equal(rules.StopRepeated, result.Stop)
	requireT.Equal(2, result.Steps)
	requireT.Equal("(add x y)", notation.Format(root))
}

func TestApplyStopsAfterMaxSteps(t *testing.T) {
	requireT := require.New(t)

	engine, err := rules.New(rules.Config{MaxSteps: 3}, []rules.Rule{
		{Name: "wrap", Pattern: "A", Template: "(cos A)"},
	})
	requireT.NoError(err)

	a := test.NewArena(t, 1024)
	root, result, err := engine.Apply(test.Context(t), test.Parse(t, a, "x"))
	requireT.NoError(err)
	requireT.Equal(rules.StopMaxSteps, result.Stop)
	requireT.Equal("(cos (cos (cos x)))", notation.Format(root))
	requireT.Equal(root.TreeSize(), a.Size())
}

func TestApplyDisablesFoldingOnOverflow(t *testing.T) {
	requireT := require.New(t)

	engine, err := rules.New(rules.DefaultConfig, []rules.Rule{
		{Name: "explode", Pattern: "x", Template: "(pow 2 300)"},
		{Name: "shrink", Pattern: "y", Template: "(pow 2 10)"},
	})
	requireT.NoError(err)

	a := test.NewArena(t, 1024)
	root, result, err := engine.Apply(test.Context(t), test.Parse(t, a, "(list x y)"))
	requireT.NoError(err)
	requireT.Equal([]string{"explode", "shrink"}, result.Applied)
	requireT.Equal([]string{"explode", "shrink"}, test.SortedKeys(result.Counts()))
	requireT.Equal("(list (pow 2 300) 1024)", notation.Format(root))
}

func TestApplyFailureKeepsTree(t *testing.T) {
	requireT := require.New(t)

	engine, err := rules.New(rules.DefaultConfig, expectedRules)
	requireT.NoError(err)

	a := test.NewArena(t, 40)
	root := test.Parse(t, a, "(mult x (add y z))")
	blocks := append([]byte{}, a.Blocks()...)

	root, _, err = engine.Apply(test.Context(t), root)
	requireT.ErrorIs(err, types.ErrCapacityExceeded)
	requireT.Equal(blocks, a.Blocks())
	requireT.Equal("(mult x (add y z))", notation.Format(root))
	requireT.Zero(a.Depth())
}

func TestApplyCanceled(t *testing.T) {
	engine, err := rules.New(rules.DefaultConfig, expectedRules)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(test.Context(t))
	cancel()

	a := test.NewArena(t, 1024)
	_, _, err = engine.Apply(ctx, test.Parse(t, a, "(mult x (add y z))"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestEngineSharedAcrossArenas(t *testing.T) {
	engine, err := rules.New(rules.DefaultConfig, expectedRules)
	require.NoError(t, err)

	inputs := []string{
		"(mult x (add y z))",
		"(mult a a)",
		"(mult 2 (add 3 4))",
		"(mult u (add v w t))",
	}
	expected := []string{
		"(add (mult x y) (mult x z))",
		"(pow a 2)",
		"14",
		"(add (mult u v) (add (mult u w) (mult u t)))",
	}
	outputs := make([]string, len(inputs))

	require.NoError(t, test.RunArenas(test.Context(t), len(inputs), arena.DefaultConfig,
		func(ctx context.Context, i int, a *arena.Arena) error {
			root, err := notation.Parse(a, inputs[i])
			if err != nil {
				return err
			}
			root, _, err = engine.Apply(ctx, root)
			if err != nil {
				return err
			}
			outputs[i] = notation.Format(root)
			return nil
		}))
	require.Equal(t, expected, outputs)
}
