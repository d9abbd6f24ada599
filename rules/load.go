// Package rules loads rewrite rules and applies them to trees.
package rules

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/outofforest/sigma/notation"
	"github.com/outofforest/sigma/pattern"
	"github.com/outofforest/sigma/tree"
)

// Format is the encoding of rules file.
type Format int

// Supported formats.
const (
	FormatYAML Format = iota
	FormatTOML
)

// Rule rewrites trees matching Pattern into Template. Both are written in notation.
type Rule struct {
	Name     string `yaml:"name"     toml:"name"`
	Pattern  string `yaml:"pattern"  toml:"pattern"`
	Template string `yaml:"template" toml:"template"`
}

type file struct {
	Rules []Rule `yaml:"rules" toml:"rules"`
}

// FormatOf returns format of the file based on its extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return 0, errors.Errorf("unknown format of rules file %s", path)
	}
}

// LoadFile loads rules from file.
func LoadFile(path string) ([]Rule, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	rules, err := Load(f, format)
	return rules, errors.Wrapf(err, "loading rules from %s", path)
}

// Load decodes rules.
func Load(r io.Reader, format Format) ([]Rule, error) {
	var f file
	switch format {
	case FormatYAML:
		decoder := yaml.NewDecoder(r)
		decoder.KnownFields(true)
		if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.WithStack(err)
		}
	case FormatTOML:
		if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&f); err != nil {
			return nil, errors.WithStack(err)
		}
	default:
		return nil, errors.Errorf("unknown format %d", format)
	}
	return f.Rules, nil
}

type compiled struct {
	name     string
	pattern  tree.Tree
	template tree.Tree
}

func compile(rules []Rule) ([]compiled, error) {
	if duplicates := lo.FindDuplicatesBy(rules, func(r Rule) string { return r.Name }); len(duplicates) > 0 {
		return nil, errors.Errorf("rule %q defined more than once", duplicates[0].Name)
	}

	result := make([]compiled, 0, len(rules))
	for i, r := range rules {
		if r.Name == "" {
			return nil, errors.Errorf("rule %d has no name", i)
		}
		p, err := notation.Literal(r.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing pattern of rule %s", r.Name)
		}
		t, err := notation.Literal(r.Template)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing template of rule %s", r.Name)
		}
		if err := pattern.ValidateRule(p, t); err != nil {
			return nil, errors.Wrapf(err, "validating rule %s", r.Name)
		}
		result = append(result, compiled{
			name:     r.Name,
			pattern:  p,
			template: t,
		})
	}
	return result, nil
}
