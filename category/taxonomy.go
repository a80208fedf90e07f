// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package category maps free-text business types to the fixed places taxonomy.
package category

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jcodagnone/cerca/utils/textutils"
	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

// Entry is a canonical category of the taxonomy.
type Entry struct {
	// Path is the canonical dotted path, e.g. "healthcare.pharmacy".
	Path string
	// Aliases are extra spellings (locale synonyms) matched like the path.
	Aliases []string
}

// Leaf returns the most specific segment of the path.
func (e Entry) Leaf() string {
	return e.Path[strings.LastIndexByte(e.Path, '.')+1:]
}

// Group returns the top level domain of the path.
func (e Entry) Group() string {
	if i := strings.IndexByte(e.Path, '.'); i >= 0 {
		return e.Path[:i]
	}

	return e.Path
}

// UnmarshalYAML accepts either a bare path or a single key mapping from the
// path to its aliases.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.Path = node.Value

		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: category entry must have exactly one key", node.Line)
		}

		e.Path = node.Content[0].Value

		return node.Content[1].Decode(&e.Aliases)
	default:
		return fmt.Errorf("line %d: unexpected category entry", node.Line)
	}
}

type taxonomyDocument struct {
	Groups []struct {
		Name       string  `yaml:"name"`
		Categories []Entry `yaml:"categories"`
	} `yaml:"groups"`
}

// Taxonomy is the ordered, read-only set of canonical categories. It is safe
// for concurrent use once built.
type Taxonomy struct {
	entries []Entry
	byPath  map[string]int
	groups  []string
}

// ParseTaxonomy builds a taxonomy from its YAML representation.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var doc taxonomyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}

	t := &Taxonomy{byPath: make(map[string]int)}

	for _, g := range doc.Groups {
		t.groups = append(t.groups, g.Name)

		for _, e := range g.Categories {
			e.Path = strings.TrimSpace(e.Path)
			if e.Path == "" {
				return nil, fmt.Errorf("group %q: empty category path", g.Name)
			}

			if _, dup := t.byPath[e.Path]; dup {
				return nil, fmt.Errorf("duplicate category %q", e.Path)
			}

			for i, alias := range e.Aliases {
				e.Aliases[i] = textutils.Slug(alias)
			}

			t.byPath[e.Path] = len(t.entries)
			t.entries = append(t.entries, e)
		}
	}

	if len(t.entries) == 0 {
		return nil, errors.New("taxonomy has no categories")
	}

	return t, nil
}

// MustDefault returns the embedded places taxonomy. It panics if the embedded
// document is invalid, which is covered by tests.
func MustDefault() *Taxonomy {
	t, err := ParseTaxonomy(taxonomyYAML)
	if err != nil {
		panic(err)
	}

	return t
}

// Entries returns a copy of the categories in declaration order.
func (t *Taxonomy) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)

	return out
}

// Groups returns the group names in declaration order.
func (t *Taxonomy) Groups() []string {
	return append([]string(nil), t.groups...)
}

// Contains reports whether path is a canonical category.
func (t *Taxonomy) Contains(path string) bool {
	_, ok := t.byPath[path]

	return ok
}

// Len returns the number of categories.
func (t *Taxonomy) Len() int {
	return len(t.entries)
}
