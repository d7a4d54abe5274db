// Package catalog classifies ingredient names into shopping-list categories.
// Tables are loaded once and never change for the life of the process.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Category is a shopping-list bucket
type Category string

const (
	Staples    Category = "staples"
	Proteins   Category = "proteins"
	Vegetables Category = "vegetables"
	Fruits     Category = "fruits"
	Dairy      Category = "dairy"
	Condiments Category = "condiments"
	Other      Category = "other"
)

var categoryOrder = []Category{Staples, Proteins, Vegetables, Fruits, Dairy, Condiments, Other}

// Categories returns every bucket in shopping-list order; Other is always last
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// IsValid checks if the category is one of the known buckets
func (c Category) IsValid() bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// ErrUnknownCategory is returned when a table names a bucket that does not exist
var ErrUnknownCategory = errors.New("unknown ingredient category")

// Entry maps one ingredient key to its category
type Entry struct {
	Key      string
	Category Category
}

type indexedEntry struct {
	key      string
	runes    int
	category Category
}

// Catalog is an immutable name classifier
type Catalog struct {
	exact   map[string]Category
	entries []indexedEntry
}

// New builds a catalog from entries in priority order. Keys are matched
// case-insensitively; a repeated key keeps its first category.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		exact:   make(map[string]Category, len(entries)),
		entries: make([]indexedEntry, 0, len(entries)),
	}
	for _, e := range entries {
		if !e.Category.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, e.Category)
		}
		key := normalize(e.Key)
		if key == "" {
			continue
		}
		if _, dup := c.exact[key]; dup {
			continue
		}
		c.exact[key] = e.Category
		c.entries = append(c.entries, indexedEntry{
			key:      key,
			runes:    utf8.RuneCountInString(key),
			category: e.Category,
		})
	}
	return c, nil
}

// Classify returns the category for an ingredient name. An exact key match
// wins outright; otherwise the longest key contained in the name decides,
// with earlier table entries winning ties; anything else is Other.
func (c *Catalog) Classify(name string) Category {
	n := normalize(name)
	if n == "" {
		return Other
	}
	if cat, ok := c.exact[n]; ok {
		return cat
	}

	best := -1
	bestLen := 0
	for i, e := range c.entries {
		if e.runes > bestLen && strings.Contains(n, e.key) {
			best, bestLen = i, e.runes
		}
	}
	if best < 0 {
		return Other
	}
	return c.entries[best].category
}

// Len returns the number of distinct keys
func (c *Catalog) Len() int {
	return len(c.entries)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// tableFile is the on-disk layout of a category table
type tableFile struct {
	Groups []struct {
		Category Category `yaml:"category"`
		Names    []string `yaml:"names"`
	} `yaml:"groups"`
}

// Load parses a YAML category table
func Load(r io.Reader) (*Catalog, error) {
	var tf tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&tf); err != nil {
		return nil, fmt.Errorf("failed to decode catalog table: %w", err)
	}

	var entries []Entry
	for _, g := range tf.Groups {
		for _, name := range g.Names {
			entries = append(entries, Entry{Key: name, Category: g.Category})
		}
	}
	return New(entries)
}

// LoadFile reads a category table from disk
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

//go:embed catalog.yaml
var defaultTable []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in table. It panics if the embedded file is
// malformed, which can only happen through a bad build.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(bytes.NewReader(defaultTable))
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
