// Package pricing estimates the cost of a shopping list.
// Estimates are an approximation from a static per-gram table; they are
// not a quote from any store.
package pricing

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Item is one summed ingredient to price
type Item struct {
	Name          string
	QuantityGrams float64
}

// Estimator prices a set of summed ingredients
type Estimator interface {
	Estimate(ctx context.Context, items []Item) (float64, error)
}

// ErrInvalidRate is returned when a table holds a negative or non-finite rate
var ErrInvalidRate = errors.New("price per gram must be a finite number >= 0")

// StaticEstimator prices from a fixed per-gram table
type StaticEstimator struct {
	currency       string
	defaultPerGram float64
	perGram        map[string]float64
}

// NewStaticEstimator builds an estimator; names are matched after trimming and lower-casing
func NewStaticEstimator(currency string, defaultPerGram float64, perGram map[string]float64) (*StaticEstimator, error) {
	if !validRate(defaultPerGram) {
		return nil, ErrInvalidRate
	}
	e := &StaticEstimator{
		currency:       currency,
		defaultPerGram: defaultPerGram,
		perGram:        make(map[string]float64, len(perGram)),
	}
	for name, rate := range perGram {
		if !validRate(rate) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRate, name)
		}
		e.perGram[normalize(name)] = rate
	}
	return e, nil
}

// Estimate returns Σ grams × rate rounded to two decimals
func (e *StaticEstimator) Estimate(ctx context.Context, items []Item) (float64, error) {
	var total float64
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		total += it.QuantityGrams * e.Rate(it.Name)
	}
	return math.Round(total*100) / 100, nil
}

// Rate returns the per-gram price for a name, falling back to the default
func (e *StaticEstimator) Rate(name string) float64 {
	if rate, ok := e.perGram[normalize(name)]; ok {
		return rate
	}
	return e.defaultPerGram
}

// Currency returns the currency code of the table
func (e *StaticEstimator) Currency() string {
	return e.currency
}

func validRate(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r >= 0
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type priceFile struct {
	Currency       string  `yaml:"currency"`
	DefaultPerGram float64 `yaml:"default_per_gram"`
	Items          []struct {
		Name    string  `yaml:"name"`
		PerGram float64 `yaml:"per_gram"`
	} `yaml:"items"`
}

// Load parses a YAML price table
func Load(r io.Reader) (*StaticEstimator, error) {
	var pf priceFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("failed to decode price table: %w", err)
	}

	rates := make(map[string]float64, len(pf.Items))
	for _, it := range pf.Items {
		if _, dup := rates[normalize(it.Name)]; dup {
			continue
		}
		rates[normalize(it.Name)] = it.PerGram
	}
	return NewStaticEstimator(pf.Currency, pf.DefaultPerGram, rates)
}

// LoadFile reads a price table from disk
func LoadFile(path string) (*StaticEstimator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

//go:embed prices.yaml
var defaultTable []byte

var (
	defaultOnce      sync.Once
	defaultEstimator *StaticEstimator
)

// Default returns the built-in price table
func Default() *StaticEstimator {
	defaultOnce.Do(func() {
		e, err := Load(bytes.NewReader(defaultTable))
		if err != nil {
			panic(err)
		}
		defaultEstimator = e
	})
	return defaultEstimator
}
