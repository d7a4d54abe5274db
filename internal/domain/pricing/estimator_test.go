package pricing

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEstimator_Estimate(t *testing.T) {
	e, err := NewStaticEstimator("CNY", 0.02, map[string]float64{
		"Rice": 0.006,
		"鸡蛋":   0.016,
	})
	require.NoError(t, err)

	t.Run("listed and default rates", func(t *testing.T) {
		// Arrange
		items := []Item{
			{Name: "rice", QuantityGrams: 500},   // 3.00
			{Name: " 鸡蛋 ", QuantityGrams: 150},   // 2.40
			{Name: "saffron", QuantityGrams: 10}, // 0.20 at the default rate
		}

		// Act
		total, err := e.Estimate(context.Background(), items)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 5.6, total)
	})

	t.Run("rounded to cents", func(t *testing.T) {
		total, err := e.Estimate(context.Background(), []Item{{Name: "x", QuantityGrams: 0.333}})

		require.NoError(t, err)
		assert.Equal(t, 0.01, total)
	})

	t.Run("empty list costs nothing", func(t *testing.T) {
		total, err := e.Estimate(context.Background(), nil)

		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := e.Estimate(ctx, []Item{{Name: "rice", QuantityGrams: 1}})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewStaticEstimator_RejectsBadRates(t *testing.T) {
	_, err := NewStaticEstimator("CNY", -1, nil)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewStaticEstimator("CNY", 0.01, map[string]float64{"rice": math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestLoad(t *testing.T) {
	e, err := Load(strings.NewReader(`
currency: EUR
default_per_gram: 0.01
items:
  - {name: Kefir, per_gram: 0.004}
`))
	require.NoError(t, err)

	assert.Equal(t, "EUR", e.Currency())
	assert.Equal(t, 0.004, e.Rate("kefir"))
	assert.Equal(t, 0.01, e.Rate("milk"))
}

func TestDefault(t *testing.T) {
	e := Default()

	assert.Equal(t, "CNY", e.Currency())
	assert.Equal(t, 0.03, e.Rate("鸡胸肉"))
	assert.Equal(t, 0.02, e.Rate("unlisted"))
}
