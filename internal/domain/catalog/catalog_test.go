package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_DefaultTable(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		in   string
		want Category
	}{
		{name: "exact chinese key", in: "鸡蛋", want: Proteins},
		{name: "exact with padding", in: "  鸡胸肉 ", want: Proteins},
		{name: "case insensitive", in: "Broccoli", want: Vegetables},
		{name: "longest key wins over shorter", in: "red bell pepper", want: Vegetables},
		{name: "longest chinese key wins", in: "番茄酱汁", want: Condiments},
		{name: "shorter key used when only one matches", in: "fresh spinach leaves", want: Vegetables},
		{name: "equal length tie goes to earlier entry", in: "boiled egg", want: Proteins},
		{name: "unknown", in: "dragon scale", want: Other},
		{name: "empty", in: "   ", want: Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.in))
		})
	}
}

func TestClassify_IsDeterministic(t *testing.T) {
	c := Default()
	for i := 0; i < 50; i++ {
		assert.Equal(t, Condiments, c.Classify("light coconut milk"))
	}
}

func TestNew(t *testing.T) {
	t.Run("tie broken by table order", func(t *testing.T) {
		c, err := New([]Entry{
			{Key: "ab", Category: Fruits},
			{Key: "cd", Category: Dairy},
		})
		require.NoError(t, err)

		assert.Equal(t, Fruits, c.Classify("xxcdab"))
	})

	t.Run("duplicate keeps first", func(t *testing.T) {
		c, err := New([]Entry{
			{Key: "Tofu", Category: Proteins},
			{Key: "tofu", Category: Condiments},
		})
		require.NoError(t, err)

		assert.Equal(t, 1, c.Len())
		assert.Equal(t, Proteins, c.Classify("TOFU"))
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		_, err := New([]Entry{{Key: "x", Category: "snacks"}})

		assert.ErrorIs(t, err, ErrUnknownCategory)
	})
}

func TestLoad(t *testing.T) {
	t.Run("valid table", func(t *testing.T) {
		c, err := Load(strings.NewReader(`
groups:
  - category: dairy
    names: [kefir]
`))
		require.NoError(t, err)
		assert.Equal(t, Dairy, c.Classify("Kefir"))
		assert.Equal(t, Other, c.Classify("milk"))
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		_, err := Load(strings.NewReader("groupz: []\n"))

		assert.Error(t, err)
	})
}

func TestCategories(t *testing.T) {
	cats := Categories()

	assert.Equal(t, []Category{Staples, Proteins, Vegetables, Fruits, Dairy, Condiments, Other}, cats)
	cats[0] = Other
	assert.Equal(t, Staples, Categories()[0])
}
