package aggregation

import (
	"context"
	"errors"
	"testing"

	"github.com/alchemorsel/mealplan/internal/domain/catalog"
	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/pricing"
	apperrors "github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type failingEstimator struct{}

func (failingEstimator) Estimate(context.Context, []pricing.Item) (float64, error) {
	return 0, errors.New("price feed down")
}

// AggregatorTestSuite covers shopping-list aggregation
type AggregatorTestSuite struct {
	suite.Suite
	week       mealplan.WeekStart
	aggregator *Aggregator
}

func (suite *AggregatorTestSuite) SetupTest() {
	suite.week = mealplan.MustParseWeekStart("2024-03-04")
	estimator, err := pricing.NewStaticEstimator("CNY", 0.02, map[string]float64{"鸡蛋": 0.016})
	require.NoError(suite.T(), err)
	suite.aggregator = NewAggregator(catalog.Default(), estimator, zap.NewNop())
}

func (suite *AggregatorTestSuite) recipe(name string, ings ...mealplan.Ingredient) *mealplan.Recipe {
	r, err := mealplan.NewRecipe(name, "", suite.week, mealplan.Monday, mealplan.Dinner)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), r.ReplaceIngredients(ings))
	return r
}

func (suite *AggregatorTestSuite) bucket(list *ShoppingList, c catalog.Category) Bucket {
	for _, b := range list.Buckets {
		if b.Category == c {
			return b
		}
	}
	suite.FailNow("bucket missing", string(c))
	return Bucket{}
}

func (suite *AggregatorTestSuite) TestAggregate() {
	suite.Run("SameIngredientAcrossRecipes_ShouldSum", func() {
		// Arrange
		recipes := []*mealplan.Recipe{
			suite.recipe("Omelette", mealplan.Ingredient{Name: "鸡蛋", QuantityGrams: 50}),
			suite.recipe("Fried rice", mealplan.Ingredient{Name: "鸡蛋", QuantityGrams: 100}),
		}

		// Act
		list, err := suite.aggregator.Aggregate(context.Background(), suite.week, recipes)

		// Assert
		require.NoError(suite.T(), err)
		proteins := suite.bucket(list, catalog.Proteins)
		require.Len(suite.T(), proteins.Items, 1)
		assert.Equal(suite.T(), Item{Name: "鸡蛋", TotalQuantityGrams: 150}, proteins.Items[0])
		require.True(suite.T(), list.PriceAvailable())
		assert.Equal(suite.T(), 2.4, *list.TotalPrice)
	})

	suite.Run("NamesDifferingInCaseAndSpace_ShouldMerge", func() {
		recipes := []*mealplan.Recipe{
			suite.recipe("A", mealplan.Ingredient{Name: "Rice", QuantityGrams: 100}),
			suite.recipe("B", mealplan.Ingredient{Name: " rice ", QuantityGrams: 150}),
		}

		list, err := suite.aggregator.Aggregate(context.Background(), suite.week, recipes)

		require.NoError(suite.T(), err)
		staples := suite.bucket(list, catalog.Staples)
		require.Len(suite.T(), staples.Items, 1)
		assert.Equal(suite.T(), 250.0, staples.Items[0].TotalQuantityGrams)
		assert.Equal(suite.T(), 1, list.ItemCount)
	})

	suite.Run("AllBucketsPresentInFixedOrder", func() {
		list, err := suite.aggregator.Aggregate(context.Background(), suite.week, nil)

		require.NoError(suite.T(), err)
		require.Len(suite.T(), list.Buckets, len(catalog.Categories()))
		for i, c := range catalog.Categories() {
			assert.Equal(suite.T(), c, list.Buckets[i].Category)
			assert.NotNil(suite.T(), list.Buckets[i].Items)
		}
		assert.Equal(suite.T(), catalog.Other, list.Buckets[len(list.Buckets)-1].Category)
		require.NotNil(suite.T(), list.TotalPrice)
		assert.Zero(suite.T(), *list.TotalPrice)
	})

	suite.Run("UnknownIngredient_ShouldLandInOther", func() {
		recipes := []*mealplan.Recipe{
			suite.recipe("Mystery", mealplan.Ingredient{Name: "dragon fruit jam", QuantityGrams: 30}),
		}

		list, err := suite.aggregator.Aggregate(context.Background(), suite.week, recipes)

		require.NoError(suite.T(), err)
		other := suite.bucket(list, catalog.Other)
		require.Len(suite.T(), other.Items, 1)
		assert.Equal(suite.T(), "dragon fruit jam", other.Items[0].Name)
	})

	suite.Run("ItemsSortedByName", func() {
		recipes := []*mealplan.Recipe{
			suite.recipe("Veg",
				mealplan.Ingredient{Name: "spinach", QuantityGrams: 10},
				mealplan.Ingredient{Name: "broccoli", QuantityGrams: 10},
				mealplan.Ingredient{Name: "carrot", QuantityGrams: 10},
			),
		}

		list, err := suite.aggregator.Aggregate(context.Background(), suite.week, recipes)

		require.NoError(suite.T(), err)
		veg := suite.bucket(list, catalog.Vegetables)
		require.Len(suite.T(), veg.Items, 3)
		assert.Equal(suite.T(), []string{"broccoli", "carrot", "spinach"},
			[]string{veg.Items[0].Name, veg.Items[1].Name, veg.Items[2].Name})
	})
}

func (suite *AggregatorTestSuite) TestAggregate_OrderIndependent() {
	r1 := suite.recipe("A",
		mealplan.Ingredient{Name: "rice", QuantityGrams: 0.1},
		mealplan.Ingredient{Name: "milk", QuantityGrams: 200},
	)
	r2 := suite.recipe("B", mealplan.Ingredient{Name: "rice", QuantityGrams: 0.2})
	r3 := suite.recipe("C", mealplan.Ingredient{Name: "rice", QuantityGrams: 0.3})

	a, err := suite.aggregator.Aggregate(context.Background(), suite.week, []*mealplan.Recipe{r1, r2, r3})
	require.NoError(suite.T(), err)
	b, err := suite.aggregator.Aggregate(context.Background(), suite.week, []*mealplan.Recipe{r3, r1, r2})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), a, b)
}

func (suite *AggregatorTestSuite) TestAggregate_PricingUnavailable() {
	// Arrange
	agg := NewAggregator(catalog.Default(), failingEstimator{}, zap.NewNop())
	recipes := []*mealplan.Recipe{suite.recipe("A", mealplan.Ingredient{Name: "rice", QuantityGrams: 100})}

	// Act
	list, err := agg.Aggregate(context.Background(), suite.week, recipes)

	// Assert
	require.NoError(suite.T(), err)
	assert.False(suite.T(), list.PriceAvailable())
	assert.Nil(suite.T(), list.TotalPrice)
	require.NotNil(suite.T(), list.PricingError)
	assert.True(suite.T(), apperrors.Is(list.PricingError, apperrors.CodePricingUnavailable))
	assert.Equal(suite.T(), suite.week.String(), list.PricingError.Metadata["week"])
	assert.Equal(suite.T(), 100.0, suite.bucket(list, catalog.Staples).Items[0].TotalQuantityGrams)
}

func (suite *AggregatorTestSuite) TestAggregate_Cancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	list, err := suite.aggregator.Aggregate(ctx, suite.week, []*mealplan.Recipe{suite.recipe("A")})

	assert.Nil(suite.T(), list)
	assert.ErrorIs(suite.T(), err, context.Canceled)
}

func TestAggregatorTestSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}
