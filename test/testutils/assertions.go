// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RecipeAssertions provides recipe-specific assertion methods
type RecipeAssertions struct {
	t testing.TB
}

// NewRecipeAssertions creates a new recipe assertions helper
func NewRecipeAssertions(t testing.TB) *RecipeAssertions {
	return &RecipeAssertions{t: t}
}

// SameRecipe asserts that two recipes carry the same stored state. Timestamps
// are compared at second precision since databases truncate them differently.
func (ra *RecipeAssertions) SameRecipe(expected, actual *mealplan.Recipe, msgAndArgs ...interface{}) {
	ra.t.Helper()
	require.NotNil(ra.t, actual, msgAndArgs...)

	assert.Equal(ra.t, expected.ID(), actual.ID(), msgAndArgs...)
	assert.Equal(ra.t, expected.Name(), actual.Name(), msgAndArgs...)
	assert.Equal(ra.t, expected.Description(), actual.Description(), msgAndArgs...)
	assert.Equal(ra.t, expected.Week(), actual.Week(), msgAndArgs...)
	assert.Equal(ra.t, expected.Day(), actual.Day(), msgAndArgs...)
	assert.Equal(ra.t, expected.Meal(), actual.Meal(), msgAndArgs...)
	assert.Equal(ra.t, expected.Ingredients(), actual.Ingredients(), msgAndArgs...)
	assert.Equal(ra.t, expected.Nutrition(), actual.Nutrition(), msgAndArgs...)
	assert.WithinDuration(ra.t, expected.CreatedAt(), actual.CreatedAt(), 1e9, msgAndArgs...)
}

// SameRecipeSet asserts both slices hold the same recipes, in any order
func (ra *RecipeAssertions) SameRecipeSet(expected, actual []*mealplan.Recipe) {
	ra.t.Helper()
	require.Len(ra.t, actual, len(expected))

	byID := make(map[string]*mealplan.Recipe, len(actual))
	for _, r := range actual {
		byID[r.ID().String()] = r
	}
	for _, want := range expected {
		got, ok := byID[want.ID().String()]
		if assert.True(ra.t, ok, "missing recipe %s", want.ID()) {
			ra.SameRecipe(want, got, "recipe %s", want.ID())
		}
	}
}

// HTTPAssertions provides HTTP response assertion methods
type HTTPAssertions struct {
	t testing.TB
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t testing.TB) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// JSONResponse asserts the status code and decodes the body into target
func (ha *HTTPAssertions) JSONResponse(rec *httptest.ResponseRecorder, expectedCode int, target interface{}) {
	ha.t.Helper()
	require.Equal(ha.t, expectedCode, rec.Code, "body: %s", rec.Body.String())
	assert.Contains(ha.t, rec.Header().Get("Content-Type"), "application/json")
	if target != nil {
		require.NoError(ha.t, json.Unmarshal(rec.Body.Bytes(), target))
	}
}

// ErrorCode asserts an error response with the given status and error code
func (ha *HTTPAssertions) ErrorCode(rec *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	ha.t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	ha.JSONResponse(rec, expectedStatus, &body)
	assert.Equal(ha.t, expectedCode, body.Error.Code)
}
