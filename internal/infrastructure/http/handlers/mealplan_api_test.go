package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/alchemorsel/mealplan/test/testutils"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type MealPlanAPITestSuite struct {
	suite.Suite
	service *testutils.MockMealPlanService
	router  *chi.Mux
	http    *testutils.HTTPAssertions
}

func (s *MealPlanAPITestSuite) SetupTest() {
	s.service = &testutils.MockMealPlanService{}
	s.http = testutils.NewHTTPAssertions(s.T())

	s.router = chi.NewRouter()
	s.router.Use(chimiddleware.RequestID)
	s.router.Route("/api/v1", handlers.NewMealPlanHandlers(s.service, zap.NewNop()).Routes)
}

func (s *MealPlanAPITestSuite) TearDownTest() {
	s.service.AssertExpectations(s.T())
}

func (s *MealPlanAPITestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *MealPlanAPITestSuite) TestAddRecipe() {
	s.Run("ValidBody_ShouldReturnCreated", func() {
		// Arrange
		id := uuid.New()
		expected := inbound.AddRecipeCommand{
			Name:        "宫保鸡丁",
			WeekStart:   "2024-01-01",
			DayOfWeek:   "Monday",
			MealType:    "Dinner",
			Ingredients: []inbound.IngredientInput{{Name: "鸡胸肉", QuantityGrams: 200}},
		}
		s.service.On("AddRecipe", mock.Anything, expected).Return(&inbound.RecipeDTO{
			ID:            id,
			Name:          "宫保鸡丁",
			WeekStartDate: "2024-01-01",
			Nutrition:     &inbound.NutritionDTO{Calories: 330, Protein: 62, Fat: 7.2},
		}, nil).Once()

		// Act
		rec := s.do(http.MethodPost, "/api/v1/recipes", `{
			"name": "宫保鸡丁",
			"week_start_date": "2024-01-01",
			"day_of_week": "Monday",
			"meal_type": "Dinner",
			"ingredients": [{"name": "鸡胸肉", "quantity_grams": 200}]
		}`)

		// Assert
		var body struct {
			Success bool              `json:"success"`
			Data    inbound.RecipeDTO `json:"data"`
		}
		s.http.JSONResponse(rec, http.StatusCreated, &body)
		assert.True(s.T(), body.Success)
		assert.Equal(s.T(), id, body.Data.ID)
		assert.Equal(s.T(), 330.0, body.Data.Nutrition.Calories)
	})

	s.Run("MalformedJSON_ShouldReturnBadRequest", func() {
		rec := s.do(http.MethodPost, "/api/v1/recipes", `{"name":`)

		s.http.ErrorCode(rec, http.StatusBadRequest, string(errors.CodeBadRequest))
	})

	s.Run("UnknownField_ShouldReturnBadRequest", func() {
		rec := s.do(http.MethodPost, "/api/v1/recipes", `{"title":"x"}`)

		s.http.ErrorCode(rec, http.StatusBadRequest, string(errors.CodeBadRequest))
	})

	s.Run("EmptyBody_ShouldReturnBadRequest", func() {
		calls := len(s.service.Calls)

		rec := s.do(http.MethodPost, "/api/v1/recipes", "")

		s.http.ErrorCode(rec, http.StatusBadRequest, string(errors.CodeBadRequest))
		assert.Len(s.T(), s.service.Calls, calls)
	})

	s.Run("ValidationFailure_ShouldListFields", func() {
		// Arrange
		appErr := errors.NewValidationErrors([]errors.ValidationError{
			{Field: "name", Tag: "notblank", Message: "name must not be blank"},
		})
		s.service.On("AddRecipe", mock.Anything, mock.Anything).Return(nil, appErr).Once()

		// Act
		rec := s.do(http.MethodPost, "/api/v1/recipes", `{"name":" "}`)

		// Assert
		var body struct {
			Success bool `json:"success"`
			Error   struct {
				Code     string `json:"code"`
				Metadata struct {
					ValidationErrors []errors.ValidationError `json:"validation_errors"`
				} `json:"metadata"`
				RequestID string `json:"request_id"`
			} `json:"error"`
		}
		s.http.JSONResponse(rec, http.StatusBadRequest, &body)
		assert.False(s.T(), body.Success)
		assert.Equal(s.T(), "VALIDATION_FAILED", body.Error.Code)
		require.Len(s.T(), body.Error.Metadata.ValidationErrors, 1)
		assert.Equal(s.T(), "name", body.Error.Metadata.ValidationErrors[0].Field)
		assert.NotEmpty(s.T(), body.Error.RequestID)
	})
}

func (s *MealPlanAPITestSuite) TestRecipeByID() {
	s.Run("Get_ShouldReturnRecipe", func() {
		id := uuid.New()
		s.service.On("GetRecipe", mock.Anything, id).Return(&inbound.RecipeDTO{ID: id, Name: "Congee"}, nil).Once()

		rec := s.do(http.MethodGet, "/api/v1/recipes/"+id.String(), "")

		var body struct {
			Data inbound.RecipeDTO `json:"data"`
		}
		s.http.JSONResponse(rec, http.StatusOK, &body)
		assert.Equal(s.T(), "Congee", body.Data.Name)
	})

	s.Run("InvalidID_ShouldReturnBadRequest", func() {
		rec := s.do(http.MethodGet, "/api/v1/recipes/not-a-uuid", "")

		s.http.ErrorCode(rec, http.StatusBadRequest, string(errors.CodeBadRequest))
	})

	s.Run("Missing_ShouldReturnNotFound", func() {
		id := uuid.New()
		notFound := errors.NewRecipeNotFoundError(id.String()).WithCause(mealplan.ErrRecipeNotFound)
		s.service.On("DeleteRecipe", mock.Anything, id).Return(notFound).Once()

		rec := s.do(http.MethodDelete, "/api/v1/recipes/"+id.String(), "")

		s.http.ErrorCode(rec, http.StatusNotFound, string(errors.CodeRecipeNotFound))
	})

	s.Run("UpdateWithoutBody_ShouldReturnBadRequest", func() {
		calls := len(s.service.Calls)

		rec := s.do(http.MethodPut, "/api/v1/recipes/"+uuid.New().String(), "")

		s.http.ErrorCode(rec, http.StatusBadRequest, string(errors.CodeBadRequest))
		assert.Len(s.T(), s.service.Calls, calls)
	})

	s.Run("Update_ShouldUsePathID", func() {
		id := uuid.New()
		s.service.On("UpdateRecipe", mock.Anything, mock.MatchedBy(func(cmd inbound.UpdateRecipeCommand) bool {
			return cmd.RecipeID == id && cmd.Name == "Porridge"
		})).Return(&inbound.RecipeDTO{ID: id, Name: "Porridge"}, nil).Once()

		rec := s.do(http.MethodPut, "/api/v1/recipes/"+id.String(),
			`{"name":"Porridge","week_start_date":"2024-01-01","day_of_week":"Tuesday","meal_type":"Breakfast"}`)

		s.http.JSONResponse(rec, http.StatusOK, nil)
	})
}

func (s *MealPlanAPITestSuite) TestWeeks() {
	s.Run("ReplaceWeek_ShouldUsePathWeek", func() {
		s.service.On("ReplaceWeek", mock.Anything, mock.MatchedBy(func(cmd inbound.ReplaceWeekCommand) bool {
			return cmd.WeekStart == "2024-01-01" && len(cmd.Recipes) == 1 && cmd.Recipes[0].MealType == "Lunch"
		})).Return(&inbound.WeekPlanDTO{WeekStartDate: "2024-01-01"}, nil).Once()

		rec := s.do(http.MethodPut, "/api/v1/weeks/2024-01-01/recipes",
			`{"recipes":[{"name":"Noodles","day_of_week":"Friday","meal_type":"Lunch"}]}`)

		s.http.JSONResponse(rec, http.StatusOK, nil)
	})

	s.Run("ReplaceWeekWithoutBody_ShouldNotTouchTheWeek", func() {
		calls := len(s.service.Calls)

		rec := s.do(http.MethodPut, "/api/v1/weeks/2024-01-01/recipes", "")

		s.http.ErrorCode(rec, http.StatusBadRequest, string(errors.CodeBadRequest))
		assert.Contains(s.T(), rec.Body.String(), "Request body is required")
		assert.Len(s.T(), s.service.Calls, calls)
	})

	s.Run("ReplaceWeekWithoutRecipesField_ShouldBeRejected", func() {
		calls := len(s.service.Calls)

		rec := s.do(http.MethodPut, "/api/v1/weeks/2024-01-01/recipes", `{}`)

		s.http.ErrorCode(rec, http.StatusBadRequest, string(errors.CodeBadRequest))
		assert.Len(s.T(), s.service.Calls, calls)
	})

	s.Run("ReplaceWeekWithExplicitEmptyList_ShouldClearTheWeek", func() {
		s.service.On("ReplaceWeek", mock.Anything, mock.MatchedBy(func(cmd inbound.ReplaceWeekCommand) bool {
			return cmd.WeekStart == "2024-01-15" && cmd.Recipes != nil && len(cmd.Recipes) == 0
		})).Return(&inbound.WeekPlanDTO{WeekStartDate: "2024-01-15"}, nil).Once()

		rec := s.do(http.MethodPut, "/api/v1/weeks/2024-01-15/recipes", `{"recipes":[]}`)

		s.http.JSONResponse(rec, http.StatusOK, nil)
	})

	s.Run("RecomputeWithoutBody_ShouldSucceed", func() {
		s.service.On("RecomputeWeekNutrition", mock.Anything, "2024-01-01").
			Return(&inbound.WeekPlanDTO{WeekStartDate: "2024-01-01"}, nil).Once()

		rec := s.do(http.MethodPost, "/api/v1/weeks/2024-01-01/nutrition", "")

		s.http.JSONResponse(rec, http.StatusOK, nil)
	})

	s.Run("ShoppingList_ShouldReturnBuckets", func() {
		total := 42.5
		s.service.On("AggregateWeek", mock.Anything, "2024-01-01").Return(&inbound.ShoppingListDTO{
			WeekStartDate:  "2024-01-01",
			Buckets:        []inbound.CategoryBucketDTO{{Category: "蛋奶类"}},
			TotalPrice:     &total,
			PriceAvailable: true,
		}, nil).Once()

		rec := s.do(http.MethodGet, "/api/v1/weeks/2024-01-01/shopping-list", "")

		var body struct {
			Data inbound.ShoppingListDTO `json:"data"`
		}
		s.http.JSONResponse(rec, http.StatusOK, &body)
		require.Len(s.T(), body.Data.Buckets, 1)
		assert.Equal(s.T(), 42.5, *body.Data.TotalPrice)
	})

	s.Run("PersistedSuggestions_ShouldReturnCreated", func() {
		s.service.On("SuggestWeek", mock.Anything, inbound.SuggestWeekCommand{
			WeekStart:     "2024-01-08",
			Preferences:   "vegetarian",
			LookbackWeeks: 2,
			Persist:       true,
		}).Return(&inbound.SuggestionsDTO{WeekStartDate: "2024-01-08", Persisted: true}, nil).Once()

		rec := s.do(http.MethodPost, "/api/v1/weeks/2024-01-08/suggestions",
			`{"preferences":"vegetarian","lookback_weeks":2,"persist":true}`)

		s.http.JSONResponse(rec, http.StatusCreated, nil)
	})

	s.Run("SuggestionsDisabled_ShouldReturnServiceUnavailable", func() {
		disabled := errors.NewAppError(errors.CodeServiceUnavailable, "Suggestions are disabled", "")
		s.service.On("SuggestWeek", mock.Anything, mock.Anything).Return(nil, disabled).Once()

		rec := s.do(http.MethodPost, "/api/v1/weeks/2024-01-08/suggestions", "")

		s.http.ErrorCode(rec, http.StatusServiceUnavailable, string(errors.CodeServiceUnavailable))
	})

	s.Run("UnexpectedError_ShouldReturnInternal", func() {
		s.service.On("ListWeeks", mock.Anything).Return(nil, context.Canceled).Once()

		rec := s.do(http.MethodGet, "/api/v1/weeks", "")

		s.http.ErrorCode(rec, http.StatusInternalServerError, string(errors.CodeInternal))
	})
}

func TestMealPlanAPITestSuite(t *testing.T) {
	suite.Run(t, new(MealPlanAPITestSuite))
}
