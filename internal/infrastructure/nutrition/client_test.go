package nutrition

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type ClientTestSuite struct {
	suite.Suite
	server  *httptest.Server
	handler http.HandlerFunc
	client  *Client
}

func (s *ClientTestSuite) SetupTest() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"rice","calories_per_100g":130,"protein_per_100g":2.7,"fat_per_100g":0.3,"carbohydrates_per_100g":28}`))
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))
	s.client = NewClient(config.NutritionConfig{
		BaseURL:       s.server.URL,
		APIKey:        "secret",
		Timeout:       time.Second,
		RatePerSecond: 1000,
		Burst:         10,
	}, zap.NewNop())
}

func (s *ClientTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientTestSuite) TestLookup() {
	s.Run("Found_ShouldReturnProfile", func() {
		// Arrange
		var gotAuth, gotName, gotPath string
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotName = r.URL.Query().Get("name")
			gotPath = r.URL.Path
			w.Write([]byte(`{"calories_per_100g":130,"protein_per_100g":2.7,"fat_per_100g":0.3,"carbohydrates_per_100g":28}`))
		}

		// Act
		per100g, err := s.client.Lookup(context.Background(), "jasmine rice & beans")

		// Assert
		s.Require().NoError(err)
		s.Equal(mealplan.NutritionPer100g{Calories: 130, Protein: 2.7, Fat: 0.3, Carbohydrates: 28}, per100g)
		s.Equal("Bearer secret", gotAuth)
		s.Equal("jasmine rice & beans", gotName)
		s.Equal("/v1/nutrition", gotPath)
	})

	s.Run("NotFound_ShouldReturnErrFoodNotFound", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}

		_, err := s.client.Lookup(context.Background(), "unobtainium")

		s.ErrorIs(err, outbound.ErrFoodNotFound)
	})

	s.Run("ServerError_ShouldFail", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}

		_, err := s.client.Lookup(context.Background(), "rice")

		s.Error(err)
		s.NotErrorIs(err, outbound.ErrFoodNotFound)
	})

	s.Run("MissingField_ShouldFail", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"calories_per_100g":130,"protein_per_100g":2.7,"fat_per_100g":0.3}`))
		}

		_, err := s.client.Lookup(context.Background(), "rice")

		s.ErrorContains(err, "carbohydrates_per_100g")
	})

	s.Run("NegativeValue_ShouldFail", func() {
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"calories_per_100g":-1,"protein_per_100g":2.7,"fat_per_100g":0.3,"carbohydrates_per_100g":28}`))
		}

		_, err := s.client.Lookup(context.Background(), "rice")

		s.ErrorContains(err, "invalid calories_per_100g")
	})
}

func (s *ClientTestSuite) TestLookup_CancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.client.Lookup(ctx, "rice")

	s.ErrorIs(err, context.Canceled)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestNewClient_DefaultsUnlimitedRate(t *testing.T) {
	client := NewClient(config.NutritionConfig{BaseURL: "http://example.invalid/"}, zap.NewNop())

	require.NotNil(t, client.limiter)
	assert.Equal(t, "http://example.invalid", client.baseURL)
	assert.Equal(t, 5*time.Second, client.client.Timeout)
}
