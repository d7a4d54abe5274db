package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/stretchr/testify/suite"
)

type CacheRepositoryTestSuite struct {
	suite.Suite
	cache *CacheRepository
	clock time.Time
	mu    sync.Mutex
}

func (s *CacheRepositoryTestSuite) SetupTest() {
	s.clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.cache = NewCacheRepository(time.Hour)
	s.cache.now = func() time.Time {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.clock
	}
}

func (s *CacheRepositoryTestSuite) TearDownTest() {
	s.cache.Close()
}

func (s *CacheRepositoryTestSuite) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = s.clock.Add(d)
}

func (s *CacheRepositoryTestSuite) TestGetSet() {
	ctx := context.Background()

	s.Run("Get_ShouldReturnMissForUnknownKey", func() {
		_, err := s.cache.Get(ctx, "nutrition:v1:rice")

		s.ErrorIs(err, outbound.ErrCacheMiss)
	})

	s.Run("Get_ShouldReturnStoredCopy", func() {
		value := []byte(`{"calories":130}`)
		s.Require().NoError(s.cache.Set(ctx, "nutrition:v1:rice", value, time.Minute))
		value[0] = 'X'

		got, err := s.cache.Get(ctx, "nutrition:v1:rice")

		s.Require().NoError(err)
		s.Equal(`{"calories":130}`, string(got))
	})

	s.Run("Get_ShouldMissAfterExpiry", func() {
		s.Require().NoError(s.cache.Set(ctx, "short", []byte("v"), time.Minute))
		s.advance(time.Minute)

		_, err := s.cache.Get(ctx, "short")
		exists, existsErr := s.cache.Exists(ctx, "short")

		s.ErrorIs(err, outbound.ErrCacheMiss)
		s.NoError(existsErr)
		s.False(exists)
	})

	s.Run("Set_WithZeroTTLShouldUseDefault", func() {
		s.Require().NoError(s.cache.Set(ctx, "default", []byte("v"), 0))
		s.advance(DefaultTTL - time.Second)

		exists, err := s.cache.Exists(ctx, "default")

		s.NoError(err)
		s.True(exists)
	})

	s.Run("Get_ShouldHonourCancelledContext", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.cache.Get(cancelled, "nutrition:v1:rice")

		s.ErrorIs(err, context.Canceled)
	})
}

func (s *CacheRepositoryTestSuite) TestDeleteAndSweep() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "a", []byte("1"), time.Minute))
	s.Require().NoError(s.cache.Set(ctx, "b", []byte("2"), time.Hour))

	s.Require().NoError(s.cache.Delete(ctx, "a"))
	s.Equal(1, s.cache.Len())

	s.Require().NoError(s.cache.Set(ctx, "c", []byte("3"), time.Minute))
	s.advance(2 * time.Minute)
	s.cache.sweep()

	s.Equal(1, s.cache.Len())
	_, err := s.cache.Get(ctx, "b")
	s.NoError(err)
}

func TestCacheRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CacheRepositoryTestSuite))
}
