package events

import (
	"errors"
	"testing"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcher_Dispatch(t *testing.T) {
	t.Run("Dispatch_ShouldCallNamedAndWildcardHandlers", func(t *testing.T) {
		// Arrange
		d := NewDispatcher(zap.NewNop())
		var calls []string
		d.Register("mealplan.recipe.removed", func(e shared.DomainEvent) error {
			calls = append(calls, "named")
			return nil
		})
		d.Register(AllEvents, func(e shared.DomainEvent) error {
			calls = append(calls, "all")
			return nil
		})
		d.Register("mealplan.week.replaced", func(e shared.DomainEvent) error {
			calls = append(calls, "other")
			return nil
		})

		// Act
		err := d.Dispatch(mealplan.RecipeRemovedEvent{RecipeID: uuid.New(), RemovedAt: time.Now()})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"named", "all"}, calls)
	})

	t.Run("FailingHandler_ShouldNotStopOthers", func(t *testing.T) {
		d := NewDispatcher(zap.NewNop())
		boom := errors.New("boom")
		ran := false
		d.Register(AllEvents, func(e shared.DomainEvent) error { return boom })
		d.Register(AllEvents, func(e shared.DomainEvent) error { ran = true; return nil })

		err := d.Dispatch(mealplan.WeekReplacedEvent{Week: mealplan.MustParseWeekStart("2024-01-01")})

		assert.ErrorIs(t, err, boom)
		assert.True(t, ran)
	})

	t.Run("NoHandlers_ShouldBeNoop", func(t *testing.T) {
		d := NewDispatcher(zap.NewNop())

		assert.NoError(t, d.Dispatch(mealplan.RecipeRemovedEvent{}))
	})
}

func TestLogHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := LogHandler(zap.New(core))

	require.NoError(t, handler(mealplan.WeekReplacedEvent{
		Week:        mealplan.MustParseWeekStart("2024-01-01"),
		RecipeCount: 3,
		ReplacedAt:  time.Now(),
	}))

	entries := logs.FilterMessage("Domain event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "mealplan.week.replaced", entries[0].ContextMap()["event"])
}
