package mealplan

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// newValidator builds a validator that reports JSON field names and knows
// the planner's own tags
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.RegisterValidation("weekstart", func(fl validator.FieldLevel) bool {
		_, err := mealplan.ParseWeekStart(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("dayofweek", func(fl validator.FieldLevel) bool {
		_, err := mealplan.ParseDayOfWeek(fl.Field().String())
		return err == nil
	})

	return v
}

// validate runs struct validation and converts failures into one AppError
func (s *Service) validate(cmd interface{}) error {
	err := s.validator.Struct(cmd)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.NewValidationError(err.Error())
	}

	out := make([]errors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, errors.ValidationError{
			Field:   field,
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: fieldMessage(field, fe),
		})
	}
	return errors.NewValidationErrors(out)
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	case "weekstart":
		return fmt.Sprintf("%s must be an ISO date (YYYY-MM-DD) falling on a Monday", field)
	case "dayofweek":
		return fmt.Sprintf("%s must be one of Monday..Sunday", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// slotFields is the parsed, policy-checked form of a command's slot
type slotFields struct {
	week mealplan.WeekStart
	day  mealplan.DayOfWeek
	meal mealplan.MealType
}

func (s *Service) parseSlot(field, week, day, meal string) (slotFields, error) {
	var f slotFields
	var err error

	if f.week, err = mealplan.ParseWeekStart(week); err != nil {
		return f, fieldError(field+"week_start_date", week, err)
	}
	if f.day, err = mealplan.ParseDayOfWeek(day); err != nil {
		return f, fieldError(field+"day_of_week", day, err)
	}
	if f.meal, err = s.slots.ParseMealType(meal); err != nil {
		var types []string
		for _, m := range s.slots.MealTypes() {
			types = append(types, string(m))
		}
		return f, errors.NewValidationErrors([]errors.ValidationError{{
			Field:   field + "meal_type",
			Value:   meal,
			Tag:     "mealtype",
			Message: fmt.Sprintf("meal_type must be one of %s", strings.Join(types, ", ")),
		}}).WithCause(err)
	}
	return f, nil
}

func parseIngredients(field string, inputs []inbound.IngredientInput) ([]mealplan.Ingredient, error) {
	ingredients := make([]mealplan.Ingredient, 0, len(inputs))
	for i, in := range inputs {
		ing, err := mealplan.NewIngredient(in.Name, in.QuantityGrams)
		if err != nil {
			return nil, fieldError(fmt.Sprintf("%singredients[%d]", field, i), in, err)
		}
		ingredients = append(ingredients, ing)
	}
	return ingredients, nil
}

func fieldError(field string, value interface{}, err error) *errors.AppError {
	return errors.NewValidationErrors([]errors.ValidationError{{
		Field:   field,
		Value:   value,
		Tag:     "domain",
		Message: err.Error(),
	}}).WithCause(err)
}

func parseWeek(value string) (mealplan.WeekStart, error) {
	week, err := mealplan.ParseWeekStart(value)
	if err != nil {
		return week, fieldError("week_start_date", value, err)
	}
	return week, nil
}
