package mealplan

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// WeekLayout is the ISO calendar date layout used for week keys
const WeekLayout = "2006-01-02"

// WeekStart identifies a planning week by the Monday it starts on.
// The zero value is not a valid week.
type WeekStart struct {
	date time.Time
}

// ParseWeekStart parses an ISO date and requires it to be a Monday
func ParseWeekStart(value string) (WeekStart, error) {
	t, err := time.Parse(WeekLayout, strings.TrimSpace(value))
	if err != nil {
		return WeekStart{}, ErrInvalidWeekStart
	}
	if t.Weekday() != time.Monday {
		return WeekStart{}, ErrInvalidWeekStart
	}
	return WeekStart{date: t}, nil
}

// MustParseWeekStart is ParseWeekStart for constants and tests
func MustParseWeekStart(value string) WeekStart {
	w, err := ParseWeekStart(value)
	if err != nil {
		panic(err)
	}
	return w
}

// WeekOf returns the week containing t, using t's calendar date
func WeekOf(t time.Time) WeekStart {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return WeekStart{date: day.AddDate(0, 0, -offset)}
}

// String renders the week key as YYYY-MM-DD
func (w WeekStart) String() string {
	if w.IsZero() {
		return ""
	}
	return w.date.Format(WeekLayout)
}

// Time returns the Monday at midnight UTC
func (w WeekStart) Time() time.Time {
	return w.date
}

// IsZero reports whether the week is unset
func (w WeekStart) IsZero() bool {
	return w.date.IsZero()
}

// Next returns the following week
func (w WeekStart) Next() WeekStart {
	return WeekStart{date: w.date.AddDate(0, 0, 7)}
}

// Previous returns the preceding week
func (w WeekStart) Previous() WeekStart {
	return WeekStart{date: w.date.AddDate(0, 0, -7)}
}

// DateOf returns the calendar date of the given day within the week
func (w WeekStart) DateOf(day DayOfWeek) time.Time {
	return w.date.AddDate(0, 0, day.Offset())
}

// MarshalText implements encoding.TextMarshaler
func (w WeekStart) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (w *WeekStart) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekStart(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// DayOfWeek is a day within a planning week
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
	Saturday  DayOfWeek = "Saturday"
	Sunday    DayOfWeek = "Sunday"
)

var daysOfWeek = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// DaysOfWeek returns the days in planning order, Monday first
func DaysOfWeek() []DayOfWeek {
	days := make([]DayOfWeek, len(daysOfWeek))
	copy(days, daysOfWeek)
	return days
}

// ParseDayOfWeek accepts a day name in any letter case
func ParseDayOfWeek(value string) (DayOfWeek, error) {
	value = strings.TrimSpace(value)
	for _, d := range daysOfWeek {
		if strings.EqualFold(string(d), value) {
			return d, nil
		}
	}
	return "", ErrInvalidDayOfWeek
}

// IsValid checks if the day is one of Monday..Sunday
func (d DayOfWeek) IsValid() bool {
	return d.Offset() >= 0
}

// Offset is the number of days after Monday, or -1 for an invalid day
func (d DayOfWeek) Offset() int {
	for i, day := range daysOfWeek {
		if day == d {
			return i
		}
	}
	return -1
}

// MealType is a meal slot within a day
type MealType string

const (
	Breakfast MealType = "Breakfast"
	Lunch     MealType = "Lunch"
	Dinner    MealType = "Dinner"
	Snack     MealType = "Snack"
)

// SlotPolicy is the closed set of meal types a deployment plans for, plus the
// slot used when a generated suggestion names no valid day or meal.
type SlotPolicy struct {
	mealTypes    []MealType
	fallbackDay  DayOfWeek
	fallbackMeal MealType
}

// DefaultSlotPolicy plans breakfast, lunch, dinner and snack, falling back to Monday dinner
func DefaultSlotPolicy() SlotPolicy {
	return SlotPolicy{
		mealTypes:    []MealType{Breakfast, Lunch, Dinner, Snack},
		fallbackDay:  Monday,
		fallbackMeal: Dinner,
	}
}

// NewSlotPolicy builds a policy from configuration values
func NewSlotPolicy(mealTypes []string, fallbackDay, fallbackMeal string) (SlotPolicy, error) {
	p := SlotPolicy{}
	seen := make(map[string]bool, len(mealTypes))
	for _, m := range mealTypes {
		m = strings.TrimSpace(m)
		if m == "" || seen[strings.ToLower(m)] {
			continue
		}
		seen[strings.ToLower(m)] = true
		p.mealTypes = append(p.mealTypes, MealType(m))
	}
	if len(p.mealTypes) == 0 {
		return SlotPolicy{}, ErrEmptyMealTypes
	}

	day, err := ParseDayOfWeek(fallbackDay)
	if err != nil {
		return SlotPolicy{}, err
	}
	p.fallbackDay = day

	// the fallback meal must itself belong to the closed set
	meal, err := p.ParseMealType(fallbackMeal)
	if err != nil {
		return SlotPolicy{}, err
	}
	p.fallbackMeal = meal

	return p, nil
}

// MealTypes returns the configured meal types in order
func (p SlotPolicy) MealTypes() []MealType {
	types := make([]MealType, len(p.mealTypes))
	copy(types, p.mealTypes)
	return types
}

// FallbackDay returns the day used for suggestions without a valid day
func (p SlotPolicy) FallbackDay() DayOfWeek {
	return p.fallbackDay
}

// FallbackMeal returns the meal type used for suggestions without a valid meal
func (p SlotPolicy) FallbackMeal() MealType {
	return p.fallbackMeal
}

// ParseMealType returns the canonical configured meal type matching value, ignoring case
func (p SlotPolicy) ParseMealType(value string) (MealType, error) {
	value = strings.TrimSpace(value)
	for _, m := range p.mealTypes {
		if strings.EqualFold(string(m), value) {
			return m, nil
		}
	}
	return "", ErrInvalidMealType
}

// Slot maps loosely-typed day and meal names onto a valid slot,
// substituting the fallbacks for anything missing or unrecognized.
func (p SlotPolicy) Slot(day, meal string) (DayOfWeek, MealType) {
	d, err := ParseDayOfWeek(day)
	if err != nil {
		d = p.fallbackDay
	}
	m, err := p.ParseMealType(meal)
	if err != nil {
		m = p.fallbackMeal
	}
	return d, m
}

// Ingredient is a named quantity in grams belonging to exactly one recipe
type Ingredient struct {
	ID            uuid.UUID
	Name          string
	QuantityGrams float64
}

// NewIngredient creates a validated ingredient with a fresh ID
func NewIngredient(name string, quantityGrams float64) (Ingredient, error) {
	ing := Ingredient{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(name),
		QuantityGrams: quantityGrams,
	}
	if err := ing.Validate(); err != nil {
		return Ingredient{}, err
	}
	return ing, nil
}

// Validate checks the ingredient invariants
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrIngredientNameRequired
	}
	if math.IsNaN(i.QuantityGrams) || math.IsInf(i.QuantityGrams, 0) || i.QuantityGrams <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// NormalizedName is the grouping key used when summing quantities
func (i Ingredient) NormalizedName() string {
	return NormalizeName(i.Name)
}

// NormalizeName trims surrounding whitespace and lower-cases letters
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NutritionPer100g is the macro profile of an ingredient per 100 grams
type NutritionPer100g struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
}

// Scale returns the macros contributed by the given number of grams
func (n NutritionPer100g) Scale(grams float64) NutritionTotals {
	factor := grams / 100
	return NutritionTotals{
		Calories:      n.Calories * factor,
		Protein:       n.Protein * factor,
		Fat:           n.Fat * factor,
		Carbohydrates: n.Carbohydrates * factor,
	}
}

// NutritionTotals are the macros of a whole recipe
type NutritionTotals struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
}

// Add returns the field-wise sum
func (n NutritionTotals) Add(other NutritionTotals) NutritionTotals {
	return NutritionTotals{
		Calories:      n.Calories + other.Calories,
		Protein:       n.Protein + other.Protein,
		Fat:           n.Fat + other.Fat,
		Carbohydrates: n.Carbohydrates + other.Carbohydrates,
	}
}

// Rounded applies the display precision: whole calories, one decimal for
// the other macros, halves rounded away from zero.
func (n NutritionTotals) Rounded() NutritionTotals {
	return NutritionTotals{
		Calories:      RoundTo(n.Calories, 0),
		Protein:       RoundTo(n.Protein, 1),
		Fat:           RoundTo(n.Fat, 1),
		Carbohydrates: RoundTo(n.Carbohydrates, 1),
	}
}

// RoundTo rounds half away from zero to the given number of decimals
func RoundTo(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(value*pow) / pow
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
