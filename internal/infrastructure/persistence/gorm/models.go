// Package gorm provides GORM model definitions and the meal-plan store
package gorm

import (
	"time"

	"github.com/google/uuid"
)

// RecipeModel represents the GORM model for recipes.
// Nutrition columns are NULL together when totals have not been derived.
type RecipeModel struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name          string    `gorm:"type:varchar(200);not null"`
	Description   string    `gorm:"type:text"`
	WeekStartDate string    `gorm:"type:char(10);not null;index:idx_recipes_week"`
	DayOfWeek     string    `gorm:"type:varchar(10);not null"`
	MealType      string    `gorm:"type:varchar(50);not null"`
	Calories      *float64
	Protein       *float64
	Fat           *float64
	Carbohydrates *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Relationships
	Ingredients []IngredientModel `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for RecipeModel
func (RecipeModel) TableName() string {
	return "recipes"
}

// IngredientModel represents one ingredient row; Position keeps the list order
type IngredientModel struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	RecipeID      uuid.UUID `gorm:"type:char(36);not null;index:idx_ingredients_recipe"`
	Position      int       `gorm:"not null"`
	Name          string    `gorm:"type:varchar(200);not null"`
	QuantityGrams float64   `gorm:"not null"`
}

// TableName specifies the table name for IngredientModel
func (IngredientModel) TableName() string {
	return "ingredients"
}

// weekCount is the scan target for week summaries
type weekCount struct {
	WeekStartDate string
	RecipeCount   int
}

// Models lists every model for AutoMigrate, parents first
func Models() []interface{} {
	return []interface{}{
		&RecipeModel{},
		&IngredientModel{},
	}
}
