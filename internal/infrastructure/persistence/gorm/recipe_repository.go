package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/mealplan/internal/domain/mealplan"
	"github.com/alchemorsel/mealplan/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeRepository implements the meal-plan store using GORM. Ingredient
// rows hang off recipes through a cascading foreign key.
type RecipeRepository struct {
	db    *gorm.DB
	weeks *weekLocks
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) outbound.RecipeRepository {
	return &RecipeRepository{
		db:    db,
		weeks: newWeekLocks(),
	}
}

// Create inserts the recipe row and every ingredient row in one transaction
func (r *RecipeRepository) Create(ctx context.Context, recipe *mealplan.Recipe) error {
	model := RecipeToModel(recipe)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertRecipe(tx, model)
	})
	return recipeError("create recipe", model.ID.String(), err)
}

// Update overwrites the recipe row and replaces its ingredient rows
func (r *RecipeRepository) Update(ctx context.Context, recipe *mealplan.Recipe) error {
	model := RecipeToModel(recipe)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing RecipeModel
		if err := tx.Select("id").First(&existing, "id = ?", model.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return mealplan.ErrRecipeNotFound
			}
			return err
		}

		if err := tx.Model(&RecipeModel{}).
			Where("id = ?", model.ID).
			Select("*").
			Omit("id", "created_at", clause.Associations).
			Updates(model).Error; err != nil {
			return err
		}

		if err := tx.Where("recipe_id = ?", model.ID).Delete(&IngredientModel{}).Error; err != nil {
			return err
		}
		if len(model.Ingredients) == 0 {
			return nil
		}
		return tx.Create(&model.Ingredients).Error
	})
	return recipeError("update recipe", model.ID.String(), err)
}

// UpdateNutrition writes the four nutrition columns after checking, under a
// row lock, that updated_at still matches. updated_at itself is left as is so
// it keeps tracking ingredient edits.
func (r *RecipeRepository) UpdateNutrition(ctx context.Context, id uuid.UUID, updatedAt time.Time, totals mealplan.NutritionTotals) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current RecipeModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "updated_at").
			First(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return mealplan.ErrRecipeNotFound
			}
			return err
		}
		if !current.UpdatedAt.Equal(updatedAt) {
			return mealplan.ErrRecipeChanged
		}

		return tx.Model(&RecipeModel{}).
			Where("id = ?", id).
			UpdateColumns(map[string]interface{}{
				"calories":      totals.Calories,
				"protein":       totals.Protein,
				"fat":           totals.Fat,
				"carbohydrates": totals.Carbohydrates,
			}).Error
	})
	return recipeError("update nutrition", id.String(), err)
}

// Delete removes a recipe; its ingredients go with it through the cascade
func (r *RecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&RecipeModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return mealplan.ErrRecipeNotFound
		}
		return nil
	})
	return recipeError("delete recipe", id.String(), err)
}

// FindByID finds a recipe by ID together with its ingredients
func (r *RecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*mealplan.Recipe, error) {
	var model RecipeModel

	err := r.withIngredients(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = mealplan.ErrRecipeNotFound
		}
		return nil, recipeError("find recipe", id.String(), err)
	}

	recipe, err := ModelToRecipe(&model)
	if err != nil {
		return nil, recipeError("find recipe", id.String(), err)
	}
	return recipe, nil
}

// FindAll returns every stored recipe
func (r *RecipeRepository) FindAll(ctx context.Context) ([]*mealplan.Recipe, error) {
	var models []RecipeModel

	if err := r.withIngredients(r.db.WithContext(ctx)).
		Order("week_start_date ASC").
		Find(&models).Error; err != nil {
		return nil, opError("list recipes", err)
	}

	recipes, err := ModelsToRecipes(models)
	if err != nil {
		return nil, opError("list recipes", err)
	}
	return recipes, nil
}

// FindByWeek returns the recipes planned for one week
func (r *RecipeRepository) FindByWeek(ctx context.Context, week mealplan.WeekStart) ([]*mealplan.Recipe, error) {
	recipes, err := findByWeek(r.withIngredients(r.db.WithContext(ctx)), week)
	if err != nil {
		return nil, weekError("find week", week.String(), err)
	}
	return recipes, nil
}

// ListWeeks returns every week holding at least one recipe, newest first
func (r *RecipeRepository) ListWeeks(ctx context.Context) ([]outbound.WeekSummary, error) {
	var rows []weekCount

	if err := r.db.WithContext(ctx).
		Model(&RecipeModel{}).
		Select("week_start_date, COUNT(*) AS recipe_count").
		Group("week_start_date").
		Order("week_start_date DESC").
		Scan(&rows).Error; err != nil {
		return nil, opError("list weeks", err)
	}

	summaries := make([]outbound.WeekSummary, 0, len(rows))
	for _, row := range rows {
		week, err := mealplan.ParseWeekStart(row.WeekStartDate)
		if err != nil {
			return nil, weekError("list weeks", row.WeekStartDate, err)
		}
		summaries = append(summaries, outbound.WeekSummary{Week: week, RecipeCount: row.RecipeCount})
	}
	return summaries, nil
}

// ReplaceWeek deletes the week's recipes and inserts the given ones in one
// transaction. Writers for the same week are serialized in-process and, on
// PostgreSQL, across processes with a transaction-scoped advisory lock, so
// the last writer to commit wins and readers never see a mix.
func (r *RecipeRepository) ReplaceWeek(ctx context.Context, week mealplan.WeekStart, recipes []*mealplan.Recipe) error {
	key := week.String()

	models := make([]*RecipeModel, 0, len(recipes))
	for _, recipe := range recipes {
		if recipe.Week() != week {
			return weekError("replace week", key, mealplan.ErrInvalidWeekStart)
		}
		models = append(models, RecipeToModel(recipe))
	}

	unlock, err := r.weeks.acquire(ctx, key)
	if err != nil {
		return weekError("replace week", key, err)
	}
	defer unlock()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "mealplan:week:"+key).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("week_start_date = ?", key).Delete(&RecipeModel{}).Error; err != nil {
			return err
		}
		for _, model := range models {
			if err := insertRecipe(tx, model); err != nil {
				return err
			}
		}
		return nil
	})
	return weekError("replace week", key, err)
}

func (r *RecipeRepository) withIngredients(db *gorm.DB) *gorm.DB {
	return db.Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func findByWeek(db *gorm.DB, week mealplan.WeekStart) ([]*mealplan.Recipe, error) {
	var models []RecipeModel
	if err := db.Where("week_start_date = ?", week.String()).Find(&models).Error; err != nil {
		return nil, err
	}
	return ModelsToRecipes(models)
}

func insertRecipe(tx *gorm.DB, model *RecipeModel) error {
	if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
		return err
	}
	if len(model.Ingredients) == 0 {
		return nil
	}
	return tx.Create(&model.Ingredients).Error
}
