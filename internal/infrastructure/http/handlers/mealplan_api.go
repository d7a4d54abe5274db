// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/pkg/errors"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MealPlanHandlers handles meal plan REST API requests
type MealPlanHandlers struct {
	service inbound.MealPlanService
	logger  *zap.Logger
}

// NewMealPlanHandlers creates a new handlers instance
func NewMealPlanHandlers(service inbound.MealPlanService, logger *zap.Logger) *MealPlanHandlers {
	return &MealPlanHandlers{
		service: service,
		logger:  logger.Named("mealplan-api"),
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool                 `json:"success"`
	Data    interface{}          `json:"data,omitempty"`
	Error   *errors.ErrorDetails `json:"error,omitempty"`
	Message string               `json:"message,omitempty"`
}

// Routes mounts the API under the given router
func (h *MealPlanHandlers) Routes(r chi.Router) {
	r.Route("/weeks", func(r chi.Router) {
		r.Get("/", h.ListWeeks)
		r.Route("/{week}", func(r chi.Router) {
			r.Get("/recipes", h.GetWeek)
			r.Put("/recipes", h.ReplaceWeek)
			r.Get("/shopping-list", h.AggregateWeek)
			r.Post("/nutrition", h.RecomputeWeekNutrition)
			r.Post("/suggestions", h.SuggestWeek)
		})
	})

	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", h.ListRecipes)
		r.Post("/", h.AddRecipe)
		r.Get("/{id}", h.GetRecipe)
		r.Put("/{id}", h.UpdateRecipe)
		r.Delete("/{id}", h.DeleteRecipe)
	})
}

// ListWeeks handles GET /api/v1/weeks
func (h *MealPlanHandlers) ListWeeks(w http.ResponseWriter, r *http.Request) {
	weeks, err := h.service.ListWeeks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: weeks})
}

// GetWeek handles GET /api/v1/weeks/{week}/recipes
func (h *MealPlanHandlers) GetWeek(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.GetWeek(r.Context(), chi.URLParam(r, "week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: plan})
}

// ReplaceWeek handles PUT /api/v1/weeks/{week}/recipes
func (h *MealPlanHandlers) ReplaceWeek(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.ReplaceWeekCommand
	if err := decodeBody(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	// clearing a week takes an explicit empty list
	if cmd.Recipes == nil {
		h.writeError(w, r, errors.NewBadRequestError("recipes is required").WithMetadata("field", "recipes"))
		return
	}
	cmd.WeekStart = chi.URLParam(r, "week")

	plan, err := h.service.ReplaceWeek(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: plan, Message: "Week replaced"})
}

// AggregateWeek handles GET /api/v1/weeks/{week}/shopping-list
func (h *MealPlanHandlers) AggregateWeek(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.AggregateWeek(r.Context(), chi.URLParam(r, "week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: list})
}

// RecomputeWeekNutrition handles POST /api/v1/weeks/{week}/nutrition
func (h *MealPlanHandlers) RecomputeWeekNutrition(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.RecomputeWeekNutrition(r.Context(), chi.URLParam(r, "week"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: plan, Message: "Nutrition recomputed"})
}

// SuggestWeek handles POST /api/v1/weeks/{week}/suggestions
func (h *MealPlanHandlers) SuggestWeek(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.SuggestWeekCommand
	if err := decodeOptionalBody(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd.WeekStart = chi.URLParam(r, "week")

	suggestions, err := h.service.SuggestWeek(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if suggestions.Persisted {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, APIResponse{Success: true, Data: suggestions})
}

// ListRecipes handles GET /api/v1/recipes
func (h *MealPlanHandlers) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.service.ListRecipes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: recipes})
}

// AddRecipe handles POST /api/v1/recipes
func (h *MealPlanHandlers) AddRecipe(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.AddRecipeCommand
	if err := decodeBody(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}

	recipe, err := h.service.AddRecipe(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: recipe, Message: "Recipe created"})
}

// GetRecipe handles GET /api/v1/recipes/{id}
func (h *MealPlanHandlers) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	recipe, err := h.service.GetRecipe(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: recipe})
}

// UpdateRecipe handles PUT /api/v1/recipes/{id}
func (h *MealPlanHandlers) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var cmd inbound.UpdateRecipeCommand
	if err := decodeBody(r, &cmd); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd.RecipeID = id

	recipe, err := h.service.UpdateRecipe(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: recipe, Message: "Recipe updated"})
}

// DeleteRecipe handles DELETE /api/v1/recipes/{id}
func (h *MealPlanHandlers) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.DeleteRecipe(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "Recipe deleted"})
}

func recipeID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.NewBadRequestError("Invalid recipe id").
			WithMetadata("id", raw).
			WithCause(err)
	}
	return id, nil
}

// decodeBody reads a required JSON body into dst
func decodeBody(r *http.Request, dst interface{}) error {
	return decode(r, dst, false)
}

// decodeOptionalBody reads a JSON body into dst. An empty body leaves dst zeroed.
func decodeOptionalBody(r *http.Request, dst interface{}) error {
	return decode(r, dst, true)
}

func decode(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return errors.NewBadRequestError("Request body is required")
		}
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewBadRequestError("Request body too large").WithCause(err)
		}
		return errors.NewBadRequestError("Invalid JSON body").WithCause(err)
	}
	return nil
}

// writeError renders an error through the AppError envelope
func (h *MealPlanHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.Wrap(err, "Unexpected error")
	status := appErr.StatusCode()
	requestID := chimiddleware.GetReqID(r.Context())

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("code", string(appErr.Code)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields...)
	} else {
		h.logger.Debug("Request rejected", fields...)
	}

	resp := errors.ToErrorResponse(appErr, requestID)
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &resp.Error,
		Message: appErr.Message,
	})
}

// writeJSON writes a JSON response
func (h *MealPlanHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}
