package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prompthub/apiserver/internal/services"
	"github.com/prompthub/apiserver/internal/store"
	"github.com/prompthub/apiserver/types"
)

const (
	maxCategoryNameLength        = 100
	maxCategoryDescriptionLength = 500
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CategoryHandler provides HTTP handlers for category management.
// Listing is public; mutations require an admin account.
type CategoryHandler struct {
	categoryService *services.CategoryService
	userService     *services.UserService
}

// NewCategoryHandler constructs a handler with the provided dependencies.
func NewCategoryHandler(categoryService *services.CategoryService, userService *services.UserService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		userService:     userService,
	}
}

// CategoryRouter registers category routes on the given router.
func CategoryRouter(
	r chi.Router,
	categoryService *services.CategoryService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewCategoryHandler(categoryService, userService)

	r.Get("/", handler.ListCategories)
	r.With(authMiddleware, handler.requireAdmin).Post("/", handler.CreateCategory)
	r.Route("/{categoryID}", func(r chi.Router) {
		r.With(authMiddleware, handler.requireAdmin).Put("/", handler.UpdateCategory)
		r.With(authMiddleware, handler.requireAdmin).Delete("/", handler.DeleteCategory)
	})
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if fieldErrs := validateCategoryFields(req, true); len(fieldErrs) > 0 {
		writeValidationErrors(w, fieldErrs)
		return
	}

	category, err := h.categoryService.Create(r.Context(), types.Category{
		Name:             req.Name,
		Description:      req.Description,
		Color:            req.Color,
		PromptTypeFilter: req.PromptTypeFilter,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "category already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseCategoryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.categoryService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch category")
		return
	}

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if fieldErrs := validateCategoryFields(req, false); len(fieldErrs) > 0 {
		writeValidationErrors(w, fieldErrs)
		return
	}

	if req.Name != "" {
		category.Name = req.Name
	}
	if req.Description != "" {
		category.Description = req.Description
	}
	if req.Color != "" {
		category.Color = req.Color
	}
	if req.PromptTypeFilter != "" {
		category.PromptTypeFilter = req.PromptTypeFilter
	}

	updated, err := h.categoryService.Update(r.Context(), category)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			writeError(w, http.StatusConflict, "category already exists")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "category not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update category")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := parseCategoryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "category deleted successfully"})
}

// CategoryRequest is the payload for creating or updating a category.
type CategoryRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Color            string `json:"color"`
	PromptTypeFilter string `json:"prompt_type_filter"`
}

func validateCategoryFields(req CategoryRequest, nameRequired bool) []FieldError {
	var fieldErrs []FieldError
	if (nameRequired && req.Name == "") || len(req.Name) > maxCategoryNameLength {
		fieldErrs = append(fieldErrs, FieldError{Field: "name", Message: "name must be between 1 and 100 characters"})
	}
	if len(req.Description) > maxCategoryDescriptionLength {
		fieldErrs = append(fieldErrs, FieldError{Field: "description", Message: "description must be at most 500 characters"})
	}
	if req.Color != "" && !colorPattern.MatchString(req.Color) {
		fieldErrs = append(fieldErrs, FieldError{Field: "color", Message: "color must be a hex value like #3B82F6"})
	}
	if req.PromptTypeFilter != "" && !types.ValidCategoryFilter(req.PromptTypeFilter) {
		fieldErrs = append(fieldErrs, FieldError{Field: "prompt_type_filter", Message: "prompt_type_filter must be text, image, or both"})
	}
	return fieldErrs
}

// requireAdmin reloads the authenticated user and rejects the request
// unless their stored role is admin. Token claims alone are not
// trusted for role checks.
func (h *CategoryHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.userService.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		if !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseCategoryID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "categoryID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid category id")
	}
	return id, nil
}
