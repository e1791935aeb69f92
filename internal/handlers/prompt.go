package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prompthub/apiserver/internal/images"
	"github.com/prompthub/apiserver/internal/services"
	"github.com/prompthub/apiserver/internal/store"
	"github.com/prompthub/apiserver/types"
)

const (
	defaultPage        = 1
	defaultLimit       = 20
	maxLimit           = 100
	maxMultipartMemory = 32 << 20
	maxImagesPerCreate = 5
	maxTitleLength     = 255

	formFieldTitle      = "title"
	formFieldContent    = "content"
	formFieldCategory   = "category"
	formFieldPromptType = "prompt_type"
	formFieldTags       = "tags"
	formFieldImages     = "images"
	formFieldImage      = "image"
)

// PromptHandler provides HTTP handlers for prompts, their images, and
// favorites.
type PromptHandler struct {
	promptService *services.PromptService
	processor     *images.Processor
}

// NewPromptHandler constructs a handler with the provided dependencies.
func NewPromptHandler(promptService *services.PromptService, processor *images.Processor) *PromptHandler {
	return &PromptHandler{
		promptService: promptService,
		processor:     processor,
	}
}

// PromptRouter registers prompt routes on the given router. Reads are
// public; every mutation goes through the auth middleware.
func PromptRouter(
	r chi.Router,
	promptService *services.PromptService,
	processor *images.Processor,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewPromptHandler(promptService, processor)

	r.Get("/", handler.ListPrompts)
	r.With(authMiddleware).Post("/", handler.CreatePrompt)
	r.With(authMiddleware).Get("/favorites/me", handler.ListFavorites)
	r.Route("/{promptID}", func(r chi.Router) {
		r.Get("/", handler.GetPrompt)
		r.With(authMiddleware).Put("/", handler.UpdatePrompt)
		r.With(authMiddleware).Delete("/", handler.DeletePrompt)
		r.With(authMiddleware).Post("/images", handler.UploadImage)
		r.With(authMiddleware).Post("/favorite", handler.ToggleFavorite)
	})
}

func (h *PromptHandler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, fieldErrs := parsePagination(r)

	promptType := strings.TrimSpace(r.URL.Query().Get("prompt_type"))
	if promptType != "" && !types.ValidPromptType(promptType) {
		fieldErrs = append(fieldErrs, FieldError{Field: "prompt_type", Message: "prompt_type must be text or image"})
	}
	if len(fieldErrs) > 0 {
		writeValidationErrors(w, fieldErrs)
		return
	}

	filter := store.PromptFilter{
		Category:   strings.TrimSpace(r.URL.Query().Get("category")),
		PromptType: promptType,
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
		Offset:     offset,
		Limit:      limit,
	}

	prompts, total, err := h.promptService.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list prompts")
		return
	}

	writeJSON(w, http.StatusOK, PromptListResponse{
		Prompts: prompts,
		Pagination: Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: pageCount(total, limit),
		},
	})
}

func (h *PromptHandler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	id, err := parsePromptID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prompt, err := h.promptService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch prompt")
		return
	}

	writeJSON(w, http.StatusOK, prompt)
}

func (h *PromptHandler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, uploads, ok := h.parseCreateRequest(w, r)
	if !ok {
		return
	}

	if fieldErrs := validatePromptFields(req.Title, req.Content, req.Category, req.PromptType); len(fieldErrs) > 0 {
		h.discardUploads(r, uploads)
		writeValidationErrors(w, fieldErrs)
		return
	}

	prompt := types.Prompt{
		Title:      req.Title,
		Content:    req.Content,
		PromptType: req.PromptType,
		Tags:       req.Tags,
		AuthorID:   claims.UserID,
	}

	created, err := h.promptService.Create(r.Context(), prompt, req.Category, uploads)
	if err != nil {
		if errors.Is(err, services.ErrUnknownCategory) {
			writeValidationErrors(w, []FieldError{{Field: "category", Message: "category does not exist"}})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create prompt")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *PromptHandler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := parsePromptID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prompt, err := h.promptService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch prompt")
		return
	}

	if !canModify(claims, prompt) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}

	var req UpdatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var fieldErrs []FieldError
	if req.Title != nil {
		prompt.Title = strings.TrimSpace(*req.Title)
		if prompt.Title == "" || len(prompt.Title) > maxTitleLength {
			fieldErrs = append(fieldErrs, FieldError{Field: "title", Message: "title must be between 1 and 255 characters"})
		}
	}
	if req.Content != nil {
		prompt.Content = *req.Content
		if strings.TrimSpace(prompt.Content) == "" {
			fieldErrs = append(fieldErrs, FieldError{Field: "content", Message: "content is required"})
		}
	}
	if req.PromptType != nil {
		prompt.PromptType = *req.PromptType
		if !types.ValidPromptType(prompt.PromptType) {
			fieldErrs = append(fieldErrs, FieldError{Field: "prompt_type", Message: "prompt_type must be text or image"})
		}
	}
	if req.Tags != nil {
		prompt.Tags = req.Tags
	}
	if len(fieldErrs) > 0 {
		writeValidationErrors(w, fieldErrs)
		return
	}

	updated, err := h.promptService.Update(r.Context(), prompt, req.Category)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownCategory):
			writeValidationErrors(w, []FieldError{{Field: "category", Message: "category does not exist"}})
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "prompt not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update prompt")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *PromptHandler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := parsePromptID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prompt, err := h.promptService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch prompt")
		return
	}

	if !canModify(claims, prompt) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}

	if err := h.promptService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete prompt")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "prompt deleted successfully"})
}

func (h *PromptHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := parsePromptID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prompt, err := h.promptService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch prompt")
		return
	}

	if !canModify(claims, prompt) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File[formFieldImage]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no image file provided")
		return
	}
	if len(files) > 1 {
		writeError(w, http.StatusBadRequest, "only one image file is allowed")
		return
	}

	image, err := h.processFile(r, files[0])
	if err != nil {
		writeError(w, imageErrorStatus(err), err.Error())
		return
	}

	stored, err := h.promptService.AddImage(r.Context(), prompt.ID, image)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	writeJSON(w, http.StatusCreated, stored)
}

func (h *PromptHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := parsePromptID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	favorited, err := h.promptService.ToggleFavorite(r.Context(), claims.UserID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to toggle favorite")
		return
	}

	message := "removed from favorites"
	if favorited {
		message = "added to favorites"
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{Message: message, Favorited: favorited})
}

func (h *PromptHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prompts, err := h.promptService.ListFavorites(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list favorites")
		return
	}

	writeJSON(w, http.StatusOK, prompts)
}

// CreatePromptRequest is the payload for creating a prompt, accepted as
// JSON or as multipart form fields alongside image files.
type CreatePromptRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	PromptType string   `json:"prompt_type"`
	Tags       []string `json:"tags"`
}

// UpdatePromptRequest carries a partial prompt update. Nil fields are
// left untouched.
type UpdatePromptRequest struct {
	Title      *string  `json:"title"`
	Content    *string  `json:"content"`
	Category   *string  `json:"category"`
	PromptType *string  `json:"prompt_type"`
	Tags       []string `json:"tags"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// PromptListResponse is the paginated list response payload.
type PromptListResponse struct {
	Prompts    []types.Prompt `json:"prompts"`
	Pagination Pagination     `json:"pagination"`
}

// MessageResponse is a simple confirmation payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// FavoriteResponse reports the state after a favorite toggle.
type FavoriteResponse struct {
	Message   string `json:"message"`
	Favorited bool   `json:"favorited"`
}

// parseCreateRequest decodes the create payload from JSON or multipart
// form data. For multipart requests it also processes up to five
// attached images; on failure it writes the response itself and returns
// ok=false.
func (h *PromptHandler) parseCreateRequest(w http.ResponseWriter, r *http.Request) (CreatePromptRequest, []types.PromptImage, bool) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req CreatePromptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return CreatePromptRequest{}, nil, false
		}
		req.Title = strings.TrimSpace(req.Title)
		req.Category = strings.TrimSpace(req.Category)
		return req, nil, true
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return CreatePromptRequest{}, nil, false
	}

	req := CreatePromptRequest{
		Title:      strings.TrimSpace(r.FormValue(formFieldTitle)),
		Content:    r.FormValue(formFieldContent),
		Category:   strings.TrimSpace(r.FormValue(formFieldCategory)),
		PromptType: r.FormValue(formFieldPromptType),
		Tags:       parseTags(r.FormValue(formFieldTags)),
	}

	files := r.MultipartForm.File[formFieldImages]
	if len(files) > maxImagesPerCreate {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images are allowed", maxImagesPerCreate))
		return CreatePromptRequest{}, nil, false
	}

	uploads := make([]types.PromptImage, 0, len(files))
	for _, fileHeader := range files {
		image, err := h.processFile(r, fileHeader)
		if err != nil {
			h.discardUploads(r, uploads)
			writeError(w, imageErrorStatus(err), err.Error())
			return CreatePromptRequest{}, nil, false
		}
		uploads = append(uploads, image)
	}

	return req, uploads, true
}

func (h *PromptHandler) processFile(r *http.Request, fileHeader *multipart.FileHeader) (types.PromptImage, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return types.PromptImage{}, errors.New("failed to read upload")
	}
	defer file.Close()

	return h.processor.Process(
		r.Context(),
		file,
		fileHeader.Filename,
		fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
	)
}

func (h *PromptHandler) discardUploads(r *http.Request, uploads []types.PromptImage) {
	for _, image := range uploads {
		_ = h.processor.Remove(r.Context(), image)
	}
}

func canModify(claims *Claims, prompt types.Prompt) bool {
	return claims.UserID == prompt.AuthorID || claims.Role == types.RoleAdmin
}

func validatePromptFields(title, content, category, promptType string) []FieldError {
	var fieldErrs []FieldError
	if title == "" || len(title) > maxTitleLength {
		fieldErrs = append(fieldErrs, FieldError{Field: "title", Message: "title must be between 1 and 255 characters"})
	}
	if strings.TrimSpace(content) == "" {
		fieldErrs = append(fieldErrs, FieldError{Field: "content", Message: "content is required"})
	}
	if category == "" {
		fieldErrs = append(fieldErrs, FieldError{Field: "category", Message: "category is required"})
	}
	if !types.ValidPromptType(promptType) {
		fieldErrs = append(fieldErrs, FieldError{Field: "prompt_type", Message: "prompt_type must be text or image"})
	}
	return fieldErrs
}

func imageErrorStatus(err error) int {
	switch {
	case errors.Is(err, images.ErrUnsupportedType),
		errors.Is(err, images.ErrTooLarge),
		errors.Is(err, images.ErrInvalidImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func pageCount(total, limit int) int {
	if limit < 1 {
		return 0
	}
	return (total + limit - 1) / limit
}

func parsePagination(r *http.Request) (page, limit, offset int, fieldErrs []FieldError) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			fieldErrs = append(fieldErrs, FieldError{Field: "page", Message: "page must be a positive integer"})
		} else {
			page = value
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 || value > maxLimit {
			fieldErrs = append(fieldErrs, FieldError{Field: "limit", Message: "limit must be between 1 and 100"})
		} else {
			limit = value
		}
	}

	offset = (page - 1) * limit
	return page, limit, offset, fieldErrs
}

func parsePromptID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "promptID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid prompt id")
	}
	return id, nil
}

func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
