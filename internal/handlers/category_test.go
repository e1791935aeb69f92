package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prompthub/apiserver/internal/services"
	"github.com/prompthub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type categoryFixture struct {
	router     *chi.Mux
	categories *fakeCategoryRepo
	users      *fakeUserRepo
}

func newCategoryFixture(t *testing.T) *categoryFixture {
	t.Helper()

	categories := newFakeCategoryRepo("vibe coding")
	users := newFakeUserRepo()

	router := chi.NewRouter()
	router.Route("/categories", func(r chi.Router) {
		CategoryRouter(r, services.NewCategoryService(categories), services.NewUserService(users), RequireAuth(testSecret))
	})

	return &categoryFixture{router: router, categories: categories, users: users}
}

func (f *categoryFixture) addUser(t *testing.T, username, role string) string {
	t.Helper()

	user, err := f.users.Create(context.Background(), types.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	})
	require.NoError(t, err)

	token, err := issueToken(user, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return token
}

func (f *categoryFixture) do(method, target, token string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestListCategoriesPublic(t *testing.T) {
	f := newCategoryFixture(t)

	rec := f.do(http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var categories []types.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, "vibe coding", categories[0].Name)
}

func TestCreateCategoryRequiresAdmin(t *testing.T) {
	f := newCategoryFixture(t)
	userToken := f.addUser(t, "alice", types.RoleUser)
	adminToken := f.addUser(t, "root", types.RoleAdmin)

	payload := map[string]string{"name": "AI tools"}

	rec := f.do(http.MethodPost, "/categories", "", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/categories", userToken, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, "/categories", adminToken, payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created types.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "AI tools", created.Name)
	assert.Equal(t, "#3B82F6", created.Color)
	assert.Equal(t, types.CategoryFilterBoth, created.PromptTypeFilter)
}

func TestCreateCategoryValidation(t *testing.T) {
	f := newCategoryFixture(t)
	adminToken := f.addUser(t, "root", types.RoleAdmin)

	rec := f.do(http.MethodPost, "/categories", adminToken, map[string]string{
		"name":               "",
		"color":              "blue",
		"prompt_type_filter": "video",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ValidationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	fields := make([]string, 0, len(resp.Errors))
	for _, fieldErr := range resp.Errors {
		fields = append(fields, fieldErr.Field)
	}
	assert.ElementsMatch(t, []string{"name", "color", "prompt_type_filter"}, fields)

	// Duplicate name conflicts.
	rec = f.do(http.MethodPost, "/categories", adminToken, map[string]string{"name": "vibe coding"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateAndDeleteCategory(t *testing.T) {
	f := newCategoryFixture(t)
	adminToken := f.addUser(t, "root", types.RoleAdmin)

	existing, err := f.categories.GetByName(context.Background(), "vibe coding")
	require.NoError(t, err)
	target := fmt.Sprintf("/categories/%d", existing.ID)

	rec := f.do(http.MethodPut, target, adminToken, map[string]string{
		"description": "prompts for coding agents",
		"color":       "#10B981",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated types.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "vibe coding", updated.Name)
	assert.Equal(t, "#10B981", updated.Color)
	assert.Equal(t, "prompts for coding agents", updated.Description)

	rec = f.do(http.MethodPut, "/categories/9999", adminToken, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, target, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodDelete, target, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
