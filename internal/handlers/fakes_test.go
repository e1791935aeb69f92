package handlers

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/prompthub/apiserver/internal/store"
	"github.com/prompthub/apiserver/types"
)

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// fakePromptRepo is an in-memory services.PromptRepository.
type fakePromptRepo struct {
	nextID      int
	nextImageID int
	prompts     map[int]types.Prompt
	favorites   map[int][]int
}

func newFakePromptRepo() *fakePromptRepo {
	return &fakePromptRepo{
		nextID:      1,
		nextImageID: 1,
		prompts:     map[int]types.Prompt{},
		favorites:   map[int][]int{},
	}
}

func (f *fakePromptRepo) List(_ context.Context, filter store.PromptFilter) ([]types.Prompt, int, error) {
	matched := make([]types.Prompt, 0, len(f.prompts))
	for _, prompt := range f.prompts {
		if filter.PromptType != "" && prompt.PromptType != filter.PromptType {
			continue
		}
		if filter.Category != "" && prompt.Category != filter.Category {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(prompt.Title), needle) &&
				!strings.Contains(strings.ToLower(prompt.Content), needle) {
				continue
			}
		}
		matched = append(matched, prompt)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	if filter.Offset >= total {
		return []types.Prompt{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (f *fakePromptRepo) Get(_ context.Context, id int) (types.Prompt, error) {
	prompt, ok := f.prompts[id]
	if !ok {
		return types.Prompt{}, store.ErrNotFound
	}
	return prompt, nil
}

func (f *fakePromptRepo) Create(_ context.Context, prompt types.Prompt, imgs []types.PromptImage) (types.Prompt, error) {
	prompt.ID = f.nextID
	f.nextID++
	prompt.CreatedAt = time.Now()
	prompt.UpdatedAt = prompt.CreatedAt
	for _, img := range imgs {
		img.ID = f.nextImageID
		f.nextImageID++
		img.PromptID = prompt.ID
		prompt.Images = append(prompt.Images, img)
	}
	f.prompts[prompt.ID] = prompt
	return prompt, nil
}

func (f *fakePromptRepo) Update(_ context.Context, prompt types.Prompt) (types.Prompt, error) {
	existing, ok := f.prompts[prompt.ID]
	if !ok {
		return types.Prompt{}, store.ErrNotFound
	}
	prompt.Images = existing.Images
	prompt.CreatedAt = existing.CreatedAt
	prompt.UpdatedAt = time.Now()
	f.prompts[prompt.ID] = prompt
	return prompt, nil
}

func (f *fakePromptRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.prompts[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.prompts, id)
	return nil
}

func (f *fakePromptRepo) AddImage(_ context.Context, image types.PromptImage) (types.PromptImage, error) {
	prompt, ok := f.prompts[image.PromptID]
	if !ok {
		return types.PromptImage{}, store.ErrNotFound
	}
	image.ID = f.nextImageID
	f.nextImageID++
	prompt.Images = append(prompt.Images, image)
	f.prompts[prompt.ID] = prompt
	return image, nil
}

func (f *fakePromptRepo) ImagesFor(_ context.Context, promptID int) ([]types.PromptImage, error) {
	prompt, ok := f.prompts[promptID]
	if !ok {
		return nil, nil
	}
	return prompt.Images, nil
}

func (f *fakePromptRepo) ListFavorites(_ context.Context, userID int) ([]types.Prompt, error) {
	ids := f.favorites[userID]
	prompts := make([]types.Prompt, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if prompt, ok := f.prompts[ids[i]]; ok {
			prompts = append(prompts, prompt)
		}
	}
	return prompts, nil
}

func (f *fakePromptRepo) Toggle(_ context.Context, userID, promptID int) (bool, error) {
	ids := f.favorites[userID]
	for i, id := range ids {
		if id == promptID {
			f.favorites[userID] = append(ids[:i], ids[i+1:]...)
			return false, nil
		}
	}
	f.favorites[userID] = append(ids, promptID)
	return true, nil
}

func (f *fakePromptRepo) IsFavorited(_ context.Context, userID, promptID int) (bool, error) {
	for _, id := range f.favorites[userID] {
		if id == promptID {
			return true, nil
		}
	}
	return false, nil
}

// fakeCategoryRepo is an in-memory services.CategoryRepository.
type fakeCategoryRepo struct {
	nextID     int
	categories map[int]types.Category
}

func newFakeCategoryRepo(names ...string) *fakeCategoryRepo {
	repo := &fakeCategoryRepo{nextID: 1, categories: map[int]types.Category{}}
	for _, name := range names {
		_, _ = repo.Create(context.Background(), types.Category{
			Name:             name,
			Color:            "#3B82F6",
			PromptTypeFilter: types.CategoryFilterBoth,
		})
	}
	return repo
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]types.Category, error) {
	categories := make([]types.Category, 0, len(f.categories))
	for _, category := range f.categories {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (f *fakeCategoryRepo) Get(_ context.Context, id int) (types.Category, error) {
	category, ok := f.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return category, nil
}

func (f *fakeCategoryRepo) GetByName(_ context.Context, name string) (types.Category, error) {
	for _, category := range f.categories {
		if category.Name == name {
			return category, nil
		}
	}
	return types.Category{}, store.ErrNotFound
}

func (f *fakeCategoryRepo) Create(_ context.Context, category types.Category) (types.Category, error) {
	for _, existing := range f.categories {
		if existing.Name == category.Name {
			return types.Category{}, store.ErrDuplicate
		}
	}
	category.ID = f.nextID
	f.nextID++
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt
	f.categories[category.ID] = category
	return category, nil
}

func (f *fakeCategoryRepo) Update(_ context.Context, category types.Category) (types.Category, error) {
	if _, ok := f.categories[category.ID]; !ok {
		return types.Category{}, store.ErrNotFound
	}
	for _, existing := range f.categories {
		if existing.ID != category.ID && existing.Name == category.Name {
			return types.Category{}, store.ErrDuplicate
		}
	}
	category.UpdatedAt = time.Now()
	f.categories[category.ID] = category
	return category, nil
}

func (f *fakeCategoryRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.categories, id)
	return nil
}
