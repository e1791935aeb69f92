package services

import (
	"context"
	"errors"

	"github.com/prompthub/apiserver/internal/images"
	"github.com/prompthub/apiserver/internal/store"
	"github.com/prompthub/apiserver/types"
	"github.com/sirupsen/logrus"
)

// ErrUnknownCategory is returned when a prompt names a category that
// does not exist. Unknown names are rejected, never silently dropped.
var ErrUnknownCategory = errors.New("unknown category")

// PromptRepository defines persistence operations for prompts.
type PromptRepository interface {
	List(ctx context.Context, filter store.PromptFilter) ([]types.Prompt, int, error)
	Get(ctx context.Context, id int) (types.Prompt, error)
	Create(ctx context.Context, prompt types.Prompt, images []types.PromptImage) (types.Prompt, error)
	Update(ctx context.Context, prompt types.Prompt) (types.Prompt, error)
	Delete(ctx context.Context, id int) error
	AddImage(ctx context.Context, image types.PromptImage) (types.PromptImage, error)
	ImagesFor(ctx context.Context, promptID int) ([]types.PromptImage, error)
	ListFavorites(ctx context.Context, userID int) ([]types.Prompt, error)
}

// CategoryResolver is the subset of the category store the prompt
// service needs to map names onto foreign keys.
type CategoryResolver interface {
	GetByName(ctx context.Context, name string) (types.Category, error)
}

// FavoriteRepository defines the favorite toggle operations.
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, promptID int) (bool, error)
	IsFavorited(ctx context.Context, userID, promptID int) (bool, error)
}

// PromptService encapsulates prompt use-cases.
type PromptService struct {
	repo       PromptRepository
	categories CategoryResolver
	favorites  FavoriteRepository
	processor  *images.Processor
}

func NewPromptService(repo PromptRepository, categories CategoryResolver, favorites FavoriteRepository, processor *images.Processor) *PromptService {
	return &PromptService{
		repo:       repo,
		categories: categories,
		favorites:  favorites,
		processor:  processor,
	}
}

func (s *PromptService) List(ctx context.Context, filter store.PromptFilter) ([]types.Prompt, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *PromptService) Get(ctx context.Context, id int) (types.Prompt, error) {
	return s.repo.Get(ctx, id)
}

// Create resolves the category name to a foreign key and persists the
// prompt together with any uploaded images in one transaction.
func (s *PromptService) Create(ctx context.Context, prompt types.Prompt, categoryName string, imgs []types.PromptImage) (types.Prompt, error) {
	categoryID, err := s.resolveCategory(ctx, categoryName)
	if err != nil {
		// Images were stored before the category check; they must not
		// outlive the failed create.
		s.removeFiles(ctx, imgs)
		return types.Prompt{}, err
	}
	prompt.CategoryID = categoryID

	created, err := s.repo.Create(ctx, prompt, imgs)
	if err != nil {
		// The transaction rolled back; stored files must not outlive it.
		s.removeFiles(ctx, imgs)
		return types.Prompt{}, err
	}
	return created, nil
}

// Update persists changed prompt fields. A non-nil categoryName is
// resolved the same way Create resolves it.
func (s *PromptService) Update(ctx context.Context, prompt types.Prompt, categoryName *string) (types.Prompt, error) {
	if categoryName != nil {
		categoryID, err := s.resolveCategory(ctx, *categoryName)
		if err != nil {
			return types.Prompt{}, err
		}
		prompt.CategoryID = categoryID
	}
	return s.repo.Update(ctx, prompt)
}

// Delete removes the prompt's stored files and then its rows. File
// removal failures are logged and do not block the delete.
func (s *PromptService) Delete(ctx context.Context, id int) error {
	imgs, err := s.repo.ImagesFor(ctx, id)
	if err != nil {
		return err
	}
	s.removeFiles(ctx, imgs)
	return s.repo.Delete(ctx, id)
}

// AddImage records an already-processed upload against a prompt.
func (s *PromptService) AddImage(ctx context.Context, promptID int, image types.PromptImage) (types.PromptImage, error) {
	image.PromptID = promptID
	stored, err := s.repo.AddImage(ctx, image)
	if err != nil {
		s.removeFiles(ctx, []types.PromptImage{image})
		return types.PromptImage{}, err
	}
	return stored, nil
}

// ToggleFavorite flips the favorite state for the user and reports the
// new state. The prompt must exist.
func (s *PromptService) ToggleFavorite(ctx context.Context, userID, promptID int) (bool, error) {
	if _, err := s.repo.Get(ctx, promptID); err != nil {
		return false, err
	}
	return s.favorites.Toggle(ctx, userID, promptID)
}

func (s *PromptService) ListFavorites(ctx context.Context, userID int) ([]types.Prompt, error) {
	return s.repo.ListFavorites(ctx, userID)
}

func (s *PromptService) resolveCategory(ctx context.Context, name string) (*int, error) {
	category, err := s.categories.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownCategory
		}
		return nil, err
	}
	return &category.ID, nil
}

func (s *PromptService) removeFiles(ctx context.Context, imgs []types.PromptImage) {
	if s.processor == nil {
		return
	}
	for _, img := range imgs {
		if err := s.processor.Remove(ctx, img); err != nil {
			logrus.WithError(err).WithField("file", img.FileName).Warn("failed to remove stored image")
		}
	}
}
