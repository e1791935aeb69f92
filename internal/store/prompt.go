package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/prompthub/apiserver/types"
)

// PromptFilter narrows a prompt listing. Zero values mean "no filter".
type PromptFilter struct {
	Category   string
	PromptType string
	Search     string
	Offset     int
	Limit      int
}

// PromptRepository handles persistence for prompts and their images.
type PromptRepository struct {
	db *sql.DB
}

func NewPromptRepository(db *sql.DB) *PromptRepository {
	return &PromptRepository{db: db}
}

const promptColumns = `
	p.id, p.title, p.content, p.category_id, COALESCE(c.name, ''),
	p.prompt_type, p.tags, p.author_id, u.username, p.created_at, p.updated_at`

const promptJoins = `
	FROM prompts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN categories c ON c.id = p.category_id`

func scanPrompt(scan func(dest ...any) error) (types.Prompt, error) {
	var prompt types.Prompt
	var categoryID sql.NullInt64
	var tagsJSON []byte
	var authorUsername string
	if err := scan(
		&prompt.ID,
		&prompt.Title,
		&prompt.Content,
		&categoryID,
		&prompt.Category,
		&prompt.PromptType,
		&tagsJSON,
		&prompt.AuthorID,
		&authorUsername,
		&prompt.CreatedAt,
		&prompt.UpdatedAt,
	); err != nil {
		return types.Prompt{}, err
	}
	if categoryID.Valid {
		id := int(categoryID.Int64)
		prompt.CategoryID = &id
	}
	prompt.Tags = []string{}
	if err := json.Unmarshal(tagsJSON, &prompt.Tags); err != nil {
		return types.Prompt{}, fmt.Errorf("decode tags: %w", err)
	}
	prompt.Author = &types.AuthorRef{ID: prompt.AuthorID, Username: authorUsername}
	prompt.Images = []types.PromptImage{}
	return prompt, nil
}

// List returns one page of prompts matching the filter, with author and
// images attached, plus the total match count. Ordering is newest first.
func (r *PromptRepository) List(ctx context.Context, filter PromptFilter) ([]types.Prompt, int, error) {
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	where, args := buildPromptWhere(filter)

	countQuery := `SELECT COUNT(1)` + promptJoins + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT` + promptColumns + promptJoins + where +
		fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC OFFSET $%d LIMIT $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Offset, filter.Limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	prompts := make([]types.Prompt, 0, filter.Limit)
	for rows.Next() {
		prompt, err := scanPrompt(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		prompts = append(prompts, prompt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachImages(ctx, prompts); err != nil {
		return nil, 0, err
	}
	return prompts, total, nil
}

// Get fetches a prompt by id with author and images attached.
func (r *PromptRepository) Get(ctx context.Context, id int) (types.Prompt, error) {
	query := `SELECT` + promptColumns + promptJoins + ` WHERE p.id = $1`
	prompt, err := scanPrompt(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Prompt{}, ErrNotFound
		}
		return types.Prompt{}, err
	}

	prompts := []types.Prompt{prompt}
	if err := r.attachImages(ctx, prompts); err != nil {
		return types.Prompt{}, err
	}
	return prompts[0], nil
}

// Create inserts the prompt row and any accompanying image rows in a
// single transaction, so a failed image insert leaves no prompt behind.
func (r *PromptRepository) Create(ctx context.Context, prompt types.Prompt, images []types.PromptImage) (types.Prompt, error) {
	now := time.Now()
	prompt.CreatedAt = now
	prompt.UpdatedAt = now

	tagsJSON, err := json.Marshal(tagsOrEmpty(prompt.Tags))
	if err != nil {
		return types.Prompt{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Prompt{}, err
	}
	defer tx.Rollback()

	const insertPrompt = `
		INSERT INTO prompts (title, content, category_id, prompt_type, tags, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertPrompt,
		prompt.Title,
		prompt.Content,
		nullableID(prompt.CategoryID),
		prompt.PromptType,
		tagsJSON,
		prompt.AuthorID,
		prompt.CreatedAt,
		prompt.UpdatedAt,
	).Scan(&prompt.ID); err != nil {
		return types.Prompt{}, translateError(err)
	}

	for i := range images {
		images[i].PromptID = prompt.ID
		images[i].CreatedAt = now
		if err := insertImage(ctx, tx, &images[i]); err != nil {
			return types.Prompt{}, translateError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Prompt{}, err
	}

	return r.Get(ctx, prompt.ID)
}

// Update replaces the mutable columns of an existing prompt.
func (r *PromptRepository) Update(ctx context.Context, prompt types.Prompt) (types.Prompt, error) {
	prompt.UpdatedAt = time.Now()

	tagsJSON, err := json.Marshal(tagsOrEmpty(prompt.Tags))
	if err != nil {
		return types.Prompt{}, err
	}

	const query = `
		UPDATE prompts
		SET title = $1,
			content = $2,
			category_id = $3,
			prompt_type = $4,
			tags = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		prompt.Title,
		prompt.Content,
		nullableID(prompt.CategoryID),
		prompt.PromptType,
		tagsJSON,
		prompt.UpdatedAt,
		prompt.ID,
	)
	if err != nil {
		return types.Prompt{}, translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Prompt{}, err
	}
	if affected == 0 {
		return types.Prompt{}, ErrNotFound
	}

	return r.Get(ctx, prompt.ID)
}

// Delete removes a prompt. Image rows go with it via the foreign-key
// cascade; callers are responsible for removing stored files first.
func (r *PromptRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM prompts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddImage persists the metadata for one uploaded image.
func (r *PromptRepository) AddImage(ctx context.Context, image types.PromptImage) (types.PromptImage, error) {
	image.CreatedAt = time.Now()
	if err := insertImage(ctx, r.db, &image); err != nil {
		return types.PromptImage{}, translateError(err)
	}
	return image, nil
}

// ImagesFor returns the image records attached to a prompt.
func (r *PromptRepository) ImagesFor(ctx context.Context, promptID int) ([]types.PromptImage, error) {
	const query = `
		SELECT id, prompt_id, file_name, original_name, file_path, thumbnail_path, file_size, mime_type, created_at
		FROM prompt_images
		WHERE prompt_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, promptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectImages(rows)
}

// ListFavorites returns the prompts a user has favorited, newest
// favorite first, with author and images attached.
func (r *PromptRepository) ListFavorites(ctx context.Context, userID int) ([]types.Prompt, error) {
	query := `SELECT` + promptColumns + promptJoins + `
		JOIN favorites f ON f.prompt_id = p.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC, p.id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prompts := make([]types.Prompt, 0)
	for rows.Next() {
		prompt, err := scanPrompt(rows.Scan)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachImages(ctx, prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// buildPromptWhere renders the WHERE clause and argument list for a
// filtered listing. Tag search matches individual tag values, not the
// JSONB column's textual form.
func buildPromptWhere(filter PromptFilter) (string, []any) {
	where := ""
	args := []any{}
	addClause := func(clause string, value any) {
		args = append(args, value)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(clause, len(args))
	}

	if filter.Category != "" {
		addClause("c.name = $%d", filter.Category)
	}
	if filter.PromptType != "" {
		addClause("p.prompt_type = $%d", filter.PromptType)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		addClause(`(p.title ILIKE $%d OR p.content ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(p.tags) AS tag(value) WHERE tag.value ILIKE $%[1]d))`, pattern)
	}
	return where, args
}

type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertImage(ctx context.Context, db execer, image *types.PromptImage) error {
	const query = `
		INSERT INTO prompt_images (prompt_id, file_name, original_name, file_path, thumbnail_path, file_size, mime_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	return db.QueryRowContext(
		ctx,
		query,
		image.PromptID,
		image.FileName,
		image.OriginalName,
		image.FilePath,
		image.ThumbnailPath,
		image.FileSize,
		image.MimeType,
		image.CreatedAt,
	).Scan(&image.ID)
}

func (r *PromptRepository) attachImages(ctx context.Context, prompts []types.Prompt) error {
	if len(prompts) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(prompts))
	index := make(map[int]int, len(prompts))
	for i := range prompts {
		ids = append(ids, int64(prompts[i].ID))
		index[prompts[i].ID] = i
	}

	const query = `
		SELECT id, prompt_id, file_name, original_name, file_path, thumbnail_path, file_size, mime_type, created_at
		FROM prompt_images
		WHERE prompt_id = ANY($1)
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	images, err := collectImages(rows)
	if err != nil {
		return err
	}
	for _, image := range images {
		i := index[image.PromptID]
		prompts[i].Images = append(prompts[i].Images, image)
	}
	return nil
}

func collectImages(rows *sql.Rows) ([]types.PromptImage, error) {
	images := make([]types.PromptImage, 0)
	for rows.Next() {
		var image types.PromptImage
		if err := rows.Scan(
			&image.ID,
			&image.PromptID,
			&image.FileName,
			&image.OriginalName,
			&image.FilePath,
			&image.ThumbnailPath,
			&image.FileSize,
			&image.MimeType,
			&image.CreatedAt,
		); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

func nullableID(id *int) any {
	if id == nil {
		return nil
	}
	return *id
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
