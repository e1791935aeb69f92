package store

import (
	"context"
	"database/sql"
)

// FavoriteRepository handles the per-user prompt bookmarks.
type FavoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Toggle flips the favorite state for a (user, prompt) pair and reports
// the resulting state. The insert races through the primary key instead
// of a check-then-act read: two concurrent toggles cannot produce
// duplicate rows, one of them simply observes the conflict and deletes.
func (r *FavoriteRepository) Toggle(ctx context.Context, userID, promptID int) (bool, error) {
	const insert = `
		INSERT INTO favorites (user_id, prompt_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, prompt_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, insert, userID, promptID)
	if err != nil {
		return false, err
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted > 0 {
		return true, nil
	}

	const remove = `DELETE FROM favorites WHERE user_id = $1 AND prompt_id = $2`
	if _, err := r.db.ExecContext(ctx, remove, userID, promptID); err != nil {
		return false, err
	}
	return false, nil
}

// IsFavorited reports whether the user has favorited the prompt.
func (r *FavoriteRepository) IsFavorited(ctx context.Context, userID, promptID int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND prompt_id = $2)`
	var favorited bool
	if err := r.db.QueryRowContext(ctx, query, userID, promptID).Scan(&favorited); err != nil {
		return false, err
	}
	return favorited, nil
}
