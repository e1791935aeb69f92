package types

import "time"

// Category type-filter values. "both" means the category accepts text
// and image prompts alike.
const (
	CategoryFilterText  = "text"
	CategoryFilterImage = "image"
	CategoryFilterBoth  = "both"
)

// ValidCategoryFilter reports whether v is a recognized type filter.
func ValidCategoryFilter(v string) bool {
	return v == CategoryFilterText || v == CategoryFilterImage || v == CategoryFilterBoth
}

// Category is an admin-defined label organizing prompts, optionally
// restricted to one prompt type.
type Category struct {
	// ID is the unique identifier of the category.
	ID int `json:"id" db:"id"`

	// Name is the unique display name of the category.
	Name string `json:"name" db:"name"`

	// Description is an optional free-text description.
	Description string `json:"description" db:"description"`

	// Color is a hex color used by clients when rendering the category.
	Color string `json:"color" db:"color"`

	// PromptTypeFilter restricts which prompt types the category applies
	// to: "text", "image", or "both".
	PromptTypeFilter string `json:"prompt_type_filter" db:"prompt_type_filter"`

	// CreatedAt is the timestamp when the category was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
