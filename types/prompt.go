package types

import "time"

// Prompt type values.
const (
	PromptTypeText  = "text"
	PromptTypeImage = "image"
)

// ValidPromptType reports whether v is a recognized prompt type.
func ValidPromptType(v string) bool {
	return v == PromptTypeText || v == PromptTypeImage
}

// Prompt represents a user-authored text or image-bearing record,
// the core content unit of the application.
type Prompt struct {
	// ID is the unique identifier of the prompt.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the prompt.
	Title string `json:"title" db:"title"`

	// Content is the free-text body of the prompt.
	Content string `json:"content" db:"content"`

	// CategoryID references the category the prompt belongs to. It is
	// nil when the category has been deleted out from under the prompt.
	CategoryID *int `json:"category_id" db:"category_id"`

	// Category is the resolved category name, empty when CategoryID is nil.
	Category string `json:"category" db:"category"`

	// PromptType is either "text" or "image".
	PromptType string `json:"prompt_type" db:"prompt_type"`

	// Tags are free-form labels associated with the prompt, used for
	// filtering and search. Order is preserved.
	Tags []string `json:"tags" db:"tags"`

	// AuthorID identifies the user who created the prompt.
	AuthorID int `json:"author_id" db:"author_id"`

	// Author carries the public identity of the prompt's author when the
	// prompt is loaded with its associations.
	Author *AuthorRef `json:"author,omitempty"`

	// Images are the uploaded originals attached to this prompt.
	Images []PromptImage `json:"images"`

	// CreatedAt is the timestamp at which the prompt was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the prompt.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AuthorRef is the public subset of a user embedded in prompt payloads.
type AuthorRef struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// PromptImage is the stored metadata for one uploaded image and its
// derived thumbnail. Rows exist only while the parent prompt exists.
type PromptImage struct {
	// ID is the unique identifier of the image record.
	ID int `json:"id" db:"id"`

	// PromptID identifies the prompt this image belongs to.
	PromptID int `json:"prompt_id" db:"prompt_id"`

	// FileName is the collision-resistant name the original was stored under.
	FileName string `json:"filename" db:"file_name"`

	// OriginalName is the filename supplied by the uploader.
	OriginalName string `json:"original_name" db:"original_name"`

	// FilePath is the storage key of the original file.
	FilePath string `json:"file_path" db:"file_path"`

	// ThumbnailPath is the storage key of the derived 300x300 thumbnail.
	ThumbnailPath string `json:"thumbnail_path" db:"thumbnail_path"`

	// FileSize is the size of the original in bytes.
	FileSize int64 `json:"file_size" db:"file_size"`

	// MimeType is the content type reported for the original upload.
	MimeType string `json:"mime_type" db:"mime_type"`

	// CreatedAt is the timestamp when the image was stored.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
