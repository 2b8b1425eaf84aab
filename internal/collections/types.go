// Package collections defines the domain types for named file collections
// and the files inside them, plus the naming/sanitization
// rules shared by every storage backend.
package collections

import "time"

// Collection is a named container for files.
type Collection struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	FileCount   int            `json:"file_count"`
	TotalSize   int64          `json:"total_size"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// File is a UTF-8 text document inside a Collection.
type File struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	Folder       string    `json:"folder"`
	Name         string    `json:"name"`
	Content      string    `json:"content,omitempty"`
	ContentHash  string    `json:"content_hash"`
	SourceURL    string    `json:"source_url,omitempty"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AllowedExtensions lists the file extensions a File may carry, per the
// invariant
var AllowedExtensions = map[string]bool{
	".md":   true,
	".txt":  true,
	".json": true,
}
