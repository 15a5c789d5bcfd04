package store

import "time"

// Specification is a persisted document. Sections are populated by Get only.
type Specification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ProjectID int64     `json:"projectId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Sections  []Section `json:"sections,omitempty"`
}

type Section struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Items    []Item `json:"items"`
}

type Item struct {
	ID           int64        `json:"id"`
	Content      string       `json:"content"`
	TimeEstimate *int         `json:"timeEstimate"`
	Position     int          `json:"position"`
	Attachments  []Attachment `json:"attachments"`
}

// Attachment links a stored binary resource to an item. Locator addresses the
// bytes in attachment storage.
type Attachment struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"itemId"`
	FileName  string    `json:"fileName"`
	Locator   string    `json:"locator"`
	MediaType string    `json:"mediaType"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

type Project struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Prompt is a saved instruction override. At most one per user is the default.
type Prompt struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
}
