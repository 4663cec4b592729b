package model

import "time"

// Note field names as stored in the document store.
const (
	NoteFieldTitle     = "title"
	NoteFieldContent   = "content"
	NoteFieldCreatedAt = "createdAt"
	NoteFieldUpdatedAt = "updatedAt"
)

type Note struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edited reports whether the note was modified after creation.
func (n Note) Edited() bool {
	return !n.UpdatedAt.Equal(n.CreatedAt)
}
