package model

import "time"

// Todo field names as stored in the document store.
const (
	TodoFieldText        = "text"
	TodoFieldDescription = "description"
	TodoFieldCompleted   = "completed"
	TodoFieldCategory    = "category"
	TodoFieldCreatedAt   = "createdAt"
)

type Todo struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Text        string    `json:"text"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Category    Category  `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}
