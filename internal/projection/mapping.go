package projection

import (
	"time"

	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/repository"
)

// Mapper converts a raw document to a typed record. The bool reports
// whether any timestamp had to be defaulted.
type Mapper[T any] func(doc repository.Document, now time.Time) (T, bool)

func MapTodo(doc repository.Document, now time.Time) (model.Todo, bool) {
	createdAt, ok := timestamp(doc.Data[model.TodoFieldCreatedAt], now)

	category := model.Category(stringField(doc.Data, model.TodoFieldCategory))
	if !category.IsValid() {
		category = model.DefaultCategory
	}

	return model.Todo{
		ID:          doc.ID,
		OwnerID:     doc.OwnerID,
		Text:        stringField(doc.Data, model.TodoFieldText),
		Description: stringField(doc.Data, model.TodoFieldDescription),
		Completed:   boolField(doc.Data, model.TodoFieldCompleted),
		Category:    category,
		CreatedAt:   createdAt,
	}, !ok
}

func MapNote(doc repository.Document, now time.Time) (model.Note, bool) {
	createdAt, createdOK := timestamp(doc.Data[model.NoteFieldCreatedAt], now)
	updatedAt, updatedOK := timestamp(doc.Data[model.NoteFieldUpdatedAt], now)

	return model.Note{
		ID:        doc.ID,
		OwnerID:   doc.OwnerID,
		Title:     stringField(doc.Data, model.NoteFieldTitle),
		Content:   stringField(doc.Data, model.NoteFieldContent),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, !createdOK || !updatedOK
}

// timestamp reads a time.Time or RFC3339 string, falling back to now.
func timestamp(v any, now time.Time) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return now, false
		}
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return now, false
		}
		return parsed, true
	}
	return now, false
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func boolField(data map[string]any, key string) bool {
	b, _ := data[key].(bool)
	return b
}
