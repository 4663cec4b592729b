package handler

import (
	"net/http"

	"github.com/jaekwang-park/todo-notes/internal/model"
)

type categoryResponse struct {
	Value       model.Category `json:"value"`
	DisplayName string         `json:"display_name"`
	Default     bool           `json:"default"`
}

type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

func (h *CategoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}

	categories := model.Categories()
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{
			Value:       c,
			DisplayName: c.DisplayName(),
			Default:     c == model.DefaultCategory,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"categories": out})
}
