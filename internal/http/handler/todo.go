package handler

import (
	"net/http"
	"strings"

	"github.com/jaekwang-park/todo-notes/internal/aggregate"
	"github.com/jaekwang-park/todo-notes/internal/middleware"
	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/projection"
	"github.com/jaekwang-park/todo-notes/internal/service"
)

// TodoView is the live todos list of the bound principal.
type TodoView interface {
	Todos() *projection.List[model.Todo]
	// Todo returns the todo with id as last observed.
	Todo(id string) (model.Todo, bool)
}

type TodoHandler struct {
	svc  *service.TodoService
	view TodoView
}

func NewTodoHandler(svc *service.TodoService, view TodoView) *TodoHandler {
	return &TodoHandler{svc: svc, view: view}
}

// ServeHTTP routes /api/v1/todos and /api/v1/todos/{id}
func (h *TodoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in required")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/todos")
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	todoID := parts[0]
	subPath := ""
	if len(parts) > 1 {
		subPath = parts[1]
	}

	// /api/v1/todos/{id}/toggle
	if todoID != "" && subPath == "toggle" {
		if r.Method != http.MethodPatch {
			methodNotAllowed(w)
			return
		}
		h.handleToggle(w, r, p.ID, todoID)
		return
	}
	if subPath != "" {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
		return
	}

	// /api/v1/todos/{id}
	if todoID != "" {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, todoID)
		case http.MethodPut:
			h.handleUpdate(w, r, p.ID, todoID)
		case http.MethodDelete:
			h.handleDelete(w, r, p.ID, todoID)
		default:
			methodNotAllowed(w)
		}
		return
	}

	// /api/v1/todos
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r, p.ID)
	default:
		methodNotAllowed(w)
	}
}

type todoListResponse struct {
	Todos    []model.Todo              `json:"todos"`
	Counts   []aggregate.CategoryCount `json:"counts"`
	Total    int                       `json:"total"`
	Revision uint64                    `json:"revision"`
}

func (h *TodoHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list := h.view.Todos()
	if err := list.Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "LIVE_QUERY_FAILED", "todos are not being updated, sign in again")
		return
	}

	var filter *model.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, err := model.ParseCategory(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "INVALID_CATEGORY", err.Error())
			return
		}
		filter = &c
	}

	WriteJSON(w, http.StatusOK, todoList(list, filter))
}

// todoList builds the list payload. Counts and total always cover every
// todo; filter narrows only the items.
func todoList(l *projection.List[model.Todo], filter *model.Category) todoListResponse {
	rev := l.Revision()
	all := l.Items()
	todos := all
	if filter != nil {
		todos = aggregate.FilterByCategory(all, *filter)
	}
	return todoListResponse{
		Todos:    todos,
		Counts:   aggregate.Counts(all),
		Total:    aggregate.TotalCount(all),
		Revision: rev,
	}
}

type createTodoRequest struct {
	Text        string `json:"text"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h *TodoHandler) handleCreate(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req createTodoRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := h.svc.Create(r.Context(), ownerID, service.CreateTodoInput{
		Text:        req.Text,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, CreatedResponse{ID: id})
}

type updateTodoRequest struct {
	Text        string `json:"text"`
	Description string `json:"description"`
}

func (h *TodoHandler) handleUpdate(w http.ResponseWriter, r *http.Request, ownerID, todoID string) {
	var req updateTodoRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.svc.Update(r.Context(), ownerID, todoID, service.UpdateTodoInput{
		Text:        req.Text,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleGet serves one todo from the live list.
func (h *TodoHandler) handleGet(w http.ResponseWriter, todoID string) {
	if err := h.view.Todos().Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "LIVE_QUERY_FAILED", "todos are not being updated, sign in again")
		return
	}
	todo, ok := h.view.Todo(todoID)
	if !ok {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}
	WriteJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) handleToggle(w http.ResponseWriter, r *http.Request, ownerID, todoID string) {
	if err := h.svc.Toggle(r.Context(), ownerID, todoID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *TodoHandler) handleDelete(w http.ResponseWriter, r *http.Request, ownerID, todoID string) {
	if err := h.svc.Delete(r.Context(), ownerID, todoID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
