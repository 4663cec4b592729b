package handler

import (
	"bytes"
	"html"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/jaekwang-park/todo-notes/internal/middleware"
	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/projection"
	"github.com/jaekwang-park/todo-notes/internal/service"
)

// NoteView is the live notes list of the bound principal.
type NoteView interface {
	Notes() *projection.List[model.Note]
}

type NoteHandler struct {
	svc      *service.NoteService
	view     NoteView
	renderer *noteRenderer
}

func NewNoteHandler(svc *service.NoteService, view NoteView) *NoteHandler {
	return &NoteHandler{svc: svc, view: view, renderer: newNoteRenderer()}
}

// ServeHTTP routes /api/v1/notes and /api/v1/notes/{id}
func (h *NoteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in required")
		return
	}

	noteID := strings.TrimPrefix(r.URL.Path, "/api/v1/notes")
	noteID = strings.TrimPrefix(noteID, "/")
	if strings.Contains(noteID, "/") {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
		return
	}

	if noteID != "" {
		switch r.Method {
		case http.MethodPut:
			h.handleUpdate(w, r, p.ID, noteID)
		case http.MethodDelete:
			h.handleDelete(w, r, p.ID, noteID)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleList(w)
	case http.MethodPost:
		h.handleCreate(w, r, p.ID)
	default:
		methodNotAllowed(w)
	}
}

type noteResponse struct {
	model.Note
	ContentHTML string `json:"content_html"`
	Edited      bool   `json:"edited"`
}

type noteListResponse struct {
	Notes    []noteResponse `json:"notes"`
	Total    int            `json:"total"`
	Revision uint64         `json:"revision"`
}

func (h *NoteHandler) handleList(w http.ResponseWriter) {
	list := h.view.Notes()
	if err := list.Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "LIVE_QUERY_FAILED", "notes are not being updated, sign in again")
		return
	}

	WriteJSON(w, http.StatusOK, h.renderer.list(list))
}

type noteRenderer struct {
	md goldmark.Markdown
}

func newNoteRenderer() *noteRenderer {
	return &noteRenderer{md: goldmark.New()}
}

func (nr *noteRenderer) list(l *projection.List[model.Note]) noteListResponse {
	rev := l.Revision()
	notes := l.Items()
	out := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteResponse{
			Note:        n,
			ContentHTML: nr.render(n.Content),
			Edited:      n.Edited(),
		})
	}
	return noteListResponse{Notes: out, Total: len(out), Revision: rev}
}

// render converts markdown content to HTML. Raw HTML in the source is
// omitted by the renderer.
func (nr *noteRenderer) render(content string) string {
	var buf bytes.Buffer
	if err := nr.md.Convert([]byte(content), &buf); err != nil {
		return "<p>" + html.EscapeString(content) + "</p>"
	}
	return buf.String()
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *NoteHandler) handleCreate(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req noteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := h.svc.Create(r.Context(), ownerID, service.NoteInput{Title: req.Title, Content: req.Content})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, CreatedResponse{ID: id})
}

func (h *NoteHandler) handleUpdate(w http.ResponseWriter, r *http.Request, ownerID, noteID string) {
	var req noteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.svc.Update(r.Context(), ownerID, noteID, service.NoteInput{Title: req.Title, Content: req.Content})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *NoteHandler) handleDelete(w http.ResponseWriter, r *http.Request, ownerID, noteID string) {
	if err := h.svc.Delete(r.Context(), ownerID, noteID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
