package handler

import (
	"net/http"

	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/session"
)

// SessionStater reports the identity state without the principal.
type SessionStater interface {
	Current() (model.Principal, session.State)
}

// Binding reports whether the workspace lists are scoped to a principal.
type Binding interface {
	Principal() (model.Principal, bool)
}

type HealthHandler struct {
	sess SessionStater
	ws   Binding
}

func NewHealthHandler(sess SessionStater, ws Binding) *HealthHandler {
	return &HealthHandler{sess: sess, ws: ws}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}

	_, state := h.sess.Current()
	workspace := "unbound"
	if _, bound := h.ws.Principal(); bound {
		workspace = "bound"
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "session": state.String(), "workspace": workspace})
}
