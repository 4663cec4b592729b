package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jaekwang-park/todo-notes/internal/capture"
	"github.com/jaekwang-park/todo-notes/internal/session"
)

// Capturer is a voice capture session.
type Capturer interface {
	Start(ctx context.Context) error
	Stop()
	Listening() bool
	Transcript() string
	Err() error
	Commit() (string, error)
	Close()
	Locale() string
}

type CaptureHandler struct {
	capt Capturer
	// base scopes captures; request contexts end before capture does.
	base context.Context
}

func NewCaptureHandler(base context.Context, capt Capturer) *CaptureHandler {
	return &CaptureHandler{capt: capt, base: base}
}

// CloseOnSignOut discards any capture whenever the session is not
// authenticated. It returns when the watch ends.
func (h *CaptureHandler) CloseOnSignOut(ctx context.Context, sw SessionWatcher) {
	for st := range sw.Watch(ctx) {
		if st.State != session.StateAuthenticated {
			h.capt.Close()
		}
	}
}

type captureState struct {
	Locale     string `json:"locale"`
	Listening  bool   `json:"listening"`
	Transcript string `json:"transcript"`
	Error      string `json:"error,omitempty"`
}

type committedText struct {
	Text string `json:"text"`
}

// ServeHTTP routes /api/v1/capture and /api/v1/capture/{action}
func (h *CaptureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/v1/capture")
	action = strings.Trim(action, "/")

	switch {
	case action == "" && r.Method == http.MethodGet:
		WriteJSON(w, http.StatusOK, h.state())
	case action == "" && r.Method == http.MethodDelete:
		h.capt.Close()
		w.WriteHeader(http.StatusNoContent)
	case action == "start" && r.Method == http.MethodPost:
		if err := h.capt.Start(h.base); err != nil {
			handleCaptureError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, h.state())
	case action == "stop" && r.Method == http.MethodPost:
		h.capt.Stop()
		WriteJSON(w, http.StatusOK, h.state())
	case action == "commit" && r.Method == http.MethodPost:
		text, err := h.capt.Commit()
		if err != nil {
			handleCaptureError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, committedText{Text: text})
	case action == "" || action == "start" || action == "stop" || action == "commit":
		methodNotAllowed(w)
	default:
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
	}
}

func (h *CaptureHandler) state() captureState {
	st := captureState{
		Locale:     h.capt.Locale(),
		Listening:  h.capt.Listening(),
		Transcript: h.capt.Transcript(),
	}
	if err := h.capt.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

func handleCaptureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, capture.ErrUnsupported):
		WriteError(w, http.StatusNotImplemented, "CAPTURE_UNSUPPORTED", "voice capture is not available")
	case errors.Is(err, capture.ErrDeviceError):
		WriteError(w, http.StatusServiceUnavailable, "CAPTURE_DEVICE_ERROR", "the capture device could not be used")
	case errors.Is(err, capture.ErrAlreadyListening):
		WriteError(w, http.StatusConflict, "CAPTURE_IN_PROGRESS", "capture is already in progress")
	case errors.Is(err, capture.ErrNoTranscript):
		WriteError(w, http.StatusUnprocessableEntity, "NO_TRANSCRIPT", "nothing was recognized")
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
