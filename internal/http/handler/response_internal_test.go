package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jaekwang-park/todo-notes/internal/repository"
	"github.com/jaekwang-park/todo-notes/internal/service"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid input", fmt.Errorf("%w: text is required", service.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{"not found", service.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"permission", &repository.WriteError{Op: "update", Collection: repository.CollectionTodos, Kind: repository.ErrPermissionDenied, Err: errors.New("42501")}, http.StatusForbidden, "FORBIDDEN"},
		{"network", fmt.Errorf("failed to create todo: %w", repository.ErrNetworkFailure), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/todos", nil)

			handleServiceError(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), `"code":"`+tt.wantCode+`"`) {
				t.Errorf("expected code %s in %s", tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantOK bool
	}{
		{"valid", `{"text":"buy milk"}`, true},
		{"malformed", `{"text":`, false},
		{"too large", `{"text":"` + strings.Repeat("a", maxBodySize) + `"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/v1/todos", strings.NewReader(tt.body))

			var dst struct {
				Text string `json:"text"`
			}
			ok := decodeBody(w, r, &dst)

			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && dst.Text != "buy milk" {
				t.Errorf("unexpected decoded text %q", dst.Text)
			}
			if !ok && w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}
