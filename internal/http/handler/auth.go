package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jaekwang-park/todo-notes/internal/cognito"
	"github.com/jaekwang-park/todo-notes/internal/model"
	"github.com/jaekwang-park/todo-notes/internal/session"
)

const genericAuthMessage = "An error occurred. Please try again."

// Authenticator is the identity session as seen by the shell.
type Authenticator interface {
	Status() session.Status
	SignIn(ctx context.Context, email, password string) (model.Principal, error)
	SignUp(ctx context.Context, name, email, password string) (model.Principal, error)
	Confirm(ctx context.Context, email, code, password string) (model.Principal, error)
	ResendConfirmation(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
}

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	sess Authenticator
}

func NewAuthHandler(sess Authenticator) *AuthHandler {
	return &AuthHandler{sess: sess}
}

// ServeHTTP routes /api/v1/auth/* requests.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/auth/")
	path = strings.TrimRight(path, "/")

	switch path {
	case "signup":
		h.requirePost(w, r, h.handleSignUp)
	case "confirm":
		h.requirePost(w, r, h.handleConfirm)
	case "resend":
		h.requirePost(w, r, h.handleResend)
	case "login":
		h.requirePost(w, r, h.handleLogin)
	case "logout":
		h.requirePost(w, r, h.handleLogout)
	case "session":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		WriteJSON(w, http.StatusOK, h.sess.Status())
	default:
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
	}
}

func (h *AuthHandler) requirePost(w http.ResponseWriter, r *http.Request, handler func(http.ResponseWriter, *http.Request)) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	handler(w, r)
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signUpResponse is the session status after sign-up. The session stays
// anonymous while ConfirmationRequired is set.
type signUpResponse struct {
	session.Status
	ConfirmationRequired bool `json:"confirmation_required"`
}

type confirmRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeBody(w, r, &req) {
		return
	}

	_, err := h.sess.SignUp(r.Context(), req.Name, req.Email, req.Password)
	switch {
	case errors.Is(err, session.ErrConfirmationRequired):
		WriteJSON(w, http.StatusAccepted, signUpResponse{Status: h.sess.Status(), ConfirmationRequired: true})
	case err != nil:
		handleAuthError(w, r, err)
	default:
		WriteJSON(w, http.StatusCreated, signUpResponse{Status: h.sess.Status()})
	}
}

func (h *AuthHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := h.sess.Confirm(r.Context(), req.Email, req.Code, req.Password); err != nil {
		handleAuthError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, h.sess.Status())
}

func (h *AuthHandler) handleResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.sess.ResendConfirmation(r.Context(), req.Email); err != nil {
		handleAuthError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := h.sess.SignIn(r.Context(), req.Email, req.Password); err != nil {
		handleAuthError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, h.sess.Status())
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.SignOut(r.Context()); err != nil {
		handleAuthError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, h.sess.Status())
}

// handleAuthError maps session and cognito errors to the inline messages
// shown next to the auth forms. Details stay in the log.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, session.ErrEmailAlreadyExists):
		WriteError(w, http.StatusConflict, "EMAIL_ALREADY_EXISTS", "Email already exists")
	case errors.Is(err, session.ErrUserNotConfirmed):
		WriteError(w, http.StatusConflict, "USER_NOT_CONFIRMED", "Please confirm your email before signing in")
	case errors.Is(err, session.ErrInvalidCode):
		WriteError(w, http.StatusBadRequest, "INVALID_CODE", "Invalid or expired confirmation code")
	case errors.Is(err, session.ErrMissingFields):
		WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "Email and password are required")
	case errors.Is(err, session.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, "INVALID_SESSION_STATE", err.Error())
	case errors.Is(err, cognito.ErrInvalidPassword):
		WriteError(w, http.StatusBadRequest, "INVALID_PASSWORD", "Password does not meet requirements")
	case errors.Is(err, cognito.ErrTooManyRequests):
		WriteError(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many attempts. Please try again later.")
	default:
		slog.ErrorContext(r.Context(), "auth error", "error", err)
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", genericAuthMessage)
	}
}
