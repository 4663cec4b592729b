package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNoToken = errors.New("no stored session")

// StoredToken is what survives a restart: enough to refresh the session.
type StoredToken struct {
	Email        string `json:"email"`
	RefreshToken string `json:"refresh_token"`
}

type TokenStore interface {
	Load() (StoredToken, error)
	Save(tok StoredToken) error
	Clear() error
}

// FileTokenStore keeps the refresh token in a JSON file readable only by
// the current user.
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultTokenPath returns ~/.todo-notes/session.json.
func DefaultTokenPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".todo-notes", "session.json")
}

func (s *FileTokenStore) Load() (StoredToken, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return StoredToken{}, ErrNoToken
	}
	if err != nil {
		return StoredToken{}, fmt.Errorf("failed to read session file: %w", err)
	}

	var tok StoredToken
	if err := json.Unmarshal(b, &tok); err != nil {
		return StoredToken{}, fmt.Errorf("failed to decode session file: %w", err)
	}
	if tok.RefreshToken == "" {
		return StoredToken{}, ErrNoToken
	}
	return tok, nil
}

func (s *FileTokenStore) Save(tok StoredToken) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
