package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/filex"
)

// Tokens is the on-disk session of the CLI.
type Tokens struct {
	Username        string    `json:"username"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

// TokenFile stores Tokens as JSON at a fixed path with owner-only permissions.
type TokenFile struct {
	path string
}

func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

func (f *TokenFile) Path() string { return f.path }

// Load returns ErrNotLoggedIn when no file exists.
func (f *TokenFile) Load() (*Tokens, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var t Tokens
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	if t.AccessToken == "" && t.RefreshToken == "" {
		return nil, ErrNotLoggedIn
	}
	return &t, nil
}

// Save replaces the file atomically.
func (f *TokenFile) Save(t *Tokens) error {
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(f.path, b, 0o600); err != nil {
		return fmt.Errorf("save token file: %w", err)
	}
	return nil
}

// Remove deletes the file; a missing file is not an error.
func (f *TokenFile) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
