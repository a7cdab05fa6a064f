package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSession means no bearer token is stored locally.
	ErrNoSession = errors.New("session: not signed in")
	// ErrExpired means the stored token's exp claim has passed.
	ErrExpired = errors.New("session: token expired")
)

// TokenSource supplies the bearer token attached to backend calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Clear drops the local token after the backend rejected it.
	Clear(ctx context.Context) error
}

// FileStore keeps the bearer token in a single 0600 file.
type FileStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("session: read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoSession
	}
	if Expired(token, s.now()) {
		return "", ErrExpired
	}
	return token, nil
}

// Save stores a new bearer token, replacing any previous one.
func (s *FileStore) Save(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session: empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("session: write token: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove token: %w", err)
	}
	return nil
}

// StaticToken is a fixed token, typically from API_TOKEN. Clear makes it unusable
// for the rest of the process.
type StaticToken struct {
	mu      sync.Mutex
	token   string
	cleared bool
}

func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: strings.TrimSpace(token)}
}

func (s *StaticToken) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleared || s.token == "" {
		return "", ErrNoSession
	}
	if Expired(s.token, time.Now()) {
		return "", ErrExpired
	}
	return s.token, nil
}

func (s *StaticToken) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cleared = true
	s.mu.Unlock()
	return nil
}

// Expired reports whether token is a JWT whose exp claim is before now. The
// signature is not checked; the backend does that. Opaque tokens never expire
// locally.
func Expired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
