package paymentstate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the record as one JSON file. Writes go through a temp file
// and a rename so a crash never leaves a half-written record behind.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore stores the record at path, creating parent directories on write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFilePath places the record under the user's config directory.
func DefaultFilePath(key string) string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "anagha-frontdesk", key+".json")
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(ctx context.Context) (*PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("paymentstate: read %s: %w", s.path, err)
	}
	return Decode(raw)
}

func (s *FileStore) Set(ctx context.Context, p PendingPayment) error {
	raw, err := Encode(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := s.writeTemp(raw)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("paymentstate: replace %s: %w", s.path, err)
	}
	return nil
}

// SetIfAbsent hard-links a fully written temp file into place; the link fails
// if another process already holds the slot.
func (s *FileStore) SetIfAbsent(ctx context.Context, p PendingPayment) (bool, error) {
	raw, err := Encode(p)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := s.writeTemp(raw)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, s.path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("paymentstate: claim %s: %w", s.path, err)
	}
	return true, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("paymentstate: remove %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) writeTemp(raw []byte) (string, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("paymentstate: create dir: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("paymentstate: temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("paymentstate: write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("paymentstate: sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("paymentstate: close temp: %w", err)
	}
	return name, nil
}
