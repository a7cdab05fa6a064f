package paymentstate

import (
	"context"
	"sync"
)

// MemoryStore keeps the record in process memory. It does not survive a
// restart and exists for tests and throwaway sessions.
type MemoryStore struct {
	mu  sync.Mutex
	raw []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(ctx context.Context) (*PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return nil, ErrNotFound
	}
	return Decode(s.raw)
}

func (s *MemoryStore) Set(ctx context.Context, p PendingPayment) error {
	raw, err := Encode(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SetIfAbsent(ctx context.Context, p PendingPayment) (bool, error) {
	raw, err := Encode(p)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw != nil {
		return false, nil
	}
	s.raw = raw
	return true, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.raw = nil
	s.mu.Unlock()
	return nil
}

// SetRaw stores bytes as-is, bypassing validation.
func (s *MemoryStore) SetRaw(raw []byte) {
	s.mu.Lock()
	s.raw = append([]byte(nil), raw...)
	s.mu.Unlock()
}
