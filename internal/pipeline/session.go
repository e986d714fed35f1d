package pipeline

import "sync"

// Session holds the dataset queries run against until it is replaced.
// It is safe for concurrent use.
type Session struct {
	mu sync.RWMutex
	ds *Dataset
}

// NewSession returns a session starting with ds, which may be nil.
func NewSession(ds *Dataset) *Session {
	return &Session{ds: ds}
}

// Current returns the loaded dataset or ErrNoDataset.
func (s *Session) Current() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return nil, ErrNoDataset
	}
	return s.ds, nil
}

// Replace swaps in ds and returns the previous dataset.
func (s *Session) Replace(ds *Dataset) *Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.ds
	s.ds = ds
	return prev
}
