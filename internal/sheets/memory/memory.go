package memory

import (
	"context"
	"sync"

	ports "finflow/internal/sheets"
)

// Store keeps mirrored tabs in memory. It backs tests and the worker's dry-run mode.
type Store struct {
	mu   sync.Mutex
	tabs map[string][][]any
	// Err, when set, is returned by every write.
	Err error
}

var _ ports.LedgerMirror = (*Store)(nil)

func New() *Store {
	return &Store{tabs: map[string][][]any{}}
}

// ReplaceLedger stores a copy of rows under tab.
func (s *Store) ReplaceLedger(_ context.Context, tab string, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cp := make([][]any, len(rows))
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
	}
	s.tabs[tab] = cp
	return nil
}

// Rows returns the rows last written to tab.
func (s *Store) Rows(tab string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[tab]
	return rows, ok
}

// Tabs returns the number of mirrored tabs.
func (s *Store) Tabs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tabs)
}
