package persistence

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// SeenFileStore is an append-only file of handled post ids, one per line.
// Fallback for deployments without Redis.
type SeenFileStore struct {
	path string
	mu   sync.Mutex
	ids  map[string]struct{}
}

func NewSeenFileStore(path string) (*SeenFileStore, error) {
	if path == "" {
		path = "replied_posts.txt"
	}
	s := &SeenFileStore{path: path, ids: map[string]struct{}{}}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("opening seen file %s: %w", path, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s, scanner.Err()
}

func (s *SeenFileStore) Contains(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok, nil
}

func (s *SeenFileStore) Add(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening seen file %s: %w", s.path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, id); err != nil {
		return fmt.Errorf("appending to seen file %s: %w", s.path, err)
	}
	s.ids[id] = struct{}{}
	return nil
}
