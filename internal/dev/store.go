package dev

import (
	"sort"
	"strings"
	"sync"

	"github.com/alvori-dev/alvori/internal/bundle"
)

// Store holds the output files of one compiler in memory.
type Store struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{files: make(map[string][]byte)}
}

// Replace swaps the whole content for files.
func (s *Store) Replace(files []bundle.File) {
	m := make(map[string][]byte, len(files))
	for _, f := range files {
		m[cleanKey(f.Path)] = f.Contents
	}
	s.mu.Lock()
	s.files = m
	s.mu.Unlock()
}

// Read returns the file at path.
func (s *Store) Read(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[cleanKey(path)]
	return data, ok
}

// Take returns the file at path and removes it.
func (s *Store) Take(path string) ([]byte, bool) {
	key := cleanKey(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if ok {
		delete(s.files, key)
	}
	return data, ok
}

// Len returns the number of files.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Paths returns the stored paths, sorted.
func (s *Store) Paths() []string {
	s.mu.RLock()
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	s.mu.RUnlock()
	sort.Strings(paths)
	return paths
}

func cleanKey(path string) string {
	return strings.TrimPrefix(path, "/")
}
