// Package docstore finds part documents (PDFs) in a directory.
package docstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// ErrNotFound means no document matches the part or file name.
var ErrNotFound = errors.New("document not found")

const cacheBustLayout = "20060102150405"

// Store resolves part numbers to PDF file names under one directory.
// Successful lookups are cached for the configured TTL.
type Store struct {
	dir   string
	cache *cache.Cache
}

// New creates a store for dir. A non-positive ttl disables caching.
func New(dir string, ttl time.Duration) *Store {
	s := &Store{dir: dir}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// Dir returns the documents directory.
func (s *Store) Dir() string { return s.dir }

// Find returns the file name of the document for part. A PDF whose stem
// matches case-insensitively wins; otherwise "<part>.pdf" is tried as is.
func (s *Store) Find(part string) (string, error) {
	part = strings.TrimSpace(part)
	if part == "" {
		return "", ErrNotFound
	}
	key := strings.ToLower(part)
	if s.cache != nil {
		if name, ok := s.cache.Get(key); ok {
			return name.(string), nil
		}
	}

	name, err := s.find(part)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		s.cache.SetDefault(key, name)
	}
	return name, nil
}

func (s *Store) find(part string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("read documents dir: %w", err)
	}
	lower := strings.ToLower(part)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".pdf" {
			continue
		}
		if strings.ToLower(strings.TrimSuffix(name, ".pdf")) == lower {
			return name, nil
		}
	}

	candidate := part + ".pdf"
	if !filepath.IsLocal(candidate) {
		return "", ErrNotFound
	}
	if info, err := os.Stat(filepath.Join(s.dir, candidate)); err == nil && info.Mode().IsRegular() {
		return candidate, nil
	}
	return "", ErrNotFound
}

// Parts lists the part numbers of the PDFs at the top of the directory.
func (s *Store) Parts() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}
	var parts []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && filepath.Ext(name) == ".pdf" {
			parts = append(parts, strings.TrimSuffix(name, ".pdf"))
		}
	}
	return parts, nil
}

// Open opens name for reading. Names that escape the directory are
// rejected with ErrNotFound.
func (s *Store) Open(name string) (*os.File, error) {
	if name == "" || !filepath.IsLocal(name) {
		return nil, ErrNotFound
	}
	root, err := os.OpenRoot(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open documents dir: %w", err)
	}
	defer root.Close()

	f, err := root.Open(name)
	if err != nil {
		return nil, ErrNotFound
	}
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}

// URL returns the served path of name with a cache-busting version.
func URL(name string, at time.Time) string {
	return "/documents/" + name + "?v=" + at.UTC().Format(cacheBustLayout)
}
