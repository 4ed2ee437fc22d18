package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrPageNotFound is returned when no page is stored for a route
var ErrPageNotFound = errors.New("page not found")

// Page describes a stored page
type Page struct {
	Route   string    `json:"route"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Storage keeps rendered pages on disk, laid out the way a static file
// server expects them: "/" is index.html, "/post/x" is post/x/index.html.
type Storage struct {
	basePath string
	mu       sync.RWMutex
}

func NewStorage(basePath string) (*Storage, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Storage{
		basePath: basePath,
	}, nil
}

// BasePath returns the root directory of the store
func (s *Storage) BasePath() string {
	return s.basePath
}

// RelativePath maps a route to its file path relative to the store root.
// Routes with a file extension map to that file, others to an index.html.
func RelativePath(route string) string {
	clean := strings.TrimPrefix(path.Clean("/"+route), "/")
	if clean == "" {
		return "index.html"
	}
	if path.Ext(clean) != "" {
		return clean
	}
	return path.Join(clean, "index.html")
}

func (s *Storage) fullPath(route string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(RelativePath(route)))
}

// SavePage writes the page for route, replacing any previous version.
func (s *Storage) SavePage(ctx context.Context, route string, body []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.fullPath(route)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create page directory: %w", err)
	}

	// Write next to the target and rename so readers never see half a page
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write page file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return "", fmt.Errorf("failed to move page file: %w", err)
	}

	return filePath, nil
}

// GetPage returns the stored page for route or ErrPageNotFound
func (s *Storage) GetPage(ctx context.Context, route string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.fullPath(route))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", route, ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read page %s: %w", route, err)
	}
	return data, nil
}

// DeletePage removes the stored page for route
func (s *Storage) DeletePage(ctx context.Context, route string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.fullPath(route))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", route, ErrPageNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete page file: %w", err)
	}
	return nil
}

// ListPages returns every stored file, newest first
func (s *Storage) ListPages(ctx context.Context) ([]Page, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var pages []Page
	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}

		pages = append(pages, Page{
			Route:   routeFor(filepath.ToSlash(rel)),
			Path:    p,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking the path: %w", err)
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].ModTime.Equal(pages[j].ModTime) {
			return pages[i].Route < pages[j].Route
		}
		return pages[i].ModTime.After(pages[j].ModTime)
	})
	return pages, nil
}

// routeFor is the inverse of RelativePath
func routeFor(rel string) string {
	if rel == "index.html" {
		return "/"
	}
	if strings.HasSuffix(rel, "/index.html") {
		return "/" + strings.TrimSuffix(rel, "/index.html")
	}
	return "/" + rel
}
