// Package listing keeps the in-memory post listing and extends it page by
// page through the content store's cursor.
package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bilgisen/blogfront/internal/models"
)

// ErrLoadInProgress is returned by LoadMore while an earlier call is still
// fetching. The second call does nothing.
var ErrLoadInProgress = errors.New("a page load is already in progress")

// PageFetcher resolves a cursor into the next listing page
type PageFetcher interface {
	NextPage(ctx context.Context, cursor string) (*models.PostPagination, error)
}

// DateFormatter turns a publication date into display text
type DateFormatter interface {
	Format(t time.Time) string
}

// Loader is an append-only listing plus the cursor of the next page.
// It is safe for concurrent use.
type Loader struct {
	fetcher   PageFetcher
	formatter DateFormatter

	mu      sync.Mutex
	posts   []models.PostSummary
	next    *string
	loading bool
}

// New seeds a loader with an already fetched first page and formats its
// dates.
func New(initial models.PostPagination, fetcher PageFetcher, formatter DateFormatter) *Loader {
	l := &Loader{
		fetcher:   fetcher,
		formatter: formatter,
		next:      copyCursor(initial.NextPage),
	}
	l.posts = l.format(initial.Results)
	return l
}

// LoadMore fetches the page behind the cursor, appends its posts in the
// order returned and moves the cursor. It returns the number of appended
// posts. With no cursor left it is a no-op. If ctx ends before the page
// arrives the listing is left untouched.
func (l *Loader) LoadMore(ctx context.Context) (int, error) {
	l.mu.Lock()
	if l.next == nil {
		l.mu.Unlock()
		return 0, nil
	}
	if l.loading {
		l.mu.Unlock()
		return 0, ErrLoadInProgress
	}
	l.loading = true
	cursor := *l.next
	l.mu.Unlock()

	page, err := l.fetcher.NextPage(ctx, cursor)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false

	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	results := l.format(page.Results)
	l.posts = append(l.posts, results...)
	l.next = copyCursor(page.NextPage)
	return len(results), nil
}

// LoadAll calls LoadMore until the cursor runs out.
func (l *Loader) LoadAll(ctx context.Context) ([]models.PostSummary, error) {
	seen := make(map[string]bool)
	for {
		cursor := l.NextPage()
		if cursor == nil {
			return l.Posts(), nil
		}
		if seen[*cursor] {
			return l.Posts(), fmt.Errorf("cursor %q repeated, stopping", *cursor)
		}
		seen[*cursor] = true

		if _, err := l.LoadMore(ctx); err != nil {
			return l.Posts(), err
		}
	}
}

// Posts returns a copy of the listing
func (l *Loader) Posts() []models.PostSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.PostSummary(nil), l.posts...)
}

// NextPage returns the current cursor, nil at the end of the list
func (l *Loader) NextPage() *string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyCursor(l.next)
}

// HasMore reports whether a cursor is left
func (l *Loader) HasMore() bool {
	return l.NextPage() != nil
}

// Page returns the listing and cursor in the shape the store returns them.
func (l *Loader) Page() models.PostPagination {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.PostPagination{
		NextPage: copyCursor(l.next),
		Results:  append([]models.PostSummary(nil), l.posts...),
	}
}

func (l *Loader) format(results []models.PostSummary) []models.PostSummary {
	out := make([]models.PostSummary, len(results))
	for i, post := range results {
		if l.formatter != nil && post.FirstPublicationDate.Valid() {
			post.DisplayDate = l.formatter.Format(post.FirstPublicationDate.Time)
		}
		out[i] = post
	}
	return out
}

func copyCursor(c *string) *string {
	if c == nil || *c == "" {
		return nil
	}
	v := *c
	return &v
}
