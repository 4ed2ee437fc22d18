package listing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bilgisen/blogfront/internal/dates"
	"github.com/bilgisen/blogfront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*models.PostPagination
	calls   []string
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeFetcher) NextPage(ctx context.Context, cursor string) (*models.PostPagination, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cursor)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[cursor], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func cursor(s string) *string { return &s }

func summary(uid string, day int) models.PostSummary {
	return models.PostSummary{
		UID:                  uid,
		FirstPublicationDate: models.NewTimestamp(time.Date(2021, 3, day, 12, 0, 0, 0, time.UTC)),
		Data:                 models.PostSummaryData{Title: uid},
	}
}

func uids(posts []models.PostSummary) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.UID
	}
	return out
}

func formatter() *dates.Formatter {
	return dates.NewFormatter("pt_BR", time.UTC)
}

func TestNewFormatsInitialPage(t *testing.T) {
	l := New(models.PostPagination{Results: []models.PostSummary{summary("a", 15)}}, &fakeFetcher{}, formatter())

	posts := l.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "15 mar 2021", posts[0].DisplayDate)
	assert.False(t, l.HasMore())
}

func TestLoadMoreWithoutCursorIsNoop(t *testing.T) {
	f := &fakeFetcher{}
	l := New(models.PostPagination{Results: []models.PostSummary{summary("a", 1)}}, f, formatter())

	n, err := l.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.callCount())
	assert.Equal(t, []string{"a"}, uids(l.Posts()))
}

func TestLoadMoreAppendsInOrder(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*models.PostPagination{
		"p2": {NextPage: cursor("p3"), Results: []models.PostSummary{summary("b", 2), summary("c", 3)}},
		"p3": {NextPage: nil, Results: []models.PostSummary{summary("d", 4)}},
	}}
	l := New(models.PostPagination{NextPage: cursor("p2"), Results: []models.PostSummary{summary("a", 1)}}, f, formatter())

	n, err := l.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b", "c"}, uids(l.Posts()))
	require.NotNil(t, l.NextPage())
	assert.Equal(t, "p3", *l.NextPage())

	n, err = l.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a", "b", "c", "d"}, uids(l.Posts()))
	assert.Nil(t, l.NextPage())

	posts := l.Posts()
	assert.Equal(t, "04 mar 2021", posts[3].DisplayDate)
	assert.Equal(t, []string{"p2", "p3"}, f.calls)
}

func TestLoadMoreKeepsDuplicates(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*models.PostPagination{
		"p2": {Results: []models.PostSummary{summary("a", 1)}},
	}}
	l := New(models.PostPagination{NextPage: cursor("p2"), Results: []models.PostSummary{summary("a", 1)}}, f, formatter())

	_, err := l.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a"}, uids(l.Posts()))
}

func TestLoadMoreErrorLeavesState(t *testing.T) {
	f := &fakeFetcher{err: errors.New("network down")}
	l := New(models.PostPagination{NextPage: cursor("p2"), Results: []models.PostSummary{summary("a", 1)}}, f, formatter())

	_, err := l.LoadMore(context.Background())
	assert.EqualError(t, err, "network down")
	assert.Equal(t, []string{"a"}, uids(l.Posts()))
	assert.Equal(t, "p2", *l.NextPage())
}

func TestLoadMoreRejectsConcurrentLoads(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]*models.PostPagination{
			"p2": {Results: []models.PostSummary{summary("b", 2)}},
		},
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	l := New(models.PostPagination{NextPage: cursor("p2")}, f, formatter())

	done := make(chan error, 1)
	go func() {
		_, err := l.LoadMore(context.Background())
		done <- err
	}()
	<-f.started

	_, err := l.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrLoadInProgress)

	close(f.release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"b"}, uids(l.Posts()))
	assert.Equal(t, 1, f.callCount())
}

func TestLoadMoreCancelled(t *testing.T) {
	f := &fakeFetcher{
		pages:   map[string]*models.PostPagination{"p2": {Results: []models.PostSummary{summary("b", 2)}}},
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	l := New(models.PostPagination{NextPage: cursor("p2")}, f, formatter())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.LoadMore(ctx)
		done <- err
	}()
	<-f.started
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Empty(t, l.Posts())
	assert.True(t, l.HasMore())

	// the guard is released after a cancelled load
	close(f.release)
	n, err := l.LoadMore(context.Background())
	<-f.started
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoadAll(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*models.PostPagination{
		"p2": {NextPage: cursor("p3"), Results: []models.PostSummary{summary("b", 2)}},
		"p3": {Results: []models.PostSummary{summary("c", 3)}},
	}}
	l := New(models.PostPagination{NextPage: cursor("p2"), Results: []models.PostSummary{summary("a", 1)}}, f, formatter())

	posts, err := l.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, uids(posts))
}

func TestLoadAllStopsOnRepeatedCursor(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*models.PostPagination{
		"p2": {NextPage: cursor("p2"), Results: []models.PostSummary{summary("b", 2)}},
	}}
	l := New(models.PostPagination{NextPage: cursor("p2")}, f, formatter())

	posts, err := l.LoadAll(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"b"}, uids(posts))
}

func TestNullDateIsNotFormatted(t *testing.T) {
	l := New(models.PostPagination{Results: []models.PostSummary{{UID: "draft"}}}, &fakeFetcher{}, formatter())
	assert.Empty(t, l.Posts()[0].DisplayDate)
}

func TestEmptyCursorMeansEnd(t *testing.T) {
	l := New(models.PostPagination{NextPage: cursor("")}, &fakeFetcher{}, formatter())
	assert.False(t, l.HasMore())
}
