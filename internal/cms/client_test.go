package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bilgisen/blogfront/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	server   *httptest.Server
	searches atomic.Int32
	apiCalls atomic.Int32
	lastQ    atomic.Value
	token    string
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	fs := &fakeStore{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		fs.apiCalls.Add(1)
		if fs.token != "" && r.URL.Query().Get("access_token") != fs.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"refs":[{"id":"preview","ref":"draft","isMasterRef":false},{"id":"master","ref":"master-ref","label":"Master","isMasterRef":true}]}`)
	})
	mux.HandleFunc("/api/v2/documents/search", func(w http.ResponseWriter, r *http.Request) {
		fs.searches.Add(1)
		q := r.URL.Query()
		fs.lastQ.Store(q.Encode())

		if q.Get("ref") != "master-ref" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		switch q.Get("q") {
		case `[[at(my.posts.uid, "hooks")]]`:
			fmt.Fprint(w, `{"results":[{"uid":"hooks","data":{"title":"Hooks"}}]}`)
		case `[[at(my.posts.uid, "missing")]]`:
			fmt.Fprint(w, `{"results":[]}`)
		default:
			next := "null"
			if q.Get("page") == "" {
				next = fmt.Sprintf(`"%s/api/v2/documents/search?ref=master-ref&q=%%5B%%5Bat%%28document.type%%2C+%%22posts%%22%%29%%5D%%5D&page=2&pageSize=1"`, fs.server.URL)
			}
			fmt.Fprintf(w, `{"page":1,"next_page":%s,"results":[{"uid":"page-%s"}]}`, next, q.Get("page"))
		}
	})

	fs.server = httptest.NewServer(mux)
	t.Cleanup(fs.server.Close)
	return fs
}

func (fs *fakeStore) endpoint() string {
	return fs.server.URL + "/api/v2"
}

type page struct {
	NextPage *string `json:"next_page"`
	Results  []struct {
		UID string `json:"uid"`
	} `json:"results"`
}

func TestQuery(t *testing.T) {
	fs := newFakeStore(t)
	client, err := NewClient(Options{Endpoint: fs.endpoint(), Timeout: time.Second})
	require.NoError(t, err)

	var out page
	err = client.Query(context.Background(),
		[]Predicate{At("document.type", "posts")},
		QueryOptions{Fetch: []string{"posts.title", "posts.author"}, PageSize: 1},
		&out)
	require.NoError(t, err)

	require.NotNil(t, out.NextPage)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "page-", out.Results[0].UID)

	sent := fs.lastQ.Load().(string)
	assert.Contains(t, sent, "fetch=posts.title%2Cposts.author")
	assert.Contains(t, sent, "pageSize=1")
}

func TestFetchPageFollowsCursor(t *testing.T) {
	fs := newFakeStore(t)
	client, err := NewClient(Options{Endpoint: fs.endpoint(), Timeout: time.Second})
	require.NoError(t, err)

	var first page
	require.NoError(t, client.Query(context.Background(), []Predicate{At("document.type", "posts")}, QueryOptions{PageSize: 1}, &first))
	require.NotNil(t, first.NextPage)

	var second page
	require.NoError(t, client.FetchPage(context.Background(), *first.NextPage, &second))
	assert.Nil(t, second.NextPage)
	require.Len(t, second.Results, 1)
	assert.Equal(t, "page-2", second.Results[0].UID)
}

func TestFetchPageRejectsForeignCursor(t *testing.T) {
	fs := newFakeStore(t)
	client, err := NewClient(Options{Endpoint: fs.endpoint()})
	require.NoError(t, err)

	var out page
	err = client.FetchPage(context.Background(), "http://169.254.169.254/latest/meta-data", &out)
	assert.ErrorIs(t, err, ErrForeignCursor)

	err = client.FetchPage(context.Background(), "file:///etc/passwd", &out)
	assert.ErrorIs(t, err, ErrForeignCursor)
	assert.Equal(t, int32(0), fs.searches.Load())
}

func TestGetByUID(t *testing.T) {
	fs := newFakeStore(t)
	client, err := NewClient(Options{Endpoint: fs.endpoint()})
	require.NoError(t, err)

	var doc struct {
		UID  string `json:"uid"`
		Data struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	require.NoError(t, client.GetByUID(context.Background(), "posts", "hooks", &doc))
	assert.Equal(t, "Hooks", doc.Data.Title)

	err = client.GetByUID(context.Background(), "posts", "missing", &doc)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAccessTokenIsSent(t *testing.T) {
	fs := newFakeStore(t)
	fs.token = "secret"

	client, err := NewClient(Options{Endpoint: fs.endpoint()})
	require.NoError(t, err)
	var out page
	assert.Error(t, client.Query(context.Background(), nil, QueryOptions{}, &out))

	client, err = NewClient(Options{Endpoint: fs.endpoint(), AccessToken: "secret"})
	require.NoError(t, err)
	require.NoError(t, client.Query(context.Background(), nil, QueryOptions{}, &out))
	assert.Contains(t, fs.lastQ.Load().(string), "access_token=secret")

	resolved, err := client.resolveCursor(fs.endpoint() + "/documents/search?page=2")
	require.NoError(t, err)
	assert.Contains(t, resolved, "access_token=secret")
}

func TestResponsesAreCached(t *testing.T) {
	fs := newFakeStore(t)
	store := cache.NewMockClient()
	client, err := NewClient(Options{
		Endpoint: fs.endpoint(),
		Cache:    store,
		CacheTTL: time.Minute,
		RefTTL:   time.Minute,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		var out page
		require.NoError(t, client.Query(context.Background(), []Predicate{At("document.type", "posts")}, QueryOptions{PageSize: 1}, &out))
	}

	assert.Equal(t, int32(1), fs.searches.Load())
	assert.Equal(t, int32(1), fs.apiCalls.Load())
	assert.Equal(t, 2, store.Len())
}

func TestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(Options{Endpoint: srv.URL + "/api/v2"})
	require.NoError(t, err)

	var out json.RawMessage
	err = client.Query(context.Background(), nil, QueryOptions{}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewClientRejectsBadEndpoint(t *testing.T) {
	_, err := NewClient(Options{Endpoint: "ftp://example.com"})
	assert.Error(t, err)
}

func TestPredicates(t *testing.T) {
	assert.Equal(t, Predicate(`[at(document.type, "posts")]`), At("document.type", "posts"))
	assert.Equal(t, `[[at(document.type, "posts")][at(my.posts.uid, "a")]]`,
		Join([]Predicate{At("document.type", "posts"), At("my.posts.uid", "a")}))
	assert.Equal(t, "[]", Join(nil))
}
