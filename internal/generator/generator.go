// Package generator renders the site ahead of time: the index, the most
// recent posts, the sitemap and a build manifest.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bilgisen/blogfront/internal/cms"
	"github.com/bilgisen/blogfront/internal/listing"
	"github.com/bilgisen/blogfront/internal/logger"
	"github.com/bilgisen/blogfront/internal/models"
	"github.com/bilgisen/blogfront/internal/site"
	"github.com/bilgisen/blogfront/internal/storage"
)

// Routes written by every build
const (
	IndexRoute    = "/"
	SitemapRoute  = "/sitemap.xml"
	ManifestRoute = "/manifest.json"
)

// PostRoute returns the route of a post page
func PostRoute(slug string) string {
	return "/post/" + slug
}

// Source is where the generator reads content from. blog.Service satisfies
// it.
type Source interface {
	FirstPage(ctx context.Context) (*models.PostPagination, error)
	NextPage(ctx context.Context, cursor string) (*models.PostPagination, error)
	Post(ctx context.Context, slug string) (*models.PostDetail, error)
	StaticSlugs(ctx context.Context) ([]string, error)
}

// PageStore persists rendered pages
type PageStore interface {
	SavePage(ctx context.Context, route string, body []byte) (string, error)
}

// Options configures a Generator
type Options struct {
	SiteURL     string
	Concurrency int
	Formatter   listing.DateFormatter
	Publisher   storage.Publisher
}

// Manifest describes the outcome of one build
type Manifest struct {
	BuildID    string    `json:"build_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Pages      []string  `json:"pages"`
	Posts      int       `json:"posts"`
	Skipped    []string  `json:"skipped,omitempty"`
	Failed     []string  `json:"failed,omitempty"`
	Published  int       `json:"published"`
}

func (m *Manifest) addPage(route string, published bool) {
	m.Pages = append(m.Pages, route)
	if published {
		m.Published++
	}
}

// Generator renders pages and writes them to storage
type Generator struct {
	source   Source
	renderer *site.Renderer
	store    PageStore
	opts     Options
}

func New(source Source, renderer *site.Renderer, store PageStore, opts Options) *Generator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	return &Generator{
		source:   source,
		renderer: renderer,
		store:    store,
		opts:     opts,
	}
}

// Build renders the whole site. A post that fails to render is recorded in
// the manifest and does not fail the build; the index does.
func (g *Generator) Build(ctx context.Context) (*Manifest, error) {
	log := logger.WithComponent("generator")
	manifest := &Manifest{
		BuildID:   uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	log.Info().Str("build_id", manifest.BuildID).Msg("Starting site build")

	first, err := g.source.FirstPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error fetching listing: %w", err)
	}
	loader := listing.New(*first, g.source, g.opts.Formatter)

	if err := g.renderIndex(ctx, loader, manifest); err != nil {
		return nil, err
	}

	slugs, err := g.source.StaticSlugs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error fetching static paths, skipping post pages")
	}
	g.renderPosts(ctx, slugs, manifest)

	// The sitemap covers every post, not only the prerendered ones
	posts, err := loader.LoadAll(ctx)
	if err != nil {
		log.Warn().Err(err).Int("posts", len(posts)).Msg("Listing incomplete, writing partial sitemap")
	}
	sitemap, err := Sitemap(g.opts.SiteURL, posts)
	if err != nil {
		return nil, fmt.Errorf("error building sitemap: %w", err)
	}
	published, err := g.write(ctx, SitemapRoute, sitemap)
	if err != nil {
		return nil, err
	}
	manifest.addPage(SitemapRoute, published)

	manifest.FinishedAt = time.Now().UTC()
	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error encoding manifest: %w", err)
	}
	if _, err := g.write(ctx, ManifestRoute, body); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_id", manifest.BuildID).
		Int("pages", len(manifest.Pages)).
		Int("posts", manifest.Posts).
		Int("failed", len(manifest.Failed)).
		Int("published", manifest.Published).
		Dur("duration", manifest.FinishedAt.Sub(manifest.StartedAt)).
		Msg("Finished site build")

	return manifest, nil
}

// RenderPost fetches, renders and stores one post. Unknown slugs return
// cms.ErrNotFound and nothing is written.
func (g *Generator) RenderPost(ctx context.Context, slug string) ([]byte, error) {
	body, _, err := g.renderAndWrite(ctx, slug)
	return body, err
}

func (g *Generator) renderPost(ctx context.Context, slug string) (bool, error) {
	_, published, err := g.renderAndWrite(ctx, slug)
	return published, err
}

func (g *Generator) renderAndWrite(ctx context.Context, slug string) ([]byte, bool, error) {
	post, err := g.source.Post(ctx, slug)
	if err != nil {
		return nil, false, err
	}
	body, err := site.Bytes(func(w io.Writer) error { return g.renderer.Post(w, post) })
	if err != nil {
		return nil, false, fmt.Errorf("error rendering post %s: %w", slug, err)
	}
	published, err := g.write(ctx, PostRoute(slug), body)
	if err != nil {
		return nil, false, err
	}
	return body, published, nil
}

func (g *Generator) renderIndex(ctx context.Context, loader *listing.Loader, manifest *Manifest) error {
	view := site.NewListingView(loader.Page())
	body, err := site.Bytes(func(w io.Writer) error { return g.renderer.Listing(w, view) })
	if err != nil {
		return fmt.Errorf("error rendering index: %w", err)
	}
	published, err := g.write(ctx, IndexRoute, body)
	if err != nil {
		return err
	}
	manifest.addPage(IndexRoute, published)
	return nil
}

func (g *Generator) renderPosts(ctx context.Context, slugs []string, manifest *Manifest) {
	log := logger.WithComponent("generator")

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, g.opts.Concurrency)
	)

	for _, slug := range slugs {
		select {
		case <-ctx.Done():
			log.Warn().Str("slug", slug).Msg("Context cancelled while rendering posts")
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			published, err := g.renderPost(ctx, slug)
			if err == nil {
				mu.Lock()
				manifest.addPage(PostRoute(slug), published)
				manifest.Posts++
				mu.Unlock()
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, cms.ErrNotFound) {
				log.Warn().Str("slug", slug).Msg("Post disappeared before rendering, skipping")
				manifest.Skipped = append(manifest.Skipped, slug)
				return
			}
			log.Error().Err(err).Str("slug", slug).Msg("Error rendering post")
			manifest.Failed = append(manifest.Failed, slug)
		}()
	}

	wg.Wait()
}

// write stores a page and, when a publisher is configured, uploads it.
// Upload failures are logged; the local copy is what the server reads.
func (g *Generator) write(ctx context.Context, route string, body []byte) (bool, error) {
	if _, err := g.store.SavePage(ctx, route, body); err != nil {
		return false, fmt.Errorf("error saving %s: %w", route, err)
	}
	if g.opts.Publisher == nil {
		return false, nil
	}
	if err := g.opts.Publisher.Publish(ctx, route, body); err != nil {
		logger.WithComponent("generator").Error().
			Err(err).
			Str("route", route).
			Msg("Error publishing page")
		return false, nil
	}
	return true, nil
}
