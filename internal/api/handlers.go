package api

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bilgisen/blogfront/internal/cache"
	"github.com/bilgisen/blogfront/internal/cms"
	"github.com/bilgisen/blogfront/internal/config"
	"github.com/bilgisen/blogfront/internal/dates"
	"github.com/bilgisen/blogfront/internal/generator"
	"github.com/bilgisen/blogfront/internal/listing"
	"github.com/bilgisen/blogfront/internal/logger"
	"github.com/bilgisen/blogfront/internal/middleware"
	"github.com/bilgisen/blogfront/internal/models"
	"github.com/bilgisen/blogfront/internal/site"
	"github.com/bilgisen/blogfront/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// ErrBuildInProgress is returned when a build is requested while another
// one is still running.
var ErrBuildInProgress = errors.New("a build is already in progress")

// Content is the read side of the blog service
type Content interface {
	FirstPage(ctx context.Context) (*models.PostPagination, error)
	NextPage(ctx context.Context, cursor string) (*models.PostPagination, error)
	Post(ctx context.Context, slug string) (*models.PostDetail, error)
}

// Builder renders and stores pages
type Builder interface {
	Build(ctx context.Context) (*generator.Manifest, error)
	RenderPost(ctx context.Context, slug string) ([]byte, error)
}

// Pages reads and removes stored pages
type Pages interface {
	GetPage(ctx context.Context, route string) ([]byte, error)
	DeletePage(ctx context.Context, route string) error
}

// Deps are the collaborators the handlers need
type Deps struct {
	Config    *config.Config
	Content   Content
	Renderer  *site.Renderer
	Formatter *dates.Formatter
	Builder   Builder
	Pages     Pages
	Cache     cache.Store
}

// PostsQuery is the query of the "load more" endpoint
type PostsQuery struct {
	Cursor string `query:"cursor" validate:"omitempty,url,max=2048"`
}

type Handlers struct {
	config    *config.Config
	content   Content
	renderer  *site.Renderer
	formatter *dates.Formatter
	builder   Builder
	pages     Pages
	cache     cache.Store

	building  atomic.Bool
	jobs      sync.WaitGroup
	mu        sync.RWMutex
	lastBuild *generator.Manifest
}

func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		config:    deps.Config,
		content:   deps.Content,
		renderer:  deps.Renderer,
		formatter: deps.Formatter,
		builder:   deps.Builder,
		pages:     deps.Pages,
		cache:     deps.Cache,
	}
}

// HealthCheck handles the /health endpoint
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":   "ok",
		"version":  "1.0.0",
		"time":     time.Now().Format(time.RFC3339),
		"building": h.building.Load(),
	}

	h.mu.RLock()
	if h.lastBuild != nil {
		resp["last_build"] = fiber.Map{
			"build_id":    h.lastBuild.BuildID,
			"finished_at": h.lastBuild.FinishedAt.Format(time.RFC3339),
			"pages":       len(h.lastBuild.Pages),
			"failed":      len(h.lastBuild.Failed),
		}
	}
	h.mu.RUnlock()

	return c.JSON(resp)
}

// Index handles GET /. The prerendered listing is served when present,
// otherwise the first page is rendered live.
func (h *Handlers) Index(c *fiber.Ctx) error {
	if body, err := h.pages.GetPage(c.Context(), generator.IndexRoute); err == nil {
		return h.sendHTML(c, fiber.StatusOK, body)
	} else if !errors.Is(err, storage.ErrPageNotFound) {
		logger.Get().Error().Err(err).Msg("Error reading stored index")
	}

	page, err := h.content.FirstPage(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	formatted := listing.New(*page, nil, h.formatter).Page()

	body, err := site.Bytes(func(w io.Writer) error {
		return h.renderer.Listing(w, site.NewListingView(formatted))
	})
	if err != nil {
		return h.fail(c, err)
	}
	return h.sendHTML(c, fiber.StatusOK, body)
}

// PostPage handles GET /post/:slug. A post that was not prerendered is
// rendered on the first request and stored for the next ones.
func (h *Handlers) PostPage(c *fiber.Ctx) error {
	slug := c.Params("slug")
	log := logger.Get()

	body, err := h.pages.GetPage(c.Context(), generator.PostRoute(slug))
	if err == nil {
		return h.sendHTML(c, fiber.StatusOK, body)
	}
	if !errors.Is(err, storage.ErrPageNotFound) {
		log.Error().Err(err).Str("slug", slug).Msg("Error reading stored post")
	}

	body, err = h.builder.RenderPost(c.Context(), slug)
	if errors.Is(err, cms.ErrNotFound) {
		log.Debug().Str("slug", slug).Msg("Post not found")
		notFound, renderErr := site.Bytes(func(w io.Writer) error {
			return h.renderer.NotFound(w, slug)
		})
		if renderErr != nil {
			return h.fail(c, renderErr)
		}
		return h.sendHTML(c, fiber.StatusNotFound, notFound)
	}
	if err != nil {
		return h.fail(c, err)
	}

	log.Info().Str("slug", slug).Msg("Rendered post on demand")
	return h.sendHTML(c, fiber.StatusOK, body)
}

// GetPosts handles GET /api/v1/posts. Without a cursor it returns the first
// page, otherwise the page behind the cursor.
func (h *Handlers) GetPosts(c *fiber.Ctx) error {
	query, _ := c.Locals("queryParams").(*PostsQuery)

	var (
		page *models.PostPagination
		err  error
	)
	if query == nil || query.Cursor == "" {
		page, err = h.content.FirstPage(c.Context())
	} else {
		page, err = h.content.NextPage(c.Context(), query.Cursor)
	}
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(listing.New(*page, nil, h.formatter).Page())
}

// GetPost handles GET /api/v1/posts/:slug
func (h *Handlers) GetPost(c *fiber.Ctx) error {
	post, err := h.content.Post(c.Context(), c.Params("slug"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.renderer.PostView(post))
}

// Sitemap handles GET /sitemap.xml
func (h *Handlers) Sitemap(c *fiber.Ctx) error {
	body, err := h.pages.GetPage(c.Context(), generator.SitemapRoute)
	if err != nil {
		return h.fail(c, err)
	}
	c.Type("xml", "utf-8")
	return c.Send(body)
}

// Build handles POST /api/v1/admin/build. The build runs in the background.
func (h *Handlers) Build(c *fiber.Ctx) error {
	log := logger.Get()

	if !h.building.CompareAndSwap(false, true) {
		return h.fail(c, ErrBuildInProgress)
	}

	log.Info().
		Str("ip", c.IP()).
		Dur("timeout", h.config.BuildTimeout).
		Msg("Starting site build in background")

	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		defer h.building.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), h.config.BuildTimeout)
		defer cancel()

		manifest, err := h.builder.Build(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Site build failed")
			return
		}

		h.mu.Lock()
		h.lastBuild = manifest
		h.mu.Unlock()
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "started",
		"message": "Site build started in the background",
	})
}

// DeletePage handles DELETE /api/v1/admin/pages/:slug. The next request for
// the post renders it again.
func (h *Handlers) DeletePage(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if err := h.pages.DeletePage(c.Context(), generator.PostRoute(slug)); err != nil {
		return h.fail(c, err)
	}

	logger.Get().Info().Str("slug", slug).Msg("Deleted stored post page")
	return c.JSON(fiber.Map{
		"status":  "deleted",
		"message": "Page deleted successfully",
	})
}

// ClearCache handles DELETE /api/v1/admin/cache
func (h *Handlers) ClearCache(c *fiber.Ctx) error {
	if err := h.cache.Clear(c.Context()); err != nil {
		return h.fail(c, err)
	}

	logger.Get().Info().Msg("Cleared content cache")
	return c.JSON(fiber.Map{
		"status":  "cleared",
		"message": "Cache cleared successfully",
	})
}

// Wait blocks until background jobs have finished
func (h *Handlers) Wait() {
	h.jobs.Wait()
}

func (h *Handlers) sendHTML(c *fiber.Ctx, status int, body []byte) error {
	c.Type("html", "utf-8")
	return c.Status(status).Send(body)
}

// fail maps domain errors to status codes; anything unknown goes to the
// app's error handler.
func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, cms.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Post not found"})
	case errors.Is(err, storage.ErrPageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Page not found"})
	case errors.Is(err, cms.ErrForeignCursor):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid cursor"})
	case errors.Is(err, listing.ErrLoadInProgress), errors.Is(err, ErrBuildInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return middleware.ErrorHandler(c, err)
}
