// Package site renders the listing and post pages.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/bilgisen/blogfront/internal/dates"
	"github.com/bilgisen/blogfront/internal/models"
	"github.com/bilgisen/blogfront/internal/reading"
	"github.com/bilgisen/blogfront/internal/richtext"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoadMoreURL is the endpoint the listing page extends itself from
const LoadMoreURL = "/api/v1/posts"

// ListingView is everything the listing page shows
type ListingView struct {
	Posts       []models.PostSummary
	NextPage    string
	LoadMoreURL string
}

// BlockView is one rendered content block
type BlockView struct {
	Heading string        `json:"heading"`
	Body    richtext.HTML `json:"body"`
}

// PostView is everything the post page shows
type PostView struct {
	UID            string      `json:"uid"`
	Title          string      `json:"title"`
	BannerURL      string      `json:"banner_url"`
	Author         string      `json:"author"`
	DisplayDate    string      `json:"display_date"`
	ReadingMinutes int         `json:"reading_minutes"`
	Blocks         []BlockView `json:"blocks"`
}

type pageData struct {
	Lang      string
	SiteTitle string
	Title     string
	Canonical string
	Listing   *ListingView
	Post      *PostView
	Slug      string
}

// Options configures a Renderer
type Options struct {
	SiteTitle      string
	SiteURL        string
	Lang           string
	WordsPerMinute int
}

// Renderer turns fetched content into HTML pages
type Renderer struct {
	listing   *template.Template
	post      *template.Template
	notFound  *template.Template
	formatter *dates.Formatter
	opts      Options
}

func NewRenderer(formatter *dates.Formatter, opts Options) (*Renderer, error) {
	if opts.SiteTitle == "" {
		opts.SiteTitle = "spacetraveling"
	}
	if opts.Lang == "" {
		opts.Lang = "pt-BR"
	}

	parse := func(page string) (*template.Template, error) {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		return t, nil
	}

	r := &Renderer{formatter: formatter, opts: opts}
	var err error
	if r.listing, err = parse("listing.html"); err != nil {
		return nil, err
	}
	if r.post, err = parse("post.html"); err != nil {
		return nil, err
	}
	if r.notFound, err = parse("notfound.html"); err != nil {
		return nil, err
	}
	return r, nil
}

// NewListingView builds the listing view from a page whose dates are
// already formatted.
func NewListingView(page models.PostPagination) ListingView {
	view := ListingView{
		Posts:       page.Results,
		LoadMoreURL: LoadMoreURL,
	}
	if page.NextPage != nil {
		view.NextPage = *page.NextPage
	}
	return view
}

// PostView derives the display data of a post: formatted date, reading time
// and rendered blocks.
func (r *Renderer) PostView(post *models.PostDetail) PostView {
	view := PostView{
		UID:            post.UID,
		Title:          post.Data.Title,
		BannerURL:      post.Data.Banner.URL,
		Author:         post.Data.Author,
		ReadingMinutes: reading.Minutes(post.Data.Content, r.opts.WordsPerMinute),
		Blocks:         make([]BlockView, 0, len(post.Data.Content)),
	}
	if post.FirstPublicationDate.Valid() {
		view.DisplayDate = r.formatter.Format(post.FirstPublicationDate.Time)
	}
	for _, block := range post.Data.Content {
		view.Blocks = append(view.Blocks, BlockView{
			Heading: block.Heading,
			Body:    richtext.AsHTML(block.Body),
		})
	}
	return view
}

// Listing writes the listing page
func (r *Renderer) Listing(w io.Writer, view ListingView) error {
	return r.listing.ExecuteTemplate(w, "layout", pageData{
		Lang:      r.opts.Lang,
		SiteTitle: r.opts.SiteTitle,
		Title:     r.opts.SiteTitle,
		Canonical: r.opts.SiteURL + "/",
		Listing:   &view,
	})
}

// Post writes the page of a single post
func (r *Renderer) Post(w io.Writer, post *models.PostDetail) error {
	view := r.PostView(post)
	return r.post.ExecuteTemplate(w, "layout", pageData{
		Lang:      r.opts.Lang,
		SiteTitle: r.opts.SiteTitle,
		Title:     view.Title + " | " + r.opts.SiteTitle,
		Canonical: r.opts.SiteURL + "/post/" + view.UID,
		Post:      &view,
	})
}

// NotFound writes the page shown for unknown slugs
func (r *Renderer) NotFound(w io.Writer, slug string) error {
	return r.notFound.ExecuteTemplate(w, "layout", pageData{
		Lang:      r.opts.Lang,
		SiteTitle: r.opts.SiteTitle,
		Title:     r.opts.SiteTitle,
		Slug:      slug,
	})
}

// Bytes runs a render function into a buffer
func Bytes(render func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
