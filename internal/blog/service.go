// Package blog resolves listing pages and posts from the content store.
package blog

import (
	"context"
	"fmt"

	"github.com/bilgisen/blogfront/internal/cms"
	"github.com/bilgisen/blogfront/internal/models"
)

// ContentStore is the subset of cms.Client the service needs
type ContentStore interface {
	Query(ctx context.Context, predicates []cms.Predicate, opts cms.QueryOptions, out any) error
	FetchPage(ctx context.Context, cursor string, out any) error
	GetByUID(ctx context.Context, docType, uid string, out any) error
}

// Options configures a Service
type Options struct {
	DocumentType    string
	ListingPageSize int
	StaticPaths     int
}

// Service answers the questions the site asks of the content store
type Service struct {
	store       ContentStore
	docType     string
	pageSize    int
	staticPaths int
}

type uidPage struct {
	Results []struct {
		UID string `json:"uid"`
	} `json:"results"`
}

func NewService(store ContentStore, opts Options) *Service {
	if opts.DocumentType == "" {
		opts.DocumentType = "posts"
	}
	if opts.ListingPageSize <= 0 {
		opts.ListingPageSize = 1
	}
	return &Service{
		store:       store,
		docType:     opts.DocumentType,
		pageSize:    opts.ListingPageSize,
		staticPaths: opts.StaticPaths,
	}
}

// DocumentType returns the document type posts are stored under
func (s *Service) DocumentType() string {
	return s.docType
}

// FirstPage fetches the first listing page with only the summary fields.
func (s *Service) FirstPage(ctx context.Context) (*models.PostPagination, error) {
	var page models.PostPagination
	err := s.store.Query(ctx, s.typePredicate(), cms.QueryOptions{
		Fetch:    s.fields("title", "subtitle", "author"),
		PageSize: s.pageSize,
	}, &page)
	if err != nil {
		return nil, fmt.Errorf("error fetching first page: %w", err)
	}
	return &page, nil
}

// NextPage follows a listing cursor
func (s *Service) NextPage(ctx context.Context, cursor string) (*models.PostPagination, error) {
	var page models.PostPagination
	if err := s.store.FetchPage(ctx, cursor, &page); err != nil {
		return nil, fmt.Errorf("error fetching next page: %w", err)
	}
	return &page, nil
}

// Post fetches a full post by slug. Unknown slugs yield cms.ErrNotFound.
func (s *Service) Post(ctx context.Context, slug string) (*models.PostDetail, error) {
	var post models.PostDetail
	if err := s.store.GetByUID(ctx, s.docType, slug, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// StaticSlugs returns the slugs of the posts rendered ahead of time.
func (s *Service) StaticSlugs(ctx context.Context) ([]string, error) {
	if s.staticPaths <= 0 {
		return nil, nil
	}

	var page uidPage
	err := s.store.Query(ctx, s.typePredicate(), cms.QueryOptions{
		Fetch:    s.fields("uid"),
		PageSize: s.staticPaths,
	}, &page)
	if err != nil {
		return nil, fmt.Errorf("error fetching static paths: %w", err)
	}

	slugs := make([]string, 0, len(page.Results))
	for _, r := range page.Results {
		if r.UID != "" {
			slugs = append(slugs, r.UID)
		}
	}
	return slugs, nil
}

func (s *Service) typePredicate() []cms.Predicate {
	return []cms.Predicate{cms.At("document.type", s.docType)}
}

func (s *Service) fields(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = s.docType + "." + n
	}
	return out
}
