package generator

import (
	"encoding/xml"
	"strings"

	"github.com/bilgisen/blogfront/internal/models"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap lists the index and every post under siteURL.
func Sitemap(siteURL string, posts []models.PostSummary) ([]byte, error) {
	base := strings.TrimRight(siteURL, "/")

	set := urlSet{
		Xmlns: sitemapNamespace,
		URLs:  make([]sitemapURL, 0, len(posts)+1),
	}
	set.URLs = append(set.URLs, sitemapURL{Loc: base + IndexRoute})

	seen := make(map[string]bool, len(posts))
	for _, post := range posts {
		if post.UID == "" || seen[post.UID] {
			continue
		}
		seen[post.UID] = true

		u := sitemapURL{Loc: base + PostRoute(post.UID)}
		if post.FirstPublicationDate.Valid() {
			u.LastMod = post.FirstPublicationDate.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
