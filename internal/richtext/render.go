// Package richtext converts structured text fragments into plain text and
// into escaped HTML.
package richtext

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/url"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/bilgisen/blogfront/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML is markup produced by AsHTML. Every text node and attribute in it was
// escaped by the renderer, so it can be injected into a page as is. The zero
// value is empty markup.
type HTML struct {
	markup string
}

// String returns the markup
func (h HTML) String() string {
	return h.markup
}

// Template exposes the markup to html/template without re-escaping.
func (h HTML) Template() template.HTML {
	return template.HTML(h.markup)
}

// MarshalJSON encodes the markup as a JSON string
func (h HTML) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.markup)
}

// AsText joins the text of all fragments with a single space.
func AsText(fragments []models.RichTextFragment) string {
	texts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		texts = append(texts, f.Text)
	}
	return strings.Join(texts, " ")
}

// AsHTML renders fragments into HTML. Consecutive list items share one list
// element.
func AsHTML(fragments []models.RichTextFragment) HTML {
	var (
		nodes []*html.Node
		list  *html.Node
	)

	for _, f := range fragments {
		switch f.Type {
		case models.FragmentListItem, models.FragmentOListItem:
			tag := atom.Ul
			if f.Type == models.FragmentOListItem {
				tag = atom.Ol
			}
			if list == nil || list.DataAtom != tag {
				list = element(tag)
				nodes = append(nodes, list)
			}
			list.AppendChild(textElement(atom.Li, f))
			continue
		}

		list = nil
		nodes = append(nodes, blockNode(f))
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		// Rendering into a bytes.Buffer only fails on malformed trees
		_ = html.Render(&buf, n)
	}
	return HTML{markup: buf.String()}
}

var headings = map[string]atom.Atom{
	models.FragmentHeading1: atom.H1,
	models.FragmentHeading2: atom.H2,
	models.FragmentHeading3: atom.H3,
	models.FragmentHeading4: atom.H4,
	models.FragmentHeading5: atom.H5,
	models.FragmentHeading6: atom.H6,
}

func blockNode(f models.RichTextFragment) *html.Node {
	if tag, ok := headings[f.Type]; ok {
		return textElement(tag, f)
	}

	switch f.Type {
	case models.FragmentPreformatted:
		return textElement(atom.Pre, f)

	case models.FragmentImage:
		wrapper := element(atom.P, attr("class", "block-img"))
		img := element(atom.Img, attr("alt", f.Alt))
		if safeURL(f.URL, "http", "https") {
			img.Attr = append(img.Attr, attr("src", f.URL))
		}
		wrapper.AppendChild(img)
		return wrapper

	case models.FragmentEmbed:
		wrapper := element(atom.Div, attr("class", "embed"))
		if f.OEmbed != nil && safeURL(f.OEmbed.EmbedURL, "http", "https") {
			link := element(atom.A, attr("href", f.OEmbed.EmbedURL))
			link.AppendChild(text(f.OEmbed.EmbedURL))
			wrapper.AppendChild(link)
		}
		return wrapper
	}

	return textElement(atom.P, f)
}

// textElement wraps the fragment text, with its spans applied, in tag.
func textElement(tag atom.Atom, f models.RichTextFragment) *html.Node {
	n := element(tag)
	units := utf16.Encode([]rune(f.Text))
	appendRange(n, units, 0, len(units), normalizeSpans(f.Spans, len(units)))
	return n
}

// normalizeSpans clamps spans to the text, drops empty ones and orders them
// outermost first.
func normalizeSpans(spans []models.Span, length int) []models.Span {
	out := make([]models.Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > length {
			s.End = length
		}
		if s.Start >= s.End {
			continue
		}
		out = append(out, s)
	}
	sortSpans(out)
	return out
}

func sortSpans(spans []models.Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
}

// appendRange renders units[lo:hi] into parent. spans must be sorted and lie
// within [lo, hi). A span crossing the end of an enclosing span is split in
// two so the output stays well nested.
func appendRange(parent *html.Node, units []uint16, lo, hi int, spans []models.Span) {
	cursor := lo
	for len(spans) > 0 {
		s := spans[0]
		appendText(parent, units[cursor:s.Start])

		var inner, rest []models.Span
		for _, t := range spans[1:] {
			switch {
			case t.Start >= s.End:
				rest = append(rest, t)
			case t.End <= s.End:
				inner = append(inner, t)
			default:
				head, tail := t, t
				head.End = s.End
				tail.Start = s.End
				inner = append(inner, head)
				rest = append(rest, tail)
			}
		}
		sortSpans(inner)
		sortSpans(rest)

		target := parent
		if n := spanElement(s); n != nil {
			parent.AppendChild(n)
			target = n
		}
		appendRange(target, units, s.Start, s.End, inner)

		cursor = s.End
		spans = rest
	}
	appendText(parent, units[cursor:hi])
}

// spanElement returns the wrapper for a span, or nil when the span should
// not produce markup (unknown type, unsafe link).
func spanElement(s models.Span) *html.Node {
	switch s.Type {
	case models.SpanStrong:
		return element(atom.Strong)
	case models.SpanEm:
		return element(atom.Em)
	case models.SpanLabel:
		if s.Data == nil || s.Data.Label == "" {
			return element(atom.Span)
		}
		return element(atom.Span, attr("class", s.Data.Label))
	case models.SpanHyperlink:
		if s.Data == nil || !safeURL(s.Data.URL, "http", "https", "mailto") {
			return nil
		}
		a := element(atom.A, attr("href", s.Data.URL))
		if s.Data.Target != "" {
			a.Attr = append(a.Attr, attr("target", s.Data.Target), attr("rel", "noopener noreferrer"))
		}
		return a
	}
	return nil
}

// appendText adds text nodes, turning line feeds into <br> elements.
func appendText(parent *html.Node, units []uint16) {
	if len(units) == 0 {
		return
	}
	lines := strings.Split(string(utf16.Decode(units)), "\n")
	for i, line := range lines {
		if i > 0 {
			parent.AppendChild(element(atom.Br))
		}
		if line != "" {
			parent.AppendChild(text(line))
		}
	}
}

func safeURL(raw string, schemes ...string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	for _, s := range schemes {
		if scheme == s {
			return true
		}
	}
	return false
}

func element(tag atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: tag,
		Data:     tag.String(),
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}
