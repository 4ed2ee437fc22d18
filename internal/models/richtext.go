package models

// Rich text fragment types as produced by the content store
const (
	FragmentParagraph    = "paragraph"
	FragmentPreformatted = "preformatted"
	FragmentHeading1     = "heading1"
	FragmentHeading2     = "heading2"
	FragmentHeading3     = "heading3"
	FragmentHeading4     = "heading4"
	FragmentHeading5     = "heading5"
	FragmentHeading6     = "heading6"
	FragmentListItem     = "list-item"
	FragmentOListItem    = "o-list-item"
	FragmentImage        = "image"
	FragmentEmbed        = "embed"
)

// Span types
const (
	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
	SpanLabel     = "label"
)

// SpanData carries the payload of hyperlink and label spans.
type SpanData struct {
	URL    string `json:"url,omitempty"`
	Target string `json:"target,omitempty"`
	Label  string `json:"label,omitempty"`
}

// Span marks up the text range [Start, End) of a fragment. Offsets count
// UTF-16 code units.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

// Embed is the oEmbed payload of an embed fragment
type Embed struct {
	HTML        string `json:"html,omitempty"`
	EmbedURL    string `json:"embed_url,omitempty"`
	ProviderURL string `json:"provider_url,omitempty"`
}

// RichTextFragment is one block of structured text
type RichTextFragment struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`

	// Image fragments
	URL string `json:"url,omitempty"`
	Alt string `json:"alt,omitempty"`

	// Embed fragments
	OEmbed *Embed `json:"oembed,omitempty"`
}
