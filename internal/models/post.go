package models

// PostSummaryData is the projection of a post requested for the listing.
type PostSummaryData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

// PostSummary is one entry of the post listing
type PostSummary struct {
	UID                  string          `json:"uid"`
	FirstPublicationDate *Timestamp      `json:"first_publication_date"`
	Data                 PostSummaryData `json:"data"`

	// DisplayDate is derived from FirstPublicationDate, never parsed back.
	DisplayDate string `json:"display_date,omitempty"`
}

// PostPagination is one page of the listing as returned by the content store
type PostPagination struct {
	NextPage *string       `json:"next_page"`
	Results  []PostSummary `json:"results"`
}

// Banner is the post header image
type Banner struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ContentBlock is one section of a post: a heading followed by rich text.
type ContentBlock struct {
	Heading string             `json:"heading"`
	Body    []RichTextFragment `json:"body"`
}

// PostDetailData holds the fields of a full post document
type PostDetailData struct {
	Title   string         `json:"title"`
	Banner  Banner         `json:"banner"`
	Author  string         `json:"author"`
	Content []ContentBlock `json:"content"`
}

// PostDetail is a single resolved post
type PostDetail struct {
	UID                  string         `json:"uid"`
	FirstPublicationDate *Timestamp     `json:"first_publication_date"`
	Data                 PostDetailData `json:"data"`
}
