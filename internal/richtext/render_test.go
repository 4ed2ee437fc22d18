package richtext

import (
	"encoding/json"
	"testing"

	"github.com/bilgisen/blogfront/internal/models"
	"github.com/stretchr/testify/assert"
)

func paragraph(text string, spans ...models.Span) models.RichTextFragment {
	return models.RichTextFragment{Type: models.FragmentParagraph, Text: text, Spans: spans}
}

func TestAsText(t *testing.T) {
	body := []models.RichTextFragment{
		paragraph("one two"),
		{Type: models.FragmentHeading2, Text: "three"},
	}
	assert.Equal(t, "one two three", AsText(body))
	assert.Equal(t, "", AsText(nil))
}

func TestAsHTMLBlocks(t *testing.T) {
	body := []models.RichTextFragment{
		{Type: models.FragmentHeading2, Text: "Title"},
		paragraph("Plain text"),
		{Type: models.FragmentPreformatted, Text: "code"},
	}
	assert.Equal(t, "<h2>Title</h2><p>Plain text</p><pre>code</pre>", AsHTML(body).String())
}

func TestAsHTMLEscapesText(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{paragraph(`<script>alert("x")</script> & more`)})
	assert.Equal(t, "<p>&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt; &amp; more</p>", out.String())
}

func TestAsHTMLSpans(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{
		paragraph("Lorem ipsum dolor",
			models.Span{Start: 0, End: 5, Type: models.SpanStrong},
			models.Span{Start: 6, End: 11, Type: models.SpanEm},
		),
	})
	assert.Equal(t, "<p><strong>Lorem</strong> <em>ipsum</em> dolor</p>", out.String())
}

func TestAsHTMLNestedSpans(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{
		paragraph("bold and italic",
			models.Span{Start: 0, End: 15, Type: models.SpanStrong},
			models.Span{Start: 9, End: 15, Type: models.SpanEm},
		),
	})
	assert.Equal(t, "<p><strong>bold and <em>italic</em></strong></p>", out.String())
}

func TestAsHTMLOverlappingSpansAreSplit(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{
		paragraph("abcdef",
			models.Span{Start: 0, End: 4, Type: models.SpanStrong},
			models.Span{Start: 2, End: 6, Type: models.SpanEm},
		),
	})
	assert.Equal(t, "<p><strong>ab<em>cd</em></strong><em>ef</em></p>", out.String())
}

func TestAsHTMLHyperlinks(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{
		paragraph("go here",
			models.Span{Start: 3, End: 7, Type: models.SpanHyperlink, Data: &models.SpanData{URL: "https://example.com/a?b=1&c=2", Target: "_blank"}},
		),
	})
	assert.Equal(t, `<p>go <a href="https://example.com/a?b=1&amp;c=2" target="_blank" rel="noopener noreferrer">here</a></p>`, out.String())
}

func TestAsHTMLDropsUnsafeLinks(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{
		paragraph("click",
			models.Span{Start: 0, End: 5, Type: models.SpanHyperlink, Data: &models.SpanData{URL: "javascript:alert(1)"}},
		),
	})
	assert.Equal(t, "<p>click</p>", out.String())
}

func TestAsHTMLGroupsLists(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{
		{Type: models.FragmentListItem, Text: "a"},
		{Type: models.FragmentListItem, Text: "b"},
		{Type: models.FragmentOListItem, Text: "c"},
		paragraph("end"),
		{Type: models.FragmentListItem, Text: "d"},
	})
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul><ol><li>c</li></ol><p>end</p><ul><li>d</li></ul>", out.String())
}

func TestAsHTMLLineBreaks(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{paragraph("line one\nline two")})
	assert.Equal(t, "<p>line one<br/>line two</p>", out.String())
}

func TestAsHTMLUTF16Offsets(t *testing.T) {
	// The emoji occupies two UTF-16 code units
	out := AsHTML([]models.RichTextFragment{
		paragraph("😀 olá",
			models.Span{Start: 3, End: 6, Type: models.SpanStrong},
		),
	})
	assert.Equal(t, "<p>😀 <strong>olá</strong></p>", out.String())
}

func TestAsHTMLImages(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{
		{Type: models.FragmentImage, URL: "https://images.example.com/a.png", Alt: "A"},
		{Type: models.FragmentImage, URL: "data:text/html;base64,AAAA", Alt: "B"},
	})
	assert.Equal(t, `<p class="block-img"><img alt="A" src="https://images.example.com/a.png"/></p><p class="block-img"><img alt="B"/></p>`, out.String())
}

func TestAsHTMLClampsOutOfRangeSpans(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{
		paragraph("short", models.Span{Start: 2, End: 99, Type: models.SpanEm}, models.Span{Start: 4, End: 1, Type: models.SpanStrong}),
	})
	assert.Equal(t, "<p>sh<em>ort</em></p>", out.String())
}

func TestHTMLTemplate(t *testing.T) {
	out := AsHTML([]models.RichTextFragment{paragraph("x")})
	assert.Equal(t, "<p>x</p>", string(out.Template()))
	assert.Equal(t, "", HTML{}.String())
}

func TestHTMLMarshalJSON(t *testing.T) {
	data, err := json.Marshal(map[string]HTML{"body": AsHTML([]models.RichTextFragment{paragraph("a & b")})})
	assert.NoError(t, err)

	var decoded map[string]string
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "<p>a &amp; b</p>", decoded["body"])
}
