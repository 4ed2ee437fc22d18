// Package reading estimates how long a post takes to read.
package reading

import (
	"strings"

	"github.com/bilgisen/blogfront/internal/models"
	"github.com/bilgisen/blogfront/internal/richtext"
)

// DefaultWordsPerMinute is the reading speed used when none is configured.
const DefaultWordsPerMinute = 200

// Minutes returns the reading time of content in whole minutes. Each block is
// rounded up on its own and the results are summed, so a post with three
// short sections reads in three minutes. A non-positive wpm uses the default.
func Minutes(content []models.ContentBlock, wpm int) int {
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}

	total := 0
	for _, block := range content {
		words := Words(block)
		total += (words + wpm - 1) / wpm
	}
	return total
}

// Words counts the whitespace separated words of a block, heading included.
func Words(block models.ContentBlock) int {
	return len(strings.Fields(block.Heading + " " + richtext.AsText(block.Body)))
}
