package ai

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var markupHints = []string{"</", "/>", "<br", "<p>", "&amp;", "&quot;", "&#", "&lt;", "&gt;", "&nbsp;"}

// promptText strips HTML markup from feed text before it is shown to the model.
// Text without recognizable markup is passed through as is, so a literal "<"
// in prose is never mistaken for a tag. Stored article fields are never cleaned.
func promptText(s string) string {
	if !looksLikeMarkup(s) {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}

	text := strings.Join(strings.Fields(doc.Text()), " ")
	if text == "" {
		return s
	}
	return text
}

func looksLikeMarkup(s string) bool {
	lower := strings.ToLower(s)
	for _, hint := range markupHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
