package feed

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxTitleLength  = 80
	ellipsis        = "…"
	openParenthesis = '('
	punctuation     = ",.;:!? "
)

var (
	breaksRegex         = regexp.MustCompile(`(?:<br\s*/?>\s*){1,}|<p>|</p>|\n`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
	sentenceEndRegex    = regexp.MustCompile(`[.!?…](?:\s|$)|\.{3}`)
)

// extractTitle derives a short title from an item description, which may contain HTML.
// It prioritizes:
// 1. First line of text separated by line breaks.
// 2. First sentence or paragraph from the content.
func extractTitle(description string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))

	if err != nil {
		return formatTitle(description)
	}

	body := doc.Find("body")

	if title := extractFirstLine(body); title != "" {
		return formatTitle(title)
	}

	text := body.Text()
	matches := sentenceEndRegex.FindStringIndex(text)

	if matches != nil {
		return formatTitle(text[:matches[1]])
	}

	return formatTitle(text)
}

// extractFirstLine finds the first line of text before multiple line breaks
func extractFirstLine(selection *goquery.Selection) string {
	html, err := selection.Html()

	if err != nil {
		return ""
	}

	// Split content at multiple line breaks
	parts := breaksRegex.Split(html, 2)

	if len(parts) > 1 {
		// Create a new document from the first part to extract text
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(parts[0]))

		if err != nil {
			return ""
		}

		return strings.TrimSpace(doc.Text())
	}

	return ""
}

// formatTitle ensures the title follows the specified rules
func formatTitle(text string) string {
	// Clean up spaces
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	// Remove parenthetical text if it crosses the character limit
	text = removeIncompleteParens(text, maxTitleLength)

	// Ensure we don't cut words in half
	text = truncateAtWordBoundary(text, maxTitleLength)

	return text
}

// removeIncompleteParens removes parenthetical text that crosses the character limit
func removeIncompleteParens(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	var result strings.Builder
	inParens := false
	parenStart := 0
	runeCount := 0

	for i, r := range text {
		runeCount++

		if r == openParenthesis {
			inParens = true
			parenStart = i
		} else if r == ')' {
			inParens = false
		}

		if runeCount > limit && inParens {
			// If we cross the limit while inside parentheses,
			// remove everything from the opening paren
			return strings.TrimRight(text[:parenStart], punctuation) + ellipsis
		}

		if !inParens {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// truncateAtWordBoundary truncates text at a word boundary
func truncateAtWordBoundary(text string, limit int) string {
	// Remove trailing colon if present
	hasColon := strings.HasSuffix(text, ":")

	if hasColon {
		text = strings.TrimSuffix(text, ":")
	}

	runeCount := utf8.RuneCountInString(text)

	// If text is under the limit and had a colon, add ellipsis
	if runeCount <= limit && hasColon {
		return text + ellipsis
	}

	// Otherwise just return the text
	if runeCount <= limit {
		return text
	}

	lastWordEnd := 0
	currentCount := 0

	for i, r := range text {
		currentCount++

		if unicode.IsSpace(r) {
			lastWordEnd = i
		}

		if currentCount >= limit {
			var truncated string

			if lastWordEnd > 0 {
				// Truncate at the last word boundary
				truncated = text[:lastWordEnd]
			} else {
				// If no word boundary found, just truncate at the limit
				truncated = text[:i]
			}

			// Remove trailing punctuation before adding ellipsis
			truncated = strings.TrimRight(truncated, punctuation)

			return truncated + ellipsis
		}
	}

	return text
}

// imageTypeFromURL guesses the MIME type of an image from its URL path
func imageTypeFromURL(rawURL string) string {
	path := rawURL

	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
