package normalize

import (
	"regexp"
	"strings"
)

var (
	markdownLink = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	bareURL      = regexp.MustCompile(`https?://\S+`)
	emphasis     = regexp.MustCompile("[*_~`]")
	bracketSpan  = regexp.MustCompile(`\[.*?\]`)
	parenSpan    = regexp.MustCompile(`\(.*?\)`)
	specials     = regexp.MustCompile(`[^\w\s\-.,!?]`)
)

const descriptionLimit = 200

// CleanTitle strips markup, URLs, and bracketed noise from a listing title.
// The pass order matters: link syntax must go before bare URLs, and bare
// URLs before bracket stripping, or nested syntax survives. The pipeline is
// idempotent; already-clean text is a fixed point.
func CleanTitle(title string) string {
	title = markdownLink.ReplaceAllString(title, "$1")
	title = bareURL.ReplaceAllString(title, "")
	title = emphasis.ReplaceAllString(title, "")
	title = bracketSpan.ReplaceAllString(title, "")
	title = parenSpan.ReplaceAllString(title, "")
	title = specials.ReplaceAllString(title, "")
	return collapseWhitespace(title)
}

// CleanDescription applies the markup and URL passes without bracket
// stripping, then truncates to the description limit with an ellipsis.
func CleanDescription(description string) string {
	description = markdownLink.ReplaceAllString(description, "$1")
	description = emphasis.ReplaceAllString(description, "")
	description = bareURL.ReplaceAllString(description, "")
	description = collapseWhitespace(description)

	runes := []rune(description)
	if len(runes) > descriptionLimit {
		return string(runes[:descriptionLimit-3]) + "..."
	}
	return description
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
