package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	// Use for fields that should only contain plain text (titles, reasons).
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy allows safe user-generated content with basic formatting.
	// Permits: <p>, <b>, <i>, <em>, <strong>, <a>, <ul>, <ol>, <li>, <br>
	// Use for fields where basic formatting is acceptable (descriptions).
	UGCPolicy = bluemonday.UGCPolicy()
)

// textEntities decodes the escapes StrictPolicy adds for plain punctuation.
// Angle brackets stay escaped, so encoded markup never becomes a tag.
var textEntities = strings.NewReplacer(
	"&amp;", "&",
	"&#34;", `"`,
	"&quot;", `"`,
	"&#39;", "'",
)

// Text strips all HTML tags and returns plain text. Ampersands and quotes
// escaped by the policy are decoded again so "Q&A" stays "Q&A"; &lt; and &gt;
// are left encoded.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return textEntities.Replace(StrictPolicy.Sanitize(input))
}

// HTML sanitizes HTML content, allowing safe formatting tags.
// Removes: <script>, <iframe>, onclick handlers, style attributes.
func HTML(input string) string {
	if input == "" {
		return ""
	}
	return UGCPolicy.Sanitize(input)
}
