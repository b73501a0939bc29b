package render

import "strings"

var attrReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\t", "&#9;",
)

// EscapeAttr escapes text for safe inclusion in a double-quoted HTML
// attribute value.
func EscapeAttr(s string) string {
	return attrReplacer.Replace(s)
}
