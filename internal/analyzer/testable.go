package analyzer

import (
	"regexp"
	"strings"
)

// uiVocabulary are word stems that indicate something a browser can observe.
var uiVocabulary = []string{
	"display", "show", "hide", "hidden", "render", "reveal", "mask",
	"click", "tap", "press", "navigate", "redirect", "open", "close",
	"expand", "collapse", "toggle", "enable", "disable", "highlight",
	"focus", "select", "button", "link", "page", "modal", "dialog", "popup",
	"menu", "tab", "message", "error", "warning", "notification", "toast",
	"input", "field", "form", "checkbox", "visible", "appear", "disappear",
	"indicator", "icon", "label", "tooltip", "text", "announce", "aria",
	"keyboard", "screen reader", "submit", "validate", "update", "refresh",
	"load", "scroll", "drag", "drop", "move", "chart", "list", "table",
	"image", "color", "colour", "style", "prompt", "confirm", "present",
	"view", "screen", "dot", "position",
}

var uiPattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoteAll(uiVocabulary), "|") + `)`)

// IsTestable reports whether a behavior clause names something observable
// in the UI. Pure policy statements ("comply with", "retain for 30 days")
// are not testable.
func IsTestable(behavior string) bool {
	return uiPattern.MatchString(behavior)
}

func quoteAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = regexp.QuoteMeta(w)
	}
	return out
}
