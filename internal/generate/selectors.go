package generate

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	clickVerbs = wordSet("click", "clicks", "tap", "taps", "press", "presses", "select", "selects",
		"toggle", "toggles", "activate", "activates", "choose", "chooses", "open", "opens")
	formVerbs = wordSet("submit", "submits", "enter", "enters", "type", "types", "fill", "fills",
		"leave", "leaves", "clear", "clears", "input", "inputs")
	focusVerbs = wordSet("focus", "focuses", "tab", "tabs", "press", "presses", "navigate", "navigates",
		"use", "uses", "hover", "hovers")
	controlNouns = wordSet("toggle", "switch", "menu", "tab", "checkbox", "dropdown", "button",
		"link", "icon", "field", "input", "form", "dialog", "modal")
	stopWords = wordSet("the", "a", "an", "on", "in", "to", "of", "and", "or", "with", "for", "at",
		"again", "then", "that", "this", "their", "his", "her", "its", "user", "users", "when", "if",
		"is", "are", "be", "been", "it", "from", "into", "by")
)

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// selectorToken derives a kebab-case data-testid token from free text. The
// subject is the noun phrase after the first verb in verbs, capped at three
// words and terminated by a control noun, which becomes the suffix. When no
// control noun is found, suffix is used.
func selectorToken(verbs map[string]bool, suffix string, texts ...string) string {
	for _, text := range texts {
		words := tokenize(text)
		for i, w := range words {
			if verbs[w] {
				if tok := phraseToken(words[i+1:], suffix); tok != "" {
					return tok
				}
			}
		}
	}
	for _, text := range texts {
		if tok := phraseToken(tokenize(text), suffix); tok != "" {
			return tok
		}
	}
	return "main-" + suffix
}

func phraseToken(words []string, suffix string) string {
	var subject []string
	control := ""
	for _, w := range words {
		if controlNouns[w] {
			control = w
			break
		}
		if stopWords[w] {
			if len(subject) > 0 {
				break
			}
			continue
		}
		subject = append(subject, w)
		if len(subject) == 3 {
			break
		}
	}
	if control == "" {
		control = suffix
	}
	if len(subject) == 0 {
		if control == suffix {
			return ""
		}
		return control
	}
	return strings.Join(subject, "-") + "-" + control
}

func tokenize(text string) []string {
	return strings.Fields(nonWord.ReplaceAllString(strings.ToLower(text), " "))
}

// testIDSelector wraps a token in a data-testid attribute selector.
func testIDSelector(token string) string {
	return fmt.Sprintf("[data-testid=%q]", token)
}

var (
	explicitPath = regexp.MustCompile(`(?:^|\s)(/[A-Za-z0-9_\-./]*)`)
	namedPage    = regexp.MustCompile(`(?i)\b(?:the\s+)?([a-z0-9\-]+(?:\s+[a-z0-9\-]+)?)\s+page\b`)
	redirectTo   = regexp.MustCompile(`(?i)\b(?:redirect(?:s|ed)?|navigate(?:s|d)?|go(?:es)?|return(?:s|ed)?)\s+(?:back\s+)?to\s+(?:the\s+)?([a-z0-9\-]+)`)
)

// navigationPath extracts the destination path of a navigation criterion.
// Defaults to the application root.
func navigationPath(texts ...string) string {
	for _, text := range texts {
		if m := explicitPath.FindStringSubmatch(text); m != nil {
			return strings.TrimRight(m[1], ".")
		}
	}
	for _, text := range texts {
		if m := redirectTo.FindStringSubmatch(text); m != nil && !stopWords[strings.ToLower(m[1])] {
			return pathFor(m[1])
		}
		if m := namedPage.FindStringSubmatch(text); m != nil {
			words := tokenize(m[1])
			var kept []string
			for _, w := range words {
				if !stopWords[w] {
					kept = append(kept, w)
				}
			}
			if len(kept) > 0 {
				return pathFor(strings.Join(kept, "-"))
			}
		}
	}
	return "/"
}

func pathFor(word string) string {
	w := strings.ToLower(word)
	if w == "home" || w == "main" || w == "landing" || w == "index" {
		return "/"
	}
	return "/" + w
}
