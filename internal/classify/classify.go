// Package classify maps acceptance-criterion text onto a test category.
//
// Rules are evaluated in order and the first match wins, so adding a
// category means adding a row to Rules.
package classify

import (
	"regexp"
	"strings"

	"github.com/gfaurobert/specflow/internal/models"
)

// Rule assigns Category when Match reports true for the lower-cased text.
type Rule struct {
	Category models.Category
	Match    func(text string) bool
}

// Keywords returns a matcher that is true when text contains any keyword as
// a whole word or phrase.
func Keywords(keywords ...string) func(string) bool {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(k))
	}
	return Pattern(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Pattern returns a matcher for a regular expression applied to the
// lower-cased text. It panics if expr does not compile.
func Pattern(expr string) func(string) bool {
	re := regexp.MustCompile(expr)
	return re.MatchString
}

// Rules is the default ordered rule table.
var Rules = []Rule{
	{Category: models.CategoryNavigation, Match: Pattern(`\bnavigat(?:e|es|ed|ing|ion)\b|\bpages?\b|\bredirect(?:s|ed|ing|ion)?\b`)},
	{Category: models.CategoryFormValidation, Match: Pattern(`\bsubmit(?:s|ted|ting)?\b|\bsubmission\b|\bvalidat(?:e|es|ed|ing|ion)\b|\brequired fields?\b`)},
	{Category: models.CategoryAccessibility, Match: Pattern(`\baria\b|\bscreen[- ]readers?\b|\bkeyboard\b`)},
}

// Default is the category used when no rule matches.
const Default = models.CategoryUIInteraction

// Category classifies text with the default rules.
func Category(text string) models.Category {
	return With(Rules, text)
}

// With classifies text against an explicit rule table.
func With(rules []Rule, text string) models.Category {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.Match(lower) {
			return r.Category
		}
	}
	return Default
}
