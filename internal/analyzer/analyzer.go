// Package analyzer extracts EARS-style acceptance criteria from
// specification documents.
package analyzer

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/gfaurobert/specflow/internal/classify"
	"github.com/gfaurobert/specflow/internal/models"
	"go.uber.org/zap"
)

// sentenceText never crosses a sentence end: a '.' or ';' is only allowed
// when it is not followed by whitespace, as in "index.html".
const sentenceText = `(?:[^.;]|[.;]\S)+?`

var earsPattern = regexp.MustCompile(`(?i)\b(when|if)\s+(` + sentenceText + `),?\s+then\s+(` + sentenceText + `)\s+shall\s+(.+?)(?:[.;](?:\s|$)|$)`)

// Analyzer turns specification text into requirements and criteria.
type Analyzer struct {
	logger *zap.Logger
	rules  []classify.Rule
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithRules replaces the classification rule table.
func WithRules(rules []classify.Rule) Option {
	return func(a *Analyzer) { a.rules = rules }
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{logger: zap.NewNop(), rules: classify.Rules}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ParseRequirements extracts every WHEN/IF ... THEN ... SHALL sentence.
// Text that matches nothing yields an empty result, never an error.
func (a *Analyzer) ParseRequirements(text string) []models.Requirement {
	src := []byte(text)
	var reqs []models.Requirement
	for _, b := range splitRequirements(src) {
		req := models.Requirement{Number: b.number, Title: b.title}
		idx := 0
		for _, line := range logicalLines(string(src[b.start:b.end])) {
			if req.UserStory == "" {
				if story, ok := userStory(line); ok {
					req.UserStory = story
					continue
				}
			}
			for _, m := range earsPattern.FindAllStringSubmatch(line, -1) {
				idx++
				req.Criteria = append(req.Criteria, a.criterion(req, idx, m))
			}
		}
		// A preamble without criteria is not a requirement.
		if b.preamble && len(req.Criteria) == 0 {
			continue
		}
		reqs = append(reqs, req)
	}
	for i := range reqs {
		for j := range reqs[i].Criteria {
			reqs[i].Criteria[j].UserStory = reqs[i].UserStory
		}
	}

	a.logger.Debug("parsed requirements",
		zap.Int("requirements", len(reqs)),
		zap.Int("criteria", len(Flatten(reqs))))
	return reqs
}

// ParseFile reads path and parses it. Only read errors are returned.
func (a *Analyzer) ParseFile(path string) ([]models.Requirement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec %s: %w", path, err)
	}
	return a.ParseRequirements(string(data)), nil
}

func (a *Analyzer) criterion(req models.Requirement, idx int, m []string) models.AcceptanceCriterion {
	desc := strings.TrimRight(strings.TrimSpace(m[0]), ".;")
	behavior := strings.TrimSpace(m[4])
	return models.AcceptanceCriterion{
		ID:            fmt.Sprintf("%d.%d", req.Number, idx),
		Description:   desc,
		Condition:     strings.TrimSpace(m[2]),
		Subject:       strings.TrimSpace(m[3]),
		Behavior:      behavior,
		Testable:      IsTestable(behavior),
		Category:      classify.With(a.rules, desc),
		RequirementID: strconv.Itoa(req.Number),
		Steps:         []models.TestStep{},
	}
}

// Flatten returns all criteria in document order.
func Flatten(reqs []models.Requirement) []models.AcceptanceCriterion {
	var out []models.AcceptanceCriterion
	for _, r := range reqs {
		out = append(out, r.Criteria...)
	}
	return out
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)

// logicalLines joins soft-wrapped lines. A new logical line starts at a
// blank line, a heading or a list item.
func logicalLines(block string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, raw := range strings.Split(block, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		switch {
		case line == "":
			flush()
			continue
		case strings.HasPrefix(line, "#"):
			flush()
		case listMarker.MatchString(line):
			flush()
			line = listMarker.ReplaceAllString(line, "")
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(strings.NewReplacer("**", "", "__", "", "`", "").Replace(line))
	}
	flush()
	return out
}

var storyPrefix = regexp.MustCompile(`(?i)^user story\s*:?\s*`)

func userStory(line string) (string, bool) {
	if !storyPrefix.MatchString(line) {
		return "", false
	}
	return strings.TrimSpace(storyPrefix.ReplaceAllString(line, "")), true
}
