package analyzer

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var requirementHeading = regexp.MustCompile(`(?i)^requirement\s+(\d+)\s*[:.\-]?\s*(.*)$`)

type block struct {
	number   int
	title    string
	start    int
	end      int
	preamble bool
}

type heading struct {
	offset int
	text   string
}

// splitRequirements cuts src at "Requirement N" headings. Text before the
// first heading becomes requirement 0; a document without any such heading
// is a single requirement 1.
func splitRequirements(src []byte) []block {
	var marks []block
	for _, h := range headings(src) {
		m := requirementHeading.FindStringSubmatch(h.text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		marks = append(marks, block{number: n, title: strings.TrimSpace(m[2]), start: h.offset})
	}

	if len(marks) == 0 {
		return []block{{number: 1, start: 0, end: len(src)}}
	}

	blocks := []block{{number: 0, start: 0, end: marks[0].start, preamble: true}}
	for i, m := range marks {
		m.end = len(src)
		if i+1 < len(marks) {
			m.end = marks[i+1].start
		}
		blocks = append(blocks, m)
	}
	return blocks
}

// headings returns every markdown heading with the byte offset of the start
// of its line.
func headings(src []byte) []heading {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		start := h.Lines().At(0).Start
		lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
		out = append(out, heading{offset: lineStart, text: strings.TrimSpace(inlineText(h, src))})
		return ast.WalkSkipChildren, nil
	})
	return out
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
			continue
		}
		b.WriteString(inlineText(c, src))
	}
	return b.String()
}
