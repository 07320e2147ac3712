package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	leadingHeading = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*\s*$`)
	fencedBlock    = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n(.*?)\n```$")
	setextUnder    = regexp.MustCompile(`^\s*(=+|-+)\s*$`)
)

// CleanBody normalizes a completion into a section body: unwraps a fence around
// the whole answer and drops a leading heading repeating the section title.
func CleanBody(raw, title string) (string, error) {
	md := unfence(strings.TrimSpace(raw))
	first, rest, _ := strings.Cut(md, "\n")
	if m := leadingHeading.FindStringSubmatch(strings.TrimSpace(first)); m != nil && sameHeading(m[1], title) {
		md = strings.TrimSpace(rest)
	}
	if md == "" {
		return "", fmt.Errorf("%w: empty section body", ErrMalformedOutput)
	}
	return md, nil
}

func unfence(md string) string {
	if m := fencedBlock.FindStringSubmatch(md); m != nil {
		return strings.TrimSpace(m[1])
	}
	return md
}

func sameHeading(a, b string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.Trim(strings.TrimSpace(s), "*_:`"))
	}
	return b != "" && norm(a) == norm(b)
}

// ExtractRevisedChapter returns the body under the "Revised Chapter" heading of a
// three-part revision answer. The action items and outline that precede it are discarded.
func ExtractRevisedChapter(raw string) (string, error) {
	source := []byte(unfence(strings.TrimSpace(raw)))
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	var seen []string
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		label := string(seg.Value(source))
		seen = append(seen, label)
		if !sameHeading(label, HeadingRevised) {
			continue
		}
		body := afterLine(source, seg.Stop)
		if first, rest, _ := strings.Cut(body, "\n"); setextUnder.MatchString(first) {
			body = rest
		}
		body = strings.TrimSpace(body)
		if body == "" {
			return "", fmt.Errorf("%w: %q part is empty", ErrMalformedOutput, HeadingRevised)
		}
		return body, nil
	}
	return "", fmt.Errorf("%w: no %q heading (saw %v)", ErrMalformedOutput, HeadingRevised, seen)
}

func afterLine(source []byte, offset int) string {
	if offset >= len(source) {
		return ""
	}
	rest := string(source[offset:])
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		return rest[i+1:]
	}
	return ""
}
