package atomfeed

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cbroglie/mustache"
)

// MustacheRenderer renders mustache templates. Values are HTML escaped,
// which is also valid XML escaping. Values rendered inside XML comments
// have their "--" sequences broken up.
type MustacheRenderer struct{}

func (MustacheRenderer) Render(template string, view any) (string, error) {
	out, err := mustache.Render(template, view)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return commentSafe(out), nil
}

// xmlComment matches one comment. An escaped value never contains '>' so
// it cannot end a comment early.
var xmlComment = regexp.MustCompile(`(?s)<!--(.*?)-->`)

// commentSafe rewrites comment bodies so they hold no "--" and do not end
// in '-', neither of which XML allows.
func commentSafe(doc string) string {
	return xmlComment.ReplaceAllStringFunc(doc, func(comment string) string {
		body := comment[len("<!--") : len(comment)-len("-->")]
		for strings.Contains(body, "--") {
			body = strings.ReplaceAll(body, "--", "- -")
		}
		if strings.HasSuffix(body, "-") {
			body += " "
		}
		return "<!--" + body + "-->"
	})
}
