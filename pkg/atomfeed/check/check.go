// Package check reads back a published feed document and reports what a
// feed reader would see: its entries and their download links.
package check

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mmcdole/gofeed/atom"
)

// Link is a link of an entry
type Link struct {
	Rel    string
	Href   string
	Type   string
	Length string
}

// Entry is one entry of a feed document
type Entry struct {
	ID    string
	Title string
	Links []Link
}

// Report summarizes a feed document
type Report struct {
	ID       string
	Title    string
	Updated  string
	Entries  []Entry
	Problems []string
}

// OK reports whether no problems were found
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// Open returns the document at target, a local path or an http(s) URL.
func Open(ctx context.Context, client *http.Client, target string) (io.ReadCloser, error) {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return os.Open(target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode)
	}
	return resp.Body, nil
}

// Parse reads an Atom document and checks that the feed and every entry
// carry an id and that download links state their type and length.
func Parse(r io.Reader) (*Report, error) {
	parser := &atom.Parser{}
	feed, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse atom feed: %w", err)
	}

	report := &Report{ID: feed.ID, Title: feed.Title, Updated: feed.Updated}
	if feed.ID == "" {
		report.Problems = append(report.Problems, "feed: missing id")
	}
	if feed.Updated == "" {
		report.Problems = append(report.Problems, "feed: missing updated")
	}

	for i, e := range feed.Entries {
		entry := Entry{ID: e.ID, Title: e.Title}
		if e.ID == "" {
			report.Problems = append(report.Problems, fmt.Sprintf("entry %d: missing id", i))
		}
		for _, l := range e.Links {
			entry.Links = append(entry.Links, Link{Rel: l.Rel, Href: l.Href, Type: l.Type, Length: l.Length})
			if l.Href == "" {
				report.Problems = append(report.Problems, fmt.Sprintf("entry %d: link without href", i))
			}
			if isDownload(l) && (l.Type == "" || l.Length == "") {
				report.Problems = append(report.Problems, fmt.Sprintf("entry %d: download %s without type or length", i, l.Href))
			}
		}
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}

// isDownload reports whether a link points to a file rather than a feed
// or a web page.
func isDownload(l *atom.Link) bool {
	if l.Rel != "alternate" && l.Rel != "related" {
		return false
	}
	return l.Type != "application/atom+xml" && l.Type != "text/html"
}

// Check opens and parses the document at target.
func Check(ctx context.Context, client *http.Client, target string) (*Report, error) {
	rc, err := Open(ctx, client, target)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Parse(rc)
}
