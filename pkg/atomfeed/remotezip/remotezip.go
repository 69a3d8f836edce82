// Package remotezip lists the members of a zip archive behind a URL without
// downloading it: only the central directory is fetched, using HTTP range
// requests.
package remotezip

import (
	"archive/zip"
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	bufra "github.com/avvmoto/buf-readerat"
	"github.com/snabb/httpreaderat"

	"github.com/pdok/atom-generator/pkg/atomfeed"
)

// Checklist holds the extensions of which a published zip must contain
// exactly one.
var Checklist = []string{"gml", "gpkg", "xml"}

// readBufferSize is the size of each ranged read.
const readBufferSize = 1 << 20

// List returns the member names of the zip archive at url. The server must
// support range requests.
func List(ctx context.Context, client *http.Client, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", atomfeed.ErrArchiveUnavailable, err)
	}

	ra, err := httpreaderat.New(client, req, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", atomfeed.ErrArchiveUnavailable, err)
	}

	zr, err := zip.NewReader(bufra.NewBufReaderAt(ra, readBufferSize), ra.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: read central directory: %v", atomfeed.ErrArchiveUnavailable, err)
	}

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// Extension returns the part of name after the last dot, or name itself
// when it has none.
func Extension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Classify intersects the member extensions with checklist. The
// intersection must hold exactly one extension, which is returned.
func Classify(names []string, checklist []string) (string, error) {
	found := make(map[string]struct{})
	for _, name := range names {
		ext := Extension(name)
		if slices.Contains(checklist, ext) {
			found[ext] = struct{}{}
		}
	}

	switch len(found) {
	case 1:
		for ext := range found {
			return ext, nil
		}
	case 0:
		return "", fmt.Errorf("%w: there must be one of the following file types in the zip package: %v",
			atomfeed.ErrAmbiguousArchiveContents, checklist)
	}

	exts := make([]string, 0, len(found))
	for ext := range found {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return "", fmt.Errorf("%w: found the types %v, there must be only one of the following types in the zip package: %v",
		atomfeed.ErrAmbiguousArchiveContents, exts, checklist)
}
