// Package mediatype maps download filenames to media types. Zip archives are
// classified by the single relevant file type they contain.
package mediatype

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"sync"

	"github.com/pdok/atom-generator/pkg/atomfeed"
)

const (
	DefaultContentType     = "application/octet-stream"
	ZipMediaType           = "application/zip"
	InspireGMLZipMediaType = "application/x-gmz"
)

// baseTypes are looked up before the platform table so results do not
// depend on the host's mime.types.
var baseTypes = map[string]string{
	".zip":  ZipMediaType,
	".xml":  "application/xml",
	".json": "application/json",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".html": "text/html",
	".pdf":  "application/pdf",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".xsd":  "application/xml",
	".xsl":  "application/xslt+xml",
	".js":   "text/javascript",
	".css":  "text/css",
}

// encodings are compression suffixes. They carry no media type of their
// own: "top10.gml.gz" is typed as "top10.gml", "top10.gz" is unknown.
var encodings = map[string]bool{
	".gz":  true,
	".bz2": true,
	".xz":  true,
	".br":  true,
	".z":   true,
}

// additionalTypes are the geospatial formats published in feeds.
var additionalTypes = map[string]string{
	".gml":  "application/gml+xml",
	".gpkg": "application/geopackage+sqlite3",
}

// Table maps lower-case filename extensions (with dot) to media types.
type Table struct {
	mu    sync.RWMutex
	types map[string]string
}

// NewTable returns a table with the base and geospatial types.
func NewTable() *Table {
	t := &Table{types: make(map[string]string, len(baseTypes)+len(additionalTypes))}
	for ext, typ := range baseTypes {
		t.types[ext] = typ
	}
	for ext, typ := range additionalTypes {
		t.types[ext] = typ
	}
	return t
}

// Add registers or overrides the media type of an extension.
func (t *Table) Add(ext, mediaType string) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.types[strings.ToLower(ext)] = mediaType
}

// Lookup guesses the media type from the filename extension, falling back
// to the platform table. Parameters such as charset are dropped.
func (t *Table) Lookup(filename string) (string, bool) {
	ext := strings.ToLower(path.Ext(filename))
	if encodings[ext] {
		// a compressed file has the type of what it compresses
		filename = strings.TrimSuffix(filename, filename[len(filename)-len(ext):])
		ext = strings.ToLower(path.Ext(filename))
	}
	if ext == "" {
		return "", false
	}

	t.mu.RLock()
	typ, ok := t.types[ext]
	t.mu.RUnlock()
	if ok {
		return typ, true
	}

	if typ := mime.TypeByExtension(ext); typ != "" {
		if parsed, _, err := mime.ParseMediaType(typ); err == nil {
			return parsed, true
		}
		return typ, true
	}
	return "", false
}

// Inspector reports the checklist extension found inside a zip object.
type Inspector interface {
	InspectZip(ctx context.Context, filename string) (string, error)
}

// Resolver resolves media types, looking inside zip archives when an
// inspector is configured.
type Resolver struct {
	table     *Table
	inspector Inspector
}

// NewResolver creates a resolver; a nil table means NewTable(). Without an
// inspector zip files resolve to the plain zip type.
func NewResolver(table *Table, inspector Inspector) *Resolver {
	if table == nil {
		table = NewTable()
	}
	return &Resolver{table: table, inspector: inspector}
}

// Table returns the extension table used by the resolver.
func (r *Resolver) Table() *Table {
	return r.table
}

// Resolve returns the media type of filename or ErrUnknownFileType.
func (r *Resolver) Resolve(ctx context.Context, filename string) (string, error) {
	guess, ok := r.table.Lookup(filename)
	if !ok {
		return "", fmt.Errorf("%w: %s", atomfeed.ErrUnknownFileType, filename)
	}
	return r.disambiguate(ctx, filename, guess)
}

// ResolveOrDefault is Resolve returning def for unknown extensions.
func (r *Resolver) ResolveOrDefault(ctx context.Context, filename, def string) (string, error) {
	guess, ok := r.table.Lookup(filename)
	if !ok {
		return def, nil
	}
	return r.disambiguate(ctx, filename, guess)
}

func (r *Resolver) disambiguate(ctx context.Context, filename, guess string) (string, error) {
	if guess != ZipMediaType || r.inspector == nil {
		return guess, nil
	}
	ext, err := r.inspector.InspectZip(ctx, filename)
	if err != nil {
		return "", err
	}
	if ext == "gml" {
		return InspireGMLZipMediaType, nil
	}
	return guess, nil
}
