package atomfeed

import (
	"embed"
	"io/fs"
)

var (
	//go:embed templates/service_feed.mustache
	ServiceFeedTemplate string

	//go:embed templates/data_feed.mustache
	DataFeedTemplate string

	//go:embed all:static
	staticFiles embed.FS
)

// StaticFiles returns the assets (stylesheet, scripts) published next to
// the feed documents, rooted at the output directory.
func StaticFiles() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
