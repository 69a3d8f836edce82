package atomfeed

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
)

// IndexFilename is the name of the service feed document.
const IndexFilename = "index.xml"

// Generator assembles and renders the service feed and its dataset feeds.
type Generator struct {
	renderer        Renderer
	logger          *slog.Logger
	serviceTemplate string
	dataTemplate    string
	static          fs.FS
}

// Option represents a functional option for configuring the generator
type Option func(*Generator)

// WithRenderer sets the template renderer
func WithRenderer(r Renderer) Option {
	return func(g *Generator) {
		g.renderer = r
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithTemplates replaces the embedded service and data feed templates
func WithTemplates(serviceFeed, dataFeed string) Option {
	return func(g *Generator) {
		g.serviceTemplate = serviceFeed
		g.dataTemplate = dataFeed
	}
}

// WithStaticFiles replaces the embedded static assets; nil publishes none
func WithStaticFiles(files fs.FS) Option {
	return func(g *Generator) {
		g.static = files
	}
}

// NewGenerator creates a generator with the embedded templates, the
// mustache renderer and the default logger unless overridden.
func NewGenerator(options ...Option) *Generator {
	g := &Generator{
		renderer:        MustacheRenderer{},
		logger:          slog.Default(),
		serviceTemplate: ServiceFeedTemplate,
		dataTemplate:    DataFeedTemplate,
		static:          StaticFiles(),
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Generate validates the feed, then writes index.xml, the static assets and
// one {datafeed_name}.xml per dataset to dst. Nothing is written when
// validation fails.
func (g *Generator) Generate(ctx context.Context, feed *ServiceFeed, dst Destination) error {
	if err := feed.Validate(); err != nil {
		return err
	}

	docs, err := g.render(ctx, feed)
	if err != nil {
		return err
	}

	if err := dst.Write(ctx, IndexFilename, docs[0].content); err != nil {
		return fmt.Errorf("write %s: %w", IndexFilename, err)
	}
	if err := g.writeStatic(ctx, dst); err != nil {
		return err
	}
	for _, doc := range docs[1:] {
		if err := dst.Write(ctx, doc.name, doc.content); err != nil {
			return fmt.Errorf("write %s: %w", doc.name, err)
		}
	}

	g.logger.Info("created atom feed", "url", feed.IndexURL(), "datasets", len(feed.Datasets))
	return nil
}

// GenerateToBucket is the legacy copy-mode assembly: the documents go to a
// destination bucket and every download is copied next to them. An existing
// destination is only replaced when force is set.
func (g *Generator) GenerateToBucket(ctx context.Context, feed *ServiceFeed, dst BucketDestination, force bool) error {
	if err := feed.Validate(); err != nil {
		return err
	}
	g.logger.Warn("using old style atom-generator output to a destination bucket, this will be deprecated")

	docs, err := g.render(ctx, feed)
	if err != nil {
		return err
	}

	exists, err := dst.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check destination: %w", err)
	}
	if exists {
		if !force {
			return fmt.Errorf("%w: use force to overwrite the existing atom feed", ErrDestinationExists)
		}
		g.logger.Info("removing existing atom feed from destination")
		if err := dst.Clear(ctx); err != nil {
			return fmt.Errorf("clear destination: %w", err)
		}
	}

	for _, doc := range docs {
		if err := dst.Write(ctx, doc.name, doc.content); err != nil {
			return fmt.Errorf("write %s: %w", doc.name, err)
		}
	}
	for _, ds := range feed.Datasets {
		for _, dl := range ds.Downloads {
			if err := dst.CopyDownload(ctx, dl.ObjectName()); err != nil {
				return fmt.Errorf("copy download %s: %w", dl.DownloadFile, err)
			}
		}
	}
	if err := g.writeStatic(ctx, dst); err != nil {
		return err
	}

	g.logger.Info("created atom feed", "url", feed.IndexURL(), "datasets", len(feed.Datasets))
	return nil
}

type document struct {
	name    string
	content []byte
}

// render produces the index document followed by the dataset documents.
func (g *Generator) render(ctx context.Context, feed *ServiceFeed) ([]document, error) {
	docs := make([]document, 0, len(feed.Datasets)+1)

	view, err := feed.View(ctx)
	if err != nil {
		return nil, fmt.Errorf("assemble service feed: %w", err)
	}
	index, err := g.renderer.Render(g.serviceTemplate, view)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", IndexFilename, err)
	}
	docs = append(docs, document{name: IndexFilename, content: []byte(index)})

	for _, ds := range feed.Datasets {
		name := ds.DatafeedName + ".xml"
		view, err := feed.DatasetView(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("assemble dataset feed %s: %w", ds.DatafeedName, err)
		}
		out, err := g.renderer.Render(g.dataTemplate, view)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		g.logger.Debug("rendered dataset feed", "name", name, "downloads", len(ds.Downloads))
		docs = append(docs, document{name: name, content: []byte(out)})
	}
	return docs, nil
}

func (g *Generator) writeStatic(ctx context.Context, dst Destination) error {
	if g.static == nil {
		return nil
	}
	return fs.WalkDir(g.static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := fs.ReadFile(g.static, path)
		if err != nil {
			return fmt.Errorf("read static file %s: %w", path, err)
		}
		if err := dst.Write(ctx, path, content); err != nil {
			return fmt.Errorf("write static file %s: %w", path, err)
		}
		return nil
	})
}
