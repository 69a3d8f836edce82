// Package source gives access to the objects of one source bucket/prefix:
// sizes, media types and last-modified times of download files, and the
// legacy destination bucket the feed used to be published to.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/pdok/atom-generator/pkg/atomfeed"
	"github.com/pdok/atom-generator/pkg/atomfeed/mediatype"
	"github.com/pdok/atom-generator/pkg/atomfeed/remotezip"
	"github.com/pdok/atom-generator/pkg/utils"
)

// PresignExpiry bounds the validity of the URL used to inspect zip archives.
const PresignExpiry = 10 * time.Minute

// DownloadsFolder is the folder below the destination prefix that receives
// copies of the downloads.
const DownloadsFolder = "downloads"

// Config locates the source and the optional legacy destination
type Config struct {
	SourceBucket      string
	SourcePrefix      string
	DestinationBucket string // empty unless running in copy mode
	DestinationPrefix string
}

// Accessor implements atomfeed.Source for a source bucket and
// atomfeed.BucketDestination for the legacy destination bucket. It holds no
// per-request state and is shared by the whole feed tree.
type Accessor struct {
	store             atomfeed.ObjectStore
	resolver          *mediatype.Resolver
	httpClient        *http.Client
	logger            *slog.Logger
	sourceBucket      string
	sourcePrefix      string
	destinationBucket string
	destinationPrefix string
}

// Option represents a functional option for configuring the accessor
type Option func(*Accessor)

// WithMediaTypes sets the extension table used to resolve media types
func WithMediaTypes(table *mediatype.Table) Option {
	return func(a *Accessor) {
		a.resolver = mediatype.NewResolver(table, a)
	}
}

// WithHTTPClient sets the client used for ranged reads of zip archives
func WithHTTPClient(client *http.Client) Option {
	return func(a *Accessor) {
		a.httpClient = client
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Accessor) {
		a.logger = logger
	}
}

// New creates an accessor on store. Bucket names and prefixes have their
// surrounding slashes stripped.
func New(store atomfeed.ObjectStore, config Config, options ...Option) (*Accessor, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	a := &Accessor{
		store:             store,
		httpClient:        http.DefaultClient,
		logger:            slog.Default(),
		sourceBucket:      strings.Trim(config.SourceBucket, "/"),
		sourcePrefix:      utils.BuildURI(false, config.SourcePrefix),
		destinationBucket: strings.Trim(config.DestinationBucket, "/"),
		destinationPrefix: strings.Trim(config.DestinationPrefix, "/"),
	}
	if a.sourceBucket == "" {
		return nil, errors.New("source bucket is required")
	}
	if a.destinationBucket != "" && a.destinationPrefix == "" {
		return nil, errors.New("destination prefix is required with a destination bucket")
	}
	a.resolver = mediatype.NewResolver(nil, a)

	for _, option := range options {
		option(a)
	}
	return a, nil
}

func (a *Accessor) SourceBucket() string { return a.sourceBucket }

func (a *Accessor) SourcePrefix() string { return a.sourcePrefix }

func (a *Accessor) DestinationBucket() string { return a.destinationBucket }

func (a *Accessor) DestinationPrefix() string { return a.destinationPrefix }

// CopyMode reports whether a legacy destination bucket is configured.
func (a *Accessor) CopyMode() bool {
	return a.destinationBucket != ""
}

// Resolver returns the media type resolver of the accessor.
func (a *Accessor) Resolver() *mediatype.Resolver {
	return a.resolver
}

// Key returns the object key of a filename relative to the source prefix.
// A trailing slash, which marks a directory, is kept.
func (a *Accessor) Key(filename string) string {
	key := utils.BuildURI(false, a.sourcePrefix, filename)
	if strings.HasSuffix(filename, "/") && key != "" {
		key += "/"
	}
	return key
}

// Stat returns the metadata of a source file. It fails with ErrEmptyFilename
// before contacting the store, with ErrObjectNotFound when the store has no
// statistics and with ErrNotAFile for directory markers, also when the
// filename names the marker without its trailing slash.
func (a *Accessor) Stat(ctx context.Context, filename string) (*atomfeed.ObjectMeta, error) {
	if strings.Trim(strings.TrimSpace(filename), "/") == "" {
		return nil, atomfeed.ErrEmptyFilename
	}

	key := a.Key(filename)
	meta, err := a.store.StatObject(ctx, a.sourceBucket, key)
	if errors.Is(err, atomfeed.ErrObjectNotFound) && !strings.HasSuffix(key, "/") {
		if dir, dirErr := a.store.StatObject(ctx, a.sourceBucket, key+"/"); dirErr == nil && dir != nil {
			return nil, &atomfeed.StorageError{Bucket: a.sourceBucket, Key: key, Op: "stat", Err: atomfeed.ErrNotAFile}
		}
	}
	if err != nil {
		return nil, &atomfeed.StorageError{Bucket: a.sourceBucket, Key: key, Op: "stat", Err: err}
	}
	if meta == nil {
		return nil, &atomfeed.StorageError{Bucket: a.sourceBucket, Key: key, Op: "stat", Err: atomfeed.ErrObjectNotFound}
	}
	if meta.IsDir {
		return nil, &atomfeed.StorageError{Bucket: a.sourceBucket, Key: key, Op: "stat", Err: atomfeed.ErrNotAFile}
	}
	return meta, nil
}

// Size returns the size in bytes of a source file.
func (a *Accessor) Size(ctx context.Context, filename string) (int64, error) {
	meta, err := a.Stat(ctx, filename)
	if err != nil {
		return 0, err
	}
	a.logger.Debug("resolved object size", "bucket", a.sourceBucket, "key", meta.Key, "size", meta.Size)
	return meta.Size, nil
}

// LastModified returns the last-modified time of a source file formatted
// like every feed timestamp.
func (a *Accessor) LastModified(ctx context.Context, filename string) (string, error) {
	meta, err := a.Stat(ctx, filename)
	if err != nil {
		return "", err
	}
	return meta.LastModified.UTC().Format(atomfeed.TimestampLayout), nil
}

// MediaType resolves the media type of a source file, inspecting zip
// archives.
func (a *Accessor) MediaType(ctx context.Context, filename string) (string, error) {
	mediaType, err := a.resolver.Resolve(ctx, filename)
	if err != nil {
		return "", err
	}
	a.logger.Debug("resolved media type", "filename", filename, "media_type", mediaType)
	return mediaType, nil
}

// InspectZip returns the single checklist extension found among the members
// of a zip in the source bucket. Only the central directory is read, through
// a pre-signed URL valid for PresignExpiry.
func (a *Accessor) InspectZip(ctx context.Context, filename string) (string, error) {
	key := a.Key(filename)
	url, err := a.store.PresignGetObject(ctx, a.sourceBucket, key, PresignExpiry)
	if err != nil {
		return "", &atomfeed.StorageError{Bucket: a.sourceBucket, Key: key, Op: "presign",
			Err: fmt.Errorf("%w: %v", atomfeed.ErrArchiveUnavailable, err)}
	}

	names, err := remotezip.List(ctx, a.httpClient, url)
	if err != nil {
		return "", &atomfeed.StorageError{Bucket: a.sourceBucket, Key: key, Op: "list zip", Err: err}
	}

	ext, err := remotezip.Classify(names, remotezip.Checklist)
	if err != nil {
		return "", &atomfeed.StorageError{Bucket: a.sourceBucket, Key: key, Op: "inspect zip", Err: err}
	}
	return ext, nil
}

// The methods below serve the legacy destination bucket.

func (a *Accessor) requireDestination() error {
	if !a.CopyMode() {
		return atomfeed.ErrNoDestination
	}
	return nil
}

// destinationDir is the listing prefix of the destination folder. The
// trailing slash keeps sibling folders sharing the name as prefix out.
func (a *Accessor) destinationDir() string {
	return a.destinationPrefix + "/"
}

// Exists reports whether any object exists below the destination prefix.
func (a *Accessor) Exists(ctx context.Context) (bool, error) {
	if err := a.requireDestination(); err != nil {
		return false, err
	}
	objects, err := a.store.ListObjects(ctx, a.destinationBucket, a.destinationDir())
	if err != nil {
		return false, &atomfeed.StorageError{Bucket: a.destinationBucket, Key: a.destinationDir(), Op: "list", Err: err}
	}
	return len(objects) > 0, nil
}

// Clear removes every object below the destination prefix.
func (a *Accessor) Clear(ctx context.Context) error {
	if err := a.requireDestination(); err != nil {
		return err
	}
	objects, err := a.store.ListObjects(ctx, a.destinationBucket, a.destinationDir())
	if err != nil {
		return &atomfeed.StorageError{Bucket: a.destinationBucket, Key: a.destinationDir(), Op: "list", Err: err}
	}
	for _, obj := range objects {
		if err := a.store.RemoveObject(ctx, a.destinationBucket, obj.Key); err != nil {
			return &atomfeed.StorageError{Bucket: a.destinationBucket, Key: obj.Key, Op: "remove", Err: err}
		}
	}
	a.logger.Info("cleared destination", "bucket", a.destinationBucket, "prefix", a.destinationPrefix, "objects", len(objects))
	return nil
}

// Copy copies a source file to the destination, below an optional extra
// folder.
func (a *Accessor) Copy(ctx context.Context, filename, folder string) error {
	if err := a.requireDestination(); err != nil {
		return err
	}
	src := atomfeed.ObjectRef{Bucket: a.sourceBucket, Key: a.Key(filename)}
	dst := atomfeed.ObjectRef{Bucket: a.destinationBucket, Key: utils.BuildURI(false, a.destinationPrefix, folder, filename)}
	if err := a.store.CopyObject(ctx, dst, src); err != nil {
		return &atomfeed.StorageError{Bucket: dst.Bucket, Key: dst.Key, Op: "copy from " + src.String(), Err: err}
	}
	return nil
}

// CopyDownload copies a download into the destination downloads folder,
// flattened to its basename to match the published download URL.
func (a *Accessor) CopyDownload(ctx context.Context, filename string) error {
	if err := a.requireDestination(); err != nil {
		return err
	}
	src := atomfeed.ObjectRef{Bucket: a.sourceBucket, Key: a.Key(filename)}
	dst := atomfeed.ObjectRef{Bucket: a.destinationBucket, Key: utils.BuildURI(false, a.destinationPrefix, DownloadsFolder, path.Base(filename))}
	if err := a.store.CopyObject(ctx, dst, src); err != nil {
		return &atomfeed.StorageError{Bucket: dst.Bucket, Key: dst.Key, Op: "copy from " + src.String(), Err: err}
	}
	return nil
}

// Write stores content in the destination under name, typed by its
// extension.
func (a *Accessor) Write(ctx context.Context, name string, content []byte) error {
	if err := a.requireDestination(); err != nil {
		return err
	}
	key := utils.BuildURI(false, a.destinationPrefix, name)
	contentType, err := a.resolver.ResolveOrDefault(ctx, name, mediatype.DefaultContentType)
	if err != nil {
		contentType = mediatype.DefaultContentType
	}
	if err := a.store.PutObject(ctx, a.destinationBucket, key, bytes.NewReader(content), contentType); err != nil {
		return &atomfeed.StorageError{Bucket: a.destinationBucket, Key: key, Op: "put", Err: err}
	}
	return nil
}

func (a *Accessor) String() string {
	return fmt.Sprintf("source %s/%s, destination %s/%s",
		a.sourceBucket, a.sourcePrefix, a.destinationBucket, a.destinationPrefix)
}
