package atomfeed

import (
	"context"
	"io"
	"time"
)

// ObjectStore defines the interface for object storage backends. A single
// store serves every bucket, the way an S3 client does.
type ObjectStore interface {
	// StatObject retrieves metadata for an object
	StatObject(ctx context.Context, bucket, key string) (*ObjectMeta, error)

	// PresignGetObject returns a time-boxed URL for reading an object
	PresignGetObject(ctx context.Context, bucket, key string, expires time.Duration) (string, error)

	// ListObjects lists all objects below prefix, recursively
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectMeta, error)

	// PutObject stores content under key
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, contentType string) error

	// CopyObject copies an object server side
	CopyObject(ctx context.Context, dst, src ObjectRef) error

	// RemoveObject deletes an object
	RemoveObject(ctx context.Context, bucket, key string) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
	IsDir        bool
}

// ObjectRef addresses an object in a bucket
type ObjectRef struct {
	Bucket string
	Key    string
}

func (r ObjectRef) String() string {
	return r.Bucket + "/" + r.Key
}

// Source answers the storage-backed derived fields of a download. The
// filename is relative to the source prefix.
type Source interface {
	Size(ctx context.Context, filename string) (int64, error)
	MediaType(ctx context.Context, filename string) (string, error)
}

// Destination receives rendered documents and static assets.
type Destination interface {
	Write(ctx context.Context, name string, content []byte) error
}

// BucketDestination is the legacy object-store sink: besides the documents
// it receives copies of every download.
type BucketDestination interface {
	Destination

	// Exists reports whether the destination already holds objects
	Exists(ctx context.Context) (bool, error)

	// Clear removes everything below the destination
	Clear(ctx context.Context) error

	// CopyDownload copies a source file into the destination downloads folder
	CopyDownload(ctx context.Context, filename string) error
}

// Renderer substitutes a view into a text template.
type Renderer interface {
	Render(template string, view any) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(template string, view any) (string, error)

func (f RendererFunc) Render(template string, view any) (string, error) {
	return f(template, view)
}
