package citylookup

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source names accepted by Open.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourceMinio    = "minio"
	SourceGCS      = "gcs"
)

// ObjectGetter reads a single object from a bucket.
type ObjectGetter interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Options describe where Open should read the dataset from. Objects must be
// set when Source is an object store.
type Options struct {
	Source    string
	Path      string
	ObjectKey string
	Objects   ObjectGetter
}

// Open loads the table once from the configured source.
func Open(ctx context.Context, opts Options) (*Table, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Source)) {
	case "", SourceEmbedded:
		return Default()
	case SourceFile:
		if strings.TrimSpace(opts.Path) == "" {
			return nil, fmt.Errorf("city dataset path is required for source %q", SourceFile)
		}
		f, err := os.Open(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("open city dataset: %w", err)
		}
		defer f.Close()
		return Load(f)
	case SourceMinio, SourceGCS:
		if opts.Objects == nil {
			return nil, fmt.Errorf("object storage is not configured for source %q", opts.Source)
		}
		if strings.TrimSpace(opts.ObjectKey) == "" {
			return nil, fmt.Errorf("city dataset object key is required")
		}
		rc, err := opts.Objects.Get(ctx, opts.ObjectKey)
		if err != nil {
			return nil, fmt.Errorf("fetch city dataset %q: %w", opts.ObjectKey, err)
		}
		defer rc.Close()
		return Load(rc)
	default:
		return nil, fmt.Errorf("unknown city dataset source %q", opts.Source)
	}
}
