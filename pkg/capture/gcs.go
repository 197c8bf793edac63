/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: gcs.go
Description: GCSSource reads captures from Google Cloud Storage objects under a
gs://bucket/prefix location.
*/

package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSSource lists objects under a bucket prefix and decodes each one
type GCSSource struct {
	Bucket      string
	Prefix      string
	Format      string
	Credentials string
	MaxSize     int64

	// ClientOptions are appended when creating the storage client.
	ClientOptions []option.ClientOption
}

// ParseGCSURI splits gs://bucket/prefix.
func ParseGCSURI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, uri)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in %s", uri)
	}
	return bucket, prefix, nil
}

// NewGCSSource creates a source for a gs:// URI. An empty credentials path uses
// unauthenticated access, which works for public buckets.
func NewGCSSource(uri, format, credentials string, maxSize int64) (*GCSSource, error) {
	bucket, prefix, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	return &GCSSource{
		Bucket:      bucket,
		Prefix:      prefix,
		Format:      format,
		Credentials: credentials,
		MaxSize:     maxSize,
	}, nil
}

func (g *GCSSource) Name() string { return "gcs" }

func (g *GCSSource) Description() string {
	return fmt.Sprintf("%s captures from gs://%s/%s", formatName(g.Format), g.Bucket, g.Prefix)
}

func (g *GCSSource) clientOptions() []option.ClientOption {
	opts := make([]option.ClientOption, 0, len(g.ClientOptions)+1)
	if g.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(g.Credentials))
	} else {
		opts = append(opts, option.WithoutAuthentication())
	}
	return append(opts, g.ClientOptions...)
}

// Fetch reads every object under the prefix in listing order.
func (g *GCSSource) Fetch(ctx context.Context) ([]*Capture, error) {
	client, err := storage.NewClient(ctx, g.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	defer client.Close()

	bucket := client.Bucket(g.Bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: g.Prefix})

	dedup := newDeduper()
	var out []*Capture
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", g.Bucket, g.Prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		raw, err := g.read(ctx, bucket, attrs.Name)
		if err != nil {
			return nil, err
		}
		origin := fmt.Sprintf("gs://%s/%s", g.Bucket, attrs.Name)
		payloads, err := Decode(g.Format, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", origin, err)
		}
		for i, p := range payloads {
			o := origin
			if len(payloads) > 1 {
				o = fmt.Sprintf("%s#%d", origin, i)
			}
			if c := New(g.Name(), o, p); dedup.unique(c) {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (g *GCSSource) read(ctx context.Context, bucket *storage.BucketHandle, name string) ([]byte, error) {
	r, err := bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", g.Bucket, name, err)
	}
	defer r.Close()
	data, err := readLimited(r, g.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("gs://%s/%s: %w", g.Bucket, name, err)
	}
	return data, nil
}
