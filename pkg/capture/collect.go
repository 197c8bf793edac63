/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: collect.go
Description: Builds capture sources from configured URIs and fetches them concurrently,
deduplicating captures by digest while keeping source order.
*/

package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kleascm/protodec/pkg/config"
	"github.com/kleascm/protodec/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentSources bounds parallel fetches.
const maxConcurrentSources = 8

// BuildSource maps one URI to a Source.
//
//	gs://bucket/prefix          GCSSource
//	browser+https://host/page   BrowserSource
//	html+https://host/page      HTMLSource over HTTP
//	html:path/to/page.html      HTMLSource over a local file
//	https://host/blob, path     FileSource
func BuildSource(uri string, cfg config.CaptureConfig) (Source, error) {
	switch {
	case strings.HasPrefix(uri, "gs://"):
		return NewGCSSource(uri, cfg.Format, cfg.Credentials, cfg.MaxSize)
	case strings.HasPrefix(uri, "browser+"):
		target := strings.TrimPrefix(uri, "browser+")
		if !isHTTP(target) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, uri)
		}
		return NewBrowserSource(target, cfg.Timeout, cfg.MaxSize), nil
	case strings.HasPrefix(uri, "html+"):
		target := strings.TrimPrefix(uri, "html+")
		if !isHTTP(target) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, uri)
		}
		return NewHTMLSource(target, cfg.Timeout, cfg.MaxSize), nil
	case strings.HasPrefix(uri, "html:"):
		return NewHTMLSource(strings.TrimPrefix(uri, "html:"), cfg.Timeout, cfg.MaxSize), nil
	case isHTTP(uri):
		return NewFileSource(uri, cfg.Format, cfg.Timeout, cfg.MaxSize), nil
	case strings.Contains(uri, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, uri)
	default:
		return NewFileSource(uri, cfg.Format, cfg.Timeout, cfg.MaxSize), nil
	}
}

// BuildSources builds a Source for every configured URI.
func BuildSources(cfg config.CaptureConfig) ([]Source, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no capture sources configured")
	}
	sources := make([]Source, 0, len(cfg.Sources))
	for _, uri := range cfg.Sources {
		src, err := BuildSource(uri, cfg)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Collect fetches every source concurrently. Failed sources are logged and skipped;
// their errors are joined into the returned error alongside whatever was collected.
func Collect(ctx context.Context, sources []Source, log *logging.Logger) ([]*Capture, error) {
	if log == nil {
		log = logging.Default()
	}

	results := make([][]*Capture, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(maxConcurrentSources)
	for i, src := range sources {
		g.Go(func() error {
			caps, err := src.Fetch(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Description(), err)
				log.Error("Capture source failed", map[string]interface{}{
					"source": src.Name(),
					"error":  err.Error(),
				})
				return nil
			}
			results[i] = caps
			return nil
		})
	}
	g.Wait()

	dedup := newDeduper()
	var out []*Capture
	for _, caps := range results {
		for _, c := range caps {
			if dedup.unique(c) {
				out = append(out, c)
				log.LogCapture(c.ID.String(), c.Source, c.Size(), map[string]interface{}{"origin": c.Origin})
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, errors.Join(errs...)
}
