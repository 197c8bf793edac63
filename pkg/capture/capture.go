/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: capture.go
Description: Capture sources for protodec. A Source fetches raw buffers that may contain
serialized protobuf messages: files, HTTP endpoints, cloud storage objects, HTML pages and
live browser traffic. Every buffer becomes a Capture with a stable sha256 digest.
*/

package capture

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedScheme is returned for source URIs no Source understands.
	ErrUnsupportedScheme = errors.New("capture: unsupported source scheme")
	// ErrUnsupportedFormat is returned for an unknown payload encoding.
	ErrUnsupportedFormat = errors.New("capture: unsupported format")
	// ErrTooLarge is returned when a payload exceeds the configured size cap.
	ErrTooLarge = errors.New("capture: payload exceeds size limit")
)

// Source fetches captures from one place
type Source interface {
	Name() string
	Description() string
	Fetch(ctx context.Context) ([]*Capture, error)
}

// Capture is one raw buffer and where it came from
type Capture struct {
	ID     uuid.UUID `json:"id" yaml:"id"`
	Source string    `json:"source" yaml:"source"`
	Origin string    `json:"origin" yaml:"origin"`
	Data   []byte    `json:"-" yaml:"-"`
	Digest string    `json:"digest" yaml:"digest"`
}

// New wraps data as a capture from source, located at origin.
func New(source, origin string, data []byte) *Capture {
	return &Capture{
		ID:     uuid.New(),
		Source: source,
		Origin: origin,
		Data:   data,
		Digest: Digest(data),
	}
}

// Size is the capture length in bytes.
func (c *Capture) Size() int { return len(c.Data) }

// Digest returns the hex sha256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// deduper drops captures whose digest was already seen
type deduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newDeduper() *deduper {
	return &deduper{seen: make(map[string]struct{})}
}

func (d *deduper) unique(c *Capture) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[c.Digest]; ok {
		return false
	}
	d.seen[c.Digest] = struct{}{}
	return true
}

func isHTTP(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// readLimited reads all of r, failing with ErrTooLarge past max bytes. max <= 0 disables the cap.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	return data, nil
}

// fetchHTTP GETs url and returns the body.
func fetchHTTP(ctx context.Context, client *http.Client, url string, max int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return readLimited(resp.Body, max)
}
