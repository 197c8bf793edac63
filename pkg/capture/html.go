/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: html.go
Description: HTMLSource extracts base64 protobuf blobs embedded in HTML pages, either
as data-protobuf / data-pb attributes or as application/x-protobuf script bodies.
*/

package capture

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Attributes and script types that carry embedded payloads.
var (
	htmlAttributes  = []string{"data-protobuf", "data-pb"}
	htmlScriptTypes = []string{"application/x-protobuf", "application/protobuf"}
)

// HTMLSource reads a page from a file or URL
type HTMLSource struct {
	Location string
	Timeout  time.Duration
	MaxSize  int64
}

func NewHTMLSource(location string, timeout time.Duration, maxSize int64) *HTMLSource {
	return &HTMLSource{Location: location, Timeout: timeout, MaxSize: maxSize}
}

func (h *HTMLSource) Name() string { return "html" }

func (h *HTMLSource) Description() string {
	return fmt.Sprintf("embedded protobuf blobs in %s", h.Location)
}

// Fetch loads the page and extracts every blob in document order.
func (h *HTMLSource) Fetch(ctx context.Context) ([]*Capture, error) {
	var page []byte
	var err error
	if isHTTP(h.Location) {
		page, err = fetchHTTP(ctx, &http.Client{Timeout: h.Timeout}, h.Location, h.MaxSize)
	} else {
		page, err = os.ReadFile(h.Location)
	}
	if err != nil {
		return nil, err
	}
	return h.Extract(page)
}

// Extract parses page and returns its embedded captures.
func (h *HTMLSource) Extract(page []byte) ([]*Capture, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	dedup := newDeduper()
	var out []*Capture
	var firstErr error
	add := func(origin, text string) {
		b, err := DecodeBase64(text)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", origin, err)
			}
			return
		}
		if c := New(h.Name(), origin, b); dedup.unique(c) {
			out = append(out, c)
		}
	}

	selectors := make([]string, 0, len(htmlAttributes)+len(htmlScriptTypes))
	for _, a := range htmlAttributes {
		selectors = append(selectors, "["+a+"]")
	}
	for _, t := range htmlScriptTypes {
		selectors = append(selectors, fmt.Sprintf(`script[type="%s"]`, t))
	}

	doc.Find(strings.Join(selectors, ", ")).Each(func(i int, s *goquery.Selection) {
		origin := fmt.Sprintf("%s#%s[%d]", h.Location, goquery.NodeName(s), i)
		for _, a := range htmlAttributes {
			if v, ok := s.Attr(a); ok {
				add(origin, v)
				return
			}
		}
		add(origin, s.Text())
	})

	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
