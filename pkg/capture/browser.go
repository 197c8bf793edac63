/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: browser.go
Description: BrowserSource drives headless Chrome with chromedp, loads a page and captures
the bodies of protobuf and gRPC-web network responses it triggers.
*/

package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserSource records protobuf responses made by a page
type BrowserSource struct {
	URL     string
	Timeout time.Duration
	// Settle is how long to keep listening after the page loads.
	Settle  time.Duration
	MaxSize int64

	AllocatorOptions []chromedp.ExecAllocatorOption
}

func NewBrowserSource(url string, timeout time.Duration, maxSize int64) *BrowserSource {
	return &BrowserSource{
		URL:              url,
		Timeout:          timeout,
		Settle:           2 * time.Second,
		MaxSize:          maxSize,
		AllocatorOptions: chromedp.DefaultExecAllocatorOptions[:],
	}
}

func (b *BrowserSource) Name() string { return "browser" }

func (b *BrowserSource) Description() string {
	return fmt.Sprintf("protobuf network responses from %s", b.URL)
}

type observedResponse struct {
	id       network.RequestID
	url      string
	mimeType string
}

// Fetch navigates to URL and returns every captured response payload.
func (b *BrowserSource) Fetch(ctx context.Context) ([]*Capture, error) {
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.AllocatorOptions...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var mu sync.Mutex
	var responses []observedResponse
	finished := make(map[network.RequestID]bool)

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		mu.Lock()
		defer mu.Unlock()
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if IsProtobufMIME(e.Response.MimeType) {
				responses = append(responses, observedResponse{
					id:       e.RequestID,
					url:      e.Response.URL,
					mimeType: e.Response.MimeType,
				})
			}
		case *network.EventLoadingFinished:
			finished[e.RequestID] = true
		}
	})

	if err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(b.URL),
		chromedp.Sleep(b.Settle),
	); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", b.URL, err)
	}

	mu.Lock()
	pending := make([]observedResponse, 0, len(responses))
	for _, r := range responses {
		if finished[r.id] {
			pending = append(pending, r)
		}
	}
	mu.Unlock()

	dedup := newDeduper()
	var out []*Capture
	for _, r := range pending {
		var body []byte
		err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			body, err = network.GetResponseBody(r.id).Do(ctx)
			return err
		}))
		if err != nil {
			// Bodies can be evicted from the browser cache before we ask.
			continue
		}
		if b.MaxSize > 0 && int64(len(body)) > b.MaxSize {
			continue
		}
		payloads, err := Unframe(r.mimeType, body)
		if err != nil && len(payloads) == 0 {
			continue
		}
		for i, p := range payloads {
			origin := r.url
			if len(payloads) > 1 {
				origin = fmt.Sprintf("%s#%d", r.url, i)
			}
			if c := New(b.Name(), origin, p); dedup.unique(c) {
				out = append(out, c)
			}
		}
	}
	return out, nil
}
