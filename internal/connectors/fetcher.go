package connectors

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Fetcher loads an HTML page
type Fetcher interface {
	Fetch(ctx context.Context, source, url string) ([]byte, error)
}

// HTTPFetcher loads pages with a plain GET
type HTTPFetcher struct {
	Client *Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, source, url string) ([]byte, error) {
	return f.Client.Get(ctx, source, url, "text/html")
}

// BrowserFetcher loads pages in headless Chrome so that client side
// rendered listings carry their data scripts.
type BrowserFetcher struct {
	Headless bool
	// WaitSelector is awaited before the page is read; empty waits for body
	WaitSelector string
	Timeout      time.Duration
}

func (f BrowserFetcher) Fetch(ctx context.Context, source, url string) ([]byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	wait := f.WaitSelector
	if wait == "" {
		wait = "body"
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", f.Headless))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var page string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(wait, chromedp.ByQuery),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, classify(source, ctx.Err())
		}
		return nil, classify(source, err)
	}
	return []byte(page), nil
}
