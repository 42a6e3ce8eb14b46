package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"inquest/internal/store"
)

// DefaultWebSnapshotTimeout bounds a single page capture.
const DefaultWebSnapshotTimeout = 30 * time.Second

// WebSnapshotCollector captures a rendered web page (title + outer HTML)
// through a headless browser. Useful when the page under investigation is
// built client-side and a plain HTTP fetch would miss the content.
type WebSnapshotCollector struct {
	URL     string
	Timeout time.Duration
}

func (c WebSnapshotCollector) Collect(ctx context.Context) (*store.Evidence, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("web snapshot: empty url")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultWebSnapshotTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var title, html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(c.URL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", c.URL, err)
	}

	ev := newEvidence(store.EvidenceWebSnapshot, c.URL, "web")
	ev.Content = map[string]any{
		"title": title,
		"html":  html,
	}
	ev.Metadata.Size = int64(len(html))
	ev.Metadata.Checksum = checksum([]byte(html))
	return ev, nil
}
