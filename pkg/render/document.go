// Package render adapts markup into fixed-layout documents and raster images.
package render

import (
	"context"
	"fmt"
	"io"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DocumentRenderer turns final markup (plus an optional stylesheet) into a
// single-page, fixed-layout PDF document.
type DocumentRenderer interface {
	RenderDocument(ctx context.Context, markup, stylesheet string) ([]byte, error)
}

// DocumentRenderError reports a layout failure. Fatal for the generation
// attempt; never retried.
type DocumentRenderError struct {
	Err error
}

func (e *DocumentRenderError) Error() string {
	return fmt.Sprintf("document render failed: %v", e.Err)
}

func (e *DocumentRenderError) Unwrap() error { return e.Err }

// ChromiumRenderer prints markup to PDF through a shared headless Chromium
// instance. Each render runs in its own page, so the renderer is safe for
// concurrent use.
type ChromiumRenderer struct {
	browser *rod.Browser
}

// NewChromiumRenderer launches a headless browser. binPath overrides the
// Chromium binary location; leave empty to auto-resolve.
func NewChromiumRenderer(binPath string) (*ChromiumRenderer, error) {
	l := launcher.New().Headless(true).NoSandbox(true)
	if binPath != "" {
		l = l.Bin(binPath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to chromium: %w", err)
	}
	return &ChromiumRenderer{browser: browser}, nil
}

func (r *ChromiumRenderer) Close() error {
	return r.browser.Close()
}

func (r *ChromiumRenderer) RenderDocument(ctx context.Context, markup, stylesheet string) ([]byte, error) {
	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &DocumentRenderError{Err: err}
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.SetDocumentContent(markup); err != nil {
		return nil, &DocumentRenderError{Err: err}
	}
	if stylesheet != "" {
		js := `css => { const s = document.createElement("style"); s.textContent = css; document.head.appendChild(s); }`
		if _, err := page.Eval(js, stylesheet); err != nil {
			return nil, &DocumentRenderError{Err: err}
		}
	}
	if err := page.WaitLoad(); err != nil {
		return nil, &DocumentRenderError{Err: err}
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, &DocumentRenderError{Err: err}
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, &DocumentRenderError{Err: err}
	}
	return data, nil
}
