package portal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"satcerts/internal/logging"
	"satcerts/internal/services"
)

// BrowserConfig holds Chrome launch settings.
type BrowserConfig struct {
	Binary       string
	Headless     bool
	WindowWidth  int
	WindowHeight int
	UserAgent    string
}

// Browser owns the Chrome process for a run. Tabs created through NewTab
// share the process; losing the process invalidates them all.
type Browser struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        *slog.Logger
}

// StartBrowser launches Chrome and verifies it answers.
func StartBrowser(ctx context.Context, cfg BrowserConfig, logger *slog.Logger) (*Browser, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "portal")

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "es-MX,es"),
	)
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.Binary != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Binary))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, services.Wrap(services.ErrBrowserLost, "portal", "start", "failed to start browser", err)
	}

	logger.Info("browser started",
		logging.Bool("headless", cfg.Headless),
		logging.String("binary", cfg.Binary))

	return &Browser{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// Alive reports whether the Chrome process is still reachable.
func (b *Browser) Alive() bool {
	return b.browserCtx.Err() == nil
}

// NewTab opens a fresh tab and returns a Driver bound to it. Failure here
// means the browser itself is gone, not the page.
func (b *Browser) NewTab(ctx context.Context) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.browserCtx.Err(); err != nil {
		return nil, services.Wrap(services.ErrBrowserLost, "portal", "new_tab", "browser process is gone", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, services.Wrap(services.ErrBrowserLost, "portal", "new_tab", "failed to open tab", err)
	}
	return &tabDriver{ctx: tabCtx, cancel: tabCancel}, nil
}

// Close shuts the browser down and releases the allocator.
func (b *Browser) Close() error {
	var err error
	if b.browserCtx.Err() == nil {
		err = chromedp.Cancel(b.browserCtx)
	}
	b.browserCancel()
	b.allocCancel()
	return err
}

// tabDriver implements Driver over a chromedp tab context.
type tabDriver struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab while honoring the caller's deadline and
// cancellation. chromedp actions must run on the tab context, so the two
// contexts are bridged here.
func (d *tabDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		runCtx, dcancel = context.WithDeadline(runCtx, deadline)
		defer dcancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (d *tabDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *tabDriver) Reload(ctx context.Context) error {
	return d.run(ctx, chromedp.Reload())
}

func (d *tabDriver) Exists(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	err := d.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (d *tabDriver) Clear(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.Clear(selector, chromedp.ByQuery))
}

func (d *tabDriver) SendKeys(ctx context.Context, selector, text string) error {
	return d.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (d *tabDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (d *tabDriver) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	err := d.run(ctx, chromedp.Screenshot(selector, &buf, chromedp.NodeVisible, chromedp.ByQuery))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *tabDriver) HTML(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", err
	}
	return html, nil
}

func (d *tabDriver) Close() error {
	defer d.cancel()
	if d.ctx.Err() != nil {
		return nil
	}
	return chromedp.Cancel(d.ctx)
}
