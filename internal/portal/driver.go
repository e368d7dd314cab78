package portal

import "context"

// Driver abstracts the browser tab operations a Session performs. The
// production implementation is a chromedp tab; tests substitute a fake.
type Driver interface {
	// Navigate loads url in the tab.
	Navigate(ctx context.Context, url string) error
	// Reload reloads the current page.
	Reload(ctx context.Context) error
	// Exists reports whether at least one element matches selector.
	Exists(ctx context.Context, selector string) (bool, error)
	// Clear empties the first element matching selector.
	Clear(ctx context.Context, selector string) error
	// SendKeys types text into the first element matching selector.
	SendKeys(ctx context.Context, selector, text string) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// ElementScreenshot captures the first element matching selector as PNG.
	ElementScreenshot(ctx context.Context, selector string) ([]byte, error)
	// HTML returns the current page's full markup.
	HTML(ctx context.Context) (string, error)
	// Close releases the tab. Safe to call once per driver.
	Close() error
}
