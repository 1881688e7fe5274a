package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/harshdev/amazon-gpu-scraper/internal/browser"
	"github.com/harshdev/amazon-gpu-scraper/internal/models"
)

const (
	cardSelector       = `div.s-result-item[data-component-type="s-search-result"]`
	nextPageSelector   = `a.s-pagination-next:not(.s-pagination-disabled)`
	resultWaitTimeout  = 25 * time.Second
	cookieClickTimeout = 1500 * time.Millisecond
)

var cookieSelectors = []string{
	"#sp-cc-accept",
	"input#sp-cc-accept",
	`button[name="accept"]`,
}

// Options configures a search-results collection.
type Options struct {
	Query        string
	Domain       string
	MaxPages     int
	CardsPerPage int
	OutputDir    string
	PageDelay    time.Duration
}

// Collector walks Amazon search result pages and yields one CardCapture per
// product card, screenshotting each card element as it goes. It implements
// pipeline.CardSource: captures for the current page are buffered and the
// next page is loaded lazily when the buffer drains.
type Collector struct {
	browser *browser.Browser
	opts    Options
	logger  *slog.Logger

	page     playwright.Page
	buffer   []*models.CardCapture
	nextPage int
	done     bool
}

func NewCollector(b *browser.Browser, opts Options, logger *slog.Logger) (*Collector, error) {
	if opts.Query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if opts.Domain == "" {
		opts.Domain = "www.amazon.in"
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.CardsPerPage < 1 {
		opts.CardsPerPage = 12
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "card_images"
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	return &Collector{
		browser:  b,
		opts:     opts,
		logger:   logger.With("component", "capture"),
		nextPage: 1,
	}, nil
}

// Next returns the next card capture, loading further result pages as
// needed. It returns io.EOF when all pages are exhausted or a block page
// was detected.
func (c *Collector) Next(ctx context.Context) (*models.CardCapture, error) {
	for len(c.buffer) == 0 {
		if c.done {
			return nil, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.loadNextPage(); err != nil {
			return nil, err
		}
	}

	capture := c.buffer[0]
	c.buffer = c.buffer[1:]
	return capture, nil
}

// Close releases the playwright page. The browser itself is owned by the
// caller.
func (c *Collector) Close() {
	if c.page != nil {
		_ = c.page.Close()
		c.page = nil
	}
}

func (c *Collector) loadNextPage() error {
	if c.nextPage > c.opts.MaxPages {
		c.done = true
		return nil
	}

	pageNum := c.nextPage
	c.nextPage++

	if c.page == nil {
		page, err := c.browser.NewPage()
		if err != nil {
			return fmt.Errorf("failed to create page: %w", err)
		}
		c.page = page

		searchURL := fmt.Sprintf("https://%s/s?k=%s", c.opts.Domain, url.QueryEscape(c.opts.Query))
		c.logger.Info("opening search", "url", searchURL)
		if err := c.browser.NavigateWithRetry(page, searchURL, 3); err != nil {
			return fmt.Errorf("failed to open search page: %w", err)
		}
		c.acceptCookies()
	} else {
		if !c.gotoNextPage() {
			c.logger.Info("no next page, collection finished", "last_page", pageNum-1)
			c.done = true
			return nil
		}
		time.Sleep(c.opts.PageDelay)
	}

	content, err := c.page.Content()
	if err != nil {
		return fmt.Errorf("failed to read page content: %w", err)
	}
	if IsBlocked(content) {
		c.logger.Warn("block/CAPTCHA page detected, stopping collection", "page", pageNum)
		c.done = true
		return nil
	}

	if _, err := c.page.WaitForSelector(cardSelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(resultWaitTimeout.Milliseconds())),
	}); err != nil {
		c.logger.Warn("timed out waiting for result cards, stopping", "page", pageNum, "error", err)
		c.done = true
		return nil
	}

	// Nudge lazy-loaded card content into view before screenshotting.
	if _, err := c.page.Evaluate(`window.scrollTo(0, document.body.scrollHeight * 0.25)`); err == nil {
		time.Sleep(time.Second)
	}

	captures, err := c.captureCards(pageNum)
	if err != nil {
		return err
	}

	c.logger.Info("page captured", "page", pageNum, "cards", len(captures))
	c.buffer = append(c.buffer, captures...)
	return nil
}

func (c *Collector) captureCards(pageNum int) ([]*models.CardCapture, error) {
	cards, err := c.page.Locator(cardSelector).All()
	if err != nil {
		return nil, fmt.Errorf("failed to locate cards: %w", err)
	}

	var captures []*models.CardCapture
	for _, card := range cards {
		if len(captures) >= c.opts.CardsPerPage {
			break
		}

		asin, _ := card.GetAttribute("data-asin")
		if asin == "" {
			continue
		}

		index := len(captures)
		imagePath := filepath.Join(c.opts.OutputDir,
			fmt.Sprintf("card_p%02d_%02d_%s.png", pageNum, index, asin))

		data, err := card.Screenshot(playwright.LocatorScreenshotOptions{
			Path: playwright.String(imagePath),
		})
		if err != nil {
			c.logger.Warn("card screenshot failed", "page", pageNum, "asin", asin, "error", err)
			continue
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			// Keep the capture; the pipeline re-reads the file and maps a
			// second failure to its unreadable-card outcome.
			c.logger.Warn("screenshot bytes not decodable", "asin", asin, "error", err)
			img = nil
		}

		captures = append(captures, &models.CardCapture{
			Image:     img,
			ImagePath: imagePath,
			Page:      pageNum,
			Index:     index,
			ASIN:      asin,
			Query:     c.opts.Query,
		})
	}

	return captures, nil
}

func (c *Collector) acceptCookies() {
	for _, sel := range cookieSelectors {
		btn := c.page.Locator(sel).First()
		count, err := btn.Count()
		if err != nil || count == 0 {
			continue
		}
		if err := btn.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(float64(cookieClickTimeout.Milliseconds())),
		}); err == nil {
			c.logger.Debug("cookie banner dismissed", "selector", sel)
			return
		}
	}
}

func (c *Collector) gotoNextPage() bool {
	next := c.page.Locator(nextPageSelector).First()
	count, err := next.Count()
	if err != nil || count == 0 {
		return false
	}

	if err := next.ScrollIntoViewIfNeeded(); err != nil {
		c.logger.Debug("failed to scroll to next link", "error", err)
	}
	if err := next.Click(); err != nil {
		c.logger.Info("next link not clickable", "error", err)
		return false
	}
	return true
}
