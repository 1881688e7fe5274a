package extract

import (
	"regexp"
	"strings"

	"github.com/harshdev/amazon-gpu-scraper/internal/models"
)

// Options are the tunables of the title-selection heuristic.
type Options struct {
	// TitleScanWindow is how many non-empty lines from the top of the OCR
	// text are considered as title candidates.
	TitleScanWindow int
	// MinTitleLength is the shortest line accepted as a title.
	MinTitleLength int
}

// DefaultOptions returns the tuning used in production runs.
func DefaultOptions() Options {
	return Options{
		TitleScanWindow: 15,
		MinTitleLength:  10,
	}
}

// Extractor parses raw OCR text into structured fields. All matchers are
// tolerant: malformed input yields empty fields, never an error.
type Extractor struct {
	opts      Options
	priceRe   *regexp.Regexp
	ratingRe  *regexp.Regexp
	reviewsRe *regexp.Regexp
}

func New(opts Options) *Extractor {
	if opts.TitleScanWindow < 1 {
		opts.TitleScanWindow = DefaultOptions().TitleScanWindow
	}
	if opts.MinTitleLength < 1 {
		opts.MinTitleLength = DefaultOptions().MinTitleLength
	}
	return &Extractor{
		opts: opts,
		// Currency-prefixed digit run, or a bare digit run with at least
		// one thousands separator.
		priceRe:   regexp.MustCompile(`(₹\s?\d[\d,]*|\b\d{1,3}(?:,\d{3})+\b)`),
		ratingRe:  regexp.MustCompile(`(?i)(\d(?:\.\d)?)\s*out\s*of\s*5`),
		reviewsRe: regexp.MustCompile(`(?i)(\d[\d,]*)\s*(?:ratings|rating|reviews|review)`),
	}
}

// Extract parses text into fields. It is a pure function of its input:
// identical text always yields identical fields.
func (e *Extractor) Extract(text string) models.ExtractedFields {
	return models.ExtractedFields{
		Title:   e.extractTitle(text),
		Price:   e.extractPrice(text),
		Rating:  e.extractRating(text),
		Reviews: e.extractReviews(text),
		RawText: text,
	}
}

func (e *Extractor) extractPrice(text string) string {
	m := e.priceRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	// OCR often splits the currency symbol from the digits.
	return strings.ReplaceAll(m[1], " ", "")
}

func (e *Extractor) extractRating(text string) string {
	m := e.ratingRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func (e *Extractor) extractReviews(text string) string {
	m := e.reviewsRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// extractTitle picks the longest line near the top of the text that is long
// enough to be a product title. Lines matching the price or rating patterns
// are noise (they are short, recognizable fragments of the card), so they
// are excluded before the length comparison.
func (e *Extractor) extractTitle(text string) string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) > e.opts.TitleScanWindow {
		lines = lines[:e.opts.TitleScanWindow]
	}

	title := ""
	for _, ln := range lines {
		if e.priceRe.MatchString(ln) {
			continue
		}
		if e.ratingRe.MatchString(ln) {
			continue
		}
		if len(ln) > len(title) && len(ln) >= e.opts.MinTitleLength {
			title = ln
		}
	}
	return title
}
