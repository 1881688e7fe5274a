package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"slices"

	"github.com/otiai10/gosseract/v2"
)

// Engine wraps Tesseract for card recognition. A card is one uniform block
// of text, so clients run in single-block page segmentation mode rather
// than full page analysis.
type Engine struct {
	languages      []string
	tessdataPrefix string
	logger         *slog.Logger
}

// NewEngine verifies the Tesseract installation and the requested language
// models up front. A missing engine or model is a configuration error and
// must never surface mid-batch.
func NewEngine(languages []string, tessdataPrefix string, logger *slog.Logger) (*Engine, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	available, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("tesseract unavailable: %w", err)
	}
	for _, lang := range languages {
		if !slices.Contains(available, lang) {
			return nil, fmt.Errorf("language model %q not installed (available: %v)", lang, available)
		}
	}

	e := &Engine{
		languages:      languages,
		tessdataPrefix: tessdataPrefix,
		logger:         logger.With("component", "ocr"),
	}

	// Exercise a full client lifecycle once so init failures abort the run
	// before any card is processed.
	client, err := e.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return e, nil
}

// Recognize runs OCR over a preprocessed card image and returns the raw
// text. Per-card recognition problems degrade to empty text; only startup
// configuration can fail this adapter.
func (e *Engine) Recognize(img image.Image) string {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		e.logger.Warn("failed to encode image for recognition", "error", err)
		return ""
	}

	client, err := e.newClient()
	if err != nil {
		e.logger.Warn("failed to create ocr client", "error", err)
		return ""
	}
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		e.logger.Warn("failed to set image", "error", err)
		return ""
	}

	text, err := client.Text()
	if err != nil {
		e.logger.Warn("recognition failed, treating as empty", "error", err)
		return ""
	}
	return text
}

func (e *Engine) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(e.languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set languages %v: %w", e.languages, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	return client, nil
}
