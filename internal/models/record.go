package models

import (
	"image"
	"path/filepath"
	"strings"
	"time"
)

// KeyType identifies which field a record's identity key was derived from.
type KeyType string

const (
	KeyTypeASIN      KeyType = "asin"
	KeyTypeImageFile KeyType = "image_file"
)

// SourceTag marks all records produced by this scraper.
const SourceTag = "amazon_in_cards"

// CardCapture is one product card as captured from a search results page:
// the screenshot plus its provenance. The ASIN may be empty when the card
// carries no data-asin attribute.
type CardCapture struct {
	Image     image.Image
	ImagePath string
	Page      int
	Index     int
	ASIN      string
	Query     string
}

// ImageFile returns the screenshot's base filename.
func (c *CardCapture) ImageFile() string {
	if c.ImagePath == "" {
		return ""
	}
	return filepath.Base(c.ImagePath)
}

// ExtractedFields holds the structured fields parsed from OCR text. Any
// field may be empty; absence of a value is never an error.
type ExtractedFields struct {
	Title   string
	Price   string
	Rating  string
	Reviews string
	RawText string
}

// Record is the persisted document for one qualifying card.
type Record struct {
	IdentityKey string    `json:"identity_key"`
	KeyType     KeyType   `json:"key_type"`
	ASIN        string    `json:"asin"`
	Query       string    `json:"query"`
	Page        int       `json:"page"`
	Index       int       `json:"index"`
	ImageFile   string    `json:"image_file"`
	ImagePath   string    `json:"image_path"`
	Title       string    `json:"title"`
	Price       string    `json:"price"`
	Rating      string    `json:"rating"`
	Reviews     string    `json:"reviews"`
	RawText     string    `json:"raw_text"`
	SourceTag   string    `json:"source_tag"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IdentityKeyFor selects the deduplication key for a card. The ASIN wins
// when present because it is stable across repeated captures of the same
// product; the screenshot filename is only stable within a single run.
func IdentityKeyFor(asin, imageFile string) (string, KeyType) {
	if a := strings.ToUpper(strings.TrimSpace(asin)); a != "" {
		return a, KeyTypeASIN
	}
	return imageFile, KeyTypeImageFile
}

// NewRecord assembles the canonical record for a capture and its extracted
// fields. Timestamps are owned by the store.
func NewRecord(capture *CardCapture, fields ExtractedFields) *Record {
	key, keyType := IdentityKeyFor(capture.ASIN, capture.ImageFile())

	return &Record{
		IdentityKey: key,
		KeyType:     keyType,
		ASIN:        strings.ToUpper(strings.TrimSpace(capture.ASIN)),
		Query:       capture.Query,
		Page:        capture.Page,
		Index:       capture.Index,
		ImageFile:   capture.ImageFile(),
		ImagePath:   capture.ImagePath,
		Title:       fields.Title,
		Price:       fields.Price,
		Rating:      fields.Rating,
		Reviews:     fields.Reviews,
		RawText:     fields.RawText,
		SourceTag:   SourceTag,
	}
}
