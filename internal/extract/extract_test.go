package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPrice(t *testing.T) {
	e := New(DefaultOptions())

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "rupee symbol with separators",
			text:     "ASUS ROG Strix\n₹64,990\n4.3 out of 5",
			expected: "₹64,990",
		},
		{
			name:     "space between symbol and digits is stripped",
			text:     "Deal of the day ₹ 54,999 only",
			expected: "₹54,999",
		},
		{
			name:     "bare digit run with separators",
			text:     "was listed at 1,23,456 last week",
			expected: "23,456",
		},
		{
			name:     "plain digits without separators do not match",
			text:     "model 4060 with 16GB",
			expected: "",
		},
		{
			name:     "no price",
			text:     "Gaming Laptop with RTX",
			expected: "",
		},
		{
			name:     "empty text",
			text:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := e.Extract(tt.text)
			assert.Equal(t, tt.expected, fields.Price)
		})
	}
}

func TestExtractRating(t *testing.T) {
	e := New(DefaultOptions())

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "decimal rating",
			text:     "4.3 out of 5 stars",
			expected: "4.3",
		},
		{
			name:     "integer rating",
			text:     "rated 5 out of 5",
			expected: "5",
		},
		{
			name:     "case and spacing tolerant",
			text:     "4.1  OUT  OF  5",
			expected: "4.1",
		},
		{
			name:     "no rating",
			text:     "₹64,990",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := e.Extract(tt.text)
			assert.Equal(t, tt.expected, fields.Rating)
		})
	}
}

func TestExtractReviews(t *testing.T) {
	e := New(DefaultOptions())

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "reviews with separators",
			text:     "1,204 ratings",
			expected: "1,204",
		},
		{
			name:     "singular form",
			text:     "1 review",
			expected: "1",
		},
		{
			name:     "case insensitive",
			text:     "2,381 Reviews",
			expected: "2,381",
		},
		{
			name:     "no reviews",
			text:     "4.3 out of 5",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := e.Extract(tt.text)
			assert.Equal(t, tt.expected, fields.Reviews)
		})
	}
}

func TestPriceAndReviewsDoNotCrossContaminate(t *testing.T) {
	e := New(DefaultOptions())

	fields := e.Extract("₹64,990\n1,23,456 reviews")

	assert.Equal(t, "₹64,990", fields.Price)
	assert.Equal(t, "1,23,456", fields.Reviews)
}

func TestExtractTitle(t *testing.T) {
	e := New(DefaultOptions())

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name: "longest non-price non-rating line wins",
			text: "Buy Now\n₹54,999\nASUS ROG Strix G15 Gaming Laptop (Ryzen 7, RTX 3060)\n4.3 out of 5",
			expected: "ASUS ROG Strix G15 Gaming Laptop (Ryzen 7, RTX 3060)",
		},
		{
			name:     "price-looking line is never a title",
			text:     "₹1,54,999 special price today only limited\nShort name",
			expected: "Short name",
		},
		{
			name:     "lines below the minimum length are skipped",
			text:     "Buy\nNow\nDeal",
			expected: "",
		},
		{
			name:     "empty text yields empty title",
			text:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := e.Extract(tt.text)
			assert.Equal(t, tt.expected, fields.Title)
		})
	}
}

func TestTitleScanWindowLimitsCandidates(t *testing.T) {
	e := New(Options{TitleScanWindow: 2, MinTitleLength: 10})

	// The long line sits on line 3, outside the window.
	fields := e.Extract("first line ok\nsecond line\nASUS ROG Strix G15 Gaming Laptop very long title line")

	assert.Equal(t, "first line ok", fields.Title)
}

func TestExtractIsDeterministic(t *testing.T) {
	e := New(DefaultOptions())
	text := "Noise $$ __\nASUS TUF Gaming F15 Laptop\n₹64,990\n4.3 out of 5\n1,204 ratings"

	first := e.Extract(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Extract(text))
	}
}

func TestExtractKeepsRawText(t *testing.T) {
	e := New(DefaultOptions())
	text := "some raw\ntext"

	fields := e.Extract(text)

	assert.Equal(t, text, fields.RawText)
}
