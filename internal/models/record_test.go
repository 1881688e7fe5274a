package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityKeyFor(t *testing.T) {
	tests := []struct {
		name        string
		asin        string
		imageFile   string
		expectedKey string
		expectedTyp KeyType
	}{
		{
			name:        "ASIN wins over image file",
			asin:        "b0abc12345",
			imageFile:   "card_p01_00_B0ABC12345.png",
			expectedKey: "B0ABC12345",
			expectedTyp: KeyTypeASIN,
		},
		{
			name:        "ASIN is trimmed and uppercased",
			asin:        "  b0xyz99  ",
			imageFile:   "card.png",
			expectedKey: "B0XYZ99",
			expectedTyp: KeyTypeASIN,
		},
		{
			name:        "falls back to image file when ASIN empty",
			asin:        "",
			imageFile:   "card_p02_05.png",
			expectedKey: "card_p02_05.png",
			expectedTyp: KeyTypeImageFile,
		},
		{
			name:        "whitespace-only ASIN falls back",
			asin:        "   ",
			imageFile:   "card.png",
			expectedKey: "card.png",
			expectedTyp: KeyTypeImageFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, typ := IdentityKeyFor(tt.asin, tt.imageFile)
			assert.Equal(t, tt.expectedKey, key)
			assert.Equal(t, tt.expectedTyp, typ)
		})
	}
}

func TestNewRecord(t *testing.T) {
	capture := &CardCapture{
		ImagePath: "/tmp/cards/card_p03_07_B0TEST1234.png",
		Page:      3,
		Index:     7,
		ASIN:      "b0test1234",
		Query:     "gaming laptop",
	}

	fields := ExtractedFields{
		Title:   "ASUS TUF Gaming F15",
		Price:   "₹64,990",
		Rating:  "4.3",
		Reviews: "1,204",
		RawText: "ASUS TUF Gaming F15\n₹64,990\n4.3 out of 5",
	}

	rec := NewRecord(capture, fields)

	assert.Equal(t, "B0TEST1234", rec.IdentityKey)
	assert.Equal(t, KeyTypeASIN, rec.KeyType)
	assert.Equal(t, "B0TEST1234", rec.ASIN)
	assert.Equal(t, "card_p03_07_B0TEST1234.png", rec.ImageFile)
	assert.Equal(t, "/tmp/cards/card_p03_07_B0TEST1234.png", rec.ImagePath)
	assert.Equal(t, "gaming laptop", rec.Query)
	assert.Equal(t, 3, rec.Page)
	assert.Equal(t, 7, rec.Index)
	assert.Equal(t, "ASUS TUF Gaming F15", rec.Title)
	assert.Equal(t, SourceTag, rec.SourceTag)
	assert.True(t, rec.CreatedAt.IsZero())
	assert.True(t, rec.UpdatedAt.IsZero())
}
