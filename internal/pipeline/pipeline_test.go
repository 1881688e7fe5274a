package pipeline

import (
	"context"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshdev/amazon-gpu-scraper/internal/models"
)

const gpuCardText = "Sponsored\nASUS TUF Gaming F15 Laptop with NVIDIA GeForce RTX 3050\n₹64,990\n4.3 out of 5\n1,204 ratings"

// scriptedRecognizer returns canned texts in order, one per card.
type scriptedRecognizer struct {
	texts []string
	calls int
}

func (r *scriptedRecognizer) Recognize(_ image.Image) string {
	if r.calls >= len(r.texts) {
		return ""
	}
	text := r.texts[r.calls]
	r.calls++
	return text
}

// memStore implements the upsert contract in memory with an injectable
// clock so timestamp behavior is observable.
type memStore struct {
	records map[string]*models.Record
	now     func() time.Time
	failAll bool
	writes  int
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[string]*models.Record),
		now:     time.Now,
	}
}

func (s *memStore) Upsert(_ context.Context, r *models.Record) error {
	if s.failAll {
		return fmt.Errorf("connection refused")
	}
	s.writes++
	now := s.now()
	if existing, ok := s.records[r.IdentityKey]; ok {
		r.CreatedAt = existing.CreatedAt
	} else {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	clone := *r
	s.records[r.IdentityKey] = &clone
	return nil
}

type memSeen struct {
	keys map[string]bool
}

func (s *memSeen) Seen(_ context.Context, key string) bool { return s.keys[key] }
func (s *memSeen) Mark(_ context.Context, key string)      { s.keys[key] = true }

func capture(page, index int, asin string) *models.CardCapture {
	return &models.CardCapture{
		Image:     image.NewNRGBA(image.Rect(0, 0, 8, 8)),
		ImagePath: fmt.Sprintf("/tmp/cards/card_p%02d_%02d_%s.png", page, index, asin),
		Page:      page,
		Index:     index,
		ASIN:      asin,
		Query:     "gaming laptop",
	}
}

func TestProcessStoresQualifyingCard(t *testing.T) {
	store := newMemStore()
	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{gpuCardText}},
		Store:      store,
	})

	result := p.Process(context.Background(), capture(1, 0, "B0ABC12345"))

	require.Equal(t, OutcomeStored, result.Outcome)
	require.NotNil(t, result.Record)
	assert.Equal(t, "B0ABC12345", result.Record.IdentityKey)
	assert.Equal(t, models.KeyTypeASIN, result.Record.KeyType)
	assert.Equal(t, "ASUS TUF Gaming F15 Laptop with NVIDIA GeForce RTX 3050", result.Record.Title)
	assert.Equal(t, "₹64,990", result.Record.Price)
	assert.Equal(t, "4.3", result.Record.Rating)
	assert.Equal(t, "1,204", result.Record.Reviews)
	assert.Len(t, store.records, 1)
}

func TestProcessRejectsWithoutTitle(t *testing.T) {
	store := newMemStore()
	// GPU branding is present, but no line is long enough for a title.
	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{"rtx\nnvidia\n4060"}},
		Store:      store,
	})

	result := p.Process(context.Background(), capture(1, 0, "B0ABC12345"))

	assert.Equal(t, OutcomeSkippedNoTitle, result.Outcome)
	assert.Nil(t, result.Record)
	assert.Zero(t, store.writes)
}

func TestProcessRejectsIntegratedGraphics(t *testing.T) {
	store := newMemStore()
	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{
			"HP Pavilion 15 Laptop with Intel UHD Graphics\n₹42,990\n4.1 out of 5",
		}},
		Store: store,
	})

	result := p.Process(context.Background(), capture(1, 0, "B0DEF67890"))

	assert.Equal(t, OutcomeSkippedNoGPU, result.Outcome)
	assert.Zero(t, store.writes)
}

func TestProcessRejectsEmptyRecognition(t *testing.T) {
	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{""}},
		Store:      newMemStore(),
	})

	result := p.Process(context.Background(), capture(1, 0, "B0ABC12345"))

	assert.Equal(t, OutcomeSkippedNoTitle, result.Outcome)
}

func TestProcessSkipsUnreadableImage(t *testing.T) {
	store := newMemStore()
	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{gpuCardText}},
		Store:      store,
	})

	cap := &models.CardCapture{
		ImagePath: "/nonexistent/card.png",
		ASIN:      "B0ABC12345",
	}
	result := p.Process(context.Background(), cap)

	assert.Equal(t, OutcomeSkippedUnreadable, result.Outcome)
	assert.Zero(t, store.writes)
}

func TestProcessReportsStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failAll = true
	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{gpuCardText}},
		Store:      store,
	})

	result := p.Process(context.Background(), capture(1, 0, "B0ABC12345"))

	assert.Equal(t, OutcomeSkippedStoreError, result.Outcome)
	assert.Nil(t, result.Record)
}

func TestProcessSkipsSeenKeys(t *testing.T) {
	store := newMemStore()
	seen := &memSeen{keys: map[string]bool{"B0ABC12345": true}}
	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{gpuCardText}},
		Store:      store,
		Seen:       seen,
	})

	result := p.Process(context.Background(), capture(1, 0, "b0abc12345"))

	assert.Equal(t, OutcomeSkippedSeen, result.Outcome)
	assert.Zero(t, store.writes)
}

func TestProcessMarksStoredKeys(t *testing.T) {
	seen := &memSeen{keys: map[string]bool{}}
	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{gpuCardText}},
		Store:      newMemStore(),
		Seen:       seen,
	})

	result := p.Process(context.Background(), capture(1, 0, "B0ABC12345"))

	require.Equal(t, OutcomeStored, result.Outcome)
	assert.True(t, seen.keys["B0ABC12345"])
}

func TestUpsertIsIdempotent(t *testing.T) {
	store := newMemStore()
	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{gpuCardText, gpuCardText}},
		Store:      store,
	})

	first := p.Process(context.Background(), capture(1, 0, "B0ABC12345"))
	require.Equal(t, OutcomeStored, first.Outcome)

	clock = clock.Add(45 * time.Minute)
	second := p.Process(context.Background(), capture(2, 3, "B0ABC12345"))
	require.Equal(t, OutcomeStored, second.Outcome)

	assert.Len(t, store.records, 1, "one identity key must map to one record")
	assert.Equal(t, first.Record.CreatedAt, second.Record.CreatedAt, "created_at is immutable")
	assert.True(t, second.Record.UpdatedAt.After(first.Record.UpdatedAt), "updated_at must advance")
	assert.Equal(t, 2, store.records["B0ABC12345"].Page, "mutable fields refresh on rewrite")
}

func TestRunIsolatesFailingCards(t *testing.T) {
	store := newMemStore()
	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{
			gpuCardText,
			"Dell Inspiron 15 with Intel UHD Graphics and long title\n₹35,000",
			"",
			"Lenovo LOQ 15 Gaming Laptop NVIDIA GeForce RTX 4050\n₹79,990\n4.4 out of 5",
		}},
		Store: store,
	})

	source := NewSliceSource([]*models.CardCapture{
		capture(1, 0, "B0AAA11111"),
		capture(1, 1, "B0BBB22222"),
		capture(1, 2, "B0CCC33333"),
		capture(1, 3, "B0DDD44444"),
	})

	result, err := p.Run(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Cards)
	assert.Len(t, result.Stored, 2)
	assert.Equal(t, 2, result.Outcomes[OutcomeStored])
	assert.Equal(t, 1, result.Outcomes[OutcomeSkippedNoGPU])
	assert.Equal(t, 1, result.Outcomes[OutcomeSkippedNoTitle])
	assert.NotEmpty(t, result.RunID)
}

func TestRunStopsAtTargetCount(t *testing.T) {
	texts := make([]string, 6)
	captures := make([]*models.CardCapture, 6)
	for i := range texts {
		texts[i] = gpuCardText
		captures[i] = capture(1, i, fmt.Sprintf("B0TARGET%03d", i))
	}

	p := New(Options{
		Recognizer:  &scriptedRecognizer{texts: texts},
		Store:       newMemStore(),
		TargetCount: 3,
	})

	result, err := p.Run(context.Background(), NewSliceSource(captures))
	require.NoError(t, err)

	assert.Len(t, result.Stored, 3)
	assert.Equal(t, 3, result.Cards)
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Options{
		Recognizer: &scriptedRecognizer{texts: []string{gpuCardText}},
		Store:      newMemStore(),
	})

	result, err := p.Run(ctx, NewSliceSource([]*models.CardCapture{capture(1, 0, "B0ABC12345")}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Cards)
}
