package pipeline

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/harshdev/amazon-gpu-scraper/internal/classify"
	"github.com/harshdev/amazon-gpu-scraper/internal/extract"
	"github.com/harshdev/amazon-gpu-scraper/internal/models"
	"github.com/harshdev/amazon-gpu-scraper/internal/preprocess"
)

// Outcome is the per-card result reported by a run.
type Outcome string

const (
	OutcomeStored            Outcome = "stored"
	OutcomeSkippedNoGPU      Outcome = "skipped-no-gpu"
	OutcomeSkippedNoTitle    Outcome = "skipped-no-title"
	OutcomeSkippedUnreadable Outcome = "skipped-unreadable"
	OutcomeSkippedStoreError Outcome = "skipped-store-error"
	OutcomeSkippedSeen       Outcome = "skipped-seen"
)

// Recognizer is the text-recognition boundary: any output, including the
// empty string, is valid.
type Recognizer interface {
	Recognize(img image.Image) string
}

// RecordStore is the idempotent persistence boundary keyed by identity key.
type RecordStore interface {
	Upsert(ctx context.Context, r *models.Record) error
}

// SeenCache remembers recently processed identity keys. Implementations
// must treat their own failures as "not seen".
type SeenCache interface {
	Seen(ctx context.Context, identityKey string) bool
	Mark(ctx context.Context, identityKey string)
}

// CardSource yields captures one at a time and returns io.EOF when
// exhausted.
type CardSource interface {
	Next(ctx context.Context) (*models.CardCapture, error)
}

// CardResult pairs one capture with its outcome. Record is non-nil only
// for OutcomeStored.
type CardResult struct {
	Capture *models.CardCapture
	Outcome Outcome
	Record  *models.Record
}

// RunResult aggregates a whole run.
type RunResult struct {
	RunID    string
	Stored   []*models.Record
	Outcomes map[Outcome]int
	Cards    int
}

// Pipeline sequences preprocess, recognition, extraction, classification
// and storage for each card. Cards are independent: no failure of one card
// ever aborts the batch.
type Pipeline struct {
	recognizer  Recognizer
	extractor   *extract.Extractor
	classifier  *classify.Classifier
	store       RecordStore
	seen        SeenCache
	targetCount int
	logger      *slog.Logger
}

type Options struct {
	Recognizer Recognizer
	Store      RecordStore
	// Seen is optional; nil disables the cache.
	Seen    SeenCache
	Extract extract.Options
	// TargetCount stops the run early once this many records are stored.
	// Zero means no cap.
	TargetCount int
	Logger      *slog.Logger
}

func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		recognizer:  opts.Recognizer,
		extractor:   extract.New(opts.Extract),
		classifier:  classify.New(),
		store:       opts.Store,
		seen:        opts.Seen,
		targetCount: opts.TargetCount,
		logger:      logger.With("component", "pipeline"),
	}
}

// Process runs all stages on one card. It never returns an error: every
// failure mode maps to a skip outcome.
func (p *Pipeline) Process(ctx context.Context, capture *models.CardCapture) CardResult {
	result := CardResult{Capture: capture}

	key, _ := models.IdentityKeyFor(capture.ASIN, capture.ImageFile())
	if p.seen != nil && key != "" && p.seen.Seen(ctx, key) {
		result.Outcome = OutcomeSkippedSeen
		return result
	}

	img := capture.Image
	if img == nil {
		var err error
		img, err = imaging.Open(capture.ImagePath)
		if err != nil {
			p.logger.Warn("unreadable card image", "path", capture.ImagePath, "error", err)
			result.Outcome = OutcomeSkippedUnreadable
			return result
		}
	}

	binarized := preprocess.Run(img)
	text := p.recognizer.Recognize(binarized)
	fields := p.extractor.Extract(text)

	// An empty title means recognition produced unusable output; storing it
	// would pollute the dataset with unidentifiable entries.
	if fields.Title == "" {
		result.Outcome = OutcomeSkippedNoTitle
		return result
	}

	if !p.classifier.HasDiscreteGPU(fields.Title + " " + fields.RawText) {
		result.Outcome = OutcomeSkippedNoGPU
		return result
	}

	record := models.NewRecord(capture, fields)
	if err := p.store.Upsert(ctx, record); err != nil {
		p.logger.Error("store write failed", "key", record.IdentityKey, "error", err)
		result.Outcome = OutcomeSkippedStoreError
		return result
	}

	if p.seen != nil {
		p.seen.Mark(ctx, record.IdentityKey)
	}

	result.Outcome = OutcomeStored
	result.Record = record
	return result
}

// Run consumes the source until exhaustion, cancellation, or the target
// count, and aggregates the per-card outcomes.
func (p *Pipeline) Run(ctx context.Context, source CardSource) (*RunResult, error) {
	result := &RunResult{
		RunID:    uuid.New().String(),
		Outcomes: make(map[Outcome]int),
	}

	logger := p.logger.With("run_id", result.RunID)
	logger.Info("pipeline run started", "target", p.targetCount)

	for {
		if err := ctx.Err(); err != nil {
			logger.Info("pipeline run cancelled", "stored", len(result.Stored))
			return result, err
		}

		capture, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Error("card source failed", "error", err)
			return result, err
		}

		card := p.Process(ctx, capture)
		result.Cards++
		result.Outcomes[card.Outcome]++

		switch card.Outcome {
		case OutcomeStored:
			result.Stored = append(result.Stored, card.Record)
			logger.Info("card stored",
				"key", card.Record.IdentityKey,
				"title", card.Record.Title,
				"price", card.Record.Price,
				"stored", len(result.Stored))
		default:
			logger.Info("card skipped",
				"outcome", string(card.Outcome),
				"page", capture.Page,
				"index", capture.Index,
				"asin", capture.ASIN)
		}

		if p.targetCount > 0 && len(result.Stored) >= p.targetCount {
			logger.Info("target count reached", "target", p.targetCount)
			break
		}
	}

	logger.Info("pipeline run finished",
		"cards", result.Cards,
		"stored", len(result.Stored))
	return result, nil
}

// SliceSource adapts a fixed capture slice to a CardSource.
type SliceSource struct {
	captures []*models.CardCapture
	pos      int
}

func NewSliceSource(captures []*models.CardCapture) *SliceSource {
	return &SliceSource{captures: captures}
}

func (s *SliceSource) Next(_ context.Context) (*models.CardCapture, error) {
	if s.pos >= len(s.captures) {
		return nil, io.EOF
	}
	c := s.captures[s.pos]
	s.pos++
	return c, nil
}
