package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"guest_reviews/internal/adapters/observability"
	"guest_reviews/internal/domain"
)

type IngestionService struct {
	repo  domain.ReviewRepository
	cache domain.Cache
	// single writer: the existence check before each upsert is not atomic
	gate *semaphore.Weighted
}

func NewIngestionService(r domain.ReviewRepository, cache domain.Cache) *IngestionService {
	return &IngestionService{repo: r, cache: cache, gate: semaphore.NewWeighted(1)}
}

// IngestReport summarizes one pass. Total counts every input record.
type IngestReport struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	OutOfRange int `json:"outOfRange"`
	Total      int `json:"total"`
}

type outcome string

const (
	outcomeCreated outcome = "created"
	outcomeUpdated outcome = "updated"
	outcomeSkipped outcome = "skipped"
	outcomeFailed  outcome = "failed"
)

var errInvalidSubmittedAt = errors.New("invalid submittedAt")

// Ingest loads one batch from src and runs it.
func (s *IngestionService) Ingest(ctx context.Context, src domain.FeedSource) (IngestReport, error) {
	records, err := src.Records(ctx)
	if err != nil {
		return IngestReport{}, fmt.Errorf("load feed: %w", err)
	}
	if len(records) == 0 {
		log.Warn().Msg("no records found in feed; nothing to ingest")
		return IngestReport{}, nil
	}
	return s.Run(ctx, records)
}

// Run processes records strictly one at a time. A bad record is logged and
// counted, never fatal; only context cancellation stops the pass early.
func (s *IngestionService) Run(ctx context.Context, records []domain.SourceRecord) (IngestReport, error) {
	if !s.gate.TryAcquire(1) {
		return IngestReport{}, domain.ErrIngestInProgress
	}
	defer s.gate.Release(1)

	rep := IngestReport{Total: len(records)}
	log.Info().Int("records", len(records)).Msg("ingestion pass starting")

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			s.finish(ctx, rep)
			return rep, err
		}

		res, outOfRange, err := s.ingestOne(ctx, rec)
		if outOfRange {
			rep.OutOfRange++
		}
		switch {
		case errors.Is(err, errInvalidSubmittedAt):
			res = outcomeSkipped
			log.Warn().Str("review_id", rec.ID.String()).Str("submitted_at", deref(rec.SubmittedAt)).
				Msg("skipping review: invalid submittedAt")
		case err != nil:
			res = outcomeFailed
			log.Error().Err(err).Str("review_id", rec.ID.String()).Msg("error processing review")
		}

		switch res {
		case outcomeCreated:
			rep.Created++
		case outcomeUpdated:
			rep.Updated++
		case outcomeSkipped:
			rep.Skipped++
		case outcomeFailed:
			rep.Failed++
		}
		observability.ObserveIngest(string(res))
	}

	s.finish(ctx, rep)
	return rep, nil
}

func (s *IngestionService) finish(ctx context.Context, rep IngestReport) {
	if rep.Created+rep.Updated > 0 {
		bumpGeneration(ctx, s.cache)
	}
	log.Info().
		Int("created", rep.Created).
		Int("updated", rep.Updated).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Int("out_of_range", rep.OutOfRange).
		Int("total", rep.Total).
		Msg("ingestion pass completed")
}

func (s *IngestionService) ingestOne(ctx context.Context, rec domain.SourceRecord) (outcome, bool, error) {
	sourceID := rec.ID.String()
	if sourceID == "" {
		return outcomeFailed, false, errors.New("record has no id")
	}

	// 1) listing first; it exists even if the review is rejected below
	listingID, err := s.resolveListing(ctx, rec)
	if err != nil {
		return outcomeFailed, false, err
	}

	// 2) normalize
	submittedAt, ok := ParseSubmittedAt(deref(rec.SubmittedAt))
	if !ok {
		return outcomeSkipped, false, errInvalidSubmittedAt
	}
	rv := domain.Review{
		Source:         domain.SourceHostaway,
		SourceReviewID: sourceID,
		ListingID:      listingID,
		Type:           MapType(deref(rec.Type)),
		Status:         MapStatus(deref(rec.Status)),
		Channel:        MapChannel(deref(rec.Channel)),
		RatingOverall:  NormalizeOverall(rec.Rating),
		SubmittedAt:    submittedAt,
		GuestName:      NormalizeGuestName(rec.GuestName),
		PublicReview:   normalizeText(rec.PublicReview),
	}
	scores := NormalizeCategories(rec.ReviewCategory)

	outOfRange := rv.RatingOverall != nil && !inRatingRange(*rv.RatingOverall)
	for _, c := range scores {
		if !inRatingRange(float64(c.Rating)) {
			outOfRange = true
		}
	}
	if outOfRange {
		log.Warn().Str("review_id", sourceID).Msg("rating outside 0-10 scale stored unchanged")
	}

	// 3) existence check feeds the created/updated counters only
	_, err = s.repo.FindReviewID(ctx, rv.Source, rv.SourceReviewID)
	existed := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return outcomeFailed, outOfRange, fmt.Errorf("lookup review: %w", err)
	}

	// 4) upsert + replace categories as one unit
	if _, err := s.repo.UpsertReview(ctx, rv, scores); err != nil {
		return outcomeFailed, outOfRange, fmt.Errorf("upsert review: %w", err)
	}

	if existed {
		return outcomeUpdated, outOfRange, nil
	}
	return outcomeCreated, outOfRange, nil
}

// ModerationService owns the approval flag.
type ModerationService struct {
	repo  domain.ReviewRepository
	cache domain.Cache
}

func NewModerationService(r domain.ReviewRepository, cache domain.Cache) *ModerationService {
	return &ModerationService{repo: r, cache: cache}
}

// SetApproval touches only the approval flag. Missing reviews yield domain.ErrNotFound.
func (s *ModerationService) SetApproval(ctx context.Context, reviewID string, approved bool) (domain.ApprovalResult, error) {
	res, err := s.repo.SetApproval(ctx, reviewID, approved)
	if err != nil {
		return domain.ApprovalResult{}, err
	}
	bumpGeneration(ctx, s.cache)
	log.Info().Str("review_id", reviewID).Bool("approved", approved).Msg("review approval updated")
	return res, nil
}
