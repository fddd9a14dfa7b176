package domain

import "context"

type ReviewRepository interface {
	// Write paths
	FindListingByExternalID(ctx context.Context, externalID string) (Listing, error)
	FindListingBySlug(ctx context.Context, slug string) (Listing, error)
	CreateListing(ctx context.Context, l Listing) (Listing, error)
	SetListingExternalID(ctx context.Context, listingID, externalID string) error
	FindReviewID(ctx context.Context, source ReviewSource, sourceReviewID string) (string, error)
	// UpsertReview writes the review and replaces its category scores as one unit.
	UpsertReview(ctx context.Context, r Review, scores []CategoryScore) (string, error)
	SetApproval(ctx context.Context, reviewID string, approved bool) (ApprovalResult, error)

	// Read paths
	ListReviews(ctx context.Context, q ReviewQuery) ([]ReviewItem, error)
	CountReviews(ctx context.Context, f ReviewFilter) (int, error)
	FacetByListing(ctx context.Context, f ReviewFilter) ([]ListingFacet, error)
	FacetByChannel(ctx context.Context, f ReviewFilter) ([]ChannelFacet, error)
	FacetByCategory(ctx context.Context, f ReviewFilter) ([]CategoryFacet, error)
	OverallAverage(ctx context.Context, f ReviewFilter) (*float64, error)
	UnratedCategoryRatings(ctx context.Context, f ReviewFilter) ([][]int, error)
	RatingTimeline(ctx context.Context, f ReviewFilter) ([]RatingPoint, error)
	ListingsByIDs(ctx context.Context, ids []string) (map[string]ListingSummary, error)
}

// FeedSource yields raw feed records for one ingestion pass.
type FeedSource interface {
	Records(ctx context.Context) ([]SourceRecord, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
}
