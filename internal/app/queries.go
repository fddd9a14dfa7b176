package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"guest_reviews/internal/domain"
)

const publicReviewsLimit = 100

type QueryService struct {
	repo     domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

// SearchReviews answers the moderation view: one page of items plus facets
// computed over the whole filtered set.
func (s *QueryService) SearchReviews(ctx context.Context, params url.Values) (domain.ReviewsPage, error) {
	var key string
	if s.cache != nil {
		key = queryKey(ctx, s.cache, "reviews:search", params)
		var cached domain.ReviewsPage
		if ok, err := s.cache.Get(ctx, key, &cached); ok && err == nil {
			return cached, nil
		}
	}

	out, err := s.search(ctx, BuildReviewQuery(params))
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	s.store(ctx, key, out)
	return out, nil
}

func (s *QueryService) search(ctx context.Context, q domain.ReviewQuery) (domain.ReviewsPage, error) {
	out := domain.ReviewsPage{Page: q.Page.Number, PageSize: q.Page.Size}

	var (
		items      []domain.ReviewItem
		total      int
		byListing  []domain.ListingFacet
		byChannel  []domain.ChannelFacet
		byCategory []domain.CategoryFacet
		overall    *float64
		timeline   []domain.RatingPoint
	)

	// independent reads over the same predicate; no partial response on error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { items, err = s.repo.ListReviews(gctx, q); return })
	g.Go(func() (err error) { total, err = s.repo.CountReviews(gctx, q.Filter); return })
	g.Go(func() (err error) { byListing, err = s.repo.FacetByListing(gctx, q.Filter); return })
	g.Go(func() (err error) { byChannel, err = s.repo.FacetByChannel(gctx, q.Filter); return })
	g.Go(func() (err error) { byCategory, err = s.repo.FacetByCategory(gctx, q.Filter); return })
	g.Go(func() (err error) { overall, err = s.repo.OverallAverage(gctx, q.Filter); return })
	g.Go(func() (err error) { timeline, err = s.repo.RatingTimeline(gctx, q.Filter); return })
	if err := g.Wait(); err != nil {
		return domain.ReviewsPage{}, fmt.Errorf("search reviews: %w", err)
	}

	// fallback over the whole filtered set, not just the current page
	if overall == nil {
		groups, err := s.repo.UnratedCategoryRatings(ctx, q.Filter)
		if err != nil {
			return domain.ReviewsPage{}, fmt.Errorf("derive overall average: %w", err)
		}
		overall = TwoLevelMean(groups)
	}

	ids := make([]string, 0, len(byListing))
	for _, b := range byListing {
		ids = append(ids, b.ListingID)
	}
	names := map[string]domain.ListingSummary{}
	if len(ids) > 0 {
		var err error
		if names, err = s.repo.ListingsByIDs(ctx, ids); err != nil {
			return domain.ReviewsPage{}, fmt.Errorf("listing names: %w", err)
		}
	}

	if items == nil {
		items = []domain.ReviewItem{}
	}
	out.Total = total
	out.Items = items
	out.Aggregates = domain.Aggregates{
		OverallAvg: overall,
		ByListing:  enrichListings(byListing, names),
		ByChannel:  nonNil(byChannel),
		ByCategory: nonNil(byCategory),
		ByMonth:    MonthlyTrend(timeline),
	}
	return out, nil
}

// PublicReviews returns up to 100 published and approved reviews of a
// listing, newest first.
func (s *QueryService) PublicReviews(ctx context.Context, slug string) (domain.PublicReviews, error) {
	var key string
	if s.cache != nil {
		key = queryKey(ctx, s.cache, "reviews:public", url.Values{"slug": {slug}})
		var cached domain.PublicReviews
		if ok, err := s.cache.Get(ctx, key, &cached); ok && err == nil {
			return cached, nil
		}
	}

	l, err := s.repo.FindListingBySlug(ctx, slug)
	if err != nil {
		return domain.PublicReviews{}, err
	}
	items, err := s.repo.ListReviews(ctx, domain.ReviewQuery{
		Filter: domain.ReviewFilter{
			ListingID: &l.ID,
			Approved:  ptr(true),
			Status:    ptr(domain.StatusPublished),
		},
		Page: domain.Page{Number: 1, Size: publicReviewsLimit},
		Sort: domain.Sort{Field: domain.SortSubmittedAt, Desc: true},
	})
	if err != nil {
		return domain.PublicReviews{}, fmt.Errorf("public reviews for %s: %w", slug, err)
	}
	if items == nil {
		items = []domain.ReviewItem{}
	}
	out := domain.PublicReviews{
		Listing: domain.ListingSummary{ID: l.ID, Name: l.Name, Slug: l.Slug},
		Items:   items,
	}

	s.store(ctx, key, out)
	return out, nil
}

// store writes v under key unless caching is disabled or the payload is huge.
func (s *QueryService) store(ctx context.Context, key string, v any) {
	if s.cache == nil || key == "" {
		return
	}
	if b, _ := json.Marshal(v); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
