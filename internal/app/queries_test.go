package app_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"guest_reviews/internal/app"
	"guest_reviews/internal/domain"
)

func TestSearchReviews_CacheMissThenHit(t *testing.T) {
	repo := newFakeRepo()
	repo.items = []domain.ReviewItem{{ID: "r1", GuestName: "Ana"}}
	repo.total = 1
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)
	ctx := context.Background()
	params := url.Values{"channel": {"AIRBNB"}}

	// Miss (first time, populates cache)
	out, err := q.SearchReviews(ctx, params)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].GuestName != "Ana" {
		t.Fatalf("unexpected items: %+v", out.Items)
	}

	// Mutate repo to ensure second read indeed comes from cache
	repo.items[0].GuestName = "SHOULD NOT SEE THIS"
	out, _ = q.SearchReviews(ctx, params)
	if out.Items[0].GuestName != "Ana" {
		t.Fatalf("expected cached name, got %s", out.Items[0].GuestName)
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected one repo read, got %d", repo.listCalls)
	}

	// Any write bumps the generation, so the next read goes to the repo
	if _, err := cache.Incr(ctx, "reviews:gen"); err != nil {
		t.Fatal(err)
	}
	out, _ = q.SearchReviews(ctx, params)
	if out.Items[0].GuestName != "SHOULD NOT SEE THIS" || repo.listCalls != 2 {
		t.Fatalf("stale page after invalidation: %+v calls=%d", out.Items, repo.listCalls)
	}
}

func TestSearchReviews_UndecodableEntryIsAMiss(t *testing.T) {
	repo := newFakeRepo()
	repo.items = []domain.ReviewItem{{ID: "r1", GuestName: "Ana"}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, time.Minute)
	ctx := context.Background()

	if _, err := q.SearchReviews(ctx, nil); err != nil {
		t.Fatalf("err: %v", err)
	}
	cache.corrupt = true
	repo.items[0].GuestName = "Fresh"

	out, err := q.SearchReviews(ctx, nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if repo.listCalls != 2 || out.Page != 1 || len(out.Items) != 1 || out.Items[0].GuestName != "Fresh" {
		t.Fatalf("served a partly decoded entry: %+v calls=%d", out, repo.listCalls)
	}
}

func TestSearchReviews_ApprovalInvalidatesCache(t *testing.T) {
	repo := newFakeRepo()
	cache := &fakeCache{}
	ing := app.NewIngestionService(repo, cache)
	mod := app.NewModerationService(repo, cache)
	q := app.NewQueryService(repo, cache, time.Minute)
	ctx := context.Background()

	if _, err := ing.Run(ctx, []domain.SourceRecord{rec("1", "1", "A", "2020-01-01 00:00:00")}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.SearchReviews(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := mod.SetApproval(ctx, repo.review("1").review.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := q.SearchReviews(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if repo.listCalls != 2 {
		t.Fatalf("approval did not invalidate cached pages; repo reads = %d", repo.listCalls)
	}
}

func TestSearchReviews_FallbackAverage(t *testing.T) {
	t.Run("derived from category means when no overall rating", func(t *testing.T) {
		repo := newFakeRepo()
		repo.unrated = [][]int{{8, 10}, {6}}
		q := app.NewQueryService(repo, nil, 0)

		out, err := q.SearchReviews(context.Background(), nil)
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if out.Aggregates.OverallAvg == nil || *out.Aggregates.OverallAvg != 7.5 {
			t.Fatalf("overallAvg = %v, want 7.5", out.Aggregates.OverallAvg)
		}
	})

	t.Run("explicit ratings win", func(t *testing.T) {
		repo := newFakeRepo()
		repo.overall = pfloat(9)
		repo.unrated = [][]int{{1}}
		q := app.NewQueryService(repo, nil, 0)

		out, err := q.SearchReviews(context.Background(), nil)
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if *out.Aggregates.OverallAvg != 9 || repo.unratedCalls != 0 {
			t.Fatalf("overallAvg = %v, fallback calls = %d", *out.Aggregates.OverallAvg, repo.unratedCalls)
		}
	})

	t.Run("nothing to derive", func(t *testing.T) {
		q := app.NewQueryService(newFakeRepo(), nil, 0)
		out, _ := q.SearchReviews(context.Background(), nil)
		if out.Aggregates.OverallAvg != nil {
			t.Fatalf("expected nil, got %v", *out.Aggregates.OverallAvg)
		}
	})
}

func TestSearchReviews_ShapesResponse(t *testing.T) {
	repo := newFakeRepo()
	repo.byListing = []domain.ListingFacet{
		{ListingID: "l1", Count: 2, AvgOverall: pfloat(8)},
		{ListingID: "gone", Count: 1},
	}
	repo.names = map[string]domain.ListingSummary{"l1": {ID: "l1", Name: "Loft", Slug: "loft"}}
	repo.timeline = []domain.RatingPoint{
		{SubmittedAt: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), RatingOverall: pfloat(10)},
		{SubmittedAt: time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC), CategoryMean: pfloat(6)},
	}
	q := app.NewQueryService(repo, nil, 0)

	out, err := q.SearchReviews(context.Background(), url.Values{"pageSize": {"500"}, "page": {"0"}})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Page != 1 || out.PageSize != 100 {
		t.Fatalf("paging: page=%d size=%d", out.Page, out.PageSize)
	}
	if out.Items == nil || out.Aggregates.ByChannel == nil || out.Aggregates.ByCategory == nil {
		t.Fatal("empty collections must be non-nil")
	}
	bl := out.Aggregates.ByListing
	if bl[0].Name != "Loft" || bl[0].Slug != "loft" || bl[1].Name != "Unknown" || bl[1].Slug != "" {
		t.Fatalf("byListing: %+v", bl)
	}
	bm := out.Aggregates.ByMonth
	if len(bm) != 2 || bm[0].Month != "2020-01" || bm[0].Avg != 6 || bm[1].Avg != 10 {
		t.Fatalf("byMonth: %+v", bm)
	}
}

func TestPublicReviews(t *testing.T) {
	repo := newFakeRepo()
	repo.listings = []domain.Listing{{ID: "l1", Name: "Loft", Slug: "loft"}}
	repo.items = []domain.ReviewItem{{ID: "r1"}}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)
	ctx := context.Background()

	if _, err := q.PublicReviews(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	out, err := q.PublicReviews(ctx, "loft")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Listing.Name != "Loft" || len(out.Items) != 1 {
		t.Fatalf("unexpected: %+v", out)
	}
	f := repo.lastQuery.Filter
	if f.Approved == nil || !*f.Approved || f.Status == nil || *f.Status != domain.StatusPublished || *f.ListingID != "l1" {
		t.Fatalf("public filter: %+v", f)
	}
	if repo.lastQuery.Page.Size != 100 || !repo.lastQuery.Sort.Desc || repo.lastQuery.Sort.Field != domain.SortSubmittedAt {
		t.Fatalf("public page/sort: %+v", repo.lastQuery)
	}
}
