package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"guest_reviews/internal/domain"
)

// ---- in-memory repository ----

type storedReview struct {
	review domain.Review
	scores []domain.CategoryScore
}

type fakeRepo struct {
	mu       sync.Mutex
	listings []domain.Listing
	reviews  map[string]*storedReview // source|sourceReviewID
	nextID   int

	// canned read results
	items      []domain.ReviewItem
	total      int
	byListing  []domain.ListingFacet
	byChannel  []domain.ChannelFacet
	byCategory []domain.CategoryFacet
	overall    *float64
	unrated    [][]int
	timeline   []domain.RatingPoint
	names      map[string]domain.ListingSummary

	listCalls    int
	unratedCalls int
	lastQuery    domain.ReviewQuery

	failUpsert map[string]error
	// when set, UpsertReview signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{reviews: map[string]*storedReview{}, failUpsert: map[string]error{}}
}

func (f *fakeRepo) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeRepo) FindListingByExternalID(ctx context.Context, externalID string) (domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.listings {
		if l.ExternalID != nil && *l.ExternalID == externalID {
			return l, nil
		}
	}
	return domain.Listing{}, domain.ErrNotFound
}

func (f *fakeRepo) FindListingBySlug(ctx context.Context, slug string) (domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.listings {
		if l.Slug == slug {
			return l, nil
		}
	}
	return domain.Listing{}, domain.ErrNotFound
}

func (f *fakeRepo) CreateListing(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = f.id("listing")
	f.listings = append(f.listings, l)
	return l, nil
}

func (f *fakeRepo) SetListingExternalID(ctx context.Context, listingID, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.listings {
		if f.listings[i].ID == listingID {
			ext := externalID
			f.listings[i].ExternalID = &ext
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeRepo) FindReviewID(ctx context.Context, source domain.ReviewSource, sourceReviewID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reviews[string(source)+"|"+sourceReviewID]; ok {
		return r.review.ID, nil
	}
	return "", domain.ErrNotFound
}

func (f *fakeRepo) UpsertReview(ctx context.Context, r domain.Review, scores []domain.CategoryScore) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUpsert[r.SourceReviewID]; err != nil {
		return "", err
	}
	key := string(r.Source) + "|" + r.SourceReviewID
	if cur, ok := f.reviews[key]; ok {
		r.ID = cur.review.ID
		r.IsApproved = cur.review.IsApproved
		cur.review = r
		cur.scores = scores
		return r.ID, nil
	}
	r.ID = f.id("review")
	f.reviews[key] = &storedReview{review: r, scores: scores}
	return r.ID, nil
}

func (f *fakeRepo) SetApproval(ctx context.Context, reviewID string, approved bool) (domain.ApprovalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.reviews {
		if s.review.ID == reviewID {
			s.review.IsApproved = approved
			return domain.ApprovalResult{ID: reviewID, IsApproved: approved, ListingID: s.review.ListingID}, nil
		}
	}
	return domain.ApprovalResult{}, domain.ErrNotFound
}

func (f *fakeRepo) review(sourceReviewID string) *storedReview {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reviews[string(domain.SourceHostaway)+"|"+sourceReviewID]
}

func (f *fakeRepo) ListReviews(ctx context.Context, q domain.ReviewQuery) ([]domain.ReviewItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastQuery = q
	return append([]domain.ReviewItem(nil), f.items...), nil
}

func (f *fakeRepo) CountReviews(ctx context.Context, _ domain.ReviewFilter) (int, error) {
	return f.total, nil
}

func (f *fakeRepo) FacetByListing(ctx context.Context, _ domain.ReviewFilter) ([]domain.ListingFacet, error) {
	return f.byListing, nil
}

func (f *fakeRepo) FacetByChannel(ctx context.Context, _ domain.ReviewFilter) ([]domain.ChannelFacet, error) {
	return f.byChannel, nil
}

func (f *fakeRepo) FacetByCategory(ctx context.Context, _ domain.ReviewFilter) ([]domain.CategoryFacet, error) {
	return f.byCategory, nil
}

func (f *fakeRepo) OverallAverage(ctx context.Context, _ domain.ReviewFilter) (*float64, error) {
	return f.overall, nil
}

func (f *fakeRepo) UnratedCategoryRatings(ctx context.Context, _ domain.ReviewFilter) ([][]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unratedCalls++
	return f.unrated, nil
}

func (f *fakeRepo) RatingTimeline(ctx context.Context, _ domain.ReviewFilter) ([]domain.RatingPoint, error) {
	return f.timeline, nil
}

func (f *fakeRepo) ListingsByIDs(ctx context.Context, ids []string) (map[string]domain.ListingSummary, error) {
	out := map[string]domain.ListingSummary{}
	for _, id := range ids {
		if l, ok := f.names[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

var _ domain.ReviewRepository = (*fakeRepo)(nil)

// ---- cache storing JSON, like the redis adapter ----

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	incrs int
	// corrupt makes hits on non-generation keys fail to decode
	corrupt bool
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if c.corrupt && key != "reviews:gen" {
		b = []byte(`{"page":7,"items":"not-a-list"}`)
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *fakeCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	var n int64
	if b, ok := c.store[key]; ok {
		_ = json.Unmarshal(b, &n)
	}
	n++
	c.store[key], _ = json.Marshal(n)
	c.incrs++
	return n, nil
}

// ---- feed sources ----

type staticFeed struct {
	records []domain.SourceRecord
	err     error
}

func (s staticFeed) Records(ctx context.Context) ([]domain.SourceRecord, error) {
	return s.records, s.err
}

var errBoom = errors.New("boom")

// ---- helpers ----

func ptr[T any](v T) *T { return &v }

func pfloat(f float64) *float64 { return &f }

func rec(id, listingID, listingName, submittedAt string) domain.SourceRecord {
	return domain.SourceRecord{
		ID:          domain.FlexString(id),
		ListingID:   domain.FlexString(listingID),
		ListingName: ptr(listingName),
		SubmittedAt: ptr(submittedAt),
		Type:        ptr("guest-to-host"),
		Status:      ptr("published"),
		Channel:     ptr("airbnb"),
	}
}

func cat(name string, rating int) domain.SourceCategory {
	return domain.SourceCategory{Category: name, Rating: json.RawMessage(fmt.Sprint(rating))}
}
