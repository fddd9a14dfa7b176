package app

import (
	"sort"

	"guest_reviews/internal/domain"
)

// TwoLevelMean averages each review's category ratings, then averages those
// per-review means without weighting. Reviews with no ratings are ignored;
// nil means nothing could be derived.
//
// A:[8,10], B:[6] gives ((8+10)/2 + 6)/2 = 7.5, not the flat mean 8.
func TwoLevelMean(perReview [][]int) *float64 {
	var sum float64
	n := 0
	for _, ratings := range perReview {
		if len(ratings) == 0 {
			continue
		}
		var s float64
		for _, r := range ratings {
			s += float64(r)
		}
		sum += s / float64(len(ratings))
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// effectiveRating prefers the explicit overall rating, else the review's
// own category mean.
func effectiveRating(p domain.RatingPoint) (float64, bool) {
	if p.RatingOverall != nil {
		return *p.RatingOverall, true
	}
	if p.CategoryMean != nil {
		return *p.CategoryMean, true
	}
	return 0, false
}

// MonthlyTrend buckets reviews by UTC submission month, ascending.
func MonthlyTrend(points []domain.RatingPoint) []domain.MonthFacet {
	type bucket struct {
		sum float64
		n   int
	}
	buckets := map[string]*bucket{}
	for _, p := range points {
		v, ok := effectiveRating(p)
		if !ok || p.SubmittedAt.IsZero() {
			continue
		}
		key := p.SubmittedAt.UTC().Format("2006-01")
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.sum += v
		b.n++
	}
	out := make([]domain.MonthFacet, 0, len(buckets))
	for month, b := range buckets {
		out = append(out, domain.MonthFacet{Month: month, Avg: b.sum / float64(b.n), Count: b.n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// enrichListings fills name/slug on facets; unknown ids keep a placeholder.
func enrichListings(facets []domain.ListingFacet, names map[string]domain.ListingSummary) []domain.ListingFacet {
	out := make([]domain.ListingFacet, len(facets))
	for i, f := range facets {
		if l, ok := names[f.ListingID]; ok {
			f.Name, f.Slug = l.Name, l.Slug
		} else {
			f.Name, f.Slug = "Unknown", ""
		}
		out[i] = f
	}
	return out
}
