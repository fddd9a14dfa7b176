package app

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"guest_reviews/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BuildReviewQuery turns request parameters into a predicate, page and sort.
// Unknown enum values and malformed bounds are ignored, never rejected.
func BuildReviewQuery(params url.Values) domain.ReviewQuery {
	return domain.ReviewQuery{
		Filter: BuildFilter(params),
		Page:   buildPage(params),
		Sort:   buildSort(params.Get("sort")),
	}
}

func BuildFilter(params url.Values) domain.ReviewFilter {
	var f domain.ReviewFilter

	if t, ok := parseBound(params.Get("from")); ok {
		f.From = &t
	}
	if t, ok := parseBound(params.Get("to")); ok {
		f.To = &t
	}

	if id := params.Get("listingId"); id != "" {
		f.ListingID = &id
	}
	if slug := params.Get("listingSlug"); slug != "" {
		f.ListingSlug = &slug
	}

	if t := domain.ReviewType(params.Get("type")); t.Valid() {
		f.Type = &t
	}
	if c := domain.ReviewChannel(params.Get("channel")); c.Valid() {
		f.Channel = &c
	}
	if s := domain.ReviewStatus(params.Get("status")); s.Valid() {
		f.Status = &s
	}

	switch params.Get("approved") {
	case "true":
		f.Approved = ptr(true)
	case "false":
		f.Approved = ptr(false)
	}

	if q := strings.TrimSpace(params.Get("q")); q != "" {
		f.Text = &q
	}
	return f
}

func buildPage(params url.Values) domain.Page {
	page := atoiDefault(params.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	size := atoiDefault(params.Get("pageSize"), defaultPageSize)
	if size < 1 {
		size = 1
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return domain.Page{Number: page, Size: size}
}

var sortFields = map[string]domain.SortField{
	string(domain.SortSubmittedAt):   domain.SortSubmittedAt,
	string(domain.SortRatingOverall): domain.SortRatingOverall,
	string(domain.SortGuestName):     domain.SortGuestName,
	string(domain.SortChannel):       domain.SortChannel,
	string(domain.SortStatus):        domain.SortStatus,
	string(domain.SortType):          domain.SortType,
	string(domain.SortCreatedAt):     domain.SortCreatedAt,
}

// buildSort parses "field:direction"; direction is asc only when spelled so.
func buildSort(raw string) domain.Sort {
	if raw == "" {
		raw = "submittedAt:desc"
	}
	field, dir, _ := strings.Cut(raw, ":")
	sf, ok := sortFields[field]
	if !ok {
		sf = domain.SortSubmittedAt
	}
	return domain.Sort{Field: sf, Desc: !strings.EqualFold(dir, "asc")}
}

func parseBound(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := ParseSubmittedAt(s); ok {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
