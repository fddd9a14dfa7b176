package app

import (
	"net/url"
	"testing"
	"time"

	"guest_reviews/internal/domain"
)

func TestBuildReviewQuery_Paging(t *testing.T) {
	cases := []struct {
		params   url.Values
		page     int
		pageSize int
	}{
		{url.Values{}, 1, 20},
		{url.Values{"pageSize": {"500"}}, 1, 100},
		{url.Values{"page": {"0"}, "pageSize": {"0"}}, 1, 1},
		{url.Values{"page": {"-3"}}, 1, 20},
		{url.Values{"page": {"abc"}, "pageSize": {"x"}}, 1, 20},
		{url.Values{"page": {"3"}, "pageSize": {"10"}}, 3, 10},
	}
	for _, c := range cases {
		q := BuildReviewQuery(c.params)
		if q.Page.Number != c.page || q.Page.Size != c.pageSize {
			t.Errorf("%v: got page=%d size=%d", c.params, q.Page.Number, q.Page.Size)
		}
	}
	if off := (domain.Page{Number: 3, Size: 10}).Offset(); off != 20 {
		t.Errorf("offset = %d", off)
	}
}

func TestBuildFilter(t *testing.T) {
	f := BuildFilter(url.Values{
		"type":        {"GUEST_TO_HOST"},
		"channel":     {"AIRBNB"},
		"status":      {"HIDDEN"},
		"approved":    {"true"},
		"q":           {"  great  "},
		"listingId":   {"l1"},
		"listingSlug": {"loft"},
		"from":        {"2020-01-01"},
		"to":          {"2020-02-01T12:00:00Z"},
	})
	if *f.Type != domain.TypeGuestToHost || *f.Channel != domain.ChannelAirbnb || *f.Status != domain.StatusHidden {
		t.Fatalf("enums: %+v", f)
	}
	if !*f.Approved || *f.Text != "great" || *f.ListingID != "l1" || *f.ListingSlug != "loft" {
		t.Fatalf("fields: %+v", f)
	}
	if !f.From.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) || !f.To.Equal(time.Date(2020, 2, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("bounds: %v %v", f.From, f.To)
	}
}

func TestBuildFilter_IgnoresUnknownValues(t *testing.T) {
	f := BuildFilter(url.Values{
		"type":     {"NOT_A_TYPE"},
		"channel":  {"airbnb"}, // canonical values are upper case
		"status":   {""},
		"approved": {"yes"},
		"q":        {"   "},
		"from":     {"someday"},
	})
	if f != (domain.ReviewFilter{}) {
		t.Fatalf("expected empty filter, got %+v", f)
	}
	if BuildFilter(url.Values{"approved": {"false"}}).Approved == nil {
		t.Fatal("approved=false must filter")
	}
}

func TestBuildSort(t *testing.T) {
	cases := map[string]domain.Sort{
		"":                   {Field: domain.SortSubmittedAt, Desc: true},
		"ratingOverall:asc":  {Field: domain.SortRatingOverall},
		"guestName:ASC":      {Field: domain.SortGuestName},
		"channel":            {Field: domain.SortChannel, Desc: true},
		"status:sideways":    {Field: domain.SortStatus, Desc: true},
		"password:asc":       {Field: domain.SortSubmittedAt},
		"r.id; DROP TABLE x": {Field: domain.SortSubmittedAt, Desc: true},
	}
	for in, want := range cases {
		if got := buildSort(in); got != want {
			t.Errorf("buildSort(%q) = %+v, want %+v", in, got, want)
		}
	}
}
