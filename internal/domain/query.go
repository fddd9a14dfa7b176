package domain

import "time"

// ReviewFilter is the structured predicate produced from request parameters.
// Nil fields are not applied.
type ReviewFilter struct {
	From        *time.Time
	To          *time.Time
	ListingID   *string
	ListingSlug *string
	Type        *ReviewType
	Channel     *ReviewChannel
	Status      *ReviewStatus
	Approved    *bool
	Text        *string
}

type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

type SortField string

const (
	SortSubmittedAt   SortField = "submittedAt"
	SortRatingOverall SortField = "ratingOverall"
	SortGuestName     SortField = "guestName"
	SortChannel       SortField = "channel"
	SortStatus        SortField = "status"
	SortType          SortField = "type"
	SortCreatedAt     SortField = "createdAt"
)

type Sort struct {
	Field SortField
	Desc  bool
}

type ReviewQuery struct {
	Filter ReviewFilter
	Page   Page
	Sort   Sort
}

// Read models

type ReviewItem struct {
	ID             string          `json:"id"`
	Source         ReviewSource    `json:"source"`
	SourceReviewID string          `json:"sourceReviewId"`
	Type           ReviewType      `json:"type"`
	Channel        ReviewChannel   `json:"channel"`
	Status         ReviewStatus    `json:"status"`
	RatingOverall  *float64        `json:"ratingOverall"`
	SubmittedAt    time.Time       `json:"submittedAt"`
	GuestName      string          `json:"guestName"`
	PublicReview   string          `json:"publicReview"`
	IsApproved     bool            `json:"isApproved"`
	Listing        *ListingSummary `json:"listing"`
	Categories     []CategoryScore `json:"categories"`
}

type ListingFacet struct {
	ListingID  string   `json:"listingId"`
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	Count      int      `json:"count"`
	AvgOverall *float64 `json:"avgOverall"`
}

type ChannelFacet struct {
	Channel ReviewChannel `json:"channel"`
	Count   int           `json:"count"`
}

type CategoryFacet struct {
	Category CategoryType `json:"category"`
	Avg      *float64     `json:"avg"`
}

type MonthFacet struct {
	Month string  `json:"month"` // YYYY-MM, UTC
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// RatingPoint carries what the monthly trend needs from one review.
type RatingPoint struct {
	SubmittedAt   time.Time
	RatingOverall *float64
	CategoryMean  *float64
}

type Aggregates struct {
	OverallAvg *float64        `json:"overallAvg"`
	ByListing  []ListingFacet  `json:"byListing"`
	ByChannel  []ChannelFacet  `json:"byChannel"`
	ByCategory []CategoryFacet `json:"byCategory"`
	ByMonth    []MonthFacet    `json:"byMonth"`
}

type ReviewsPage struct {
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	Total      int          `json:"total"`
	Items      []ReviewItem `json:"items"`
	Aggregates Aggregates   `json:"aggregates"`
}

type PublicReviews struct {
	Listing ListingSummary `json:"listing"`
	Items   []ReviewItem   `json:"items"`
}

type ApprovalResult struct {
	ID         string `json:"id"`
	IsApproved bool   `json:"isApproved"`
	ListingID  string `json:"listingId"`
}
