package domain

import "time"

type ReviewSource string

// SourceHostaway tags every review ingested from the property-management feed.
const SourceHostaway ReviewSource = "HOSTAWAY"

type ReviewType string

const (
	TypeHostToGuest ReviewType = "HOST_TO_GUEST"
	TypeGuestToHost ReviewType = "GUEST_TO_HOST"
)

func (t ReviewType) Valid() bool {
	switch t {
	case TypeHostToGuest, TypeGuestToHost:
		return true
	}
	return false
}

type ReviewStatus string

const (
	StatusPublished ReviewStatus = "PUBLISHED"
	StatusHidden    ReviewStatus = "HIDDEN"
	StatusDraft     ReviewStatus = "DRAFT"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPublished, StatusHidden, StatusDraft:
		return true
	}
	return false
}

type ReviewChannel string

const (
	ChannelAirbnb  ReviewChannel = "AIRBNB"
	ChannelBooking ReviewChannel = "BOOKING"
	ChannelDirect  ReviewChannel = "DIRECT"
	ChannelUnknown ReviewChannel = "UNKNOWN"
)

func (c ReviewChannel) Valid() bool {
	switch c {
	case ChannelAirbnb, ChannelBooking, ChannelDirect, ChannelUnknown:
		return true
	}
	return false
}

type CategoryType string

const (
	CategoryCleanliness       CategoryType = "CLEANLINESS"
	CategoryCommunication     CategoryType = "COMMUNICATION"
	CategoryAccuracy          CategoryType = "ACCURACY"
	CategoryCheckin           CategoryType = "CHECKIN"
	CategoryLocation          CategoryType = "LOCATION"
	CategoryValue             CategoryType = "VALUE"
	CategoryRespectHouseRules CategoryType = "RESPECT_HOUSE_RULES"
	CategoryOther             CategoryType = "OTHER"
)

// Review is the canonical, deduplicated review keyed by (Source, SourceReviewID).
type Review struct {
	ID             string
	Source         ReviewSource
	SourceReviewID string
	ListingID      string
	Type           ReviewType
	Status         ReviewStatus
	Channel        ReviewChannel
	RatingOverall  *float64
	SubmittedAt    time.Time
	GuestName      string
	PublicReview   string
	IsApproved     bool // operator-owned; ingestion writes it only on create
}

type CategoryScore struct {
	Category CategoryType `json:"category"`
	Rating   int          `json:"rating"`
}

// Rating scale accepted without a warning during ingestion.
const (
	MinRating = 0
	MaxRating = 10
)
