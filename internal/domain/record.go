package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SourceRecord is a raw feed entry prior to normalization. Loosely-typed
// identifiers (string or number in the feed) are kept as FlexString; ratings
// stay raw until the normalizer decides whether they are finite numbers.
type SourceRecord struct {
	ID             FlexString       `json:"id"`
	ListingID      FlexString       `json:"listingId"`
	ListingName    *string          `json:"listingName"`
	Type           *string          `json:"type"`
	Status         *string          `json:"status"`
	Rating         json.RawMessage  `json:"rating"`
	ReviewCategory []SourceCategory `json:"reviewCategory"`
	SubmittedAt    *string          `json:"submittedAt"`
	GuestName      *string          `json:"guestName"`
	PublicReview   *string          `json:"publicReview"`
	Channel        *string          `json:"channel"`
}

type SourceCategory struct {
	Category string          `json:"category"`
	Rating   json.RawMessage `json:"rating"`
}

// FlexString accepts a JSON string, number or null and keeps its text form.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }
