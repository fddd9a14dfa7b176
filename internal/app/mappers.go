package app

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"guest_reviews/internal/domain"
)

/********** enum mappers (total: every input maps to a canonical value) **********/

func MapType(t string) domain.ReviewType {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "host-to-guest":
		return domain.TypeHostToGuest
	case "guest-to-host":
		return domain.TypeGuestToHost
	default:
		return domain.TypeHostToGuest
	}
}

func MapStatus(s string) domain.ReviewStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "published":
		return domain.StatusPublished
	case "hidden":
		return domain.StatusHidden
	case "draft":
		return domain.StatusDraft
	default:
		return domain.StatusPublished
	}
}

func MapChannel(c string) domain.ReviewChannel {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "airbnb":
		return domain.ChannelAirbnb
	case "booking", "booking.com":
		return domain.ChannelBooking
	case "direct":
		return domain.ChannelDirect
	default:
		return domain.ChannelUnknown
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// MapCategory never returns an empty category; unknown names become OTHER.
func MapCategory(cat string) domain.CategoryType {
	k := whitespaceRun.ReplaceAllString(strings.ToLower(cat), "_")
	switch k {
	case "cleanliness":
		return domain.CategoryCleanliness
	case "communication":
		return domain.CategoryCommunication
	case "accuracy":
		return domain.CategoryAccuracy
	case "checkin", "check_in", "check-in":
		return domain.CategoryCheckin
	case "location":
		return domain.CategoryLocation
	case "value":
		return domain.CategoryValue
	case "respect_house_rules", "house_rules", "respect_house_rules_":
		return domain.CategoryRespectHouseRules
	default:
		return domain.CategoryOther
	}
}

/********** timestamps **********/

var hasOffset = regexp.MustCompile(`[+-]\d{2}:?\d{2}$`)

// ParseSubmittedAt accepts "2020-08-21 22:45:14", "2020-08-21T22:45:14" and
// either with a trailing Z. A missing zone marker means UTC.
func ParseSubmittedAt(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, false
	}
	isoish := trimmed
	if !strings.Contains(isoish, "T") {
		isoish = strings.Replace(isoish, " ", "T", 1)
	}
	if !strings.HasSuffix(isoish, "Z") && !hasOffset.MatchString(isoish) {
		isoish += "Z"
	}
	t, err := time.Parse(time.RFC3339Nano, isoish)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

/********** slugs **********/

const (
	slugMaxLen         = 64
	unknownListingName = "Unknown Listing"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify folds accents to ASCII, lowercases and collapses everything else to
// single dashes, e.g. "Café Élysée #1!" -> "cafe-elysee-1".
func Slugify(input string) string {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, strings.ToLower(input))
	if err != nil {
		folded = strings.ToLower(input)
	}
	s := nonSlug.ReplaceAllString(folded, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimSuffix(s, "-")
	if len(s) > slugMaxLen {
		s = s[:slugMaxLen]
	}
	return s
}

// listingName returns the trimmed name, or the placeholder when blank.
func listingName(p *string) string {
	if n := strings.TrimSpace(deref(p)); n != "" {
		return n
	}
	return unknownListingName
}

/********** free-text fields **********/

const guestNameMaxRunes = 200

func NormalizeGuestName(p *string) string {
	name := deref(p)
	if name == "" {
		name = "Guest"
	}
	if utf8.RuneCountInString(name) > guestNameMaxRunes {
		name = string([]rune(name)[:guestNameMaxRunes])
	}
	return name
}

func normalizeText(p *string) string { return strings.TrimSpace(deref(p)) }

/********** numbers **********/

// parseNumber reads a JSON number, or a string holding one. Null, empty and
// non-numeric values report ok=false.
func parseNumber(raw json.RawMessage) (float64, bool) {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, false
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, false
		}
		b = []byte(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")))
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NormalizeOverall returns nil when the record carries no usable overall rating.
func NormalizeOverall(raw json.RawMessage) *float64 {
	f, ok := parseNumber(raw)
	if !ok {
		return nil
	}
	return &f
}

// NormalizeCategories maps, rounds and drops non-finite ratings. Duplicate
// categories are kept here; storage skips the later duplicates.
func NormalizeCategories(in []domain.SourceCategory) []domain.CategoryScore {
	out := make([]domain.CategoryScore, 0, len(in))
	for _, c := range in {
		f, ok := parseNumber(c.Rating)
		if !ok {
			continue
		}
		r := math.Round(f)
		if r > math.MaxInt32 || r < math.MinInt32 {
			continue
		}
		out = append(out, domain.CategoryScore{Category: MapCategory(c.Category), Rating: int(r)})
	}
	return out
}

func inRatingRange(f float64) bool {
	return f >= domain.MinRating && f <= domain.MaxRating
}

/********** tiny helpers **********/

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ptr[T any](v T) *T { return &v }
