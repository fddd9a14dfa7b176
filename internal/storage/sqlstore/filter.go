package sqlstore

import (
	"fmt"
	"strings"

	"guest_reviews/internal/domain"
)

var sortColumns = map[domain.SortField]string{
	domain.SortSubmittedAt:   "r.submitted_at",
	domain.SortRatingOverall: "r.rating_overall",
	domain.SortGuestName:     "r.guest_name",
	domain.SortChannel:       "r.channel",
	domain.SortStatus:        "r.status",
	domain.SortType:          "r.type",
	domain.SortCreatedAt:     "r.created_at",
}

// where renders the predicate as " WHERE ..." (or "") plus its args. extra
// conditions are ANDed after the filter's own.
func (d Dialect) where(f domain.ReviewFilter, extra ...string) (string, []any) {
	var conds []string
	var args []any

	if f.From != nil {
		conds = append(conds, "r.submitted_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "r.submitted_at <= ?")
		args = append(args, f.To.UTC())
	}
	if f.ListingID != nil {
		conds = append(conds, "r.listing_id = ?")
		args = append(args, *f.ListingID)
	}
	if f.ListingSlug != nil {
		conds = append(conds, "r.listing_id IN (SELECT ls.id FROM listings ls WHERE ls.slug = ?)")
		args = append(args, *f.ListingSlug)
	}
	if f.Type != nil {
		conds = append(conds, "r.type = ?")
		args = append(args, string(*f.Type))
	}
	if f.Channel != nil {
		conds = append(conds, "r.channel = ?")
		args = append(args, string(*f.Channel))
	}
	if f.Status != nil {
		conds = append(conds, "r.status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Approved != nil {
		conds = append(conds, "r.is_approved = ?")
		args = append(args, *f.Approved)
	}
	if f.Text != nil {
		pat := likeContains(*f.Text)
		conds = append(conds, fmt.Sprintf("(%[1]s(r.guest_name) LIKE ? ESCAPE '!' OR %[1]s(r.public_review) LIKE ? ESCAPE '!')", d.fold))
		args = append(args, pat, pat)
	}
	conds = append(conds, extra...)

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(s domain.Sort) string {
	col, ok := sortColumns[s.Field]
	if !ok {
		col = sortColumns[domain.SortSubmittedAt]
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", r.id " + dir
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func likeContains(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
