package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"guest_reviews/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullF64(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

type Repo struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func New(db *sql.DB, d Dialect) *Repo {
	return &Repo{db: db, dialect: d, now: func() time.Time { return time.Now().UTC() }}
}

/********** listings **********/

func (r *Repo) FindListingByExternalID(ctx context.Context, externalID string) (domain.Listing, error) {
	return r.findListing(ctx, selectListingCols+"WHERE external_id = ?", externalID)
}

func (r *Repo) FindListingBySlug(ctx context.Context, slug string) (domain.Listing, error) {
	return r.findListing(ctx, selectListingCols+"WHERE slug = ?", slug)
}

func (r *Repo) findListing(ctx context.Context, q string, arg any) (domain.Listing, error) {
	var l domain.Listing
	var ext sql.NullString
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(&l.ID, &l.Name, &l.Slug, &ext); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("scan listing: %w", err)
	}
	if ext.Valid {
		s := ext.String
		l.ExternalID = &s
	}
	return l, nil
}

func (r *Repo) CreateListing(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := r.now()
	if _, err := r.db.ExecContext(ctx, insertListingSQL, l.ID, l.Name, l.Slug, valStr(l.ExternalID), now, now); err != nil {
		return domain.Listing{}, fmt.Errorf("insert listing: %w", err)
	}
	return l, nil
}

func (r *Repo) SetListingExternalID(ctx context.Context, listingID, externalID string) error {
	res, err := r.db.ExecContext(ctx, setListingExternalIDSQL, externalID, r.now(), listingID)
	if err != nil {
		return fmt.Errorf("update listing external id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) ListingsByIDs(ctx context.Context, ids []string) (map[string]domain.ListingSummary, error) {
	out := make(map[string]domain.ListingSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, slug FROM listings WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, fmt.Errorf("listings by ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l domain.ListingSummary
		if err := rows.Scan(&l.ID, &l.Name, &l.Slug); err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		out[l.ID] = l
	}
	return out, rows.Err()
}

/********** reviews: write side **********/

func (r *Repo) FindReviewID(ctx context.Context, source domain.ReviewSource, sourceReviewID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, selectReviewIDSQL, string(source), sourceReviewID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find review id: %w", err)
	}
	return id, nil
}

// UpsertReview runs upsert, category delete and category insert in a single
// transaction, so readers never see new review fields next to old scores.
func (r *Repo) UpsertReview(ctx context.Context, rv domain.Review, scores []domain.CategoryScore) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.now()
	if _, err := tx.ExecContext(ctx, r.dialect.upsertReview,
		uuid.NewString(), // used only when the row is new
		string(rv.Source),
		rv.SourceReviewID,
		rv.ListingID,
		string(rv.Type),
		string(rv.Status),
		string(rv.Channel),
		valF64(rv.RatingOverall),
		rv.SubmittedAt.UTC(),
		rv.GuestName,
		rv.PublicReview,
		now,
		now,
	); err != nil {
		return "", fmt.Errorf("upsert review: %w", err)
	}

	var id string
	if err := tx.QueryRowContext(ctx, selectReviewIDSQL, string(rv.Source), rv.SourceReviewID).Scan(&id); err != nil {
		return "", fmt.Errorf("read back review id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, deleteCategoriesSQL, id); err != nil {
		return "", fmt.Errorf("delete categories: %w", err)
	}

	if len(scores) > 0 {
		values := make([]string, 0, len(scores))
		args := make([]any, 0, len(scores)*3)
		for _, c := range scores {
			values = append(values, "(?,?,?)")
			args = append(args, id, string(c.Category), c.Rating)
		}
		if _, err := tx.ExecContext(ctx, r.dialect.insertCategoryPrefix+strings.Join(values, ","), args...); err != nil {
			return "", fmt.Errorf("insert categories: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (r *Repo) SetApproval(ctx context.Context, reviewID string, approved bool) (domain.ApprovalResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ApprovalResult{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var res domain.ApprovalResult
	if err := tx.QueryRowContext(ctx, selectApprovalSQL, reviewID).Scan(&res.ID, &res.IsApproved, &res.ListingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ApprovalResult{}, domain.ErrNotFound
		}
		return domain.ApprovalResult{}, fmt.Errorf("select review: %w", err)
	}
	if _, err := tx.ExecContext(ctx, updateApprovalSQL, approved, r.now(), reviewID); err != nil {
		return domain.ApprovalResult{}, fmt.Errorf("update approval: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.ApprovalResult{}, fmt.Errorf("commit: %w", err)
	}
	res.IsApproved = approved
	return res, nil
}

/********** reviews: read side **********/

func (r *Repo) ListReviews(ctx context.Context, q domain.ReviewQuery) ([]domain.ReviewItem, error) {
	w, args := r.dialect.where(q.Filter)
	args = append(args, q.Page.Size, q.Page.Offset())
	rows, err := r.db.QueryContext(ctx, listReviewsSelect+w+orderBy(q.Sort)+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	var out []domain.ReviewItem
	index := map[string]int{}
	for rows.Next() {
		var (
			it                  domain.ReviewItem
			rating              sql.NullFloat64
			lID, lName, lSlug   sql.NullString
			source, typ, ch, st string
		)
		if err := rows.Scan(
			&it.ID, &source, &it.SourceReviewID, &typ, &ch, &st,
			&rating, &it.SubmittedAt, &it.GuestName, &it.PublicReview, &it.IsApproved,
			&lID, &lName, &lSlug,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		it.Source = domain.ReviewSource(source)
		it.Type = domain.ReviewType(typ)
		it.Channel = domain.ReviewChannel(ch)
		it.Status = domain.ReviewStatus(st)
		it.RatingOverall = nullF64(rating)
		it.SubmittedAt = it.SubmittedAt.UTC()
		if lID.Valid {
			it.Listing = &domain.ListingSummary{ID: lID.String, Name: lName.String, Slug: lSlug.String}
		}
		it.Categories = []domain.CategoryScore{}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("rows err: %w", err)
	}
	// release the connection before the second query (SQLite runs on one)
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}
	if err := r.attachCategories(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) attachCategories(ctx context.Context, items []domain.ReviewItem, index map[string]int) error {
	args := make([]any, 0, len(items))
	for _, it := range items {
		args = append(args, it.ID)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT review_id, category, rating FROM review_categories WHERE review_id IN ("+
			placeholders(len(args))+") ORDER BY review_id, category", args...)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, cat string
		var rating int
		if err := rows.Scan(&id, &cat, &rating); err != nil {
			return fmt.Errorf("scan category row: %w", err)
		}
		if i, ok := index[id]; ok {
			items[i].Categories = append(items[i].Categories, domain.CategoryScore{Category: domain.CategoryType(cat), Rating: rating})
		}
	}
	return rows.Err()
}

func (r *Repo) CountReviews(ctx context.Context, f domain.ReviewFilter) (int, error) {
	w, args := r.dialect.where(f)
	var n int
	if err := r.db.QueryRowContext(ctx, countReviewsSelect+w, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

func (r *Repo) FacetByListing(ctx context.Context, f domain.ReviewFilter) ([]domain.ListingFacet, error) {
	w, args := r.dialect.where(f)
	rows, err := r.db.QueryContext(ctx, facetByListingSelect+w+" GROUP BY r.listing_id ORDER BY r.listing_id", args...)
	if err != nil {
		return nil, fmt.Errorf("facet by listing: %w", err)
	}
	defer rows.Close()

	var out []domain.ListingFacet
	for rows.Next() {
		var b domain.ListingFacet
		var avg sql.NullFloat64
		if err := rows.Scan(&b.ListingID, &b.Count, &avg); err != nil {
			return nil, fmt.Errorf("scan listing facet: %w", err)
		}
		b.AvgOverall = nullF64(avg)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) FacetByChannel(ctx context.Context, f domain.ReviewFilter) ([]domain.ChannelFacet, error) {
	w, args := r.dialect.where(f)
	rows, err := r.db.QueryContext(ctx, facetByChannelSelect+w+" GROUP BY r.channel ORDER BY r.channel", args...)
	if err != nil {
		return nil, fmt.Errorf("facet by channel: %w", err)
	}
	defer rows.Close()

	var out []domain.ChannelFacet
	for rows.Next() {
		var b domain.ChannelFacet
		var ch string
		if err := rows.Scan(&ch, &b.Count); err != nil {
			return nil, fmt.Errorf("scan channel facet: %w", err)
		}
		b.Channel = domain.ReviewChannel(ch)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) FacetByCategory(ctx context.Context, f domain.ReviewFilter) ([]domain.CategoryFacet, error) {
	w, args := r.dialect.where(f)
	rows, err := r.db.QueryContext(ctx, facetByCategorySelect+w+" GROUP BY c.category ORDER BY c.category", args...)
	if err != nil {
		return nil, fmt.Errorf("facet by category: %w", err)
	}
	defer rows.Close()

	var out []domain.CategoryFacet
	for rows.Next() {
		var b domain.CategoryFacet
		var cat string
		var avg sql.NullFloat64
		if err := rows.Scan(&cat, &avg); err != nil {
			return nil, fmt.Errorf("scan category facet: %w", err)
		}
		b.Category = domain.CategoryType(cat)
		b.Avg = nullF64(avg)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) OverallAverage(ctx context.Context, f domain.ReviewFilter) (*float64, error) {
	w, args := r.dialect.where(f)
	var avg sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, overallAverageSelect+w, args...).Scan(&avg); err != nil {
		return nil, fmt.Errorf("overall average: %w", err)
	}
	return nullF64(avg), nil
}

// UnratedCategoryRatings groups category ratings per matching review that
// has no explicit overall rating.
func (r *Repo) UnratedCategoryRatings(ctx context.Context, f domain.ReviewFilter) ([][]int, error) {
	w, args := r.dialect.where(f, "r.rating_overall IS NULL")
	rows, err := r.db.QueryContext(ctx, unratedCategoriesSelect+w+" ORDER BY c.review_id", args...)
	if err != nil {
		return nil, fmt.Errorf("unrated categories: %w", err)
	}
	defer rows.Close()

	var out [][]int
	last := ""
	for rows.Next() {
		var id string
		var rating int
		if err := rows.Scan(&id, &rating); err != nil {
			return nil, fmt.Errorf("scan unrated category: %w", err)
		}
		if id != last || len(out) == 0 {
			out = append(out, nil)
			last = id
		}
		out[len(out)-1] = append(out[len(out)-1], rating)
	}
	return out, rows.Err()
}

func (r *Repo) RatingTimeline(ctx context.Context, f domain.ReviewFilter) ([]domain.RatingPoint, error) {
	w, args := r.dialect.where(f)
	rows, err := r.db.QueryContext(ctx, ratingTimelineSelect+w, args...)
	if err != nil {
		return nil, fmt.Errorf("rating timeline: %w", err)
	}
	defer rows.Close()

	var out []domain.RatingPoint
	for rows.Next() {
		var p domain.RatingPoint
		var rating, catMean sql.NullFloat64
		if err := rows.Scan(&p.SubmittedAt, &rating, &catMean); err != nil {
			return nil, fmt.Errorf("scan rating point: %w", err)
		}
		p.RatingOverall = nullF64(rating)
		p.CategoryMean = nullF64(catMean)
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ domain.ReviewRepository = (*Repo)(nil)
