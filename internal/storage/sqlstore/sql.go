package sqlstore

// -----------------------------------------------------------------------------
// WRITE STATEMENTS
// -----------------------------------------------------------------------------

const selectListingCols = `SELECT id, name, slug, external_id FROM listings `

const insertListingSQL = `
INSERT INTO listings (id, name, slug, external_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const setListingExternalIDSQL = `
UPDATE listings SET external_id = ?, updated_at = ? WHERE id = ?
`

const selectReviewIDSQL = `
SELECT id FROM reviews WHERE source = ? AND source_review_id = ?
`

// is_approved and created_at are written on insert only; the update branch
// never mentions them so an operator's approval survives reingestion.
const upsertReviewMySQL = `
INSERT INTO reviews
  (id, source, source_review_id, listing_id, type, status, channel, rating_overall,
   submitted_at, guest_name, public_review, is_approved, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?)
ON DUPLICATE KEY UPDATE
  listing_id     = VALUES(listing_id),
  type           = VALUES(type),
  status         = VALUES(status),
  channel        = VALUES(channel),
  rating_overall = VALUES(rating_overall),
  submitted_at   = VALUES(submitted_at),
  guest_name     = VALUES(guest_name),
  public_review  = VALUES(public_review),
  updated_at     = VALUES(updated_at)
`

const upsertReviewSQLite = `
INSERT INTO reviews
  (id, source, source_review_id, listing_id, type, status, channel, rating_overall,
   submitted_at, guest_name, public_review, is_approved, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
ON CONFLICT (source, source_review_id) DO UPDATE SET
  listing_id     = excluded.listing_id,
  type           = excluded.type,
  status         = excluded.status,
  channel        = excluded.channel,
  rating_overall = excluded.rating_overall,
  submitted_at   = excluded.submitted_at,
  guest_name     = excluded.guest_name,
  public_review  = excluded.public_review,
  updated_at     = excluded.updated_at
`

const deleteCategoriesSQL = `DELETE FROM review_categories WHERE review_id = ?`

const selectApprovalSQL = `SELECT id, is_approved, listing_id FROM reviews WHERE id = ?`

const updateApprovalSQL = `UPDATE reviews SET is_approved = ?, updated_at = ? WHERE id = ?`

// -----------------------------------------------------------------------------
// READ QUERIES (filter fragments use alias r for reviews)
// -----------------------------------------------------------------------------

const listReviewsSelect = `
SELECT
  r.id, r.source, r.source_review_id, r.type, r.channel, r.status,
  r.rating_overall, r.submitted_at, r.guest_name, r.public_review, r.is_approved,
  l.id, l.name, l.slug
FROM reviews r
LEFT JOIN listings l ON l.id = r.listing_id`

const countReviewsSelect = `SELECT COUNT(*) FROM reviews r`

const facetByListingSelect = `SELECT r.listing_id, COUNT(*), AVG(r.rating_overall) FROM reviews r`

const facetByChannelSelect = `SELECT r.channel, COUNT(*) FROM reviews r`

const facetByCategorySelect = `
SELECT c.category, AVG(c.rating)
FROM review_categories c
JOIN reviews r ON r.id = c.review_id`

const overallAverageSelect = `SELECT AVG(r.rating_overall) FROM reviews r`

const unratedCategoriesSelect = `
SELECT c.review_id, c.rating
FROM review_categories c
JOIN reviews r ON r.id = c.review_id`

const ratingTimelineSelect = `
SELECT
  r.submitted_at,
  r.rating_overall,
  (SELECT AVG(c.rating) FROM review_categories c WHERE c.review_id = r.id)
FROM reviews r`
