package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"guest_reviews/internal/domain"
)

// resolveListing finds the canonical listing for a record: by feed listing id
// first, then by derived slug (backfilling the feed id), else creates it.
func (s *IngestionService) resolveListing(ctx context.Context, rec domain.SourceRecord) (string, error) {
	name := listingName(rec.ListingName)
	externalID := strings.TrimSpace(rec.ListingID.String())

	if externalID != "" {
		l, err := s.repo.FindListingByExternalID(ctx, externalID)
		if err == nil {
			return l.ID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("find listing by external id %q: %w", externalID, err)
		}
	}

	slug := Slugify(name)
	if slug == "" {
		// names made only of symbols share the placeholder slug
		slug = Slugify(unknownListingName)
	}

	l, err := s.repo.FindListingBySlug(ctx, slug)
	switch {
	case err == nil:
		if externalID != "" && l.ExternalID == nil {
			if err := s.repo.SetListingExternalID(ctx, l.ID, externalID); err != nil {
				return "", fmt.Errorf("backfill external id on listing %s: %w", l.ID, err)
			}
			log.Debug().Str("listing_id", l.ID).Str("external_id", externalID).Msg("listing external id backfilled")
		}
		return l.ID, nil
	case !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("find listing by slug %q: %w", slug, err)
	}

	nl := domain.Listing{Name: name, Slug: slug}
	if externalID != "" {
		nl.ExternalID = &externalID
	}
	created, err := s.repo.CreateListing(ctx, nl)
	if err != nil {
		return "", fmt.Errorf("create listing %q: %w", slug, err)
	}
	return created.ID, nil
}
