//go:build integration || !unit

package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"guest_reviews/internal/domain"
	"guest_reviews/internal/storage/sqlstore"
)

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("SKIP_DOCKER") != "" {
		t.Skip("SKIP_DOCKER set")
	}

	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=reviews",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "reviews")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := sqlstore.Migrate(context.Background(), db, sqlstore.MySQL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRepo_MySQL_UpsertAndQuery(t *testing.T) {
	db := startMySQL(t)
	repo := sqlstore.New(db, sqlstore.MySQL)
	ctx := context.Background()

	l, err := repo.CreateListing(ctx, domain.Listing{Name: "Shoreditch Loft", Slug: "shoreditch-loft"})
	if err != nil {
		t.Fatalf("CreateListing: %v", err)
	}

	at := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	rv := domain.Review{
		Source:         domain.SourceHostaway,
		SourceReviewID: "7453",
		ListingID:      l.ID,
		Type:           domain.TypeGuestToHost,
		Status:         domain.StatusPublished,
		Channel:        domain.ChannelAirbnb,
		SubmittedAt:    at,
		GuestName:      "Shane Finkelstein",
		PublicReview:   "Great stay",
	}
	id, err := repo.UpsertReview(ctx, rv, []domain.CategoryScore{
		{Category: domain.CategoryCleanliness, Rating: 8},
		{Category: domain.CategoryLocation, Rating: 10},
	})
	if err != nil {
		t.Fatalf("UpsertReview: %v", err)
	}
	if _, err := repo.SetApproval(ctx, id, true); err != nil {
		t.Fatalf("SetApproval: %v", err)
	}

	// reingest with fewer categories
	if _, err := repo.UpsertReview(ctx, rv, []domain.CategoryScore{{Category: domain.CategoryValue, Rating: 6}}); err != nil {
		t.Fatalf("UpsertReview again: %v", err)
	}

	items, err := repo.ListReviews(ctx, domain.ReviewQuery{
		Filter: domain.ReviewFilter{Text: pstr("great")},
		Page:   domain.Page{Number: 1, Size: 20},
		Sort:   domain.Sort{Field: domain.SortSubmittedAt, Desc: true},
	})
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if len(items) != 1 || !items[0].IsApproved || len(items[0].Categories) != 1 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if !items[0].SubmittedAt.Equal(at) {
		t.Fatalf("submittedAt = %v, want %v", items[0].SubmittedAt, at)
	}

	groups, err := repo.UnratedCategoryRatings(ctx, domain.ReviewFilter{})
	if err != nil || len(groups) != 1 || groups[0][0] != 6 {
		t.Fatalf("UnratedCategoryRatings: %+v err=%v", groups, err)
	}

	if _, err := repo.SetApproval(ctx, "does-not-exist", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
