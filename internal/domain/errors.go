package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrIngestInProgress = errors.New("ingestion already in progress")
)
