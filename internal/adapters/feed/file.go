package feed

import (
	"context"
	"fmt"
	"os"

	"guest_reviews/internal/domain"
)

// FileSource reads a feed export from disk.
type FileSource struct{ Path string }

func (f FileSource) Records(ctx context.Context) ([]domain.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open feed file %s: %w", f.Path, err)
	}
	defer fh.Close()
	return Decode(fh)
}
