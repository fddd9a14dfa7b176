package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"guest_reviews/internal/domain"
)

// generationKey is bumped on every write; read keys embed its value so a
// write invalidates all cached read responses at once.
const generationKey = "reviews:gen"

func bumpGeneration(ctx context.Context, c domain.Cache) {
	if c == nil {
		return
	}
	if _, err := c.Incr(ctx, generationKey); err != nil {
		log.Warn().Err(err).Msg("cache generation bump failed")
	}
}

func currentGeneration(ctx context.Context, c domain.Cache) int64 {
	var gen int64
	if ok, err := c.Get(ctx, generationKey, &gen); err != nil || !ok {
		return 0
	}
	return gen
}

// queryKey is stable for equal parameter sets regardless of order.
func queryKey(ctx context.Context, c domain.Cache, prefix string, params url.Values) string {
	sum := sha1.Sum([]byte(params.Encode()))
	return fmt.Sprintf("%s:%d:%s", prefix, currentGeneration(ctx, c), hex.EncodeToString(sum[:]))
}
