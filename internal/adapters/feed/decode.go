package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"guest_reviews/internal/adapters/observability"
	"guest_reviews/internal/domain"
)

// Decode reads either a bare JSON array of records or an object whose
// "result" field holds the array. Records that fail to decode are logged and
// dropped so one malformed entry never aborts the batch.
func Decode(r io.Reader) ([]domain.SourceRecord, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	var raws []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, fmt.Errorf("decode feed array: %w", err)
		}
	case '{':
		var env struct {
			Result []json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("decode feed envelope: %w", err)
		}
		raws = env.Result
	default:
		return nil, fmt.Errorf("decode feed: unexpected leading %q", body[0])
	}

	out := make([]domain.SourceRecord, 0, len(raws))
	for i, raw := range raws {
		var rec domain.SourceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Error().Err(err).Int("index", i).Msg("malformed feed record dropped")
			observability.ObserveIngest("failed")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
