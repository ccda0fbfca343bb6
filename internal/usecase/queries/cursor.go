package queries

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"booking-engine/internal/pkg/errs"
	"booking-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	CursorVersionV1  = "v1"
)

// EncodeCursor uses microsecond precision to align with PostgreSQL
// timestamptz.
func EncodeCursor(pos shared.PagePosition) string {
	data := fmt.Sprintf("%s:%d-%s", CursorVersionV1, pos.CreatedAt.UnixMicro(), pos.ID.String())
	return base64.RawURLEncoding.EncodeToString([]byte(data))
}

func DecodeCursor(cursor string) (shared.PagePosition, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return shared.PagePosition{}, errs.Markf(errs.ErrValidation, "malformed cursor")
	}
	payload, ok := strings.CutPrefix(string(decoded), CursorVersionV1+":")
	if !ok {
		return shared.PagePosition{}, errs.Markf(errs.ErrValidation, "unsupported cursor version")
	}

	micros, rawID, ok := strings.Cut(payload, "-")
	if !ok {
		return shared.PagePosition{}, errs.Markf(errs.ErrValidation, "invalid cursor format: expected '<micros>-<uuid>'")
	}
	ts, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return shared.PagePosition{}, errs.Markf(errs.ErrValidation, "invalid cursor timestamp")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return shared.PagePosition{}, errs.Markf(errs.ErrValidation, "invalid cursor id")
	}
	return shared.PagePosition{CreatedAt: time.UnixMicro(ts).UTC(), ID: id}, nil
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}
