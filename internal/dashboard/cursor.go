package dashboard

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/selivandex/news-pulse/internal/adapters/news"
)

// ErrInvalidCursor is returned for a page token this service did not issue
var ErrInvalidCursor = errors.New("invalid cursor")

// EncodeCursor turns the position after an article into an opaque page token
func EncodeCursor(c news.Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a page token; an empty token means the first page
func DecodeCursor(token string) (*news.Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &news.Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}
