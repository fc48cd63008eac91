package message

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// cursor marks a position in a conversation's message history. Pages walk
// backwards in time: the next page holds messages strictly older than the
// cursor, with ID as the tie-breaker for identical timestamps.
type cursor struct {
	CreatedAt time.Time `cbor:"created_at"`
	ID        string    `cbor:"id"`
}

// EncodeCursor packs a message position into an opaque URL-safe token.
func EncodeCursor(createdAt time.Time, id string) (string, error) {
	raw, err := cbor.Marshal(cursor{CreatedAt: createdAt.UTC(), ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor unpacks a token produced by EncodeCursor. An empty token
// decodes to the zero cursor, meaning "start from the newest message".
func DecodeCursor(token string) (*cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c cursor
	if err := cbor.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}
