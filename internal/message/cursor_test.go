package message

import (
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 30, 45, 0, time.UTC)
	token, err := EncodeCursor(at, "msg-123")
	if err != nil {
		t.Fatalf("EncodeCursor failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	cur, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("DecodeCursor failed: %v", err)
	}
	if !cur.CreatedAt.Equal(at) || cur.ID != "msg-123" {
		t.Errorf("round trip mismatch: %+v", cur)
	}
}

func TestDecodeCursorEmptyToken(t *testing.T) {
	cur, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("empty token should decode to nil, got error: %v", err)
	}
	if cur != nil {
		t.Errorf("empty token decoded to %+v, want nil", cur)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "not base64url", token: "!!!not-base64!!!"},
		{name: "base64 but not cbor", token: "aGVsbG8gd29ybGQ"},
		{name: "truncated", token: "oQ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCursor(tt.token); err != ErrInvalidCursor {
				t.Errorf("DecodeCursor(%q) error = %v, want ErrInvalidCursor", tt.token, err)
			}
		})
	}
}

func TestDecodeCursorRejectsZeroFields(t *testing.T) {
	token, err := EncodeCursor(time.Time{}, "")
	if err != nil {
		t.Fatalf("EncodeCursor failed: %v", err)
	}
	if _, err := DecodeCursor(token); err != ErrInvalidCursor {
		t.Errorf("zero-field cursor error = %v, want ErrInvalidCursor", err)
	}
}
