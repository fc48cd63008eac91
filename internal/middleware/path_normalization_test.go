package middleware

import (
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		// Static routes - no normalization
		{
			name:     "root path",
			path:     "/",
			expected: "/",
		},
		{
			name:     "listings collection",
			path:     "/listings",
			expected: "/listings",
		},
		{
			name:     "listings search",
			path:     "/listings/search",
			expected: "/listings/search",
		},
		{
			name:     "listings nearby",
			path:     "/listings/nearby",
			expected: "/listings/nearby",
		},
		{
			name:     "roommate profile",
			path:     "/roommates/profile",
			expected: "/roommates/profile",
		},
		{
			name:     "roommate matches",
			path:     "/roommates/matches",
			expected: "/roommates/matches",
		},
		{
			name:     "uploads sign",
			path:     "/uploads/sign",
			expected: "/uploads/sign",
		},
		{
			name:     "health endpoint",
			path:     "/health",
			expected: "/health",
		},
		{
			name:     "ready endpoint",
			path:     "/ready",
			expected: "/ready",
		},
		{
			name:     "metrics endpoint",
			path:     "/metrics",
			expected: "/metrics",
		},

		// Listings patterns
		{
			name:     "listing by id",
			path:     "/listings/123",
			expected: "/listings/{id}",
		},
		{
			name:     "listing by uuid",
			path:     "/listings/550e8400-e29b-41d4-a716-446655440000",
			expected: "/listings/{id}",
		},

		// Conversations patterns
		{
			name:     "conversation by id",
			path:     "/conversations/conv-123",
			expected: "/conversations/{id}",
		},
		{
			name:     "conversation messages",
			path:     "/conversations/conv-456/messages",
			expected: "/conversations/{id}/messages",
		},
		{
			name:     "conversation read",
			path:     "/conversations/conv-789/read",
			expected: "/conversations/{id}/read",
		},

		// Reviews patterns
		{
			name:     "seller reviews",
			path:     "/sellers/seller-123/reviews",
			expected: "/sellers/{id}/reviews",
		},

		// Admin report patterns
		{
			name:     "admin report by id",
			path:     "/admin/reports/report-123",
			expected: "/admin/reports/{id}",
		},
		{
			name:     "admin report resolve",
			path:     "/admin/reports/report-456/resolve",
			expected: "/admin/reports/{id}/resolve",
		},
		{
			name:     "admin report dismiss",
			path:     "/admin/reports/report-789/dismiss",
			expected: "/admin/reports/{id}/dismiss",
		},
		{
			name:     "admin reports collection",
			path:     "/admin/reports",
			expected: "/admin/reports",
		},

		// Notifications patterns
		{
			name:     "notifications collection",
			path:     "/notifications",
			expected: "/notifications",
		},
		{
			name:     "notifications unread count",
			path:     "/notifications/unread_count",
			expected: "/notifications/unread_count",
		},
		{
			name:     "notification read",
			path:     "/notifications/notif-123/read",
			expected: "/notifications/{id}/read",
		},
		{
			name:     "notification by id",
			path:     "/notifications/notif-456",
			expected: "/notifications/{id}",
		},

		// Edge cases
		{
			name:     "trailing slash on collection",
			path:     "/listings/",
			expected: "/listings/",
		},
		{
			name:     "unknown route",
			path:     "/unknown/path",
			expected: "/unknown/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizePath(tt.path)
			if result != tt.expected {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestNormalizePath_CardinalityControl(t *testing.T) {
	// Test that different IDs normalize to the same pattern
	paths := []string{
		"/listings/1",
		"/listings/2",
		"/listings/999",
		"/listings/550e8400-e29b-41d4-a716-446655440000",
		"/listings/abc-def-ghi",
	}

	expected := "/listings/{id}"
	seen := make(map[string]bool)

	for _, path := range paths {
		result := normalizePath(path)
		if result != expected {
			t.Errorf("normalizePath(%q) = %q, want %q", path, result, expected)
		}
		seen[result] = true
	}

	// Should all normalize to the same pattern (low cardinality)
	if len(seen) != 1 {
		t.Errorf("Expected all paths to normalize to single pattern, got %d patterns: %v", len(seen), seen)
	}
}
