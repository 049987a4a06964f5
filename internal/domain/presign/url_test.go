package presign

import (
	"fmt"
	"testing"
	"time"
)

func signedURL(issued time.Time, lifetimeSeconds int64) string {
	return fmt.Sprintf(
		"https://cdn.example/files/photo.jpg?X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Date=%s&X-Amz-Expires=%d&X-Amz-Signature=abc123",
		issued.UTC().Format(amzDateLayout), lifetimeSeconds)
}

func TestIsSignedURL(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want bool
	}{
		{"all markers", signedURL(time.Now(), 3600), true},
		{"plain url", "https://cdn.example/files/photo.jpg", false},
		{"missing signature", "https://cdn.example/a?X-Amz-Algorithm=x&X-Amz-Date=y&X-Amz-Expires=z", false},
		{"missing date", "https://cdn.example/a?X-Amz-Algorithm=x&X-Amz-Signature=y&X-Amz-Expires=z", false},
		{"unparsable", "http://cdn.example/%zz?X-Amz-Algorithm=x", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSignedURL(tc.url); got != tc.want {
				t.Fatalf("IsSignedURL(%q) = %v, want %v", tc.url, got, tc.want)
			}
		})
	}
}

func TestExpiry(t *testing.T) {
	raw := "https://cdn.example/files/a.jpg?X-Amz-Date=20240101T120000Z&X-Amz-Expires=3600"
	expiry, ok := Expiry(raw)
	if !ok {
		t.Fatalf("expected parsable expiry")
	}
	want := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	if !expiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", expiry, want)
	}

	for _, raw := range []string{
		"https://cdn.example/a?X-Amz-Date=not-a-date&X-Amz-Expires=3600",
		"https://cdn.example/a?X-Amz-Date=20240101T120000Z&X-Amz-Expires=banana",
		"https://cdn.example/a?X-Amz-Date=20240101T120000Z&X-Amz-Expires=0",
		"https://cdn.example/a?X-Amz-Date=20240101T120000Z&X-Amz-Expires=-5",
		"https://cdn.example/a",
	} {
		if _, ok := Expiry(raw); ok {
			t.Fatalf("Expiry(%q) should fail", raw)
		}
	}
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Expires in an hour: comfortably fresh.
	fresh := signedURL(now, 3600)
	if NeedsRefresh(fresh, now) {
		t.Fatalf("fresh url should not need refresh")
	}

	// Expires in five minutes: inside the ten minute threshold.
	stale := signedURL(now, 300)
	if !NeedsRefresh(stale, now) {
		t.Fatalf("near-expiry url should need refresh")
	}

	// Already expired.
	expired := signedURL(now.Add(-2*time.Hour), 3600)
	if !NeedsRefresh(expired, now) {
		t.Fatalf("expired url should need refresh")
	}

	// Unsigned URLs never refresh, however old.
	if NeedsRefresh("https://cdn.example/files/photo.jpg", now) {
		t.Fatalf("unsigned url must never need refresh")
	}

	// Signed markers present but expiry unreadable: err toward refresh.
	broken := "https://cdn.example/a?X-Amz-Algorithm=x&X-Amz-Signature=y&X-Amz-Date=garbage&X-Amz-Expires=3600"
	if !NeedsRefresh(broken, now) {
		t.Fatalf("signed url with unreadable expiry should need refresh")
	}
}
