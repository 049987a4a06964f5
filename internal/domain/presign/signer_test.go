package presign

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"pilotforce-server-go/internal/platform/config"
)

func testSigner(t *testing.T) *Signer {
	t.Helper()
	signer, err := NewSigner(config.PresignConfig{
		KeyID:      "test-key",
		Secret:     "test-secret",
		BasePath:   "/api/files",
		DefaultTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewSigner error: %v", err)
	}
	return signer
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner(config.PresignConfig{}); err == nil {
		t.Fatalf("expected error without signing secret")
	}
}

func TestSignProducesVerifiableURL(t *testing.T) {
	signer := testSigner(t)
	signed := signer.Sign("bookings/b1/photo.jpg", 0)

	if !IsSignedURL(signed) {
		t.Fatalf("Sign output missing signed markers: %s", signed)
	}
	if !strings.HasPrefix(signed, "/api/files/bookings/b1/photo.jpg?") {
		t.Fatalf("unexpected path in %s", signed)
	}
	if err := signer.Verify(signed); err != nil {
		t.Fatalf("Verify rejected freshly signed url: %v", err)
	}

	key, err := signer.ObjectKey(signed)
	if err != nil {
		t.Fatalf("ObjectKey error: %v", err)
	}
	if key != "bookings/b1/photo.jpg" {
		t.Fatalf("ObjectKey = %q", key)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	signer := testSigner(t)
	signed := signer.Sign("bookings/b1/photo.jpg", 0)

	tampered := strings.Replace(signed, "photo.jpg", "secret.jpg", 1)
	if err := signer.Verify(tampered); err == nil {
		t.Fatalf("Verify must reject a tampered path")
	}

	parsed, _ := url.Parse(signed)
	query := parsed.Query()
	query.Set(paramExpires, "999999")
	parsed.RawQuery = query.Encode()
	if err := signer.Verify(parsed.String()); err == nil {
		t.Fatalf("Verify must reject a stretched lifetime")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	signer := testSigner(t)
	signer.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	signed := signer.Sign("bookings/b1/photo.jpg", time.Minute)

	signer.now = func() time.Time { return time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC) }
	if err := signer.Verify(signed); err == nil {
		t.Fatalf("Verify must reject an expired url")
	}
}

func TestReissueRenewsExpiredURL(t *testing.T) {
	signer := testSigner(t)
	signer.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	old := signer.Sign("bookings/b1/ortho.tif", time.Minute)

	// Well past expiry, but the signature still verifies, so reissue works.
	signer.now = func() time.Time { return time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC) }
	fresh, err := signer.Reissue(context.Background(), old)
	if err != nil {
		t.Fatalf("Reissue error: %v", err)
	}
	if fresh == old {
		t.Fatalf("Reissue must produce a new url")
	}
	if err := signer.Verify(fresh); err != nil {
		t.Fatalf("reissued url must verify: %v", err)
	}

	key, err := signer.ObjectKey(fresh)
	if err != nil || key != "bookings/b1/ortho.tif" {
		t.Fatalf("reissued url points at %q (err %v)", key, err)
	}
}

func TestReissueRejectsForgedURL(t *testing.T) {
	signer := testSigner(t)
	forged := "/api/files/bookings/b1/photo.jpg?X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Date=20240101T120000Z&X-Amz-Expires=60&X-Amz-Signature=deadbeef"
	if _, err := signer.Reissue(context.Background(), forged); err == nil {
		t.Fatalf("Reissue must reject a forged signature")
	}
}

func TestObjectKeyOutsideBasePath(t *testing.T) {
	signer := testSigner(t)
	if _, err := signer.ObjectKey("/other/path/photo.jpg?X-Amz-Signature=x"); err == nil {
		t.Fatalf("expected error for url outside base path")
	}
}
