package models

import (
	"testing"
	"time"
)

func TestHashAccessCode(t *testing.T) {
	a := HashAccessCode("summer-wedding-2025")
	b := HashAccessCode("summer-wedding-2025")

	if a != b {
		t.Fatalf("same code must hash identically")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(a))
	}
	if HashAccessCode("other-code") == a {
		t.Fatalf("different codes must hash differently")
	}
}

func TestGallerySessionIsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (&GallerySession{}).IsExpired(now) {
		t.Fatalf("session without expiry must never expire")
	}
	if !(&GallerySession{ExpiresAt: &past}).IsExpired(now) {
		t.Fatalf("expected expired session")
	}
	if (&GallerySession{ExpiresAt: &future}).IsExpired(now) {
		t.Fatalf("future expiry must still be valid")
	}
}

func TestDownloadTokenIsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	token := DownloadToken{ExpiresAt: now.Add(15 * time.Minute)}
	if token.IsExpired(now) {
		t.Fatalf("fresh token must not be expired")
	}
	if !token.IsExpired(now.Add(16 * time.Minute)) {
		t.Fatalf("token past its expiry must be expired")
	}
}
