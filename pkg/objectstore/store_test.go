package objectstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/tutorcast/pkg/errorsx"
)

func memStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Config{
		BaseURL:       "mem://localhost/tutorcast",
		PublicBaseURL: "https://audio.example.com",
		SigningKey:    "test-key",
		LinkTTL:       time.Hour,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := memStore(t)
	ctx := context.Background()

	key := "sessions/abc/lesson_1.wav"
	if _, err := store.Put(ctx, key, []byte("audio-bytes")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := store.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true", ok, err)
	}

	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("Get = %q, want %q", data, "audio-bytes")
	}
}

func TestGetMissingKey(t *testing.T) {
	store := memStore(t)
	if _, err := store.Get(context.Background(), "sessions/none/lesson_1.wav"); !errorsx.HasReason(err, errorsx.ReasonStorage) {
		t.Fatalf("expected storage reason, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store := memStore(t)
	ctx := context.Background()
	key := "sessions/abc/lesson_1.wav"

	if _, err := store.Put(ctx, key, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
	if ok, _ := store.Exists(ctx, key); ok {
		t.Error("key should be gone after delete")
	}
}

func TestSignedURL(t *testing.T) {
	store := memStore(t)
	key := "sessions/abc/lesson_1.wav"

	signed := store.SignedURL(key)
	if !strings.HasPrefix(signed, "https://audio.example.com/") {
		t.Errorf("signed URL should use public base: %s", signed)
	}
	if !strings.Contains(signed, "sig=") || !strings.Contains(signed, "expires=") {
		t.Errorf("signed URL missing signature params: %s", signed)
	}
	if err := store.VerifyURL(key, signed); err != nil {
		t.Fatalf("fresh URL should verify: %v", err)
	}
	if err := store.VerifyURL("sessions/other/lesson_1.wav", signed); err == nil {
		t.Error("URL signed for one key must not verify for another")
	}
}

func TestSignedURLExpires(t *testing.T) {
	store := memStore(t)
	key := "sessions/abc/lesson_1.wav"
	signed := store.SignedURL(key)

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if err := store.VerifyURL(key, signed); err == nil {
		t.Fatal("expired URL should fail verification")
	}
}

func TestUnsignedWhenNoKey(t *testing.T) {
	store, err := New(Config{BaseURL: "mem://localhost/t", PublicBaseURL: "https://a.example.com"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := store.SignedURL("k.wav"); strings.Contains(got, "sig=") {
		t.Errorf("no signing key configured, URL should be plain: %s", got)
	}
}
