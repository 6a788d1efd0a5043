// Package objectstore persists finished audio artifacts behind an abstract
// file system, so the same code serves local disk, memory (tests), and
// cloud buckets. Retrieval URLs are HMAC-signed with an expiry.
package objectstore

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/viant/afs"
	afsurl "github.com/viant/afs/url"

	"github.com/harunnryd/tutorcast/pkg/errorsx"
)

// Config points the store at a storage root and a public base for links.
type Config struct {
	// BaseURL is the storage root, e.g. "file:///var/tutorcast",
	// "mem://localhost/tutorcast", or "s3://bucket/prefix".
	BaseURL string
	// PublicBaseURL is the address artifacts are served from.
	PublicBaseURL string
	// SigningKey signs retrieval URLs.
	SigningKey string
	// LinkTTL is how long a signed URL stays valid.
	LinkTTL time.Duration
}

// Store reads and writes audio artifacts.
type Store struct {
	fs  afs.Service
	cfg Config
	now func() time.Time
	log *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, errorsx.Wrap(fmt.Errorf("objectstore base URL is required"), errorsx.ReasonStorage)
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{fs: afs.New(), cfg: cfg, now: time.Now, log: logger}, nil
}

// Put stores data under key below the base URL and returns the full
// storage location.
func (s *Store) Put(ctx context.Context, key string, data []byte) (string, error) {
	dest := afsurl.Join(s.cfg.BaseURL, key)
	if err := s.fs.Upload(ctx, dest, 0644, bytes.NewReader(data)); err != nil {
		return "", errorsx.Wrap(fmt.Errorf("upload %s: %w", key, err), errorsx.ReasonStorage)
	}
	s.log.Info("artifact stored", slog.String("key", key), slog.Int("size_bytes", len(data)))
	return dest, nil
}

// Get reads the artifact stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.fs.DownloadWithURL(ctx, afsurl.Join(s.cfg.BaseURL, key))
	if err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("download %s: %w", key, err), errorsx.ReasonStorage)
	}
	return data, nil
}

// Exists reports whether an artifact is present under key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.fs.Exists(ctx, afsurl.Join(s.cfg.BaseURL, key))
	if err != nil {
		return false, errorsx.Wrap(fmt.Errorf("stat %s: %w", key, err), errorsx.ReasonStorage)
	}
	return ok, nil
}

// Delete removes the artifact under key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	dest := afsurl.Join(s.cfg.BaseURL, key)
	ok, err := s.fs.Exists(ctx, dest)
	if err != nil || !ok {
		return nil
	}
	if err := s.fs.Delete(ctx, dest); err != nil {
		return errorsx.Wrap(fmt.Errorf("delete %s: %w", key, err), errorsx.ReasonStorage)
	}
	return nil
}

// SignedURL returns a public retrieval URL for key, carrying an expiry
// timestamp and an HMAC over key+expiry. Without a signing key the plain
// public URL is returned.
func (s *Store) SignedURL(key string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = s.cfg.BaseURL
	}
	plain := afsurl.Join(base, key)
	if s.cfg.SigningKey == "" {
		return plain
	}
	expires := s.now().Add(s.cfg.LinkTTL).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(key, expires))
	return plain + "?" + q.Encode()
}

// VerifyURL checks a signed URL's signature and expiry for key.
func (s *Store) VerifyURL(key, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errorsx.Wrap(fmt.Errorf("parse artifact URL: %w", err), errorsx.ReasonInvalidInput)
	}
	expires, err := strconv.ParseInt(parsed.Query().Get("expires"), 10, 64)
	if err != nil {
		return errorsx.Wrap(fmt.Errorf("artifact URL missing expiry"), errorsx.ReasonInvalidInput)
	}
	if s.now().Unix() > expires {
		return errorsx.Wrap(fmt.Errorf("artifact URL expired"), errorsx.ReasonInvalidInput)
	}
	want := s.sign(key, expires)
	if !hmac.Equal([]byte(want), []byte(parsed.Query().Get("sig"))) {
		return errorsx.Wrap(fmt.Errorf("artifact URL signature mismatch"), errorsx.ReasonInvalidInput)
	}
	return nil
}

func (s *Store) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.SigningKey))
	fmt.Fprintf(mac, "%s:%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
