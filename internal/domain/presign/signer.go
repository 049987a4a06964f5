package presign

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pilotforce-server-go/internal/platform/config"
	"pilotforce-server-go/internal/platform/errors"
)

const (
	signingAlgorithm = "AWS4-HMAC-SHA256"
	credentialScope  = "local/blobs/v1"
)

// Signer issues and verifies query-signed download URLs for the local blob
// store, using the same four-marker query scheme S3 presigned links carry so
// the freshness tracker treats both alike.
type Signer struct {
	keyID    string
	secret   []byte
	basePath string
	ttl      time.Duration
	now      func() time.Time
}

func NewSigner(cfg config.PresignConfig) (*Signer, error) {
	if cfg.Secret == "" {
		return nil, errors.New(errors.KindPresign, "signer.new", "signing secret required")
	}
	keyID := cfg.KeyID
	if keyID == "" {
		keyID = "pilotforce-local"
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api/files"
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{
		keyID:    keyID,
		secret:   []byte(cfg.Secret),
		basePath: strings.TrimSuffix(basePath, "/"),
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Sign issues a relative signed URL for the object key, valid for ttl
// (the configured default when ttl is zero).
func (s *Signer) Sign(objectKey string, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = s.ttl
	}
	issued := s.now().UTC().Format(amzDateLayout)
	expires := strconv.FormatInt(int64(ttl/time.Second), 10)
	path := s.objectPath(objectKey)

	query := url.Values{}
	query.Set(paramAlgorithm, signingAlgorithm)
	query.Set("X-Amz-Credential", s.keyID+"/"+credentialScope)
	query.Set(paramDate, issued)
	query.Set(paramExpires, expires)
	query.Set("X-Amz-SignedHeaders", "host")
	query.Set(paramSignature, s.signature(path, issued, expires))

	return path + "?" + query.Encode()
}

// Verify checks the signature and the expiry of a signed URL.
func (s *Signer) Verify(raw string) error {
	path, query, err := s.parse(raw)
	if err != nil {
		return err
	}

	if err := s.verifySignature(path, query); err != nil {
		return err
	}

	expiry, ok := Expiry(raw)
	if !ok {
		return errors.New(errors.KindPresign, "signer.verify", "missing or invalid expiry parameters")
	}
	if s.now().After(expiry) {
		return errors.New(errors.KindPresign, "signer.verify", "signed url expired")
	}
	return nil
}

// Reissue produces a fresh signed URL for the object a stale link points at.
// The old signature must still verify; only its age is forgiven. Reissue
// satisfies the Reissuer interface used by the Refresher.
func (s *Signer) Reissue(_ context.Context, raw string) (string, error) {
	path, query, err := s.parse(raw)
	if err != nil {
		return "", err
	}
	if err := s.verifySignature(path, query); err != nil {
		return "", err
	}
	key, err := s.ObjectKey(raw)
	if err != nil {
		return "", err
	}
	return s.Sign(key, 0), nil
}

// ObjectKey extracts the blob key a signed URL points at.
func (s *Signer) ObjectKey(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(errors.KindPresign, "signer.object_key", "unparsable url", err)
	}
	path := parsed.EscapedPath()
	prefix := s.basePath + "/"
	idx := strings.Index(path, prefix)
	if idx < 0 {
		return "", errors.New(errors.KindPresign, "signer.object_key", "url outside signed file path")
	}
	key, err := url.PathUnescape(path[idx+len(prefix):])
	if err != nil || key == "" {
		return "", errors.New(errors.KindPresign, "signer.object_key", "empty or invalid object key")
	}
	return key, nil
}

func (s *Signer) objectPath(objectKey string) string {
	segments := strings.Split(objectKey, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return s.basePath + "/" + strings.Join(segments, "/")
}

func (s *Signer) parse(raw string) (string, url.Values, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", nil, errors.Wrap(errors.KindPresign, "signer.parse", "unparsable url", err)
	}
	return parsed.EscapedPath(), parsed.Query(), nil
}

func (s *Signer) verifySignature(path string, query url.Values) error {
	issued := query.Get(paramDate)
	expires := query.Get(paramExpires)
	provided := query.Get(paramSignature)
	if issued == "" || expires == "" || provided == "" {
		return errors.New(errors.KindPresign, "signer.verify", "missing signature parameters")
	}

	expected := s.signature(path, issued, expires)
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return errors.New(errors.KindPresign, "signer.verify", "signature mismatch")
	}
	return nil
}

func (s *Signer) signature(path, issued, expires string) string {
	stringToSign := strings.Join([]string{
		signingAlgorithm,
		"GET",
		path,
		s.keyID + "/" + credentialScope,
		issued,
		expires,
	}, "\n")

	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprint(mac, stringToSign)
	return hex.EncodeToString(mac.Sum(nil))
}
