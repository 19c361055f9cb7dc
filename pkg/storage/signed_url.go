package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token validation failures. Handlers map both to a generic 401 so the
// response does not reveal whether a token was forged or merely stale.
var (
	ErrTokenInvalid = errors.New("storage: invalid download token")
	ErrTokenExpired = errors.New("storage: download token expired")
)

// SignedURLSigner mints and checks the HMAC tokens that authorise
// statement downloads without a session. A token binds an export ID and
// a file path to an expiry; changing any part breaks the signature.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

func (s *SignedURLSigner) sign(exportID, unixTS, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s", exportID, unixTS, encodedPath)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Generate returns a dot-separated token of the form
// exportID.expiry.path.signature and the expiry it carries.
func (s *SignedURLSigner) Generate(exportID, relPath string) (string, time.Time, error) {
	if exportID == "" || relPath == "" {
		return "", time.Time{}, errors.New("storage: export ID and path are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("storage: signing secret is not configured")
	}

	expiresAt := time.Now().Add(s.ttl)
	unixTS := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{exportID, unixTS, encodedPath, s.sign(exportID, unixTS, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse verifies the signature before anything else, then the expiry,
// unless allowExpired is set (cleanup tooling inspects stale tokens).
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	exportID, unixTS, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(exportID, unixTS, encodedPath)), []byte(signature)) {
		return "", "", time.Time{}, ErrTokenInvalid
	}

	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	unix, err := strconv.ParseInt(unixTS, 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expiresAt = time.Unix(unix, 0)

	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return exportID, string(rawPath), expiresAt, nil
}
