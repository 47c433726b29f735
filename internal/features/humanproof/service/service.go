package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/anonymousgrouphp-collab/skillbun/internal/features/humanproof/models"
)

// Header carries the proof token on gated requests.
const Header = "X-Skillbun-Human"

// Tokens shorter than this cannot possibly carry a payload and a signature.
const minTokenLen = 20

const minTTL = time.Minute

// Service mints and verifies human-proof tokens. Tokens are self-contained:
// no server-side record is written on issue or read on verify, so any replica
// holding the same secret can verify any token.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(secret string, ttl time.Duration) *Service {
	if ttl < minTTL {
		ttl = minTTL
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// HashAddr derives the caller identity stored inside tokens: hex SHA-256 of
// the network address, truncated to 32 characters.
func (s *Service) HashAddr(addr string) string {
	sum := sha256.Sum256([]byte(addr))
	return hex.EncodeToString(sum[:])[:32]
}

// Issue mints a token bound to addrHash, valid until now+TTL. The expiry is
// returned in epoch milliseconds for the client.
func (s *Service) Issue(addrHash string) (string, int64) {
	expiresAt := s.now().Add(s.ttl).UnixMilli()
	payload, _ := json.Marshal(models.Claims{ExpiresAt: expiresAt, AddrHash: addrHash})
	payloadB64 := base64.RawURLEncoding.EncodeToString(payload)
	return payloadB64 + "." + s.sign(payloadB64), expiresAt
}

// Verify reports whether token is a currently valid proof for addrHash. It is
// a pure predicate: any malformation, signature mismatch, expiry, or address
// mismatch yields false, never an error or panic. The signature comparison is
// constant-time.
func (s *Service) Verify(token, addrHash string) bool {
	if len(token) < minTokenLen {
		return false
	}
	payloadB64, signature, ok := strings.Cut(token, ".")
	if !ok || payloadB64 == "" || signature == "" {
		return false
	}

	expected := s.sign(payloadB64)
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return false
	}

	raw, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return false
	}
	var claims models.Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == 0 || claims.AddrHash == "" {
		return false
	}
	if claims.ExpiresAt < s.now().UnixMilli() {
		return false
	}
	return claims.AddrHash == addrHash
}

func (s *Service) sign(payloadB64 string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payloadB64))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
