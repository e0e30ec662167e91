package google

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StateTTL bounds how long a consent URL stays usable.
const StateTTL = 10 * time.Minute

var (
	ErrStateInvalid = errors.New("invalid state token")
	ErrStateExpired = errors.New("state token expired")
)

// StateSigner issues and checks the OAuth state parameter. The state binds
// the consent to the user who started it, since the provider redirect
// carries no API key.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner creates a signer. An empty secret generates a random one,
// so pending consents do not survive a restart.
func NewStateSigner(secret string) *StateSigner {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	return &StateSigner{secret: key, ttl: StateTTL, now: time.Now}
}

// Sign returns a state token for userID: base64url(payload).base64url(mac).
func (s *StateSigner) Sign(userID string) string {
	nonce := make([]byte, 8)
	rand.Read(nonce)

	payload := strings.Join([]string{
		userID,
		strconv.FormatInt(s.now().Add(s.ttl).Unix(), 10),
		hex.EncodeToString(nonce),
	}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(s.mac([]byte(payload)))
}

// Verify returns the user ID bound to state.
func (s *StateSigner) Verify(state string) (string, error) {
	encPayload, encMAC, ok := strings.Cut(state, ".")
	if !ok {
		return "", ErrStateInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(encPayload)
	if err != nil {
		return "", ErrStateInvalid
	}
	mac, err := base64.RawURLEncoding.DecodeString(encMAC)
	if err != nil || !hmac.Equal(mac, s.mac(payload)) {
		return "", ErrStateInvalid
	}

	parts := strings.Split(string(payload), "|")
	if len(parts) != 3 || parts[0] == "" {
		return "", ErrStateInvalid
	}
	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: bad expiry", ErrStateInvalid)
	}
	if s.now().Unix() > expiresAt {
		return "", ErrStateExpired
	}
	return parts[0], nil
}

func (s *StateSigner) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return h.Sum(nil)
}
