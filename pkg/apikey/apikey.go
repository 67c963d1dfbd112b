// Package apikey issues and verifies the bearer keys of the chat endpoint.
//
// Keys are HS256 JWTs whose bot_id claim scopes them to a single bot.
package apikey

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingKey is returned when the Authorization header carries no bearer token.
	ErrMissingKey = errors.New("missing api key")
	// ErrInvalidKey is returned for malformed, expired or badly signed keys.
	ErrInvalidKey = errors.New("invalid or expired api key")
	// ErrWrongBot is returned when a valid key is scoped to another bot.
	ErrWrongBot = errors.New("api key is not valid for this bot")
)

// Claims are the JWT claims of an api key.
type Claims struct {
	BotID string `json:"bot_id"`
	jwt.RegisteredClaims
}

// Keys signs and verifies api keys with a shared secret.
type Keys struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// New creates a key manager. The issuer is set on issued keys and required on verified ones.
func New(secret, issuer string) (*Keys, error) {
	if secret == "" {
		return nil, fmt.Errorf("api key secret cannot be empty")
	}
	return &Keys{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue mints a key for botID. A zero ttl issues a key that never expires.
func (k *Keys) Issue(botID, subject string, ttl time.Duration) (string, error) {
	if botID == "" {
		return "", fmt.Errorf("bot id cannot be empty")
	}
	now := k.now()
	claims := Claims{
		BotID: botID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   k.issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
}

// Verify parses a key and returns its claims.
func (k *Keys) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithTimeFunc(k.now),
	}
	if k.issuer != "" {
		opts = append(opts, jwt.WithIssuer(k.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return k.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if claims.BotID == "" {
		return nil, fmt.Errorf("%w: missing bot_id claim", ErrInvalidKey)
	}
	return claims, nil
}

// Authorize checks an Authorization header value against botID.
func (k *Keys) Authorize(header, botID string) (*Claims, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrMissingKey
	}
	claims, err := k.Verify(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if claims.BotID != botID {
		return nil, fmt.Errorf("%w: key is scoped to %q", ErrWrongBot, claims.BotID)
	}
	return claims, nil
}
