package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const streamIssuer = "voicebridge"

var (
	ErrEmptySecret  = errors.New("signing secret is required")
	ErrInvalidToken = errors.New("invalid stream token")
)

// StreamClaims authorises one media-stream connection for one call
type StreamClaims struct {
	CallSID string `json:"call_sid"`
	jwt.RegisteredClaims
}

// Signer issues and verifies media-stream tokens with the session-signing secret
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a signer. A non-positive ttl defaults to one hour.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// IssueStreamToken generates a token bound to callSID
func (s *Signer) IssueStreamToken(callSID string) (string, error) {
	now := s.now()
	claims := &StreamClaims{
		CallSID: callSID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    streamIssuer,
			Subject:   callSID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateStreamToken validates a token and returns its claims
func (s *Signer) ValidateStreamToken(tokenString string) (*StreamClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &StreamClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(streamIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*StreamClaims)
	if !ok || !token.Valid || claims.CallSID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
