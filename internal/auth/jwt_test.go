package auth

import (
	"errors"
	"testing"
	"time"
)

func TestStreamTokenRoundTrip(t *testing.T) {
	signer, err := NewSigner("secret", time.Minute)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}

	token, err := signer.IssueStreamToken("CA123")
	if err != nil {
		t.Fatalf("IssueStreamToken() error = %v", err)
	}

	claims, err := signer.ValidateStreamToken(token)
	if err != nil {
		t.Fatalf("ValidateStreamToken() error = %v", err)
	}
	if claims.CallSID != "CA123" {
		t.Errorf("Expected call SID CA123, got %s", claims.CallSID)
	}
}

func TestStreamTokenRejected(t *testing.T) {
	signer, _ := NewSigner("secret", time.Minute)
	other, _ := NewSigner("other-secret", time.Minute)

	foreign, _ := other.IssueStreamToken("CA123")

	expiredSigner, _ := NewSigner("secret", time.Minute)
	expiredSigner.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredSigner.IssueStreamToken("CA123")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.ValidateStreamToken(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner("", time.Minute); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("Expected ErrEmptySecret, got %v", err)
	}

	signer, err := NewSigner("s", 0)
	if err != nil {
		t.Fatalf("NewSigner() error = %v", err)
	}
	if signer.ttl != time.Hour {
		t.Errorf("Expected default ttl 1h, got %s", signer.ttl)
	}
}
