package remote

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/illarion/loginstore/internal/core"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	tok, err := IssueToken("sync-secret", "kid-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	if err := VerifyToken(tok, "sync-secret", "kid-1"); err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
}

func TestVerifyToken_Rejections(t *testing.T) {
	t.Parallel()

	good, err := IssueToken("sync-secret", "kid-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	expired, err := IssueToken("sync-secret", "kid-1", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		syncKey string
		keyID   string
	}{
		{"wrong secret", good, "other-secret", "kid-1"},
		{"wrong key id", good, "sync-secret", "kid-2"},
		{"expired", expired, "sync-secret", "kid-1"},
		{"garbage", "not-a-token", "sync-secret", "kid-1"},
		{"empty key", good, "", "kid-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyToken(tt.token, tt.syncKey, tt.keyID)
			if !errors.Is(err, core.ErrSyncAuthInvalid) {
				t.Fatalf("expected ErrSyncAuthInvalid, got %v", err)
			}
		})
	}
}

func TestVerifyToken_RejectsUnsignedAlgorithm(t *testing.T) {
	t.Parallel()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "kid-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token.Header["kid"] = "kid-1"
	tok, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	if err := VerifyToken(tok, "sync-secret", "kid-1"); !errors.Is(err, core.ErrSyncAuthInvalid) {
		t.Fatalf("expected ErrSyncAuthInvalid, got %v", err)
	}
}
