package remote

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/illarion/loginstore/internal/core"
)

var errEmptySyncKey = errors.New("empty sync key")

// IssueToken mints an access token for keyID signed with syncKey
func IssueToken(syncKey, keyID string, ttl time.Duration) (string, error) {
	if syncKey == "" {
		return "", errEmptySyncKey
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   keyID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	token.Header["kid"] = keyID

	tokenString, err := token.SignedString([]byte(syncKey))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifyToken checks that tokenString is an unexpired HS256 token signed with
// syncKey for keyID. Every failure matches core.ErrSyncAuthInvalid.
func VerifyToken(tokenString, syncKey, keyID string) error {
	if syncKey == "" {
		return fmt.Errorf("%w: %w", core.ErrSyncAuthInvalid, errEmptySyncKey)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if kid, _ := t.Header["kid"].(string); kid != keyID {
			return nil, fmt.Errorf("unexpected key id %q", kid)
		}
		return []byte(syncKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrSyncAuthInvalid, err)
	}

	if !token.Valid || claims.Subject != keyID {
		return core.ErrSyncAuthInvalid
	}

	return nil
}
