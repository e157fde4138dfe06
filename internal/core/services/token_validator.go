package services

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/domain"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/core/ports"
)

// credentialClaims accepts both the RS256 tokens of the identity service (subject in "sub")
// and the HS256 tokens of the legacy login endpoint (numeric "id").
type credentialClaims struct {
	UserID json.Number `json:"id,omitempty"`
	Role   string      `json:"role"`
	jwt.RegisteredClaims
}

type JWTValidator struct {
	publicKey *rsa.PublicKey
	secret    []byte
	parser    *jwt.Parser
}

var _ ports.TokenValidator = (*JWTValidator)(nil)

// NewRS256Validator verifies tokens signed by the identity service's private key.
func NewRS256Validator(publicKey *rsa.PublicKey) *JWTValidator {
	return &JWTValidator{
		publicKey: publicKey,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// NewHS256Validator verifies tokens signed with a shared secret.
func NewHS256Validator(secret []byte) *JWTValidator {
	return &JWTValidator{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (v *JWTValidator) Validate(raw string) (*domain.Claim, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrMissingCredential
	}

	claims := &credentialClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, v.keyFunc)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, domain.ErrExpiredCredential
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return nil, domain.ErrIncompleteCredential
	default:
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedCredential, err)
	}

	subjectID, ok := claims.subjectID()
	if !ok || claims.Role == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrIncompleteCredential
	}

	return &domain.Claim{
		SubjectID: subjectID,
		Role:      domain.Role(claims.Role),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (v *JWTValidator) keyFunc(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA:
		if v.publicKey == nil {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.publicKey, nil
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	default:
		return nil, jwt.ErrSignatureInvalid
	}
}

func (c *credentialClaims) subjectID() (int64, bool) {
	if c.Subject != "" {
		id, err := strconv.ParseInt(c.Subject, 10, 64)
		return id, err == nil && id > 0
	}
	if c.UserID != "" {
		id, err := c.UserID.Int64()
		return id, err == nil && id > 0
	}
	return 0, false
}
