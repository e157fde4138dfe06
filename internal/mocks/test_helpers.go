package mocks

import (
	"crypto/rand"
	"crypto/rsa"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestSecret signs HS256 credentials in tests.
var TestSecret = []byte("test-secret-for-incident-service")

// SignHS256 issues a credential for subject id and role that expires after ttl.
// A negative ttl yields an expired credential.
func SignHS256(t testing.TB, id int64, role string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatInt(id, 10),
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString(TestSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// SignClaims signs arbitrary claims, for malformed and incomplete credentials.
func SignClaims(t testing.TB, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// GenerateTestKeys creates an RSA key pair for RS256 tests.
func GenerateTestKeys(t testing.TB) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}
