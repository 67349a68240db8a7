// ABOUTME: JWT credential generation and verification for the role facades
// ABOUTME: Uses HS256 signing with configurable secret; claims carry address and role

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role identifies which facade a credential unlocks.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDelegatee Role = "delegatee"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Credential is the verified content of a token: the caller's signing
// address and the role it proved.
type Credential struct {
	Address string
	Role    Role
}

// TokenVerifier defines the interface for credential verification.
type TokenVerifier interface {
	Verify(tokenString string) (Credential, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a new JWT verifier with the given secret.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify validates the token and extracts the address ("sub") and role
// ("role") claims.
func (v *JWTVerifier) Verify(tokenString string) (Credential, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Credential{}, ErrExpiredToken
		}
		return Credential{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return Credential{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Credential{}, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Credential{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	roleStr, ok := claims["role"].(string)
	if !ok || roleStr == "" {
		return Credential{}, fmt.Errorf("%w: role", ErrMissingClaim)
	}
	role := Role(roleStr)
	if role != RoleAdmin && role != RoleDelegatee {
		return Credential{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, roleStr)
	}

	return Credential{Address: sub, Role: role}, nil
}

// Generate creates a new JWT for the given address and role with expiration.
func (v *JWTVerifier) Generate(address string, role Role, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  address,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
