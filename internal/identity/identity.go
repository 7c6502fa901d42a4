// Package identity resolves the customer behind an HTTP request from an HS256
// bearer token.
package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// PremiumRole is the role claim value of premium customers.
const PremiumRole = "deluxe"

// User is an authenticated customer.
type User struct {
	ID      string
	Email   string
	Role    string
	Premium bool
}

// Claims are the token claims issued to customers.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Provider resolves the current user of a request.
type Provider interface {
	// CurrentUser returns false for anonymous requests.
	CurrentUser(r *http.Request) (User, bool)
}

// JWTProvider verifies HS256 tokens signed with a shared secret.
type JWTProvider struct {
	secret []byte
	parser *jwt.Parser
}

var _ Provider = (*JWTProvider)(nil)

// NewJWTProvider creates a provider. An empty secret treats every request as
// anonymous.
func NewJWTProvider(secret []byte) *JWTProvider {
	return &JWTProvider{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// CurrentUser implements Provider. Missing, malformed or expired tokens yield
// an anonymous request.
func (p *JWTProvider) CurrentUser(r *http.Request) (User, bool) {
	raw, ok := bearer(r)
	if !ok || len(p.secret) == 0 {
		return User{}, false
	}
	u, err := p.Verify(raw)
	if err != nil {
		return User{}, false
	}
	return u, true
}

// Verify parses and validates a signed token.
func (p *JWTProvider) Verify(raw string) (User, error) {
	var claims Claims
	if _, err := p.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}); err != nil {
		return User{}, errors.Wrap(err, "parse token")
	}
	if claims.Subject == "" {
		return User{}, errors.New("token has no subject")
	}
	return User{
		ID:      claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
		Premium: claims.Role == PremiumRole,
	}, nil
}

// Issue signs a token for u valid for ttl.
func (p *JWTProvider) Issue(u User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
