package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"bookstore/pkg/domain"
)

const defaultJWTIssuer = "bookstore-api"

var (
	defaultSessionTTL = time.Hour

	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers malformed, tampered, or wrongly signed tokens.
	ErrTokenInvalid = errors.New("token invalid")
)

// JWTOptions configures JWT claim validation behavior.
type JWTOptions struct {
	Issuer string
	// Leeway tolerates clock skew on exp and iat. Zero keeps the session
	// lifetime exact.
	Leeway time.Duration
}

// sessionClaims mirrors the identity fields the admin dashboard reads.
type sessionClaims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTSessionStore issues and validates HS256 session tokens.
// Tokens are stateless; there is no early revocation.
type JWTSessionStore struct {
	secret []byte
	ttl    time.Duration
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewJWTSessionStore builds an HS256 session store from a shared secret.
func NewJWTSessionStore(secret string, ttl time.Duration, opts JWTOptions) (*JWTSessionStore, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	opts = normalizeJWTOptions(opts)
	return &JWTSessionStore{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: opts.Issuer,
		leeway: opts.Leeway,
		now:    time.Now,
	}, nil
}

// NewSession creates a signed token for the user and returns its expiry.
func (s *JWTSessionStore) NewSession(u domain.User) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := sessionClaims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        randomHexID(12),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// ParseSession verifies the token and returns the principal it names.
// Failures wrap ErrTokenExpired or ErrTokenInvalid.
func (s *JWTSessionStore) ParseSession(token string) (domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Principal{}, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}
	claims := sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return domain.Principal{}, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.Username) == "" {
		return domain.Principal{}, fmt.Errorf("%w: identity claims missing", ErrTokenInvalid)
	}
	role := domain.UserRole(claims.Role)
	if !role.Valid() {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}
	return domain.Principal{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func randomHexID(nBytes int) string {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", buf)
}

func normalizeJWTOptions(opts JWTOptions) JWTOptions {
	opts.Issuer = strings.TrimSpace(opts.Issuer)
	if opts.Issuer == "" {
		opts.Issuer = defaultJWTIssuer
	}
	if opts.Leeway < 0 {
		opts.Leeway = 0
	}
	return opts
}
