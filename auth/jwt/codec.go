// Package jwt issues and verifies signed, expiring tokens for two trust
// domains: access tokens authorize API calls, refresh tokens only mint new
// pairs. Each domain signs with its own secret and every token also carries
// its domain in the "token_use" claim, so a token is only ever accepted by
// the domain that issued it.
//
//	codec, err := jwt.NewCodec(cfg)
//	pair, err := codec.IssuePair(jwt.Identity{Subject: id, Email: email})
//	claims, err := codec.Verify(pair.AccessToken, jwt.Access)
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Domain is the trust scope of a token.
type Domain string

const (
	Access  Domain = "access"
	Refresh Domain = "refresh"
)

var (
	// ErrTokenExpired is returned when the signature is valid but exp has passed.
	ErrTokenExpired = errors.New("jwt: token expired")
	// ErrTokenInvalid is returned for a bad signature, a malformed token, an
	// unexpected algorithm or a domain mismatch.
	ErrTokenInvalid = errors.New("jwt: token invalid")
	// ErrUnknownDomain is returned when a domain other than Access or Refresh is requested.
	ErrUnknownDomain = errors.New("jwt: unknown token domain")
)

// Identity is the principal a token asserts.
type Identity struct {
	Subject string `json:"id"`
	Email   string `json:"email"`
}

// Claims is the signed token payload.
type Claims struct {
	gojwt.RegisteredClaims
	Email    string `json:"email"`
	TokenUse Domain `json:"token_use"`
}

// Identity returns the principal carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{Subject: c.Subject, Email: c.Email}
}

// Expiry returns the expiration time, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Pair is an access/refresh token pair minted for the same identity.
type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

type domainKey struct {
	secret []byte
	ttl    time.Duration
}

// Codec signs and verifies tokens. It holds no mutable state and is safe for
// concurrent use.
type Codec struct {
	keys     map[Domain]domainKey
	method   gojwt.SigningMethod
	issuer   string
	audience string
	now      func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for iat/exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec validates cfg and builds a Codec.
func NewCodec(cfg Config, opts ...Option) (*Codec, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	accessTTL, _ := cfg.accessTTL()
	refreshTTL, _ := cfg.refreshTTL()

	c := &Codec{
		keys: map[Domain]domainKey{
			Access:  {secret: []byte(cfg.AccessSecret), ttl: accessTTL},
			Refresh: {secret: []byte(cfg.RefreshSecret), ttl: refreshTTL},
		},
		method:   cfg.signingMethod(),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured lifetime of a domain, or zero for an unknown domain.
func (c *Codec) TTL(d Domain) time.Duration {
	return c.keys[d].ttl
}

// Issue signs a token for id in domain d, expiring after the domain TTL.
func (c *Codec) Issue(id Identity, d Domain) (string, error) {
	key, ok := c.keys[d]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}
	if id.Subject == "" {
		return "", errors.New("jwt: identity subject is required")
	}

	now := c.now()
	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Subject,
			Issuer:    c.issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(key.ttl)),
		},
		Email:    id.Email,
		TokenUse: d,
	}
	if c.audience != "" {
		claims.Audience = gojwt.ClaimStrings{c.audience}
	}

	signed, err := gojwt.NewWithClaims(c.method, claims).SignedString(key.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// IssuePair issues an access and a refresh token for the same identity.
func (c *Codec) IssuePair(id Identity) (Pair, error) {
	access, err := c.Issue(id, Access)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := c.Issue(id, Refresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    c.keys[Access].ttl,
		RefreshTTL:   c.keys[Refresh].ttl,
	}, nil
}

// Verify checks the signature against domain d's secret, then expiry, then
// that the token was issued for d. It returns ErrTokenExpired only for a
// correctly signed token of domain d whose exp has passed; every other
// failure is ErrTokenInvalid.
func (c *Codec) Verify(token string, d Domain) (*Claims, error) {
	key, ok := c.keys[d]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}

	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, func(t *gojwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return key.secret, nil
	}, c.parserOptions()...)

	if err != nil {
		// The parser only validates claims after the signature checks out,
		// so an expiry error implies an authentic token.
		if errors.Is(err, gojwt.ErrTokenExpired) && claims.TokenUse == d {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenUse != d {
		return nil, fmt.Errorf("%w: token issued for %q domain", ErrTokenInvalid, claims.TokenUse)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing sub or jti", ErrTokenInvalid)
	}
	return claims, nil
}

func (c *Codec) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{c.method.Alg()}),
		gojwt.WithTimeFunc(c.now),
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuedAt(),
	}
	if c.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, gojwt.WithAudience(c.audience))
	}
	return opts
}
