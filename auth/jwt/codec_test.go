package jwt

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const (
	testAccessSecret  = "access-secret-0123456789-abcdefghij"
	testRefreshSecret = "refresh-secret-0123456789-abcdefghi"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func testConfig() Config {
	return Config{AccessSecret: testAccessSecret, RefreshSecret: testRefreshSecret}
}

func newTestCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	c, err := NewCodec(testConfig(), opts...)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

var ana = Identity{Subject: "user-1", Email: "ana@x.com"}

func TestCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	for _, d := range []Domain{Access, Refresh} {
		t.Run(string(d), func(t *testing.T) {
			tok, err := c.Issue(ana, d)
			if err != nil {
				t.Fatalf("Issue: %v", err)
			}
			claims, err := c.Verify(tok, d)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if claims.Identity() != ana {
				t.Errorf("identity = %+v, want %+v", claims.Identity(), ana)
			}
			if claims.TokenUse != d {
				t.Errorf("token_use = %q, want %q", claims.TokenUse, d)
			}
			if claims.ID == "" {
				t.Error("expected jti")
			}
		})
	}
}

func TestCodec_DomainIsolation(t *testing.T) {
	c := newTestCodec(t)
	access, _ := c.Issue(ana, Access)
	refresh, _ := c.Issue(ana, Refresh)

	if _, err := c.Verify(access, Refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("access token as refresh: expected ErrTokenInvalid, got %v", err)
	}
	if _, err := c.Verify(refresh, Access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("refresh token as access: expected ErrTokenInvalid, got %v", err)
	}
}

func TestCodec_TokenUseCheckedEvenWithCorrectSignature(t *testing.T) {
	c := newTestCodec(t)
	// A token signed with the access secret but labelled refresh must not pass
	// as an access token.
	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        "jti-1",
			Subject:   "user-1",
			IssuedAt:  gojwt.NewNumericDate(time.Now()),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TokenUse: Refresh,
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(tok, Access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestCodec_Expiry(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: issued}
	c := newTestCodec(t, WithClock(clock.Now))

	tok, err := c.Issue(ana, Access)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ttl := c.TTL(Access)
	if ttl != 24*time.Hour {
		t.Fatalf("default access TTL = %v, want 24h", ttl)
	}

	clock.Set(issued.Add(ttl - time.Second))
	if _, err := c.Verify(tok, Access); err != nil {
		t.Errorf("just before expiry: unexpected error %v", err)
	}

	clock.Set(issued.Add(ttl + time.Second))
	if _, err := c.Verify(tok, Access); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("after expiry: expected ErrTokenExpired, got %v", err)
	}
}

func TestCodec_ExpiredWithBadSignatureIsInvalid(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: issued}
	c := newTestCodec(t, WithClock(clock.Now))

	refresh, _ := c.Issue(ana, Refresh)
	clock.Set(issued.Add(30 * 24 * time.Hour))

	// Expired refresh token presented as access: wrong secret wins over expiry.
	if _, err := c.Verify(refresh, Access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestCodec_RefreshDefaultTTL(t *testing.T) {
	c := newTestCodec(t)
	if got := c.TTL(Refresh); got != 7*24*time.Hour {
		t.Errorf("refresh TTL = %v, want 168h", got)
	}
}

func TestCodec_Tampered(t *testing.T) {
	c := newTestCodec(t)
	tok, _ := c.Issue(ana, Access)
	parts := strings.Split(tok, ".")

	forged := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        "x",
			Subject:   "admin",
			IssuedAt:  gojwt.NewNumericDate(time.Now()),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TokenUse: Access,
	}
	otherKey, _ := gojwt.NewWithClaims(gojwt.SigningMethodHS256, forged).SignedString([]byte("some-other-secret-that-is-long-enough"))
	otherParts := strings.Split(otherKey, ".")

	tests := map[string]string{
		"empty":           "",
		"garbage":         "abc.def.ghi",
		"two segments":    parts[0] + "." + parts[1],
		"swapped payload": parts[0] + "." + otherParts[1] + "." + parts[2],
		"foreign secret":  otherKey,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := c.Verify(tok, Access); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestCodec_RejectsAlgNone(t *testing.T) {
	c := newTestCodec(t)
	claims := &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        "x",
			Subject:   "user-1",
			IssuedAt:  gojwt.NewNumericDate(time.Now()),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TokenUse: Access,
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, claims).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := c.Verify(tok, Access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for alg=none, got %v", err)
	}
}

func TestCodec_DistinctTokens(t *testing.T) {
	c := newTestCodec(t)
	a, _ := c.Issue(ana, Access)
	b, _ := c.Issue(ana, Access)
	if a == b {
		t.Error("two issues for the same identity should produce different tokens")
	}
}

func TestCodec_IssuePair(t *testing.T) {
	c := newTestCodec(t)
	pair, err := c.IssuePair(ana)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.AccessTTL != 24*time.Hour {
		t.Errorf("AccessTTL = %v", pair.AccessTTL)
	}
	a, err := c.Verify(pair.AccessToken, Access)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	r, err := c.Verify(pair.RefreshToken, Refresh)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if a.Identity() != r.Identity() {
		t.Error("pair tokens should carry the same identity")
	}
}

func TestCodec_IssuerAndAudience(t *testing.T) {
	cfg := testConfig()
	cfg.Issuer = "codecompass"
	cfg.Audience = "codecompass-api"
	c, err := NewCodec(cfg)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	tok, _ := c.Issue(ana, Access)
	claims, err := c.Verify(tok, Access)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Issuer != "codecompass" {
		t.Errorf("issuer = %q", claims.Issuer)
	}

	plain := newTestCodec(t)
	noIss, _ := plain.Issue(ana, Access)
	if _, err := c.Verify(noIss, Access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("token without issuer should be rejected, got %v", err)
	}
}

func TestCodec_IssueErrors(t *testing.T) {
	c := newTestCodec(t)
	if _, err := c.Issue(ana, Domain("admin")); !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("expected ErrUnknownDomain, got %v", err)
	}
	if _, err := c.Issue(Identity{Email: "x@y.z"}, Access); err == nil {
		t.Error("expected error for empty subject")
	}
	if _, err := c.Verify("x", Domain("admin")); !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("expected ErrUnknownDomain, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	long := strings.Repeat("a", MinSecretLength)
	other := strings.Repeat("b", MinSecretLength)
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{AccessSecret: long, RefreshSecret: other}, ""},
		{"missing access", Config{RefreshSecret: other}, "access_secret"},
		{"short refresh", Config{AccessSecret: long, RefreshSecret: "short"}, "refresh_secret"},
		{"same secrets", Config{AccessSecret: long, RefreshSecret: long}, "must differ"},
		{"bad ttl", Config{AccessSecret: long, RefreshSecret: other, AccessTTL: "soon"}, "access_ttl"},
		{"negative ttl", Config{AccessSecret: long, RefreshSecret: other, RefreshTTL: "-1h"}, "refresh_ttl"},
		{"rsa method", Config{AccessSecret: long, RefreshSecret: other, Method: "RS256"}, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := NewCodec(Config{}); err == nil {
		t.Error("NewCodec must fail fast without secrets")
	}
}
