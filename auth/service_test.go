package auth

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/crypto/bcrypt"

	"github.com/kbukum/codecompass/auth/jwt"
	"github.com/kbukum/codecompass/auth/password"
	"github.com/kbukum/codecompass/auth/revocation"
	"github.com/kbukum/codecompass/errors"
	"github.com/kbukum/codecompass/events"
	"github.com/kbukum/codecompass/observability"
)

// memStore is an IdentityStore over a map keyed by email.
type memStore struct {
	mu            sync.Mutex
	byEmail       map[string]*Account
	hideOnLookup  bool // simulate a lost race with a concurrent registration
	findErr       error
	lastLoginErr  error
	lastLoginSeen map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{byEmail: map[string]*Account{}, lastLoginSeen: map[string]time.Time{}}
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	a, ok := m.byEmail[email]
	if !ok || m.hideOnLookup {
		return nil, ErrIdentityNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, acct *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[acct.Email]; ok {
		return ErrDuplicateIdentity
	}
	cp := *acct
	m.byEmail[acct.Email] = &cp
	return nil
}

func (m *memStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastLoginErr != nil {
		return m.lastLoginErr
	}
	m.lastLoginSeen[id] = at
	return nil
}

// countingHasher counts Verify calls.
type countingHasher struct {
	password.Hasher
	mu       sync.Mutex
	verifies int
}

func (c *countingHasher) Verify(pw, hash string) (bool, error) {
	c.mu.Lock()
	c.verifies++
	c.mu.Unlock()
	return c.Hasher.Verify(pw, hash)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type failingRevoker struct{ revocation.Store }

func (failingRevoker) Revoke(context.Context, string, time.Time) (bool, error) {
	return false, stderrors.New("redis down")
}

// slowRevoker adds a round-trip delay in front of each call.
type slowRevoker struct {
	revocation.Store
	delay time.Duration
}

func (s slowRevoker) Revoke(ctx context.Context, jti string, until time.Time) (bool, error) {
	time.Sleep(s.delay)
	return s.Store.Revoke(ctx, jti, until)
}

func (s slowRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	time.Sleep(s.delay)
	return s.Store.IsRevoked(ctx, jti)
}

type settableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *settableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc     *Service
	store   *memStore
	hasher  *countingHasher
	revoker *revocation.MemoryStore
	pub     *recordingPublisher
	clock   *settableClock
	codec   *jwt.Codec
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clock := &settableClock{now: time.Now()}
	codec, err := jwt.NewCodec(jwt.Config{
		AccessSecret:  "access-secret-0123456789-abcdefghij",
		RefreshSecret: "refresh-secret-0123456789-abcdefghi",
	}, jwt.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	f := &fixture{
		store:   newMemStore(),
		hasher:  &countingHasher{Hasher: password.NewBcryptHasher(password.WithCost(bcrypt.MinCost))},
		revoker: revocation.NewMemoryStore(),
		pub:     &recordingPublisher{},
		clock:   clock,
		codec:   codec,
	}
	opts = append([]Option{WithEvents(f.pub), WithClock(clock.Now)}, opts...)
	f.svc = NewService(f.store, f.hasher, codec, f.revoker, opts...)
	return f
}

func assertCode(t *testing.T, err error, code errors.ErrorCode) *errors.AppError {
	t.Helper()
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError %s, got %v", code, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
	return appErr
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, " Ana ", " Ana@X.com ", "longpassword1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Account.Email != "ana@x.com" || reg.Account.Name != "Ana" {
		t.Errorf("expected normalized account, got %+v", reg.Account)
	}
	if reg.Account.Role != "student" || !reg.Account.Active {
		t.Errorf("unexpected role/active: %+v", reg.Account)
	}
	if reg.Account.PasswordHash == "longpassword1" {
		t.Fatal("password stored in plaintext")
	}
	if reg.Tokens.AccessToken == "" || reg.Tokens.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	claims, err := f.codec.Verify(reg.Tokens.AccessToken, jwt.Access)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if claims.Subject != reg.Account.ID || claims.Email != "ana@x.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	login, err := f.svc.Login(ctx, "ANA@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Account.ID != reg.Account.ID {
		t.Errorf("login returned a different account")
	}
	if login.Account.LastLoginAt == nil {
		t.Error("expected last_login_at to be set")
	}
	if _, ok := f.store.lastLoginSeen[reg.Account.ID]; !ok {
		t.Error("store did not receive UpdateLastLogin")
	}

	want := []events.Type{events.UserRegistered, events.UserLoggedIn}
	if got := f.pub.types(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name, user, email, pw string
		field                 string
	}{
		{"missing name", "", "a@x.com", "longpassword1", "name"},
		{"missing email", "Ana", "", "longpassword1", "email"},
		{"bad email", "Ana", "not-an-email", "longpassword1", "email"},
		{"missing password", "Ana", "a@x.com", "", "password"},
		{"short password", "Ana", "a@x.com", "short", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.user, tt.email, tt.pw)
			appErr := assertCode(t, err, errors.ErrCodeBadRequest)
			found := false
			for _, fe := range appErr.Fields {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected field error for %s, got %+v", tt.field, appErr.Fields)
			}
		})
	}
	if len(f.store.byEmail) != 0 {
		t.Error("invalid registrations must not persist")
	}
}

func TestRegister_PasswordTooLong(t *testing.T) {
	f := newFixture(t)
	long := make([]byte, 80)
	for i := range long {
		long[i] = 'a'
	}
	_, err := f.svc.Register(context.Background(), "Ana", "a@x.com", string(long))
	assertCode(t, err, errors.ErrCodeBadRequest)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := f.svc.Register(ctx, "Ana Two", "ANA@x.com", "longpassword2")
	assertCode(t, err, errors.ErrCodeConflict)

	// The pre-check misses; the unique index still rejects.
	f.store.hideOnLookup = true
	_, err = f.svc.Register(ctx, "Ana Three", "ana@x.com", "longpassword3")
	assertCode(t, err, errors.ErrCodeConflict)
}

func TestRegister_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.findErr = stderrors.New("connection refused")
	_, err := f.svc.Register(context.Background(), "Ana", "ana@x.com", "longpassword1")
	assertCode(t, err, errors.ErrCodeDatabaseError)
}

func TestLogin_UniformFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	f.hasher.verifies = 0
	_, errUnknown := f.svc.Login(ctx, "nobody@x.com", "longpassword1")
	if f.hasher.verifies != 1 {
		t.Errorf("unknown email should still run one verify, got %d", f.hasher.verifies)
	}
	_, errWrong := f.svc.Login(ctx, "ana@x.com", "wrongpassword")

	a := assertCode(t, errUnknown, errors.ErrCodeUnauthorized)
	b := assertCode(t, errWrong, errors.ErrCodeUnauthorized)
	if a.Message != b.Message || a.Message != "Email or password is incorrect" {
		t.Errorf("messages differ: %q vs %q", a.Message, b.Message)
	}
	if a.HTTPStatus != b.HTTPStatus {
		t.Errorf("statuses differ: %d vs %d", a.HTTPStatus, b.HTTPStatus)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.store.byEmail["ana@x.com"].Active = false

	_, err := f.svc.Login(ctx, "ana@x.com", "longpassword1")
	appErr := assertCode(t, err, errors.ErrCodeUnauthorized)
	if appErr.Message != "Email or password is incorrect" {
		t.Errorf("inactive account must fail uniformly, got %q", appErr.Message)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Login(context.Background(), "", "")
	assertCode(t, err, errors.ErrCodeBadRequest)
}

func TestLogin_LastLoginFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.store.lastLoginErr = stderrors.New("write timeout")

	res, err := f.svc.Login(ctx, "ana@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("Login should succeed when last-login write fails: %v", err)
	}
	if res.Account.LastLoginAt != nil {
		t.Error("last_login_at should stay unset when the write failed")
	}
}

func TestRefresh_Rotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	pair, err := f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.RefreshToken == reg.Tokens.RefreshToken || pair.AccessToken == reg.Tokens.AccessToken {
		t.Error("refresh must issue a brand-new pair")
	}
	if _, err := f.codec.Verify(pair.AccessToken, jwt.Access); err != nil {
		t.Errorf("new access token does not verify: %v", err)
	}

	_, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assertCode(t, err, errors.ErrCodeUnauthorized)

	if _, err := f.svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Errorf("rotated token should work once: %v", err)
	}
}

func TestRefresh_ConcurrentReuseMintsOnePair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	svc := NewService(f.store, f.hasher, f.codec, slowRevoker{Store: f.revoker, delay: 2 * time.Millisecond})

	const callers = 20
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		unauthorized int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(ctx, reg.Tokens.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeUnauthorized {
				unauthorized++
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("expected exactly one refresh to succeed, got %d", succeeded)
	}
	if unauthorized != callers-1 {
		t.Errorf("expected %d rejections, got %d", callers-1, unauthorized)
	}
}

func TestRefresh_RevokerFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	svc := NewService(f.store, f.hasher, f.codec, failingRevoker{f.revoker})
	_, err = svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assertCode(t, err, errors.ErrCodeInternal)
}

func TestRefresh_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	for name, tok := range map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"access token": reg.Tokens.AccessToken,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Refresh(ctx, tok)
			assertCode(t, err, errors.ErrCodeUnauthorized)
		})
	}

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assertCode(t, err, errors.ErrCodeUnauthorized)
}

func TestLogoutThenRefreshFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := f.svc.Logout(ctx, reg.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err = f.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	assertCode(t, err, errors.ErrCodeUnauthorized)

	got := f.pub.types()
	if got[len(got)-1] != events.UserLoggedOut {
		t.Errorf("expected logout event last, got %v", got)
	}
}

func TestLogout_SilentCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, tok := range []string{"", "   ", "garbage"} {
		if err := f.svc.Logout(ctx, tok); err != nil {
			t.Errorf("Logout(%q) = %v, want nil", tok, err)
		}
	}
}

func TestLogout_RevokerFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	svc := NewService(f.store, f.hasher, f.codec, failingRevoker{f.revoker})
	err = svc.Logout(ctx, reg.Tokens.RefreshToken)
	assertCode(t, err, errors.ErrCodeInternal)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.pub.err = stderrors.New("kafka down")
	if _, err := f.svc.Register(context.Background(), "Ana", "ana@x.com", "longpassword1"); err != nil {
		t.Fatalf("Register must ignore publish failures: %v", err)
	}
}

type upgradingStore struct {
	*memStore
	upgraded string
}

func (u *upgradingStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	u.upgraded = hash
	return nil
}

func TestLogin_UpgradesOutdatedHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old, _ := password.NewBcryptHasher(password.WithCost(bcrypt.MinCost)).Hash("longpassword1")
	_ = f.store.Create(ctx, &Account{ID: "u1", Name: "Ana", Email: "ana@x.com", PasswordHash: old, Active: true})

	store := &upgradingStore{memStore: f.store}
	argon := password.NewHasher(password.Config{Algorithm: password.AlgorithmArgon2id, Argon2Memory: 8 * 1024, Argon2Threads: 1})
	svc := NewService(store, argon, f.codec, f.revoker)

	if _, err := svc.Login(ctx, "ana@x.com", "longpassword1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if store.upgraded == "" || password.NeedsRehash(argon, store.upgraded) {
		t.Errorf("expected an argon2id upgrade, got %q", store.upgraded)
	}
}

func TestMetricsOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := observability.NewAuthMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatalf("NewAuthMetrics: %v", err)
	}
	f := newFixture(t, WithMetrics(m))
	ctx := context.Background()

	_, _ = f.svc.Register(ctx, "Ana", "ana@x.com", "longpassword1")
	_, _ = f.svc.Login(ctx, "ana@x.com", "wrong-password")
	_, _ = f.svc.Login(ctx, "ana@x.com", "longpassword1")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	logins := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "auth.login" {
				continue
			}
			for _, dp := range metric.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key(observability.AttrOutcome))
				logins[v.AsString()] += dp.Value
			}
		}
	}
	if logins[observability.OutcomeSuccess] != 1 || logins[observability.OutcomeUnauthorized] != 1 {
		t.Errorf("unexpected login outcomes: %v", logins)
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{JWT: jwt.Config{
		AccessSecret:  "access-secret-0123456789-abcdefghij",
		RefreshSecret: "refresh-secret-0123456789-abcdefghi",
	}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := cfg.Describe(); got != "JWT(HS256) access=24h refresh=7d password=bcrypt revocation=memory" {
		t.Errorf("Describe = %q", got)
	}

	cfg.JWT.RefreshSecret = cfg.JWT.AccessSecret
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for identical secrets")
	}
}
