package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/codecompass/auth/jwt"
	"github.com/kbukum/codecompass/auth/password"
	"github.com/kbukum/codecompass/auth/permission"
	"github.com/kbukum/codecompass/auth/revocation"
	"github.com/kbukum/codecompass/errors"
	"github.com/kbukum/codecompass/events"
	"github.com/kbukum/codecompass/logger"
	"github.com/kbukum/codecompass/observability"
	"github.com/kbukum/codecompass/util"
	"github.com/kbukum/codecompass/validation"
)

const (
	msgInvalidCredentials = "Email or password is incorrect"
	msgInvalidRefresh     = "Invalid or expired refresh token"
	msgEmailTaken         = "An account with this email already exists"

	// dummySecret is hashed once and verified against when an email is
	// unknown, so both login failure paths pay for a hash comparison.
	dummySecret = "codecompass-timing-equalizer"
)

// Result is returned by Register and Login.
type Result struct {
	Account *Account
	Tokens  jwt.Pair
}

// Service runs the authentication use cases. It holds no per-request state
// and is safe for concurrent use.
type Service struct {
	store     IdentityStore
	hasher    password.Hasher
	codec     *jwt.Codec
	revoker   revocation.Store
	events    events.Publisher
	metrics   *observability.AuthMetrics
	tracer    trace.Tracer
	log       *logger.Logger
	now       func() time.Time
	minLength int

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithEvents publishes auth events to p. Failures are logged and ignored.
func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMetrics records operation outcomes on m.
func WithMetrics(m *observability.AuthMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer overrides the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l.WithComponent("auth") }
}

// WithClock overrides the time source used for last-login timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMinPasswordLength sets the minimum accepted password length (default: 8).
func WithMinPasswordLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minLength = n
		}
	}
}

// NewService wires the auth use cases.
func NewService(store IdentityStore, hasher password.Hasher, codec *jwt.Codec, revoker revocation.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		hasher:    hasher,
		codec:     codec,
		revoker:   revoker,
		events:    events.Nop{},
		tracer:    observability.Tracer("github.com/kbukum/codecompass/auth"),
		log:       logger.Nop(),
		now:       time.Now,
		minLength: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a student account and signs it in.
func (s *Service) Register(ctx context.Context, name, email, secret string) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Register")
	defer s.finish(ctx, span, observability.OpRegister, time.Now(), &err)

	name = strings.TrimSpace(name)
	email = util.NormalizeEmail(email)
	if verr := validation.New().
		Required("name", name).
		MaxLength("name", name, 100).
		Required("email", email).
		Email("email", email).
		Required("password", secret).
		MinLength("password", secret, s.minLength).
		Validate(); verr != nil {
		return nil, verr
	}

	// Advisory only: the unique index decides under concurrency.
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, errors.Conflict(msgEmailTaken)
	} else if !stderrors.Is(err, ErrIdentityNotFound) {
		return nil, errors.DatabaseError(err)
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		if stderrors.Is(err, password.ErrPasswordTooLong) {
			return nil, errors.BadRequest("Password is too long.").WithField("password", "must be at most 72 bytes")
		}
		return nil, errors.HashingError(err)
	}

	acct := &Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         permission.RoleStudent,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, acct); err != nil {
		if stderrors.Is(err, ErrDuplicateIdentity) {
			return nil, errors.Conflict(msgEmailTaken)
		}
		return nil, errors.DatabaseError(err)
	}

	tokens, err := s.codec.IssuePair(acct.Identity())
	if err != nil {
		return nil, errors.Internal(err)
	}

	s.log.WithContext(ctx).Info("User registered", logger.Fields(logger.FieldUserID, acct.ID))
	s.publish(ctx, events.New(events.UserRegistered, acct.ID, acct.Email))
	return &Result{Account: acct, Tokens: tokens}, nil
}

// Login checks credentials and issues a token pair. Unknown emails, wrong
// passwords and inactive accounts fail identically.
func (s *Service) Login(ctx context.Context, email, secret string) (res *Result, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login")
	defer s.finish(ctx, span, observability.OpLogin, time.Now(), &err)

	email = util.NormalizeEmail(email)
	if verr := validation.New().
		Required("email", email).
		Required("password", secret).
		Validate(); verr != nil {
		return nil, verr
	}

	acct, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if !stderrors.Is(err, ErrIdentityNotFound) {
			return nil, errors.DatabaseError(err)
		}
		_, _ = s.hasher.Verify(secret, s.dummy())
		return nil, errors.Unauthorized(msgInvalidCredentials)
	}

	ok, err := s.hasher.Verify(secret, acct.PasswordHash)
	if err != nil {
		s.log.WithContext(ctx).Error("Stored credential cannot be decoded", logger.Fields(
			logger.FieldUserID, acct.ID,
			logger.FieldError, err.Error(),
		))
		return nil, errors.Unauthorized(msgInvalidCredentials)
	}
	if !ok || !acct.Active {
		return nil, errors.Unauthorized(msgInvalidCredentials)
	}

	now := s.now().UTC()
	if err := s.store.UpdateLastLogin(ctx, acct.ID, now); err != nil {
		s.log.WithContext(ctx).Warn("Failed to record last login", logger.Fields(
			logger.FieldUserID, acct.ID,
			logger.FieldError, err.Error(),
		))
	} else {
		acct.LastLoginAt = &now
	}
	s.upgradeHash(ctx, acct, secret)

	tokens, err := s.codec.IssuePair(acct.Identity())
	if err != nil {
		return nil, errors.Internal(err)
	}

	s.publish(ctx, events.New(events.UserLoggedIn, acct.ID, acct.Email))
	return &Result{Account: acct, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair and revokes the
// presented one, so each refresh token can be used once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (tokens jwt.Pair, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Refresh")
	defer s.finish(ctx, span, observability.OpRefresh, time.Now(), &err)

	if strings.TrimSpace(refreshToken) == "" {
		return jwt.Pair{}, errors.Unauthorized("Refresh token is required")
	}
	claims, err := s.codec.Verify(refreshToken, jwt.Refresh)
	if err != nil {
		return jwt.Pair{}, errors.Unauthorized(msgInvalidRefresh)
	}

	claimed, err := s.revoker.Revoke(ctx, claims.ID, claims.Expiry())
	if err != nil {
		return jwt.Pair{}, errors.Internal(err)
	}
	if !claimed {
		s.log.WithContext(ctx).Warn("Revoked refresh token presented", logger.Fields(logger.FieldUserID, claims.Subject))
		return jwt.Pair{}, errors.Unauthorized(msgInvalidRefresh)
	}

	tokens, err = s.codec.IssuePair(claims.Identity())
	if err != nil {
		return jwt.Pair{}, errors.Internal(err)
	}

	s.publish(ctx, events.New(events.TokenRefreshed, claims.Subject, claims.Email))
	return tokens, nil
}

// Logout revokes a refresh token until its expiry. Empty tokens and tokens
// that no longer verify are accepted silently.
func (s *Service) Logout(ctx context.Context, refreshToken string) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.Logout")
	defer s.finish(ctx, span, observability.OpLogout, time.Now(), &err)

	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	claims, verr := s.codec.Verify(refreshToken, jwt.Refresh)
	if verr != nil {
		s.log.WithContext(ctx).Debug("Logout with unverifiable token ignored")
		return nil
	}
	if _, err := s.revoker.Revoke(ctx, claims.ID, claims.Expiry()); err != nil {
		return errors.Internal(err)
	}

	s.publish(ctx, events.New(events.UserLoggedOut, claims.Subject, claims.Email))
	return nil
}

// dummy returns a real credential for the configured algorithm, hashed on
// first use.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		if h, err := s.hasher.Hash(dummySecret); err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// upgradeHash re-encodes the credential when its algorithm or parameters
// are outdated and the store supports it.
func (s *Service) upgradeHash(ctx context.Context, acct *Account, secret string) {
	updater, ok := s.store.(CredentialUpdater)
	if !ok || !password.NeedsRehash(s.hasher, acct.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return
	}
	if err := updater.UpdatePasswordHash(ctx, acct.ID, hash); err != nil {
		s.log.WithContext(ctx).Warn("Failed to upgrade credential", logger.Fields(
			logger.FieldUserID, acct.ID,
			logger.FieldError, err.Error(),
		))
		return
	}
	acct.PasswordHash = hash
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.WithContext(ctx).Warn("Failed to publish auth event", logger.Fields(
			"event_type", string(e.Type),
			logger.FieldError, err.Error(),
		))
	}
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, start time.Time, errp *error) {
	outcome := outcomeOf(*errp)
	span.SetAttributes(attribute.String(observability.AttrOutcome, outcome))
	s.metrics.Record(ctx, op, outcome, time.Since(start))
	if outcome == observability.OutcomeError {
		observability.EndSpan(span, *errp)
		s.log.WithContext(ctx).Error("Auth operation failed", logger.ErrorFields(op, *errp))
		return
	}
	span.End()
}

func outcomeOf(err error) string {
	if err == nil {
		return observability.OutcomeSuccess
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return observability.OutcomeError
	}
	switch appErr.Code {
	case errors.ErrCodeBadRequest, errors.ErrCodeValidation, errors.ErrCodeMissingField:
		return observability.OutcomeRejected
	case errors.ErrCodeUnauthorized, errors.ErrCodeTokenExpired, errors.ErrCodeInvalidToken:
		return observability.OutcomeUnauthorized
	case errors.ErrCodeConflict:
		return observability.OutcomeConflict
	default:
		return observability.OutcomeError
	}
}
