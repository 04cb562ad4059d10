// Package session resolves the caller's principal from the session cookies.
//
// A request is validated in at most three steps:
//
//	S0  the access token is verified with the credential store.
//	S1  if S0 failed and a refresh token is present, the pair is refreshed
//	    once and the new access token is verified.
//	S2  otherwise the request is unauthenticated.
//
// The validator never writes to the response. A refreshed pair is returned in
// Result.Refreshed and the caller is responsible for emitting it as cookies.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/budgetly/budgetly/internal/credstore"
	"github.com/budgetly/budgetly/internal/metrics"
	"github.com/budgetly/budgetly/internal/model"
)

// ErrUnauthenticated is returned when no valid session could be established.
var ErrUnauthenticated = errors.New("authentication required")

// CredentialStore is the subset of the credential store the validator uses.
type CredentialStore interface {
	Verify(ctx context.Context, accessToken string) (*model.Principal, error)
	Refresh(ctx context.Context, refreshToken string) (*credstore.Session, error)
}

// PrincipalCache caches verified principals by token fingerprint.
// A nil principal with a nil error is a miss.
type PrincipalCache interface {
	GetPrincipal(ctx context.Context, key string) (*model.Principal, error)
	SetPrincipal(ctx context.Context, key string, p *model.Principal, ttl time.Duration) error
	DeletePrincipal(ctx context.Context, key string) error
}

// Result is the outcome of a successful or partially successful validation.
type Result struct {
	Principal *model.Principal
	// Refreshed is the pair issued during S1, if any. It must be written to
	// the response even when validation ultimately fails.
	Refreshed *model.TokenPair
}

// Options configures a Validator.
type Options struct {
	Cache    PrincipalCache
	CacheTTL time.Duration
	Logger   *slog.Logger
	Metrics  metrics.Recorder
	// Now is the clock used to check token expiry. Nil means time.Now.
	Now func() time.Time
}

// Validator implements the session state machine.
type Validator struct {
	store    CredentialStore
	cache    PrincipalCache
	cacheTTL time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewValidator creates a Validator. The cache is used only when both
// opts.Cache is set and opts.CacheTTL is positive.
func NewValidator(store CredentialStore, opts Options) *Validator {
	v := &Validator{
		store:   store,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if opts.Cache != nil && opts.CacheTTL > 0 {
		v.cache = opts.Cache
		v.cacheTTL = opts.CacheTTL
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	if v.metrics == nil {
		v.metrics = metrics.NewNoop()
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

// Validate resolves creds to a principal. Refresh is called at most once and
// only when the access token is missing or was not accepted.
func (v *Validator) Validate(ctx context.Context, creds Credentials) (Result, error) {
	// S0
	if creds.AccessToken != "" {
		p, err := v.verify(ctx, creds.AccessToken)
		if err == nil {
			v.metrics.IncSessionOutcome(metrics.SessionAuthenticated)
			return Result{Principal: p}, nil
		}
		v.logFailure(ctx, "access_token_rejected", creds.AccessToken, err)
	}

	// S1
	if creds.RefreshToken == "" {
		return v.fail("no_refresh_token", Result{})
	}

	sess, err := v.store.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		v.logFailure(ctx, "refresh_rejected", creds.RefreshToken, err)
		return v.fail("refresh_rejected", Result{})
	}

	pair := sess.Tokens
	res := Result{Refreshed: &pair}

	p, err := v.verify(ctx, pair.AccessToken)
	if err != nil {
		v.logFailure(ctx, "refreshed_token_rejected", pair.AccessToken, err)
		return v.fail("refreshed_token_rejected", res)
	}

	v.logger.DebugContext(ctx, "session refreshed",
		slog.String("user_id", p.ID.String()),
		slog.String("token", Fingerprint(pair.AccessToken)),
	)
	v.metrics.IncSessionOutcome(metrics.SessionRefreshed)
	res.Principal = p
	return res, nil
}

// Forget evicts any cached principal for an access token. Used on logout.
func (v *Validator) Forget(ctx context.Context, accessToken string) {
	if v.cache == nil || accessToken == "" {
		return
	}
	if err := v.cache.DeletePrincipal(ctx, Fingerprint(accessToken)); err != nil {
		v.logger.WarnContext(ctx, "principal cache delete failed", slog.String("error", err.Error()))
	}
}

// verify resolves an access token, consulting the cache first. Only tokens
// with a readable, future exp claim are cached, and never beyond that exp.
func (v *Validator) verify(ctx context.Context, accessToken string) (*model.Principal, error) {
	if v.cache == nil {
		return v.store.Verify(ctx, accessToken)
	}

	exp, ok := tokenExpiry(accessToken)
	remaining := exp.Sub(v.now())
	if !ok || remaining <= 0 {
		return v.store.Verify(ctx, accessToken)
	}

	key := Fingerprint(accessToken)
	cached, err := v.cache.GetPrincipal(ctx, key)
	if err != nil {
		v.logger.WarnContext(ctx, "principal cache read failed", slog.String("error", err.Error()))
	}
	if cached != nil {
		v.metrics.IncPrincipalCacheHit()
		return cached, nil
	}
	v.metrics.IncPrincipalCacheMiss()

	p, err := v.store.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if err := v.cache.SetPrincipal(ctx, key, p, min(v.cacheTTL, remaining)); err != nil {
		v.logger.WarnContext(ctx, "principal cache write failed", slog.String("error", err.Error()))
	}
	return p, nil
}

// tokenExpiry reads the exp claim without checking the signature. The
// credential store has verified the token before anything is cached.
func tokenExpiry(accessToken string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (v *Validator) fail(reason string, res Result) (Result, error) {
	v.metrics.IncSessionOutcome(metrics.SessionUnauthenticated)
	return res, fmt.Errorf("%w: %s", ErrUnauthenticated, reason)
}

func (v *Validator) logFailure(ctx context.Context, reason, token string, err error) {
	level := slog.LevelDebug
	if errors.Is(err, credstore.ErrUpstream) {
		level = slog.LevelWarn
	}
	v.logger.Log(ctx, level, "session validation step failed",
		slog.String("reason", reason),
		slog.String("token", Fingerprint(token)),
		slog.String("error", err.Error()),
	)
}
