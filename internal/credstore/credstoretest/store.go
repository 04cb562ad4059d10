// Package credstoretest provides an in-memory credential store for tests.
package credstoretest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/budgetly/budgetly/internal/credstore"
	"github.com/budgetly/budgetly/internal/model"
)

// Secret signs the access tokens minted when Store.AccessTTL is set.
const Secret = "credstoretest-secret-with-at-least-32-characters"

type account struct {
	principal model.Principal
	password  string
}

type grant struct {
	userID    uuid.UUID
	expiresAt time.Time // zero for opaque tokens
}

// Store is an in-memory credential store. It issues tokens of the form
// "access-N" and "refresh-N", rotates refresh tokens on use, and counts
// Verify and Refresh calls so tests can assert on the session state machine.
// With AccessTTL set, access tokens are HS256 JWTs signed with Secret that
// stop verifying AccessTTL after issue, as measured by Now.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*account // by lowercase email
	access   map[string]grant
	refresh  map[string]uuid.UUID
	seq      int

	// Unavailable makes every call fail with credstore.ErrUpstream.
	Unavailable bool
	// RejectRefreshedAccess makes access tokens minted by Refresh fail
	// verification, simulating a misbehaving store.
	RejectRefreshedAccess bool
	// AccessTTL, when positive, switches access tokens to expiring JWTs.
	AccessTTL time.Duration
	// Now is the clock used for token expiry. Nil means time.Now.
	Now func() time.Time

	verifyCalls  int
	refreshCalls int
	signUpCalls  int
	signInCalls  int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*account),
		access:   make(map[string]grant),
		refresh:  make(map[string]uuid.UUID),
	}
}

// AddUser registers a user directly and returns its principal.
func (s *Store) AddUser(email, password, name, surname string) model.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(email, password, name, surname)
}

func (s *Store) addLocked(email, password, name, surname string) model.Principal {
	p := model.Principal{ID: uuid.New(), Email: email, Name: name, Surname: surname}
	s.accounts[strings.ToLower(email)] = &account{principal: p, password: password}
	return p
}

// IssueSession mints a token pair for an existing user.
func (s *Store) IssueSession(userID uuid.UUID) model.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(userID, false)
}

func (s *Store) issueLocked(userID uuid.UUID, refreshed bool) model.TokenPair {
	s.seq++
	pair := model.TokenPair{
		AccessToken:  fmt.Sprintf("access-%d", s.seq),
		RefreshToken: fmt.Sprintf("refresh-%d", s.seq),
	}
	g := grant{userID: userID}
	if s.AccessTTL > 0 {
		g.expiresAt = s.nowLocked().Add(s.AccessTTL)
		pair.AccessToken = signAccess(pair.AccessToken, userID, g.expiresAt)
	}
	if !(refreshed && s.RejectRefreshedAccess) {
		s.access[pair.AccessToken] = g
	}
	s.refresh[pair.RefreshToken] = userID
	return pair
}

func signAccess(id string, userID uuid.UUID, exp time.Time) string {
	claims := jwt.RegisteredClaims{
		ID:        id,
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Minute)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	if err != nil {
		panic(err)
	}
	return tok
}

func (s *Store) nowLocked() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Expire revokes an access token at the store. A cached copy of a JWT
// access token is not affected; advance Now past AccessTTL for that.
func (s *Store) Expire(accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.access, accessToken)
}

// RevokeRefresh invalidates a refresh token.
func (s *Store) RevokeRefresh(refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, refreshToken)
}

// VerifyCalls returns how many times Verify was called.
func (s *Store) VerifyCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifyCalls
}

// RefreshCalls returns how many times Refresh was called.
func (s *Store) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// SignUpCalls returns how many times SignUp was called.
func (s *Store) SignUpCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signUpCalls
}

// SignUp implements the registration call.
func (s *Store) SignUp(_ context.Context, in credstore.SignUpInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signUpCalls++
	if s.Unavailable {
		return credstore.ErrUpstream
	}
	if in.Email == "" || len(in.Password) < 6 {
		return fmt.Errorf("weak password: %w", credstore.ErrRejected)
	}
	if _, ok := s.accounts[strings.ToLower(in.Email)]; ok {
		return fmt.Errorf("user already registered: %w", credstore.ErrRejected)
	}
	s.addLocked(in.Email, in.Password, in.Name, in.Surname)
	return nil
}

// SignIn implements password sign-in.
func (s *Store) SignIn(_ context.Context, email, password string) (*credstore.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signInCalls++
	if s.Unavailable {
		return nil, credstore.ErrUpstream
	}
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok || acc.password != password {
		return nil, fmt.Errorf("invalid login credentials: %w", credstore.ErrRejected)
	}
	p := acc.principal
	return &credstore.Session{Tokens: s.issueLocked(p.ID, false), Principal: &p}, nil
}

// Verify implements access-token verification.
func (s *Store) Verify(_ context.Context, accessToken string) (*model.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifyCalls++
	if s.Unavailable {
		return nil, credstore.ErrUpstream
	}
	g, ok := s.access[accessToken]
	if !ok {
		return nil, fmt.Errorf("invalid JWT: %w", credstore.ErrRejected)
	}
	if !g.expiresAt.IsZero() && !s.nowLocked().Before(g.expiresAt) {
		return nil, fmt.Errorf("token is expired: %w", credstore.ErrRejected)
	}
	return s.principalLocked(g.userID)
}

// Refresh implements refresh-token rotation. The used token is revoked.
func (s *Store) Refresh(_ context.Context, refreshToken string) (*credstore.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	if s.Unavailable {
		return nil, credstore.ErrUpstream
	}
	id, ok := s.refresh[refreshToken]
	if !ok {
		return nil, fmt.Errorf("invalid refresh token: %w", credstore.ErrRejected)
	}
	delete(s.refresh, refreshToken)
	p, err := s.principalLocked(id)
	if err != nil {
		return nil, err
	}
	return &credstore.Session{Tokens: s.issueLocked(id, true), Principal: p}, nil
}

// Ping reports availability.
func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return credstore.ErrUpstream
	}
	return nil
}

func (s *Store) principalLocked(id uuid.UUID) (*model.Principal, error) {
	for _, acc := range s.accounts {
		if acc.principal.ID == id {
			p := acc.principal
			return &p, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", credstore.ErrRejected)
}
