package session

import (
	"net/http"

	"github.com/budgetly/budgetly/internal/model"
)

// Cookie names carrying the session.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// Credentials are the tokens a request presented. Either may be empty.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// ReadCredentials extracts the session cookies from a request.
func ReadCredentials(r *http.Request) Credentials {
	var creds Credentials
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		creds.AccessToken = c.Value
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		creds.RefreshToken = c.Value
	}
	return creds
}

// CookieConfig controls the attributes of session cookies.
// All session cookies are HttpOnly, SameSite=Lax and scoped to "/".
type CookieConfig struct {
	Secure bool
	Domain string
}

// SetTokens writes both session cookies, overwriting any previous pair.
func (c CookieConfig) SetTokens(w http.ResponseWriter, pair model.TokenPair) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, pair.AccessToken, 0))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, pair.RefreshToken, 0))
}

// Clear expires both session cookies.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, "", -1))
}

func (c CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
