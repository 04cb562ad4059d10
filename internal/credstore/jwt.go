package credstore

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/budgetly/budgetly/internal/model"
)

// accessAudience is the audience GoTrue stamps on user access tokens.
const accessAudience = "authenticated"

// accessClaims is the subset of a GoTrue access token we read.
type accessClaims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies access tokens locally with the project's JWT secret,
// saving a round trip to the credential store. Refresh tokens are opaque and
// still go to the credential store.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for HS256 tokens signed with secret.
func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, oops.In("credstore").Code("CONFIG_INVALID").Errorf("jwt secret is empty")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

// Verify checks signature, expiry and audience and builds the principal
// from the token claims. Any failure is reported as ErrRejected.
func (v *JWTVerifier) Verify(_ context.Context, accessToken string) (*model.Principal, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(accessAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		code := "TOKEN_INVALID"
		if errors.Is(err, jwt.ErrTokenExpired) {
			code = "TOKEN_EXPIRED"
		}
		return nil, oops.In("credstore").Code("CREDSTORE_REJECTED").
			With("operation", OpVerify).
			With("reason", code).
			Wrap(ErrRejected)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, oops.In("credstore").Code("CREDSTORE_REJECTED").
			With("operation", OpVerify).
			With("reason", "SUBJECT_INVALID").
			Wrap(ErrRejected)
	}

	return &model.Principal{
		ID:      id,
		Email:   claims.Email,
		Name:    metadataString(claims.UserMetadata, "name"),
		Surname: metadataString(claims.UserMetadata, "surname"),
	}, nil
}

// LocalClient verifies access tokens with a JWTVerifier and sends every
// other call to the credential store.
type LocalClient struct {
	*Client
	verifier *JWTVerifier
}

// WithLocalVerification returns a client that verifies access tokens locally.
func (c *Client) WithLocalVerification(v *JWTVerifier) *LocalClient {
	return &LocalClient{Client: c, verifier: v}
}

// Verify resolves an access token without calling the credential store.
func (l *LocalClient) Verify(ctx context.Context, accessToken string) (*model.Principal, error) {
	return l.verifier.Verify(ctx, accessToken)
}
