package cognito

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what a verified ID token asserts about the user.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

type idTokenClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

type keySource interface {
	GetKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Verifier checks ID tokens issued by one user pool to one app client.
type Verifier struct {
	keys     keySource
	issuer   string
	clientID string
}

func NewVerifier(keys *JWKSClient, issuer, clientID string) *Verifier {
	return &Verifier{keys: keys, issuer: issuer, clientID: clientID}
}

func (v *Verifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	var claims idTokenClaims
	token, err := jwt.ParseWithClaims(idToken, &claims, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("kid header not found")
		}
		return v.keys.GetKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenUse != "id" {
		return Identity{}, fmt.Errorf("%w: token_use %q", ErrInvalidToken, claims.TokenUse)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: sub claim not found", ErrInvalidToken)
	}

	return Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}

// JWKSURL returns the JWKS URL for the given user pool.
func JWKSURL(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", region, userPoolID)
}

// Issuer returns the expected token issuer for the given user pool.
func Issuer(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}
