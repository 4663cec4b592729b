package cognito

import "context"

// Client is the subset of the Cognito user pool API the identity session uses.
type Client interface {
	SignUp(ctx context.Context, input SignUpInput) (SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, input ConfirmSignUpInput) error
	ResendConfirmationCode(ctx context.Context, input ResendCodeInput) error
	Login(ctx context.Context, input LoginInput) (AuthOutput, error)
	RefreshTokens(ctx context.Context, input RefreshInput) (AuthOutput, error)
	GlobalSignOut(ctx context.Context, input GlobalSignOutInput) error
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

type SignUpOutput struct {
	UserSub   string
	Confirmed bool
}

type ConfirmSignUpInput struct {
	Email string
	Code  string
}

type ResendCodeInput struct {
	Email string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthOutput holds the tokens returned by a successful authentication.
// RefreshToken is empty on a refresh-token flow.
type AuthOutput struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int32
}

// RefreshInput needs the email only to compute the secret hash.
type RefreshInput struct {
	Email        string
	RefreshToken string
}

type GlobalSignOutInput struct {
	AccessToken string
}
