package cognito

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

// AWSClient implements Client using the AWS SDK v2.
type AWSClient struct {
	cip          *cip.Client
	clientID     string
	clientSecret string
}

func NewAWSClient(ctx context.Context, region, clientID, clientSecret string) (*AWSClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &AWSClient{
		cip:          cip.NewFromConfig(cfg),
		clientID:     clientID,
		clientSecret: clientSecret,
	}, nil
}

func (c *AWSClient) secretHash(username string) *string {
	if c.clientSecret == "" {
		return nil
	}
	h := ComputeSecretHash(username, c.clientID, c.clientSecret)
	return &h
}

func (c *AWSClient) SignUp(ctx context.Context, input SignUpInput) (SignUpOutput, error) {
	attrs := []types.AttributeType{
		{Name: aws.String("email"), Value: aws.String(input.Email)},
	}
	if input.Name != "" {
		attrs = append(attrs, types.AttributeType{Name: aws.String("name"), Value: aws.String(input.Name)})
	}

	out, err := c.cip.SignUp(ctx, &cip.SignUpInput{
		ClientId:       &c.clientID,
		SecretHash:     c.secretHash(input.Email),
		Username:       aws.String(input.Email),
		Password:       aws.String(input.Password),
		UserAttributes: attrs,
	})
	if err != nil {
		return SignUpOutput{}, mapAWSError(err)
	}
	return SignUpOutput{
		UserSub:   aws.ToString(out.UserSub),
		Confirmed: out.UserConfirmed,
	}, nil
}

func (c *AWSClient) ConfirmSignUp(ctx context.Context, input ConfirmSignUpInput) error {
	_, err := c.cip.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         &c.clientID,
		SecretHash:       c.secretHash(input.Email),
		Username:         aws.String(input.Email),
		ConfirmationCode: aws.String(input.Code),
	})
	if err != nil {
		return mapAWSError(err)
	}
	return nil
}

func (c *AWSClient) ResendConfirmationCode(ctx context.Context, input ResendCodeInput) error {
	_, err := c.cip.ResendConfirmationCode(ctx, &cip.ResendConfirmationCodeInput{
		ClientId:   &c.clientID,
		SecretHash: c.secretHash(input.Email),
		Username:   aws.String(input.Email),
	})
	if err != nil {
		return mapAWSError(err)
	}
	return nil
}

func (c *AWSClient) Login(ctx context.Context, input LoginInput) (AuthOutput, error) {
	params := map[string]string{
		"USERNAME": input.Email,
		"PASSWORD": input.Password,
	}
	return c.initiateAuth(ctx, types.AuthFlowTypeUserPasswordAuth, input.Email, params)
}

func (c *AWSClient) RefreshTokens(ctx context.Context, input RefreshInput) (AuthOutput, error) {
	params := map[string]string{
		"REFRESH_TOKEN": input.RefreshToken,
	}
	return c.initiateAuth(ctx, types.AuthFlowTypeRefreshTokenAuth, input.Email, params)
}

func (c *AWSClient) initiateAuth(ctx context.Context, flow types.AuthFlowType, username string, params map[string]string) (AuthOutput, error) {
	if h := c.secretHash(username); h != nil {
		params["SECRET_HASH"] = *h
	}

	out, err := c.cip.InitiateAuth(ctx, &cip.InitiateAuthInput{
		ClientId:       &c.clientID,
		AuthFlow:       flow,
		AuthParameters: params,
	})
	if err != nil {
		return AuthOutput{}, mapAWSError(err)
	}
	if out.AuthenticationResult == nil {
		// a challenge such as NEW_PASSWORD_REQUIRED
		return AuthOutput{}, fmt.Errorf("cognito: unsupported challenge %q", out.ChallengeName)
	}

	r := out.AuthenticationResult
	return AuthOutput{
		IDToken:      aws.ToString(r.IdToken),
		AccessToken:  aws.ToString(r.AccessToken),
		RefreshToken: aws.ToString(r.RefreshToken),
		ExpiresIn:    r.ExpiresIn,
	}, nil
}

func (c *AWSClient) GlobalSignOut(ctx context.Context, input GlobalSignOutInput) error {
	_, err := c.cip.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(input.AccessToken),
	})
	if err != nil {
		return mapAWSError(err)
	}
	return nil
}

// mapAWSError converts AWS SDK errors to cognito sentinel errors.
func mapAWSError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("cognito: %w", err)
	}
	if sentinel, ok := errorCodes[apiErr.ErrorCode()]; ok {
		return fmt.Errorf("%s: %w", apiErr.ErrorMessage(), sentinel)
	}
	return fmt.Errorf("cognito %s: %w", apiErr.ErrorCode(), err)
}

var _ Client = (*AWSClient)(nil)
