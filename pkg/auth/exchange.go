package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultTokenURL is the iCIMS OAuth token endpoint.
	DefaultTokenURL = "https://login.icims.com/oauth/token"

	// DefaultAudience is the audience requested for API access tokens.
	DefaultAudience = "https://api.icims.com/v1/"
)

// Grant is the result of a successful credential exchange.
type Grant struct {
	AccessToken string

	// ExpiresIn is the validity reported by the server, 0 if not reported.
	ExpiresIn time.Duration
}

// Exchanger trades credentials for an access token.
type Exchanger interface {
	Exchange(ctx context.Context) (*Grant, error)
}

// ExchangerFunc adapts a function to the Exchanger interface.
type ExchangerFunc func(ctx context.Context) (*Grant, error)

// Exchange calls f(ctx).
func (f ExchangerFunc) Exchange(ctx context.Context) (*Grant, error) {
	return f(ctx)
}

// ClientCredentials performs the OAuth 2.0 client credentials grant against iCIMS
// through golang.org/x/oauth2/clientcredentials.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Audience     string

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// config builds the oauth2 client-credentials config. iCIMS expects the credentials and
// the audience in the form body.
func (c *ClientCredentials) config() *clientcredentials.Config {
	tokenURL := c.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	audience := c.Audience
	if audience == "" {
		audience = DefaultAudience
	}
	return &clientcredentials.Config{
		ClientID:       c.ClientID,
		ClientSecret:   c.ClientSecret,
		TokenURL:       tokenURL,
		EndpointParams: url.Values{"audience": {audience}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}
}

// Exchange runs the client credentials grant and returns the granted token.
// Every failure, including transport errors, is an *AuthError.
func (c *ClientCredentials) Exchange(ctx context.Context) (*Grant, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, &AuthError{Err: ErrMissingCredentials}
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	tok, err := c.config().Token(ctx)
	if err != nil {
		return nil, authErrorFrom(err)
	}

	return &Grant{
		AccessToken: tok.AccessToken,
		ExpiresIn:   expiresIn(tok),
	}, nil
}

// authErrorFrom maps an oauth2 failure to an *AuthError, keeping the token endpoint
// status and OAuth error code when the server answered.
func authErrorFrom(err error) *AuthError {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return &AuthError{Message: "token request", Err: err}
	}

	authErr := &AuthError{
		Code:    retrieveErr.ErrorCode,
		Message: retrieveErr.ErrorDescription,
	}
	if retrieveErr.Response != nil {
		authErr.StatusCode = retrieveErr.Response.StatusCode
	}
	if authErr.Message == "" && authErr.StatusCode != 0 {
		authErr.Message = http.StatusText(authErr.StatusCode)
	}
	return authErr
}

func expiresIn(tok *oauth2.Token) time.Duration {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return time.Until(tok.Expiry).Round(time.Second)
}

// String hides the secret when the exchanger is logged.
func (c *ClientCredentials) String() string {
	return fmt.Sprintf("ClientCredentials{TokenURL:%q ClientID:%q ClientSecret:***}", c.TokenURL, c.ClientID)
}
