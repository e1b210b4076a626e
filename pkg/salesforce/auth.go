package salesforce

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	httpclient "github.com/natserract/sfclient/pkg/http"
	"go.uber.org/zap"
)

const (
	authorizePath = "services/oauth2/authorize"
	tokenPath     = "services/oauth2/token"
)

// LoginURL returns the URL users are sent to in order to grant access.
// Salesforce redirects back to redirectURL with a code for AuthorizeConfirm.
func (c *Client) LoginURL(redirectURL string) string {
	endpoint, err := httpclient.BuildURL(c.config.LoginURL, authorizePath, map[string]string{
		"client_id":     c.config.ClientID,
		"redirect_uri":  redirectURL,
		"response_type": "code",
		"grant_type":    "authorization_code",
	})
	if err != nil {
		// An unparsable login URL still yields something the caller can inspect
		c.logger.Warn("Failed to parse login URL", zap.Error(err))
		params := url.Values{
			"client_id":     {c.config.ClientID},
			"redirect_uri":  {redirectURL},
			"response_type": {"code"},
			"grant_type":    {"authorization_code"},
		}
		return c.config.LoginURL + authorizePath + "?" + params.Encode()
	}
	return endpoint
}

// AuthorizeConfirm exchanges an authorization code for a token response.
// Pass the result to NewTokenFromResponse.
func (c *Client) AuthorizeConfirm(ctx context.Context, code, redirectURL string) (*TokenResponse, error) {
	c.logger.Info("Exchanging authorization code")

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURL},
	}

	tokenResp, err := c.requestToken(ctx, form)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Successfully exchanged authorization code",
		zap.String("token_type", tokenResp.TokenType),
		zap.String("instance_url", tokenResp.InstanceURL))

	return tokenResp, nil
}

// RefreshToken runs the refresh token grant for the current token and updates
// it in place. The returned pointer is the same token held by the client.
func (c *Client) RefreshToken(ctx context.Context) (*AccessToken, error) {
	if c.accessToken == nil {
		return nil, ErrNoAccessToken
	}

	c.logger.Info("Refreshing access token", zap.String("token_id", c.accessToken.ID))

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"refresh_token": {c.accessToken.RefreshToken},
	}

	tokenResp, err := c.requestToken(ctx, form)
	if err != nil {
		return nil, err
	}

	if tokenResp.AccessToken == "" {
		c.logger.Error("Refresh response has no access token")
		return nil, &DeserializationError{Source: "refresh response", Err: errors.New("access_token is required")}
	}

	c.accessToken.UpdateFromRefresh(tokenResp)

	c.logger.Info("Successfully refreshed access token",
		zap.Time("issued_at", c.accessToken.DateIssued),
		zap.Time("expires_at", c.accessToken.DateExpires))

	return c.accessToken, nil
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	endpoint, err := httpclient.BuildURL(c.config.LoginURL, tokenPath, nil)
	if err != nil {
		c.logger.Error("Failed to build URL", zap.Error(err))
		return nil, &RequestError{Err: err}
	}

	c.logger.Debug("Making POST request", zap.String("endpoint", endpoint))
	resp, err := c.send(ctx, httpclient.RequestOptions{
		Method: http.MethodPost,
		URL:    endpoint,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: form,
	})
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeBody(resp, &tokenResp); err != nil {
		c.logger.Error("Failed to parse token response", zap.Error(err))
		return nil, err
	}

	return &tokenResp, nil
}
