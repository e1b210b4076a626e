package salesforce

import (
	"encoding/json"
	"errors"
	"strings"
)

// NewTokenFromResponse builds a token from an OAuth token response. The
// expiry is set five minutes short of the one hour Salesforce grants.
//
// id, scope, token_type, refresh_token and signature are optional;
// access_token and instance_url are required.
func NewTokenFromResponse(resp *TokenResponse) (*AccessToken, error) {
	if resp == nil {
		return nil, &DeserializationError{Source: "token response", Err: errors.New("response is nil")}
	}
	if resp.AccessToken == "" {
		return nil, &DeserializationError{Source: "token response", Err: errors.New("access_token is required")}
	}
	if resp.InstanceURL == "" {
		return nil, &DeserializationError{Source: "token response", Err: errors.New("instance_url is required")}
	}

	issued := resp.IssuedAt.Time()

	return &AccessToken{
		ID:           resp.ID,
		DateIssued:   issued,
		DateExpires:  issued.Add(tokenLifetime - tokenExpiryMargin),
		Scope:        splitScope(resp.Scope),
		TokenType:    resp.TokenType,
		RefreshToken: resp.RefreshToken,
		Signature:    resp.Signature,
		AccessToken:  resp.AccessToken,
		APIURL:       resp.InstanceURL,
	}, nil
}

// DecodeTokenResponse parses a raw OAuth token response body.
func DecodeTokenResponse(body []byte) (*TokenResponse, error) {
	var resp TokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &DeserializationError{Source: "token response", Err: err}
	}
	return &resp, nil
}

// TokenFromJSON rebuilds a token written by AccessToken.ToJSON. Dates and
// expiry are taken as stored.
func TokenFromJSON(data []byte) (*AccessToken, error) {
	var p persistedToken
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &DeserializationError{Source: "persisted access token", Err: err}
	}

	var missing []string
	if p.DateIssued == nil {
		missing = append(missing, "dateIssued")
	}
	if p.DateExpires == nil {
		missing = append(missing, "dateExpires")
	}
	if p.AccessToken == "" {
		missing = append(missing, "accessToken")
	}
	if p.APIURL == "" {
		missing = append(missing, "apiUrl")
	}
	if len(missing) > 0 {
		return nil, &DeserializationError{
			Source: "persisted access token",
			Err:    errors.New("missing required fields: " + strings.Join(missing, ", ")),
		}
	}
	if !p.DateExpires.After(p.DateIssued.Time) {
		return nil, &DeserializationError{
			Source: "persisted access token",
			Err:    errors.New("dateExpires must be after dateIssued"),
		}
	}

	scope := p.Scope
	if scope == nil {
		scope = []string{}
	}

	return &AccessToken{
		ID:           p.ID,
		DateIssued:   p.DateIssued.Time,
		DateExpires:  p.DateExpires.Time,
		Scope:        scope,
		TokenType:    p.TokenType,
		RefreshToken: p.RefreshToken,
		Signature:    p.Signature,
		AccessToken:  p.AccessToken,
		APIURL:       p.APIURL,
	}, nil
}

func splitScope(scope string) []string {
	fields := strings.Fields(scope)
	if fields == nil {
		return []string{}
	}
	return fields
}
