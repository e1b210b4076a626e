package salesforce

import (
	"golang.org/x/oauth2"
)

// OAuth2Token converts the token to an oauth2.Token for use with code built on
// golang.org/x/oauth2. Extra carries the Salesforce specific fields.
func (at *AccessToken) OAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  at.AccessToken,
		TokenType:    at.TokenType,
		RefreshToken: at.RefreshToken,
		Expiry:       at.DateExpires,
	}

	return token.WithExtra(map[string]interface{}{
		"id":           at.ID,
		"instance_url": at.APIURL,
		"signature":    at.Signature,
		"scope":        at.Scope,
	})
}

// TokenSource returns a static oauth2.TokenSource for the token. It never
// refreshes; use Client.RefreshToken for that.
func (at *AccessToken) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(at.OAuth2Token())
}
