package salesforce

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// tokenTimeLayout is the date format used in persisted tokens.
const tokenTimeLayout = "2006-01-02 15:04:05"

const (
	tokenLifetime     = time.Hour
	tokenExpiryMargin = 5 * time.Minute
)

// now is swapped in tests.
var now = time.Now

// AccessToken is an OAuth grant issued by Salesforce together with its
// derived expiry. APIURL is the instance URL all data calls are made against;
// it can differ between tokens.
type AccessToken struct {
	ID           string
	DateIssued   time.Time
	DateExpires  time.Time
	Scope        []string
	TokenType    string
	RefreshToken string
	Signature    string
	AccessToken  string
	APIURL       string
}

// NeedsRefresh reports whether the token has reached its expiry.
func (t *AccessToken) NeedsRefresh() bool {
	return t.needsRefreshAt(now())
}

func (t *AccessToken) needsRefreshAt(at time.Time) bool {
	return !at.Before(t.DateExpires)
}

// UpdateFromRefresh applies a refresh grant in place. Only the issue date,
// expiry, signature and bearer value change.
//
// Refreshed tokens get the full hour without the safety margin applied by
// NewTokenFromResponse.
func (t *AccessToken) UpdateFromRefresh(resp *TokenResponse) {
	t.DateIssued = resp.IssuedAt.Time()
	t.DateExpires = t.DateIssued.Add(tokenLifetime)
	t.Signature = resp.Signature
	t.AccessToken = resp.AccessToken
}

// ToJSON renders the token in its persisted form.
func (t *AccessToken) ToJSON() (string, error) {
	b, err := json.Marshal(t.persisted())
	if err != nil {
		return "", fmt.Errorf("failed to encode access token: %w", err)
	}
	return string(b), nil
}

// String renders the persisted form with secrets redacted.
func (t *AccessToken) String() string {
	p := t.persisted()
	p.RefreshToken = redact(p.RefreshToken)
	p.AccessToken = redact(p.AccessToken)
	p.Signature = redact(p.Signature)
	b, err := json.Marshal(p)
	if err != nil {
		return "<invalid access token>"
	}
	return string(b)
}

func (t *AccessToken) persisted() persistedToken {
	scope := t.Scope
	if scope == nil {
		scope = []string{}
	}
	issued := tokenTime{t.DateIssued}
	expires := tokenTime{t.DateExpires}
	return persistedToken{
		ID:           t.ID,
		DateIssued:   &issued,
		DateExpires:  &expires,
		Scope:        scope,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Signature:    t.Signature,
		AccessToken:  t.AccessToken,
		APIURL:       t.APIURL,
	}
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***"
}

// persistedToken is the JSON shape written by token stores.
type persistedToken struct {
	ID           string     `json:"id"`
	DateIssued   *tokenTime `json:"dateIssued"`
	DateExpires  *tokenTime `json:"dateExpires"`
	Scope        []string   `json:"scope"`
	TokenType    string     `json:"tokenType"`
	RefreshToken string     `json:"refreshToken"`
	Signature    string     `json:"signature"`
	AccessToken  string     `json:"accessToken"`
	APIURL       string     `json:"apiUrl"`
}

// tokenTime stores dates as "2006-01-02 15:04:05" in UTC.
type tokenTime struct {
	time.Time
}

func (t *tokenTime) UnmarshalJSON(data []byte) error {
	var timeStr string
	if err := json.Unmarshal(data, &timeStr); err != nil {
		return err
	}

	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return fmt.Errorf("empty date")
	}

	if parsed, err := time.ParseInLocation(tokenTimeLayout, timeStr, time.UTC); err == nil {
		t.Time = parsed
		return nil
	}

	// Tolerate RFC3339 written by other tooling
	if parsed, err := time.Parse(time.RFC3339, timeStr); err == nil {
		t.Time = parsed.UTC()
		return nil
	}

	return fmt.Errorf("unable to parse time string: %s", timeStr)
}

func (t tokenTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(tokenTimeLayout))
}
