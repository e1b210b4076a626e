package salesforce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EpochMillis is a Unix timestamp in milliseconds. Salesforce sends issued_at
// as a numeric string; plain JSON numbers are accepted too.
type EpochMillis int64

// UnmarshalJSON implements json.Unmarshaler for EpochMillis
func (m *EpochMillis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			*m = 0
			return nil
		}
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return fmt.Errorf("invalid epoch milliseconds %q: %w", raw, err)
		}
		v = int64(f)
	}
	*m = EpochMillis(v)
	return nil
}

// Time truncates to whole seconds, in UTC.
func (m EpochMillis) Time() time.Time {
	return time.Unix(int64(m)/1000, 0).UTC()
}

// TokenResponse is the body returned by /services/oauth2/token for both the
// authorization-code and refresh-token grants.
type TokenResponse struct {
	ID           string      `json:"id,omitempty"`
	IssuedAt     EpochMillis `json:"issued_at"`
	Scope        string      `json:"scope,omitempty"`
	TokenType    string      `json:"token_type,omitempty"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	Signature    string      `json:"signature,omitempty"`
	AccessToken  string      `json:"access_token"`
	InstanceURL  string      `json:"instance_url,omitempty"`
}

// Record is a single sObject as returned by the data API.
type Record map[string]interface{}

// QueryResponse is one page of SOQL results.
type QueryResponse struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	NextRecordsURL string   `json:"nextRecordsUrl,omitempty"`
	Records        []Record `json:"records"`
}

// CreateResponse is returned when a record is created.
type CreateResponse struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

// apiError is the data API error shape. Salesforce usually wraps it in an array.
type apiError struct {
	ErrorCode string   `json:"errorCode"`
	Message   string   `json:"message"`
	Fields    []string `json:"fields,omitempty"`
}

// oauthError is the error shape of the OAuth endpoints.
type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
