package salesforce

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	httpclient "github.com/natserract/sfclient/pkg/http"
)

// ErrNoAccessToken is returned by operations that need a token before
// SetAccessToken has been called.
var ErrNoAccessToken = errors.New("salesforce: no access token set")

// AuthenticationError is returned when Salesforce answers 401. Callers
// typically react by refreshing the token and retrying.
type AuthenticationError struct {
	StatusCode int
	Code       string
	Message    string
	Body       []byte
}

func (e *AuthenticationError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("salesforce authentication failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("salesforce authentication failed: %s: %s", e.Code, e.Message)
}

// RequestError covers every other non-2xx response and bodies that could not
// be decoded. Code and Message are set when the body has a known error shape.
type RequestError struct {
	StatusCode int
	Code       string
	Message    string
	Body       []byte
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("salesforce request failed with status %d: %v", e.StatusCode, e.Err)
	case e.Code != "" || e.Message != "":
		return fmt.Sprintf("salesforce request failed with status %d: %s: %s", e.StatusCode, e.Code, e.Message)
	default:
		return fmt.Sprintf("salesforce request failed with status %d: %s", e.StatusCode, string(e.Body))
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// TransportError means no HTTP response was received at all: network
// failure, cancellation, timeout. These are the transient failures.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("salesforce %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StoreNotFoundError is returned by a TokenStore that has nothing saved.
type StoreNotFoundError struct {
	Location string
	Err      error
}

func (e *StoreNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("salesforce access token not found at %s: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("salesforce access token not found at %s", e.Location)
}

func (e *StoreNotFoundError) Unwrap() error { return e.Err }

// DeserializationError is returned when a token payload is malformed or
// lacks required fields.
type DeserializationError struct {
	Source string
	Err    error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Source, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

func IsRequestError(err error) bool {
	var target *RequestError
	return errors.As(err, &target)
}

func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsStoreNotFound(err error) bool {
	var target *StoreNotFoundError
	return errors.As(err, &target)
}

func IsDeserializationError(err error) bool {
	var target *DeserializationError
	return errors.As(err, &target)
}

// checkResponse maps a non-2xx response onto the error taxonomy.
func checkResponse(resp *httpclient.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	code, message := parseErrorBody(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthenticationError{
			StatusCode: resp.StatusCode,
			Code:       code,
			Message:    message,
			Body:       resp.Body,
		}
	}

	return &RequestError{
		StatusCode: resp.StatusCode,
		Code:       code,
		Message:    message,
		Body:       resp.Body,
	}
}

// parseErrorBody recognizes the OAuth shape {error, error_description} and
// the data API shape {errorCode, message}, bare or as the first array entry.
func parseErrorBody(body []byte) (code, message string) {
	if len(body) == 0 {
		return "", ""
	}

	var list []apiError
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) > 0 {
			return list[0].ErrorCode, list[0].Message
		}
		return "", ""
	}

	var oauthErr oauthError
	if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
		return oauthErr.Error, oauthErr.ErrorDescription
	}

	var single apiError
	if err := json.Unmarshal(body, &single); err == nil {
		return single.ErrorCode, single.Message
	}

	return "", ""
}

// decodeBody decodes a successful response, reporting bad bodies as RequestError.
func decodeBody(resp *httpclient.Response, v interface{}) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &RequestError{
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			Err:        fmt.Errorf("failed to decode response body: %w", err),
		}
	}
	return nil
}
