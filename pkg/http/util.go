package http

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildURL joins path onto baseURL, keeping any path baseURL already has,
// and sets the given query parameters.
func BuildURL(baseURL, path string, queryParams map[string]string) (string, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("error parsing base URL: %w", err)
	}

	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/") + "/" + strings.TrimLeft(path, "/")

	if len(queryParams) > 0 {
		q := url.Values{}
		for key, value := range queryParams {
			q.Set(key, value)
		}
		parsedURL.RawQuery = q.Encode()
	}

	return parsedURL.String(), nil
}

// redactURL drops the query string so SOQL and other parameters stay out of logs.
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
