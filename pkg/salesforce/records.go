package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	httpclient "github.com/natserract/sfclient/pkg/http"
	"go.uber.org/zap"
)

// GetRecord fetches one record. With no fields Salesforce returns all of them.
func (c *Client) GetRecord(ctx context.Context, objectType, id string, fields []string) (Record, error) {
	if c.accessToken == nil {
		return nil, ErrNoAccessToken
	}

	c.logger.Info("Getting record",
		zap.String("object_type", objectType),
		zap.String("record_id", id),
		zap.Int("fields", len(fields)))

	endpoint := c.objectURL(objectType, id)
	if len(fields) > 0 {
		escaped := make([]string, len(fields))
		for i, f := range fields {
			escaped[i] = url.QueryEscape(f)
		}
		endpoint += "?fields=" + strings.Join(escaped, ",")
	}

	c.logger.Debug("Making GET request", zap.String("endpoint", endpoint))
	resp, err := c.send(ctx, c.dataRequest(http.MethodGet, endpoint, nil))
	if err != nil {
		return nil, err
	}

	var record Record
	if err := decodeBody(resp, &record); err != nil {
		c.logger.Error("Failed to parse record response", zap.Error(err))
		return nil, err
	}

	c.logger.Info("Successfully retrieved record",
		zap.String("object_type", objectType),
		zap.String("record_id", id))

	return record, nil
}

// Search runs a SOQL query and follows nextRecordsUrl until the result set is
// exhausted, so the query should be limited. Records are returned in server order.
func (c *Client) Search(ctx context.Context, query string) ([]Record, error) {
	if c.accessToken == nil {
		return nil, ErrNoAccessToken
	}

	c.logger.Info("Running query")

	endpoint := fmt.Sprintf("%s/services/data/%s/query/?q=%s",
		c.apiBaseURL, c.config.queryAPIVersion(), url.QueryEscape(query))

	return c.collectRecords(ctx, endpoint)
}

// SearchFrom resumes a query from a nextRecordsUrl value.
func (c *Client) SearchFrom(ctx context.Context, nextRecordsURL string) ([]Record, error) {
	if c.accessToken == nil {
		return nil, ErrNoAccessToken
	}

	c.logger.Info("Resuming query", zap.String("next_records_url", nextRecordsURL))

	return c.collectRecords(ctx, c.continuationURL(nextRecordsURL))
}

func (c *Client) collectRecords(ctx context.Context, endpoint string) ([]Record, error) {
	records := []Record{}
	pages := 0

	for endpoint != "" {
		c.logger.Debug("Making GET request", zap.String("endpoint", stripQuery(endpoint)), zap.Int("page", pages+1))
		resp, err := c.send(ctx, c.dataRequest(http.MethodGet, endpoint, nil))
		if err != nil {
			return nil, err
		}

		var page QueryResponse
		if err := decodeBody(resp, &page); err != nil {
			c.logger.Error("Failed to parse query response", zap.Error(err), zap.Int("page", pages+1))
			return nil, err
		}
		pages++
		records = append(records, page.Records...)

		if page.Done || len(page.Records) == 0 || page.NextRecordsURL == "" {
			break
		}
		endpoint = c.continuationURL(page.NextRecordsURL)
	}

	c.logger.Info("Successfully ran query",
		zap.Int("pages", pages),
		zap.Int("records", len(records)))

	return records, nil
}

// CreateRecord creates a record and returns its new id.
func (c *Client) CreateRecord(ctx context.Context, objectType string, data interface{}) (string, error) {
	if c.accessToken == nil {
		return "", ErrNoAccessToken
	}

	c.logger.Info("Creating record", zap.String("object_type", objectType))

	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/%s/",
		c.apiBaseURL, c.config.apiVersion(), url.PathEscape(objectType))

	c.logger.Debug("Making POST request", zap.String("endpoint", endpoint))
	resp, err := c.send(ctx, c.dataRequest(http.MethodPost, endpoint, data))
	if err != nil {
		return "", err
	}

	var created CreateResponse
	if err := decodeBody(resp, &created); err != nil {
		c.logger.Error("Failed to parse create response", zap.Error(err))
		return "", err
	}

	c.logger.Info("Successfully created record",
		zap.String("object_type", objectType),
		zap.String("record_id", created.ID))

	return created.ID, nil
}

// UpdateRecord patches a record. Salesforce answers 204 with no body.
func (c *Client) UpdateRecord(ctx context.Context, objectType, id string, data interface{}) error {
	if c.accessToken == nil {
		return ErrNoAccessToken
	}

	c.logger.Info("Updating record",
		zap.String("object_type", objectType),
		zap.String("record_id", id))

	endpoint := c.objectURL(objectType, id)

	c.logger.Debug("Making PATCH request", zap.String("endpoint", endpoint))
	if _, err := c.send(ctx, c.dataRequest(http.MethodPatch, endpoint, data)); err != nil {
		return err
	}

	c.logger.Info("Successfully updated record",
		zap.String("object_type", objectType),
		zap.String("record_id", id))
	return nil
}

// DeleteRecord deletes a record.
func (c *Client) DeleteRecord(ctx context.Context, objectType, id string) error {
	if c.accessToken == nil {
		return ErrNoAccessToken
	}

	c.logger.Info("Deleting record",
		zap.String("object_type", objectType),
		zap.String("record_id", id))

	endpoint := c.objectURL(objectType, id)

	c.logger.Debug("Making DELETE request", zap.String("endpoint", endpoint))
	if _, err := c.send(ctx, c.dataRequest(http.MethodDelete, endpoint, nil)); err != nil {
		return err
	}

	c.logger.Info("Successfully deleted record",
		zap.String("object_type", objectType),
		zap.String("record_id", id))
	return nil
}

func (c *Client) objectURL(objectType, id string) string {
	return fmt.Sprintf("%s/services/data/%s/sobjects/%s/%s",
		c.apiBaseURL, c.config.apiVersion(), url.PathEscape(objectType), url.PathEscape(id))
}

func (c *Client) continuationURL(next string) string {
	return c.apiBaseURL + "/" + strings.TrimPrefix(next, "/")
}

func (c *Client) dataRequest(method, endpoint string, body interface{}) httpclient.RequestOptions {
	headers := map[string]string{
		"Authorization": c.authHeader(),
	}
	if body != nil {
		headers["Content-Type"] = "application/json"
	}
	return httpclient.RequestOptions{
		Method:  method,
		URL:     endpoint,
		Headers: headers,
		Body:    body,
	}
}
