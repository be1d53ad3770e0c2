// Package feishu provides a client for the Feishu Open API Bitable endpoints.
package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bddaily/bddaily-server/pkg/apperrors"
	"github.com/bddaily/bddaily-server/pkg/logging"
)

// DefaultTimeout is the maximum time to wait for Feishu responses.
const DefaultTimeout = 30 * time.Second

// DefaultBaseURL is the public Feishu Open API host.
const DefaultBaseURL = "https://open.feishu.cn"

// fieldPageSize is the largest page the fields endpoint accepts.
const fieldPageSize = 100

// Codes Feishu returns when the tenant token is invalid or expired.
var invalidTokenCodes = map[int]bool{
	99991661: true,
	99991663: true,
	99991668: true,
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	AppID      string
	AppSecret  string
	UserIDType string // optional user_id_type query parameter for person cells
	HTTPClient *http.Client
}

// Client provides access to the Feishu Bitable API.
// Every call is attempted once; failures propagate to the caller.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	userIDType string

	httpClient  *http.Client
	logger      *zap.Logger
	tokens      tokenCache
	tokenFlight singleflight.Group
	now         func() time.Time
}

// NewClient creates a new Feishu client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		appID:      opts.AppID,
		appSecret:  opts.AppSecret,
		userIDType: opts.UserIDType,
		httpClient: httpClient,
		logger:     logger.Named("feishu"),
		now:        time.Now,
	}
}

// ListFields returns every column of a table, following pagination to the end.
func (c *Client) ListFields(ctx context.Context, table Table) ([]Field, error) {
	var fields []Field
	pageToken := ""

	for {
		query := url.Values{}
		query.Set("page_size", strconv.Itoa(fieldPageSize))
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var page fieldPage
		if err := c.doJSON(ctx, http.MethodGet, tablePath(table, "fields"), query, nil, &page); err != nil {
			return nil, err
		}
		fields = append(fields, page.Items...)

		if !page.HasMore || page.PageToken == "" {
			break
		}
		pageToken = page.PageToken
	}

	return fields, nil
}

// ListRecords returns the first pageSize records of a table. The read is
// deliberately a single bounded page.
func (c *Client) ListRecords(ctx context.Context, table Table, pageSize int) ([]Record, error) {
	query := url.Values{}
	query.Set("page_size", strconv.Itoa(pageSize))
	c.addUserIDType(query)

	var page recordPage
	if err := c.doJSON(ctx, http.MethodGet, tablePath(table, "records"), query, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GetRecord fetches a single record by its record id.
func (c *Client) GetRecord(ctx context.Context, table Table, recordID string) (*Record, error) {
	query := url.Values{}
	c.addUserIDType(query)

	var data recordData
	if err := c.doJSON(ctx, http.MethodGet, tablePath(table, "records", recordID), query, nil, &data); err != nil {
		return nil, err
	}
	return &data.Record, nil
}

// BatchCreateRecords creates one record per field set and returns the created rows.
func (c *Client) BatchCreateRecords(ctx context.Context, table Table, records []Fields) ([]Record, error) {
	payload := struct {
		Records []createRecord `json:"records"`
	}{Records: make([]createRecord, len(records))}
	for i, f := range records {
		payload.Records[i] = createRecord{Fields: f}
	}

	query := url.Values{}
	c.addUserIDType(query)

	var data recordsData
	if err := c.doJSON(ctx, http.MethodPost, tablePath(table, "records", "batch_create"), query, payload, &data); err != nil {
		return nil, err
	}
	return data.Records, nil
}

// UpdateRecord writes the given fields to one record. Fields not in the payload
// are left untouched by Feishu.
func (c *Client) UpdateRecord(ctx context.Context, table Table, recordID string, fields Fields) (*Record, error) {
	query := url.Values{}
	c.addUserIDType(query)

	var data recordData
	if err := c.doJSON(ctx, http.MethodPut, tablePath(table, "records", recordID), query, createRecord{Fields: fields}, &data); err != nil {
		return nil, err
	}
	return &data.Record, nil
}

func (c *Client) addUserIDType(query url.Values) {
	if c.userIDType != "" {
		query.Set("user_id_type", c.userIDType)
	}
}

// doJSON executes an authenticated request and unwraps the response envelope into out.
func (c *Client) doJSON(ctx context.Context, method, apiPath string, query url.Values, payload any, out any) error {
	token, err := c.tenantToken(ctx)
	if err != nil {
		return err
	}

	body, status, err := c.send(ctx, method, apiPath, query, payload, token)
	if err != nil {
		return err
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Error("Failed to parse Feishu response",
			zap.String("path", apiPath),
			zap.Int("status", status),
			zap.String("body", logging.SanitizeBody(body)))
		return fmt.Errorf("%w: failed to parse response from %s: %v", apperrors.ErrUpstream, apiPath, err)
	}

	if env.Code != 0 {
		if invalidTokenCodes[env.Code] {
			c.tokens.clear()
		}
		c.logger.Error("Feishu returned error",
			zap.String("path", apiPath),
			zap.Int("status", status),
			zap.Int("code", env.Code),
			zap.String("msg", env.Msg))
		return &APIError{Code: env.Code, Msg: env.Msg, HTTPStatus: status, Path: apiPath}
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: failed to parse data from %s: %v", apperrors.ErrUpstream, apiPath, err)
	}
	return nil
}

// send performs the HTTP round trip and returns the raw body. Non-2xx responses
// that still carry a JSON envelope are returned to the caller for code inspection.
func (c *Client) send(ctx context.Context, method, apiPath string, query url.Values, payload any, token string) ([]byte, int, error) {
	endpoint, err := buildURL(c.baseURL, apiPath, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build URL: %w", err)
	}

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("Calling Feishu",
		zap.String("method", method),
		zap.String("path", apiPath))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to call feishu: %s", apperrors.ErrUpstream, logging.SanitizeError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: failed to read response: %v", apperrors.ErrUpstream, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices && !json.Valid(body) {
		c.logger.Error("Feishu returned non-JSON error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.SanitizeBody(body)))
		return nil, resp.StatusCode, fmt.Errorf("%w: feishu returned status %d: %s",
			apperrors.ErrUpstream, resp.StatusCode, logging.SanitizeBody(body))
	}

	return body, resp.StatusCode, nil
}

func tablePath(table Table, segments ...string) string {
	parts := append([]string{"/open-apis/bitable/v1/apps", url.PathEscape(table.AppToken),
		"tables", url.PathEscape(table.TableID)}, segments...)
	return path.Join(parts...)
}

// buildURL joins the API path onto the base URL and attaches the query.
func buildURL(baseURL, apiPath string, query url.Values) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	u.Path = path.Join(u.Path, apiPath)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}
