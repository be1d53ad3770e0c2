package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/apperrors"
)

// tokenRefreshMargin renews the tenant token before Feishu expires it.
const tokenRefreshMargin = 5 * time.Minute

// tokenCache holds the tenant access token for one app.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func (c *tokenCache) get(now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" || !now.Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *tokenCache) set(token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	c.expiresAt = expiresAt
}

func (c *tokenCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.expiresAt = time.Time{}
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"` // seconds
}

// tokenFetchTimeout bounds a shared token request, which runs detached from
// the context of the caller that started it.
const tokenFetchTimeout = 30 * time.Second

// tenantToken returns a cached tenant access token or fetches a new one.
// Concurrent misses share a single token request; each caller stops waiting
// when its own ctx is done.
func (c *Client) tenantToken(ctx context.Context) (string, error) {
	if c.appID == "" || c.appSecret == "" {
		return "", fmt.Errorf("%w: FEISHU_APP_ID and FEISHU_APP_SECRET are required", apperrors.ErrNotConfigured)
	}

	if token, ok := c.tokens.get(c.now()); ok {
		return token, nil
	}

	ch := c.tokenFlight.DoChan("tenant", func() (any, error) {
		if token, ok := c.tokens.get(c.now()); ok {
			return token, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenFetchTimeout)
		defer cancel()
		return c.fetchTenantToken(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) fetchTenantToken(ctx context.Context) (string, error) {
	payload := map[string]string{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	}

	body, status, err := c.send(ctx, http.MethodPost, "/open-apis/auth/v3/tenant_access_token/internal", nil, payload, "")
	if err != nil {
		return "", err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to parse token response: %v", apperrors.ErrUpstream, err)
	}
	if resp.Code != 0 || resp.TenantAccessToken == "" {
		return "", &APIError{Code: resp.Code, Msg: resp.Msg, HTTPStatus: status, Path: "tenant_access_token"}
	}

	ttl := time.Duration(resp.Expire) * time.Second
	if ttl > tokenRefreshMargin {
		ttl -= tokenRefreshMargin
	}
	c.tokens.set(resp.TenantAccessToken, c.now().Add(ttl))

	c.logger.Debug("Fetched tenant access token", zap.Duration("ttl", ttl))
	return resp.TenantAccessToken, nil
}
