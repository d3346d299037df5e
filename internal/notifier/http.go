package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPGateway 通过 HTTP 推送中继下发通知
//
//	POST /v1/users/{user}/notifications/cancel
//	POST /v1/users/{user}/notifications
type HTTPGateway struct {
	httpClient *resty.Client
	userID     string
}

// NewHTTPGateway 创建推送中继客户端
func NewHTTPGateway(baseURL, userID string) *HTTPGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPGateway{httpClient: client, userID: userID}
}

func (g *HTTPGateway) CancelAll(ctx context.Context) error {
	return g.post(ctx, "/v1/users/{user}/notifications/cancel", nil)
}

func (g *HTTPGateway) Schedule(ctx context.Context, n Notification) error {
	return g.post(ctx, "/v1/users/{user}/notifications", n)
}

func (g *HTTPGateway) post(ctx context.Context, path string, body interface{}) error {
	req := g.httpClient.R().
		SetContext(ctx).
		SetPathParam("user", g.userID)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("failed to call push relay %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("push relay %s returned status %d", path, resp.StatusCode())
	}
	return nil
}
