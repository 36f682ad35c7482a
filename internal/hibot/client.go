package hibot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santyhornia-creator/hibot-etl-script/internal/normalize"
	"github.com/santyhornia-creator/hibot-etl-script/internal/schedule"
	"github.com/santyhornia-creator/hibot-etl-script/pkg/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	loginTimeout = 10 * time.Second
	fetchTimeout = 30 * time.Second
)

// Client talks to the HiBot external API: token login plus windowed
// conversation queries.
type Client struct {
	appID      string
	appSecret  string
	httpClient *resty.Client
}

type loginRequest struct {
	AppID     string `json:"appId"`
	AppSecret string `json:"appSecret"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type conversationsRequest struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// NewClient builds a client for the given API base URL and credentials.
func NewClient(baseURL, appID, appSecret string) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if appID == "" || appSecret == "" {
		return nil, errors.New("app credentials are required")
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", "hibot-sync-server/1.0").
		SetTimeout(fetchTimeout)

	return &Client{
		appID:      appID,
		appSecret:  appSecret,
		httpClient: httpClient,
	}, nil
}

// Login exchanges the app credentials for a bearer token. Any failure here
// aborts the current run; the next scheduled run retries from scratch.
func (c *Client) Login(ctx context.Context) (string, error) {
	loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	var result loginResponse
	resp, err := c.httpClient.R().
		SetContext(loginCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(loginRequest{AppID: c.appID, AppSecret: c.appSecret}).
		SetResult(&result).
		Post("/login")
	if err != nil {
		return "", fmt.Errorf("hibot login request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("hibot login error (%d): %s", resp.StatusCode(), resp.String())
	}
	if result.Token == "" {
		return "", errors.New("hibot login response contained no token")
	}
	return result.Token, nil
}

// Conversations fetches the raw conversation documents for one
// [fromMs, toMs] epoch-millisecond window.
func (c *Client) Conversations(ctx context.Context, token string, fromMs, toMs int64) ([]normalize.RawConversation, error) {
	var result []normalize.RawConversation
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(token).
		SetBody(conversationsRequest{From: fromMs, To: toMs}).
		SetResult(&result).
		Post("/conversations")
	if err != nil {
		return nil, fmt.Errorf("hibot conversations request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("hibot conversations error (%d): %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

// FetchRange downloads conversations day by day over [start, end] and
// accumulates them in day order. A failed day is logged and skipped; it
// never aborts the remaining days. The next scheduled run re-covers the
// same month, so a skipped day heals itself.
func (c *Client) FetchRange(ctx context.Context, token string, start, end time.Time) []normalize.RawConversation {
	var all []normalize.RawConversation
	for _, day := range schedule.DaysBetween(start, end) {
		fromMs, toMs := schedule.DayBounds(day)

		daily, err := c.Conversations(ctx, token, fromMs, toMs)
		if err != nil {
			logger.Warn("Failed to fetch conversations for day, skipping",
				zap.String("day", day.Format("2006-01-02")),
				zap.Error(err),
			)
			continue
		}
		all = append(all, daily...)
	}
	return all
}
