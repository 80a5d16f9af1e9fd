package section

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/grovetools/qualitylink/binding"
	"github.com/grovetools/qualitylink/config"
	"github.com/grovetools/qualitylink/version"
)

// ServerInfo is what a refresh learns about the server and the project.
type ServerInfo struct {
	Version     string
	ProjectName string
}

// Refresher connects to the server described by params and looks up
// projectKey. An empty projectKey only checks the connection.
type Refresher interface {
	Refresh(ctx context.Context, params binding.ConnectionParameters, projectKey string) (ServerInfo, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, params binding.ConnectionParameters, projectKey string) (ServerInfo, error)

// Refresh implements Refresher.
func (f RefresherFunc) Refresh(ctx context.Context, params binding.ConnectionParameters, projectKey string) (ServerInfo, error) {
	return f(ctx, params, projectKey)
}

// HTTPRefresher is a Refresher that talks to the server's web API.
type HTTPRefresher struct {
	client *resty.Client
}

// NewHTTPRefresher creates a refresher with the timeout and user agent of cfg.
func NewHTTPRefresher(cfg config.RefreshConfig) *HTTPRefresher {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("User-Agent", userAgent)

	return &HTTPRefresher{client: client}
}

type componentResponse struct {
	Component struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"component"`
}

// Refresh implements Refresher.
func (p *HTTPRefresher) Refresh(ctx context.Context, params binding.ConnectionParameters, projectKey string) (ServerInfo, error) {
	if err := params.Validate(); err != nil {
		return ServerInfo{}, err
	}
	base := strings.TrimSuffix(params.ServerURI.String(), "/")

	resp, err := p.request(ctx, params).Get(base + "/api/server/version")
	if err != nil {
		return ServerInfo{}, fmt.Errorf("failed to reach %s: %w", base, err)
	}
	if resp.IsError() {
		return ServerInfo{}, fmt.Errorf("server %s answered %s", base, resp.Status())
	}
	info := ServerInfo{Version: strings.TrimSpace(resp.String())}

	if projectKey == "" {
		return info, nil
	}

	var component componentResponse
	resp, err = p.request(ctx, params).
		SetQueryParam("component", projectKey).
		SetResult(&component).
		Get(base + "/api/components/show")
	if err != nil {
		return info, fmt.Errorf("failed to look up project %s: %w", projectKey, err)
	}
	if resp.IsError() {
		return info, fmt.Errorf("project %s not available on %s: %s", projectKey, base, resp.Status())
	}
	info.ProjectName = component.Component.Name
	return info, nil
}

func (p *HTTPRefresher) request(ctx context.Context, params binding.ConnectionParameters) *resty.Request {
	req := p.client.R().SetContext(ctx)
	switch params.Auth.Method {
	case binding.AuthBasic:
		req.SetBasicAuth(params.Auth.UserName, params.Auth.Secret)
	case binding.AuthToken:
		req.SetAuthToken(params.Auth.Secret)
	}
	return req
}
