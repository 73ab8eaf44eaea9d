package tiktok

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/x2t/pkg/httpclient"
)

// ClientConfig holds the credentials and endpoint of one application.
type ClientConfig struct {
	BaseURL     string
	AppKey      string
	AppSecret   string
	AccessToken string
	ContentType string
}

// Client prepares, signs and dispatches API calls for one application.
type Client struct {
	cfg        ClientConfig
	dispatcher *Dispatcher
}

// NewClient validates cfg and wires a dispatcher around hc.
func NewClient(cfg ClientConfig, hc httpclient.Client) (*Client, error) {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.AppKey = strings.TrimSpace(cfg.AppKey)
	if cfg.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if cfg.AppKey == "" {
		return nil, errors.New("app key is required")
	}
	if cfg.AppSecret == "" {
		return nil, errors.New("app secret is required")
	}
	if hc == nil {
		return nil, errors.New("http client is required")
	}
	return &Client{cfg: cfg, dispatcher: NewDispatcher(hc)}, nil
}

// Auth returns the credentials the client signs with.
func (c *Client) Auth() Auth {
	return Auth{AccessToken: c.cfg.AccessToken, Service: Service{AppKey: c.cfg.AppKey}}
}

// Prepare builds the signed request for a call without sending it. Caller
// params override the common ones but keep their position.
func (c *Client) Prepare(method, endpoint string, params *Params, headers map[string]string, body any) (Request, error) {
	m, err := NormalizeMethod(method)
	if err != nil {
		return Request{}, err
	}
	if strings.TrimSpace(endpoint) == "" {
		return Request{}, ErrMissingEndpoint
	}

	commonHeaders, query := CommonParameters(c.Auth(), c.cfg.ContentType)
	query.Merge(params)
	for k, v := range headers {
		commonHeaders[k] = v
	}

	req := Request{
		BaseURL:  c.cfg.BaseURL,
		Endpoint: endpoint,
		Method:   m,
		Params:   query,
		Headers:  commonHeaders,
		Body:     body,
	}
	if err := SignRequest(&req, c.cfg.AppSecret); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Call prepares and dispatches a signed request.
func (c *Client) Call(ctx context.Context, method, endpoint string, params *Params, body any) (httpclient.Response, error) {
	return c.CallWithHeaders(ctx, method, endpoint, params, nil, body)
}

// CallWithHeaders is Call with extra headers layered over the common ones.
func (c *Client) CallWithHeaders(ctx context.Context, method, endpoint string, params *Params, headers map[string]string, body any) (httpclient.Response, error) {
	req, err := c.Prepare(method, endpoint, params, headers, body)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, req)
}

// Send dispatches a request built by Prepare.
func (c *Client) Send(ctx context.Context, req Request) (httpclient.Response, error) {
	resp, err := c.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	return resp, nil
}
