package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/x2t/internal/config"
	"github.com/samvad-hq/x2t/internal/logger"
	"github.com/samvad-hq/x2t/pkg/httpclient"
	"github.com/samvad-hq/x2t/pkg/tiktok"
)

// Invocation describes one CLI request. Explicit fields override the
// matching entries of RequestFile.
type Invocation struct {
	RequestFile string
	Method      string
	Endpoint    string
	Params      []string
	Headers     []string
	Body        string
	SignOnly    bool
}

// Output is what a run produced. Status fields stay zero for sign-only runs.
type Output struct {
	Method     string      `json:"method"`
	URL        string      `json:"url"`
	Signature  string      `json:"signature"`
	StatusCode int         `json:"status_code,omitempty"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"-"`
}

// Runner signs and sends requests for the configured application.
type Runner struct {
	cfg    *config.Config
	client *tiktok.Client
	log    logger.Logger
}

// NewRunner builds a runner from config. A nil hc uses resty with the configured timeout.
func NewRunner(cfg *config.Config, hc httpclient.Client, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if hc == nil {
		hc = httpclient.NewRestyClient(cfg.RequestTimeout)
	}

	client, err := tiktok.NewClient(tiktok.ClientConfig{
		BaseURL:     cfg.BaseURL,
		AppKey:      cfg.AppKey,
		AppSecret:   cfg.AppSecret,
		AccessToken: cfg.AccessToken,
		ContentType: cfg.ContentType,
	}, hc)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}

	return &Runner{cfg: cfg, client: client, log: log}, nil
}

// Run signs the invocation and, unless SignOnly is set, sends it.
func (r *Runner) Run(ctx context.Context, inv Invocation) (*Output, error) {
	req, err := r.Prepare(inv)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, req, inv.SignOnly)
}

// Prepare resolves and signs the invocation without any network I/O. Invalid
// methods and malformed input fail here.
func (r *Runner) Prepare(inv Invocation) (tiktok.Request, error) {
	if r == nil || r.client == nil {
		return tiktok.Request{}, fmt.Errorf("runner is not initialized")
	}

	desc, err := resolve(inv)
	if err != nil {
		return tiktok.Request{}, err
	}

	req, err := r.client.Prepare(desc.Method, desc.Endpoint, desc.Params, desc.Headers, body(desc))
	if err != nil {
		return tiktok.Request{}, fmt.Errorf("prepare request: %w", err)
	}

	r.log.DebugObj("request prepared", "request", map[string]any{
		"method":   req.Method,
		"endpoint": req.Endpoint,
		"params":   req.Params.Keys(),
	})
	return req, nil
}

// Execute sends a prepared request. With signOnly set it only reports the
// signed URL.
func (r *Runner) Execute(ctx context.Context, req tiktok.Request, signOnly bool) (*Output, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("runner is not initialized")
	}

	sig, _ := req.Params.Get(tiktok.ParamSign)
	out := &Output{
		Method:    req.Method,
		URL:       tiktok.BuildURL(req.BaseURL, req.Endpoint, req.Params),
		Signature: sig,
	}
	if signOnly {
		return out, nil
	}

	resp, err := r.client.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	out.StatusCode = resp.StatusCode()
	out.Header = resp.Header()
	out.Body = resp.Body()

	r.log.InfoObj("request completed", "response", map[string]any{
		"method":      req.Method,
		"endpoint":    req.Endpoint,
		"status_code": out.StatusCode,
	})
	return out, nil
}

// resolve merges the request file, if any, with explicit flags.
func resolve(inv Invocation) (*tiktok.RequestFile, error) {
	desc := &tiktok.RequestFile{Params: tiktok.NewParams(), Headers: map[string]string{}}
	if strings.TrimSpace(inv.RequestFile) != "" {
		loaded, err := tiktok.LoadRequestFile(inv.RequestFile)
		if err != nil {
			return nil, fmt.Errorf("load request file: %w", err)
		}
		desc = loaded
		if desc.Headers == nil {
			desc.Headers = map[string]string{}
		}
	}

	if m := strings.TrimSpace(inv.Method); m != "" {
		desc.Method = m
	}
	if e := strings.TrimSpace(inv.Endpoint); e != "" {
		desc.Endpoint = e
	}
	if desc.Method == "" {
		desc.Method = http.MethodGet
	}

	for _, kv := range inv.Params {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid param %q (expected key=value)", kv)
		}
		desc.Params.Set(strings.TrimSpace(k), v)
	}
	for _, kv := range inv.Headers {
		k, v, ok := strings.Cut(kv, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid header %q (expected name: value)", kv)
		}
		desc.Headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	if b := strings.TrimSpace(inv.Body); b != "" {
		if !json.Valid([]byte(b)) {
			return nil, fmt.Errorf("body is not valid json")
		}
		desc.Body = json.RawMessage(b)
	}

	return desc, nil
}

func body(desc *tiktok.RequestFile) any {
	if len(desc.Body) == 0 {
		return nil
	}
	return desc.Body
}
