package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/x2t/pkg/httpclient"
)

const (
	// ParamTimestamp is the query parameter carrying the request Unix time.
	ParamTimestamp = "timestamp"
	// ParamSign is the query parameter carrying the request signature.
	ParamSign = "sign"
	// ParamAccessToken is never part of the signature.
	ParamAccessToken = "access_token"
	// ParamAppKey identifies the calling application.
	ParamAppKey = "app_key"
)

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// now is swapped in tests to pin the clock.
var now = time.Now

// Request describes a single outbound API call.
type Request struct {
	BaseURL  string
	Endpoint string
	Method   string
	Params   *Params
	Headers  map[string]string
	Body     any
}

// Dispatcher sends signed requests through an httpclient.Client.
type Dispatcher struct {
	client httpclient.Client
}

// NewDispatcher wires a dispatcher around client.
func NewDispatcher(client httpclient.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// NormalizeMethod upper-cases method and checks it against the allowed verbs.
func NormalizeMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if _, ok := allowedMethods[m]; !ok {
		return "", fmt.Errorf("%w: got %q", ErrInvalidMethod, method)
	}
	return m, nil
}

// Timestamp returns the current Unix time in seconds as a decimal string.
func Timestamp() string {
	return strconv.FormatInt(now().Unix(), 10)
}

// BuildURL joins baseURL and endpoint with a single slash and appends the
// encoded query string.
func BuildURL(baseURL, endpoint string, params *Params) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/") + "?" + params.Encode()
}

// Dispatch validates the method, injects a timestamp when absent and issues
// exactly one HTTP call. The response is returned untouched whatever its
// status; only transport failures produce an error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (httpclient.Response, error) {
	method, err := NormalizeMethod(req.Method)
	if err != nil {
		return nil, err
	}
	if d == nil || d.client == nil {
		return nil, fmt.Errorf("dispatcher has no http client")
	}

	params := req.Params.Clone()
	if !params.Has(ParamTimestamp) {
		params.Set(ParamTimestamp, Timestamp())
	}

	var body any
	if !isNilBody(req.Body) {
		raw, err := encodeJSON(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = raw
	}

	headers := withJSONContentType(req.Headers, body != nil)
	resp, err := d.client.Do(ctx, method, BuildURL(req.BaseURL, req.Endpoint, params), headers, body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.Endpoint, err)
	}
	return resp, nil
}

// withJSONContentType copies headers and adds a JSON content type when a
// body is sent and the caller did not choose one.
func withJSONContentType(headers map[string]string, hasBody bool) map[string]string {
	out := make(map[string]string, len(headers)+1)
	hasType := false
	for k, v := range headers {
		out[k] = v
		if strings.EqualFold(k, "Content-Type") {
			hasType = true
		}
	}
	if hasBody && !hasType {
		out["Content-Type"] = "application/json"
	}
	return out
}

// isNilBody reports whether v carries no body, including typed nils such as
// map[string]any(nil) or (*T)(nil).
func isNilBody(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// encodeJSON produces compact JSON without HTML escaping. Raw JSON input is
// compacted as-is so its key order survives. The same bytes are signed and sent.
func encodeJSON(v any) ([]byte, error) {
	switch raw := v.(type) {
	case json.RawMessage:
		return compactJSON(raw)
	case []byte:
		return compactJSON(raw)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func compactJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("invalid json body: %w", err)
	}
	return buf.Bytes(), nil
}
