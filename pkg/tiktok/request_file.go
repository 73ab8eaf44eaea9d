package tiktok

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// requestDocument is the on-disk shape of a request file. Params and body
// stay as nodes so their key order survives decoding.
type requestDocument struct {
	Endpoint string            `yaml:"endpoint"`
	Method   string            `yaml:"method"`
	Params   yaml.Node         `yaml:"params"`
	Headers  map[string]string `yaml:"headers"`
	Body     yaml.Node         `yaml:"body"`
}

// RequestFile is a request descriptor loaded from YAML or JSON.
type RequestFile struct {
	Endpoint string
	Method   string
	Params   *Params
	Headers  map[string]string
	Body     json.RawMessage
}

// LoadRequestFile reads and validates a request descriptor.
func LoadRequestFile(path string) (*RequestFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("request file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open request file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	return ParseRequestFile(raw, filepath.Ext(path))
}

// ParseRequestFile decodes a request descriptor. JSON documents go through
// the YAML decoder too, since JSON is valid YAML and the node API keeps
// mapping order.
func ParseRequestFile(data []byte, ext string) (*RequestFile, error) {
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case "", ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("request file format %q not recognized (expected YAML or JSON)", ext)
	}

	var doc requestDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode request file: %w", err)
	}

	params, err := paramsFromNode(&doc.Params)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}

	var body json.RawMessage
	if !isEmptyNode(&doc.Body) {
		var buf bytes.Buffer
		if err := writeNodeJSON(&buf, &doc.Body); err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		body = buf.Bytes()
	}

	rf := sanitizeRequestFile(RequestFile{
		Endpoint: doc.Endpoint,
		Method:   doc.Method,
		Params:   params,
		Headers:  doc.Headers,
		Body:     body,
	})
	if err := validateRequestFile(rf); err != nil {
		return nil, err
	}
	return &rf, nil
}

// Request turns the descriptor into a Request against baseURL.
func (f *RequestFile) Request(baseURL string) Request {
	req := Request{
		BaseURL:  baseURL,
		Endpoint: f.Endpoint,
		Method:   f.Method,
		Params:   f.Params.Clone(),
		Headers:  make(map[string]string, len(f.Headers)),
	}
	for k, v := range f.Headers {
		req.Headers[k] = v
	}
	if len(f.Body) > 0 {
		req.Body = f.Body
	}
	return req
}

func sanitizeRequestFile(rf RequestFile) RequestFile {
	rf.Endpoint = strings.TrimSpace(rf.Endpoint)
	rf.Method = strings.ToUpper(strings.TrimSpace(rf.Method))
	if rf.Method == "" {
		rf.Method = "GET"
	}
	if len(rf.Headers) > 0 {
		out := make(map[string]string, len(rf.Headers))
		for k, v := range rf.Headers {
			key := strings.TrimSpace(k)
			if key == "" {
				continue
			}
			out[key] = strings.TrimSpace(v)
		}
		rf.Headers = out
	}
	return rf
}

func validateRequestFile(rf RequestFile) error {
	if rf.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if _, err := NormalizeMethod(rf.Method); err != nil {
		return err
	}
	return nil
}

func isEmptyNode(n *yaml.Node) bool {
	if n.Kind == 0 {
		return true
	}
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func resolveNode(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return resolveNode(n.Content[0])
	}
	return n
}

func paramsFromNode(n *yaml.Node) (*Params, error) {
	params := NewParams()
	if isEmptyNode(n) {
		return params, nil
	}
	n = resolveNode(n)
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping, got line %d", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolveNode(n.Content[i+1])
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("param %q must be a scalar", key.Value)
		}
		if val.Tag == "!!null" {
			params.Set(key.Value, "")
			continue
		}
		params.Set(key.Value, val.Value)
	}
	return params, nil
}

// writeNodeJSON renders a YAML node as compact JSON preserving mapping order.
func writeNodeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	n = resolveNode(n)
	switch n.Kind {
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNodeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNodeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		raw, err := encodeJSON(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(raw)
	default:
		return fmt.Errorf("unsupported yaml node at line %d", n.Line)
	}
	return nil
}
