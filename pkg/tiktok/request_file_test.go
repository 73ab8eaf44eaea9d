package tiktok

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequestFileYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "search.yaml")
	content := `
endpoint: /product/202309/products/search
method: post
params:
  shop_cipher: GCP_XF90
  page_size: 20
headers:
  X-Trace: " abc "
body:
  status: ACTIVATE
  seller_skus: [sku-1, sku-2]
  limit: 5
  exact: true
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	rf, err := LoadRequestFile(file)
	require.NoError(t, err)

	assert.Equal(t, "/product/202309/products/search", rf.Endpoint)
	assert.Equal(t, "POST", rf.Method)
	assert.Equal(t, []string{"shop_cipher", "page_size"}, rf.Params.Keys())
	assert.Equal(t, "shop_cipher=GCP_XF90&page_size=20", rf.Params.Encode())
	assert.Equal(t, "abc", rf.Headers["X-Trace"])
	assert.Equal(t, `{"status":"ACTIVATE","seller_skus":["sku-1","sku-2"],"limit":5,"exact":true}`, string(rf.Body))

	req := rf.Request("https://h")
	assert.Equal(t, "https://h", req.BaseURL)
	assert.Equal(t, rf.Body, req.Body)
}

func TestLoadRequestFileJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "shops.json")
	content := `{"endpoint": "/authorization/202309/shops", "params": {"b": "2", "a": "1"}}`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	rf, err := LoadRequestFile(file)
	require.NoError(t, err)
	assert.Equal(t, "GET", rf.Method)
	assert.Equal(t, []string{"b", "a"}, rf.Params.Keys())
	assert.Nil(t, rf.Body)
	assert.Nil(t, rf.Request("https://h").Body)
}

func TestParseRequestFileErrors(t *testing.T) {
	tests := map[string]struct {
		data string
		ext  string
	}{
		"missing endpoint": {data: "method: GET\n", ext: ".yaml"},
		"invalid method":   {data: "endpoint: /x\nmethod: HEAD\n", ext: ".yaml"},
		"nested param":     {data: "endpoint: /x\nparams:\n  a: [1]\n", ext: ".yaml"},
		"unknown format":   {data: "endpoint = '/x'", ext: ".toml"},
		"malformed":        {data: "endpoint: [", ext: ".yml"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRequestFile([]byte(tt.data), tt.ext)
			assert.Error(t, err)
		})
	}
}

func TestLoadRequestFileMissing(t *testing.T) {
	_, err := LoadRequestFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	_, err = LoadRequestFile(" ")
	assert.Error(t, err)
}
