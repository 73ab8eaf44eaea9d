package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/samvad-hq/x2t/internal/app"
	"github.com/samvad-hq/x2t/pkg/tiktok"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	inv, err := parseFlags([]string{"-X", "POST", "--endpoint", "/x", "-p", "a=1", "-p", "b=2", "-H", "X-Trace: 1", "-d", `{"k":1}`, "--sign-only"})
	require.NoError(t, err)
	assert.Equal(t, app.Invocation{
		Method:   "POST",
		Endpoint: "/x",
		Params:   []string{"a=1", "b=2"},
		Headers:  []string{"X-Trace: 1"},
		Body:     `{"k":1}`,
		SignOnly: true,
	}, inv)

	_, err = parseFlags([]string{"--nope"})
	assert.Error(t, err)
}

func TestRunSendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"code":0}`))
	}))
	defer srv.Close()

	t.Setenv("BASE_URL", srv.URL)
	t.Setenv("APP_KEY", "abc")
	t.Setenv("APP_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	require.NoError(t, run([]string{"-e", "/authorization/202309/shops"}, &out))
	assert.Contains(t, out.String(), "-> 202")
	assert.Contains(t, out.String(), `{"code":0}`)
}

func TestRunInvalidMethodFailsOutsideGuard(t *testing.T) {
	t.Setenv("BASE_URL", "https://h")
	t.Setenv("APP_KEY", "abc")
	t.Setenv("APP_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	err := run([]string{"-X", "HEAD", "-e", "/x"}, &out)
	require.ErrorIs(t, err, tiktok.ErrInvalidMethod)
	assert.NotErrorIs(t, err, errReported)
	assert.Empty(t, out.String())
}

func TestRunTransportFailureReportedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	t.Setenv("BASE_URL", baseURL)
	t.Setenv("APP_KEY", "abc")
	t.Setenv("APP_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	err := run([]string{"-e", "/authorization/202309/shops"}, &out)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, out.String(), `"status":"failed"`)
	assert.Equal(t, 1, strings.Count(out.String(), `"status":"failed"`))
}

func TestPrintOutputLeavesBodyUntouched(t *testing.T) {
	backing := make([]byte, 4, 8)
	copy(backing, "{}ab")
	body := backing[:2]

	var out bytes.Buffer
	require.NoError(t, printOutput(&out, &app.Output{Method: "GET", URL: "https://h/x?", StatusCode: 200, Body: body}, false))
	assert.Equal(t, "GET https://h/x? -> 200\n{}\n", out.String())
	assert.Equal(t, "{}ab", string(backing))
}
