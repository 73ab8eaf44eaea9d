package guard

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level string
	msg   string
	key   string
	obj   map[string]any
}

// recordingLogger captures guard output for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *recordingLogger) InfoObj(msg, key string, obj interface{})  { r.add("info", msg, key, obj) }
func (r *recordingLogger) ErrorObj(msg, key string, obj interface{}) { r.add("error", msg, key, obj) }

func (r *recordingLogger) add(level, msg, key string, obj interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, _ := obj.(map[string]any)
	r.entries = append(r.entries, logEntry{level: level, msg: msg, key: key, obj: m})
}

func divide(a, b int) (int, error) { return a / b, nil }

func TestWrapRecoversDivisionByZero(t *testing.T) {
	log := &recordingLogger{}
	zero := 0
	guarded := Wrap("divide", func() (int, error) { return divide(1, zero) }, WithLogger(log))

	var res Result[int]
	require.NotPanics(t, func() { res = guarded() })

	require.NotNil(t, res.Failure)
	assert.False(t, res.OK())
	assert.Contains(t, res.Failure.Error, "divide by zero")
	assert.Equal(t, StatusFailed, res.Failure.Status)

	require.Len(t, log.entries, 1)
	assert.Equal(t, "error", log.entries[0].level)
	assert.Equal(t, "divide", log.entries[0].obj["func"])
	assert.Equal(t, res.Failure.Error, log.entries[0].obj["error"])
}

func TestWrapRecoversTypeMismatch(t *testing.T) {
	var v any = "a"
	res := Do("combine", func() (bool, error) { return v.(bool), nil }, WithLog(false))

	require.NotNil(t, res.Failure)
	assert.NotEmpty(t, res.Failure.Error)
	assert.Equal(t, "failed", res.Failure.Status)
}

func TestWrapConvertsReturnedError(t *testing.T) {
	guarded := Wrap1("parse", strconv.Atoi, WithLog(false))

	res := guarded("a")
	require.NotNil(t, res.Failure)
	assert.Contains(t, res.Failure.Error, "invalid syntax")

	res = guarded("42")
	require.True(t, res.OK())
	assert.Equal(t, 42, res.Value)
}

func TestWrapLogDisabledStaysSilent(t *testing.T) {
	log := &recordingLogger{}
	res := Do("fail", func() (int, error) { return 0, errors.New("boom") }, WithLog(false), WithLogger(log))
	assert.Equal(t, "boom", res.Failure.Error)
	assert.Empty(t, log.entries)
}

func TestWrapSuccessWithoutTimingDoesNotLog(t *testing.T) {
	log := &recordingLogger{}
	res := Do("ok", func() (string, error) { return "v", nil }, WithLogger(log))
	assert.True(t, res.OK())
	assert.Equal(t, "v", res.Value)
	assert.Empty(t, log.entries)
}

func TestWrapTimingLogsElapsed(t *testing.T) {
	log := &recordingLogger{}
	guarded := Wrap("sleepy", func() (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "done", nil
	}, WithTiming(true), WithLogger(log))

	res := guarded()
	require.True(t, res.OK())
	assert.Equal(t, "done", res.Value)

	require.Len(t, log.entries, 1)
	entry := log.entries[0]
	assert.Equal(t, "info", entry.level)
	assert.Equal(t, "sleepy", entry.obj["func"])
	elapsed, ok := entry.obj["elapsed_seconds"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, elapsed, 0.05)
}

func TestWrapTimingSkippedOnFailure(t *testing.T) {
	log := &recordingLogger{}
	Do("fail", func() (int, error) { panic("bad state") }, WithTiming(true), WithLogger(log))

	require.Len(t, log.entries, 1)
	assert.Equal(t, "error", log.entries[0].level)
	assert.Equal(t, "bad state", log.entries[0].obj["error"])
}

func TestPanicErrorUnwraps(t *testing.T) {
	sentinel := errors.New("sentinel")
	res := Do("wrapped", func() (int, error) { panic(sentinel) }, WithLog(false))
	assert.Equal(t, "sentinel", res.Failure.Error)

	_, err := call(func() (int, error) { panic(sentinel) })
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, sentinel)
}

func TestNilFunctionFails(t *testing.T) {
	res := Do[int]("nil", nil, WithLog(false))
	assert.False(t, res.OK())
}

func TestResultMarshalJSON(t *testing.T) {
	failed := Result[int]{Failure: &Failure{Error: "division by zero", Status: StatusFailed}}
	raw, err := json.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"division by zero","status":"failed"}`, string(raw))

	ok := Result[map[string]int]{Value: map[string]int{"n": 2}}
	raw, err = json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(raw))
}

func TestFuncNameFallback(t *testing.T) {
	assert.Equal(t, "guard.divide", FuncName(divide))
	assert.Equal(t, "unknown", FuncName(nil))

	log := &recordingLogger{}
	Wrap1("", func(int) (int, error) { return 0, errors.New("x") }, WithLogger(log))(1)
	require.Len(t, log.entries, 1)
	assert.NotEmpty(t, log.entries[0].obj["func"])
}
