// Package guard wraps calls so that failures come back as values instead of
// errors or panics.
package guard

import (
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"
)

// StatusFailed is the status carried by every failure record.
const StatusFailed = "failed"

// Failure is the uniform record substituted for a failed call.
type Failure struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// Result holds either the value of a successful call or its failure record.
type Result[T any] struct {
	Value   T
	Failure *Failure
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.Failure == nil }

// MarshalJSON emits the failure record for failed calls and the value otherwise.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Failure != nil {
		return json.Marshal(r.Failure)
	}
	return json.Marshal(r.Value)
}

type options struct {
	log    bool
	timing bool
	logger Logger
}

// Option configures a guard.
type Option func(*options)

// WithLog toggles error logging of failures. Enabled by default.
func WithLog(enabled bool) Option { return func(o *options) { o.log = enabled } }

// WithTiming toggles logging of the elapsed time of successful calls.
func WithTiming(enabled bool) Option { return func(o *options) { o.timing = enabled } }

// WithLogger sets the sink for failure and timing lines.
func WithLogger(log Logger) Option { return func(o *options) { o.logger = log } }

func newOptions(opts []Option) options {
	o := options{log: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.logger = ensureLogger(o.logger)
	return o
}

// Wrap returns fn guarded: returned errors and panics become a Failure.
// An empty name falls back to the function's symbol name.
func Wrap[T any](name string, fn func() (T, error), opts ...Option) func() Result[T] {
	o := newOptions(opts)
	if name == "" {
		name = FuncName(fn)
	}
	return func() Result[T] {
		return invoke(name, o, fn)
	}
}

// Wrap1 is Wrap for single-argument functions.
func Wrap1[A, T any](name string, fn func(A) (T, error), opts ...Option) func(A) Result[T] {
	o := newOptions(opts)
	if name == "" {
		name = FuncName(fn)
	}
	return func(arg A) Result[T] {
		return invoke(name, o, func() (T, error) { return fn(arg) })
	}
}

// Do runs fn once under the guard.
func Do[T any](name string, fn func() (T, error), opts ...Option) Result[T] {
	return Wrap(name, fn, opts...)()
}

func invoke[T any](name string, o options, fn func() (T, error)) Result[T] {
	start := time.Now()
	val, err := call(fn)
	if err != nil {
		msg := err.Error()
		if o.log {
			o.logger.ErrorObj("guarded call failed", "guard_failure", map[string]any{
				"func":  name,
				"error": msg,
			})
		}
		return Result[T]{Failure: &Failure{Error: msg, Status: StatusFailed}}
	}

	if o.timing {
		elapsed := time.Since(start)
		o.logger.InfoObj("guarded call completed", "guard_timing", map[string]any{
			"func":            name,
			"elapsed":         elapsed.String(),
			"elapsed_seconds": elapsed.Seconds(),
		})
	}
	return Result[T]{Value: val}
}

// call runs fn and turns a panic into an error.
func call[T any](fn func() (T, error)) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			val, err = zero, &PanicError{Value: r}
		}
	}()
	if fn == nil {
		return val, fmt.Errorf("nil function")
	}
	return fn()
}

// PanicError carries a value recovered from a panicking call.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// FuncName returns the short symbol name of fn, e.g. "tiktok.Sign".
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "unknown"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "unknown"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
