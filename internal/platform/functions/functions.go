// Package functions exposes named server-side functions over
// POST /functions/v1/:name with a {data, error} envelope.
package functions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrFunctionNotFound = errors.New("function not found")

// Func handles one invocation. Returning a *LogicalError answers 200 with
// the message in the envelope; any other error answers 500.
type Func func(ctx context.Context, payload json.RawMessage) (any, error)

// LogicalError is a business-rule failure reported inside a success envelope.
type LogicalError struct {
	Msg string
}

func (e *LogicalError) Error() string { return e.Msg }

func Logical(format string, args ...any) error {
	return &LogicalError{Msg: fmt.Sprintf(format, args...)}
}

// Envelope is the response body of every invocation.
type Envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds fn under name. Registering a name twice panics.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.funcs[name]; dup {
		panic(fmt.Sprintf("functions: %q registered twice", name))
	}
	r.funcs[name] = fn
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Invoke(ctx context.Context, name string, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	return fn(ctx, payload)
}

// Decode unmarshals payload into T, turning malformed input into a logical
// error so callers see it in the envelope.
func Decode[T any](payload json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, Logical("invalid payload: %v", err)
	}
	return v, nil
}
