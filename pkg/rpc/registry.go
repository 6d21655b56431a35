package rpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// HandlerFunc processes validated params against the domain object srv and
// returns a result or an error. Returning *Error selects the code; any other
// error is reported as an internal error.
type HandlerFunc[S any] func(ctx context.Context, srv S, params Params) (any, error)

// ErrSealed is returned when registering after the registry went live.
var ErrSealed = errors.New("registry sealed")

// Registry maps method names to handlers. It is filled at startup and is
// read-only once sealed.
type Registry[S any] struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc[S]
	sealed   bool
}

// NewRegistry constructs an empty registry.
func NewRegistry[S any]() *Registry[S] {
	return &Registry[S]{handlers: make(map[string]HandlerFunc[S])}
}

// Register installs a handler for a method. Duplicate names are a
// programming error and are reported rather than overwritten.
func (r *Registry[S]) Register(method string, handler HandlerFunc[S]) error {
	if method == "" {
		return errors.New("register: empty method name")
	}
	if handler == nil {
		return fmt.Errorf("register %s: nil handler", method)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("register %s: %w", method, ErrSealed)
	}
	if _, exists := r.handlers[method]; exists {
		return fmt.Errorf("method already registered: %s", method)
	}
	r.handlers[method] = handler
	return nil
}

// Resolve returns the handler registered under method.
func (r *Registry[S]) Resolve(method string) (HandlerFunc[S], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[method]
	return h, ok
}

// Seal stops further registration.
func (r *Registry[S]) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Methods returns the registered names in sorted order.
func (r *Registry[S]) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Typed adapts a handler that takes a decoded parameter struct. Decoding runs
// to completion before fn is invoked, so fn never sees partially valid input.
func Typed[S any, P any, PP interface {
	*P
	Decoder
}](fn func(ctx context.Context, srv S, p P) (any, error)) HandlerFunc[S] {
	return func(ctx context.Context, srv S, params Params) (any, error) {
		var p P
		if err := PP(&p).DecodeParams(params); err != nil {
			return nil, err
		}
		return fn(ctx, srv, p)
	}
}
