package rpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
)

// Logger is satisfied by logging.Logger; kept minimal to avoid dependency cycles.
type Logger interface {
	Printf(format string, v ...any)
}

// Dispatcher resolves, validates and executes one request at a time on the
// calling goroutine. It adds no locking around srv; concurrent callers rely on
// srv being safe for concurrent use.
type Dispatcher[S any] struct {
	registry *Registry[S]
	srv      S
	logger   Logger
}

// NewDispatcher seals registry and binds it to srv.
func NewDispatcher[S any](registry *Registry[S], srv S, logger Logger) *Dispatcher[S] {
	registry.Seal()
	return &Dispatcher[S]{registry: registry, srv: srv, logger: logger}
}

// Registry exposes the bound registry.
func (d *Dispatcher[S]) Registry() *Registry[S] {
	return d.registry
}

// Dispatch handles req and always returns a response; failures of any kind
// are confined to this request.
func (d *Dispatcher[S]) Dispatch(ctx context.Context, req Request) Response {
	resp := Response{ID: req.ID}
	if req.Method == "" {
		resp.Error = NewError(CodeInvalidRequest, "Invalid request: method is required", nil)
		return resp
	}
	handler, ok := d.registry.Resolve(req.Method)
	if !ok {
		resp.Error = NewError(CodeMethodNotFound, "Method not found: "+req.Method, nil)
		return resp
	}
	params, err := ParseParams(req.Params)
	if err != nil {
		resp.Error = d.toError(req.Method, err)
		return resp
	}
	result, err := d.invoke(ctx, handler, params)
	if err != nil {
		resp.Error = d.toError(req.Method, err)
		return resp
	}
	resp.Result = result
	return resp
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (d *Dispatcher[S]) invoke(ctx context.Context, handler HandlerFunc[S], params Params) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return handler(ctx, d.srv, params)
}

func (d *Dispatcher[S]) toError(method string, err error) *Error {
	var paramErr *ParamError
	if errors.As(err, &paramErr) {
		return NewError(CodeInvalidParams, paramErr.Error(), nil)
	}
	if rpcErr, ok := AsError(err); ok {
		return rpcErr
	}
	traceID := NewTraceID()
	var pe *panicError
	if errors.As(err, &pe) {
		d.logf("handler %s panicked (trace %s): %v\n%s", method, traceID, pe.value, pe.stack)
		return NewError(CodeInternalError, "Internal error", map[string]any{"traceId": traceID})
	}
	d.logf("handler %s failed (trace %s): %v", method, traceID, err)
	return NewError(CodeInternalError, "Internal error: "+err.Error(), map[string]any{"traceId": traceID})
}

func (d *Dispatcher[S]) logf(format string, v ...any) {
	if d.logger != nil {
		d.logger.Printf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}
