// Package transport carries JSON-RPC requests between operator clients and
// the dispatcher over TCP or Unix sockets.
package transport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/rexliu/jamctl/pkg/rpc"
)

// MethodAuth authenticates a connection when a secret is configured.
const MethodAuth = "jamulus/apiAuth"

const (
	msgAuthFailed      = "Authentication failed."
	msgUnauthenticated = "Unauthenticated: Please authenticate using jamulus/apiAuth first."
)

// Dispatcher handles one decoded request. *rpc.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req rpc.Request) rpc.Response
}

// Logger is satisfied by logging.Logger; kept minimal to avoid dependency cycles.
type Logger interface {
	Printf(format string, v ...any)
}

// Options configures a Server.
type Options struct {
	Network string
	Address string
	Codec   Codec
	// Secret enables jamulus/apiAuth. Empty disables authentication.
	Secret string
	Logger Logger
}

// Server accepts connections and feeds their requests to a Dispatcher. Each
// connection is served sequentially; separate connections run concurrently.
type Server struct {
	dispatcher Dispatcher
	opts       Options

	mu     sync.Mutex
	ln     net.Listener
	conns  map[*jsonrpc2.Conn]struct{}
	closed bool
}

// NewServer constructs a transport server.
func NewServer(d Dispatcher, opts Options) *Server {
	if opts.Network == "" {
		opts.Network = "tcp"
	}
	if opts.Codec == "" {
		opts.Codec = CodecLine
	}
	return &Server{dispatcher: d, opts: opts, conns: make(map[*jsonrpc2.Conn]struct{})}
}

// Start begins accepting connections on the configured endpoint.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("nil server")
	}
	if s.opts.Network == "unix" {
		if err := os.Remove(s.opts.Address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	ln, err := net.Listen(s.opts.Network, s.opts.Address)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	go s.acceptLoop(ctx, ln)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.isClosed() {
				return
			}
			s.logf("accept error: %v", err)
			continue
		}
		s.logf("rpc client connected: %s", conn.RemoteAddr())
		s.ServeConn(ctx, conn)
	}
}

// ServeConn serves requests arriving on rwc until it closes.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) *jsonrpc2.Conn {
	stream := jsonrpc2.NewBufferedStream(rwc, s.opts.Codec.objectCodec())
	h := &connHandler{srv: s, authenticated: s.opts.Secret == ""}
	conn := jsonrpc2.NewConn(ctx, stream, h)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return conn
	}
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	go func() {
		<-conn.DisconnectNotify()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
	return conn
}

// Stop closes the listener and every open connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	conns := make([]*jsonrpc2.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
	if ln != nil {
		return ln.Close()
	}
	return nil
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) logf(format string, v ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Printf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}

// connHandler holds per-connection state. jsonrpc2 calls Handle from a single
// goroutine per connection.
type connHandler struct {
	srv           *Server
	authenticated bool
}

func (h *connHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	resp := h.handle(ctx, req)
	if req.Notif {
		return
	}
	var err error
	if resp.Error != nil {
		err = conn.ReplyWithError(ctx, req.ID, toWireError(resp.Error))
	} else {
		err = conn.Reply(ctx, req.ID, resp.Result)
	}
	if err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		h.srv.logf("reply to %s failed: %v", req.Method, err)
	}
}

func (h *connHandler) handle(ctx context.Context, req *jsonrpc2.Request) rpc.Response {
	in := rpc.Request{JSONRPC: rpc.Version, Method: req.Method}
	if !req.Notif {
		in.ID, _ = json.Marshal(req.ID)
	}
	if req.Params != nil {
		in.Params = *req.Params
	}
	if req.Method == MethodAuth {
		return h.authenticate(in)
	}
	if !h.authenticated {
		return rpc.Response{ID: in.ID, Error: rpc.NewError(rpc.CodeUnauthenticated, msgUnauthenticated, nil)}
	}
	return h.srv.dispatcher.Dispatch(ctx, in)
}

func (h *connHandler) authenticate(req rpc.Request) rpc.Response {
	resp := rpc.Response{ID: req.ID}
	params, err := rpc.ParseParams(req.Params)
	var secret string
	if err == nil {
		secret, err = params.String("secret")
	}
	if err != nil {
		resp.Error = rpc.NewError(rpc.CodeInvalidParams, err.Error(), nil)
		return resp
	}
	want := h.srv.opts.Secret
	if want != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(want)) != 1 {
		resp.Error = rpc.NewError(rpc.CodeAuthenticationFailed, msgAuthFailed, nil)
		return resp
	}
	h.authenticated = true
	resp.Result = "ok"
	return resp
}

func toWireError(e *rpc.Error) *jsonrpc2.Error {
	out := &jsonrpc2.Error{Code: int64(e.Code), Message: e.Message}
	if e.Data != nil {
		out.SetError(e.Data)
	}
	return out
}
