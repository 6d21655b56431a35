package transport

import (
	"context"
	"io"
	"net"

	"github.com/sourcegraph/jsonrpc2"
)

// Client issues calls to a control server.
type Client struct {
	conn *jsonrpc2.Conn
}

// Dial connects to a control server.
func Dial(ctx context.Context, network, address string, codec Codec) (*Client, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return NewClient(ctx, nc, codec), nil
}

// NewClient wraps an established stream.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser, codec Codec) *Client {
	if codec == "" {
		codec = CodecLine
	}
	stream := jsonrpc2.NewBufferedStream(rwc, codec.objectCodec())
	return &Client{conn: jsonrpc2.NewConn(ctx, stream, ignoreRequests{})}
}

// Call invokes method and decodes the result into result. Error responses are
// returned as *jsonrpc2.Error.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	return c.conn.Call(ctx, method, params, result)
}

// Notify sends a request that expects no reply.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	return c.conn.Notify(ctx, method, params)
}

// Authenticate calls jamulus/apiAuth with secret.
func (c *Client) Authenticate(ctx context.Context, secret string) error {
	var ok string
	return c.Call(ctx, MethodAuth, map[string]string{"secret": secret}, &ok)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// ignoreRequests drops server-initiated requests; the control protocol has none.
type ignoreRequests struct{}

func (ignoreRequests) Handle(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) {}
