package ipc

import (
	"fmt"
	"net"
	"time"
)

// Client talks to a running bar over its control socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 10 * time.Second}
}

// Send opens a connection, sends req, reads the response, and closes the
// connection. A failed request is returned as a Response, not an error;
// the error covers transport failures only.
func (c *Client) Send(req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return Response{}, fmt.Errorf("connect to bar: %w", err)
	}
	defer conn.Close()

	if c.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.timeout))
	}

	if err := WriteJSON(conn, req); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}
	var resp Response
	if err := ReadJSON(conn, &resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Call sends req and decodes a successful payload into out, which may be
// nil. A failed request is returned as *Error.
func (c *Client) Call(req Request, out any) error {
	resp, err := c.Send(req)
	if err != nil {
		return err
	}
	if out == nil {
		return resp.Err()
	}
	return resp.Decode(out)
}
