package ipc

import (
	"fmt"
	"net"
	"time"
)

// Client talks to a running compositor's control socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a control client for the given socket path.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// NewClientWithTimeout creates a control client with a custom timeout.
func NewClientWithTimeout(socketPath string, timeout time.Duration) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

// IsRunning reports whether a compositor answers on the socket.
func (c *Client) IsRunning() bool {
	_, err := c.Status()
	return err == nil
}

// Status queries the compositor-wide state summary.
func (c *Client) Status() (Status, error) {
	resp, err := c.roundTrip(Request{Command: CmdStatus})
	if err != nil {
		return Status{}, err
	}
	if resp.Status == nil {
		return Status{}, fmt.Errorf("status reply missing payload")
	}
	return *resp.Status, nil
}

// Windows lists windows in back-to-front stacking order.
func (c *Client) Windows() ([]WindowInfo, error) {
	resp, err := c.roundTrip(Request{Command: CmdWindows})
	if err != nil {
		return nil, err
	}
	return resp.Windows, nil
}

// FocusWindow gives a window keyboard focus and raises it.
func (c *Client) FocusWindow(id uint64) error {
	_, err := c.roundTrip(Request{Command: CmdFocus, WindowID: id})
	return err
}

// CloseWindow asks a window's client to close it.
func (c *Client) CloseWindow(id uint64) error {
	_, err := c.roundTrip(Request{Command: CmdClose, WindowID: id})
	return err
}

// Inject synthesizes one input event.
func (c *Client) Inject(req InjectRequest) error {
	_, err := c.roundTrip(Request{Command: CmdInject, Inject: &req})
	return err
}

// roundTrip sends one request and reads its response on a fresh
// connection.
func (c *Client) roundTrip(req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return Response{}, fmt.Errorf("failed to connect to %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return Response{}, fmt.Errorf("failed to set deadline: %w", err)
	}

	if err := writeMessage(conn, req); err != nil {
		return Response{}, err
	}

	var resp Response
	if err := readMessage(conn, &resp); err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return resp, fmt.Errorf("server error: %s", resp.Error)
	}
	return resp, nil
}
