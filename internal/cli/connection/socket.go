package connection

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"
)

// AdminError is an "ERR <code> <message>" reply from the admin socket.
type AdminError struct {
	Code    string
	Message string
}

func (e *AdminError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// SocketClient talks to the server's local admin socket.
type SocketClient struct {
	path   string
	conn   net.Conn
	reader *bufio.Reader
}

// NewSocketClient creates a new socket client.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{path: socketPath}
}

// Path returns the socket path.
func (c *SocketClient) Path() string { return c.path }

// Connect connects to the local socket.
func (c *SocketClient) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.path)
	if err != nil {
		return fmt.Errorf("dial admin socket %s: %w", c.path, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Close closes the socket connection.
func (c *SocketClient) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.reader = nil, nil
	return err
}

// Execute sends one command line and returns the reply line without its
// trailing newline. It connects on first use.
func (c *SocketClient) Execute(ctx context.Context, cmd string) (string, error) {
	if c.conn == nil {
		if err := c.Connect(ctx); err != nil {
			return "", err
		}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultTimeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return "", err
	}

	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("send %q: %w", cmd, err)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Call runs cmd with args and decodes the JSON reply into target. target
// may be nil to discard the reply.
func (c *SocketClient) Call(ctx context.Context, target any, cmd string, args ...string) error {
	line := strings.Join(append([]string{cmd}, args...), " ")
	reply, err := c.Execute(ctx, line)
	if err != nil {
		return err
	}
	if err := parseAdminError(reply); err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(reply), target); err != nil {
		return fmt.Errorf("parse %s reply: %w", cmd, err)
	}
	return nil
}

func parseAdminError(reply string) error {
	rest, ok := strings.CutPrefix(reply, "ERR ")
	if !ok {
		return nil
	}
	code, msg, _ := strings.Cut(rest, " ")
	return &AdminError{Code: code, Message: msg}
}
