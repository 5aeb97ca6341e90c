package connection

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/core/vault"
	"github.com/yndnr/keyvault-go/internal/server/redisserver"
)

// DefaultTimeout bounds one request/reply round trip when the context
// carries no deadline.
const DefaultTimeout = 10 * time.Second

// VaultClient speaks RESP to the key vault server. After Auth every call
// operates on the session the server opened for the resolved user.
type VaultClient struct {
	conn    net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	timeout time.Duration
}

// DialVault connects to addr. network is "tcp" or "unix".
func DialVault(ctx context.Context, network, addr string) (*VaultClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, addr, err)
	}
	return NewVaultClient(conn), nil
}

// NewVaultClient wraps an established connection.
func NewVaultClient(conn net.Conn) *VaultClient {
	return &VaultClient{
		conn:    conn,
		br:      bufio.NewReader(conn),
		bw:      bufio.NewWriter(conn),
		timeout: DefaultTimeout,
	}
}

// Close sends QUIT and closes the connection.
func (c *VaultClient) Close() error {
	_ = c.conn.SetDeadline(time.Now().Add(time.Second))
	if err := redisserver.WriteCommand(c.bw, "QUIT"); err == nil {
		if c.bw.Flush() == nil {
			_, _ = redisserver.ReadReply(c.br)
		}
	}
	return c.conn.Close()
}

// Do sends one command and returns its reply. Error replies are returned
// as *redisserver.ReplyError.
func (c *VaultClient) Do(ctx context.Context, args ...string) (redisserver.Reply, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return redisserver.Reply{}, err
	}

	if err := redisserver.WriteCommand(c.bw, args...); err != nil {
		return redisserver.Reply{}, err
	}
	if err := c.bw.Flush(); err != nil {
		return redisserver.Reply{}, fmt.Errorf("send %s: %w", args[0], err)
	}
	rep, err := redisserver.ReadReply(c.br)
	if err != nil {
		return redisserver.Reply{}, fmt.Errorf("read %s reply: %w", args[0], err)
	}
	if err := rep.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

// Ping checks the connection.
func (c *VaultClient) Ping(ctx context.Context) error {
	_, err := c.Do(ctx, "PING")
	return err
}

// Auth authenticates as principal and opens a session. secret may be
// empty for principals without one.
func (c *VaultClient) Auth(ctx context.Context, principal, secret string) error {
	args := []string{"AUTH", principal}
	if secret != "" {
		args = append(args, secret)
	}
	_, err := c.Do(ctx, args...)
	return err
}

// Read returns the pair under the cursor and advances it. ok is false at
// the end of the vault.
func (c *VaultClient) Read(ctx context.Context, dir vault.Direction) (vault.Pair, bool, error) {
	cmd := "KV.READ"
	if dir == vault.Reverse {
		cmd = "KV.RREAD"
	}
	rep, err := c.Do(ctx, cmd)
	if err != nil {
		return vault.Pair{}, false, err
	}
	if rep.Null {
		return vault.Pair{}, false, nil
	}
	p, err := parsePair(rep.Str)
	return p, err == nil, err
}

// Write inserts key/value and returns the bytes consumed.
func (c *VaultClient) Write(ctx context.Context, key, value string) (int, error) {
	return c.writeArgs(ctx, "KV.WRITE", key, value)
}

// Delete deletes the pair under the cursor with an empty write.
func (c *VaultClient) Delete(ctx context.Context) (int, error) {
	return c.writeArgs(ctx, "KV.WRITE")
}

func (c *VaultClient) writeArgs(ctx context.Context, args ...string) (int, error) {
	rep, err := c.Do(ctx, args...)
	if err != nil {
		return 0, err
	}
	return int(rep.Int), nil
}

// Seek positions the cursor on key/value and reports whether it exists.
func (c *VaultClient) Seek(ctx context.Context, key, value string) (bool, error) {
	rep, err := c.Do(ctx, "KV.SEEK", key, value)
	if err != nil {
		return false, err
	}
	return rep.Int == 1, nil
}

// Rewind moves the cursor to the first or last pair.
func (c *VaultClient) Rewind(ctx context.Context, dir vault.Direction) error {
	_, err := c.Do(ctx, "KV.REWIND", directionArg(dir))
	return err
}

// Get returns every value stored under key in insertion order.
func (c *VaultClient) Get(ctx context.Context, key string) ([]string, error) {
	rep, err := c.Do(ctx, "KV.GET", key)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(rep.Elems))
	for _, e := range rep.Elems {
		values = append(values, e.Str)
	}
	return values, nil
}

// Stats returns the session user's counters.
func (c *VaultClient) Stats(ctx context.Context) (service.UserStats, error) {
	rep, err := c.Do(ctx, "KV.STATS")
	if err != nil {
		return service.UserStats{}, err
	}
	var st service.UserStats
	for i := 0; i+1 < len(rep.Elems); i += 2 {
		n := int(rep.Elems[i+1].Int)
		switch rep.Elems[i].Str {
		case "user":
			st.User = n
		case "keys":
			st.Keys = n
		case "pairs":
			st.Pairs = n
		case "remaining":
			st.Remaining = n
		}
	}
	return st, nil
}

// Dump returns the session user's pairs in sequence order.
func (c *VaultClient) Dump(ctx context.Context, dir vault.Direction) ([]vault.Pair, error) {
	rep, err := c.Do(ctx, "KV.DUMP", directionArg(dir))
	if err != nil {
		return nil, err
	}
	pairs := make([]vault.Pair, 0, len(rep.Elems))
	for _, e := range rep.Elems {
		p, err := parsePair(e.Str)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func directionArg(dir vault.Direction) string {
	if dir == vault.Reverse {
		return "REVERSE"
	}
	return "FORWARD"
}

func parsePair(line string) (vault.Pair, error) {
	key, value, err := service.ParsePair(line)
	if err != nil {
		return vault.Pair{}, fmt.Errorf("server sent %s: %w", strconv.Quote(line), err)
	}
	return vault.Pair{Key: key, Value: value}, nil
}
