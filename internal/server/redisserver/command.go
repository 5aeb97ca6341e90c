package redisserver

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/yndnr/keyvault-go/internal/core/domain"
	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/core/vault"
	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

// Device is the subset of service.Device the command handler drives.
type Device interface {
	Open(ctx context.Context, user int) (*service.Session, error)
	Close(sessionID string)
	Read(sessionID string) (string, error)
	ReadReverse(sessionID string) (string, error)
	Write(sessionID, payload string) (int, error)
	Seek(sessionID, payload string) (bool, error)
	Rewind(sessionID string, dir vault.Direction) error
	Get(sessionID, key string) ([]string, error)
	SessionStats(sessionID string) (service.UserStats, error)
	DumpSession(sessionID string, dir vault.Direction) ([]vault.Pair, error)
}

// Resolver maps AUTH arguments to a user ordinal.
type Resolver interface {
	Resolve(ctx context.Context, name, secret string) (int, error)
}

// formatRedisError converts an error to a Redis error string.
// For DomainErrors, returns "ERR <code> <message>".
// For other errors, returns "ERR <message>".
func formatRedisError(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return "ERR " + de.Code + " " + de.Message
	}
	return "ERR " + err.Error()
}

// CommandHandler handles Redis commands.
type CommandHandler struct {
	device   Device
	resolver Resolver
	observer ConnObserver
	limiter  *service.RateLimiterRegistry
	rate     int
}

// NewCommandHandler creates a new CommandHandler. rateLimit is the command
// rate per second per client address; 0 disables limiting. Handlers log
// through the logger carried by the connection context.
func NewCommandHandler(device Device, resolver Resolver, rateLimit int, observer ConnObserver) *CommandHandler {
	if observer == nil {
		observer = nopConnObserver{}
	}
	h := &CommandHandler{
		device:   device,
		resolver: resolver,
		observer: observer,
		rate:     rateLimit,
	}
	if rateLimit > 0 {
		h.limiter = service.NewRateLimiterRegistry()
	}
	return h
}

// Handle handles a Redis command (RESP array of bulk strings).
func (h *CommandHandler) Handle(ctx context.Context, conn *Conn, args [][]byte) {
	if len(args) == 0 {
		_ = WriteError(conn.bw, "ERR no command")
		return
	}

	cmdName := normalizeCommandName(args[0])

	// Connection-level commands (do not require authentication).
	switch cmdName {
	case "PING":
		h.handlePing(conn, args)
		return
	case "AUTH":
		h.handleAuth(ctx, conn, args)
		return
	case "QUIT":
		h.handleQuit(conn, args)
		return
	}

	state := conn.GetState()
	if !state.Authenticated {
		_ = WriteError(conn.bw, "NOAUTH Authentication required")
		return
	}

	if h.limiter != nil {
		if !h.limiter.GetOrCreate(clientKey(conn.RemoteAddr()), h.rate).Allow() {
			_ = WriteError(conn.bw, formatRedisError(domain.ErrRateLimited))
			return
		}
	}

	id := state.SessionID
	switch cmdName {
	case "KV.READ":
		h.handleRead(conn, args, id, h.device.Read)
	case "KV.RREAD":
		h.handleRead(conn, args, id, h.device.ReadReverse)
	case "KV.WRITE":
		h.handleWrite(conn, args, id)
	case "KV.SEEK":
		h.handleSeek(conn, args, id)
	case "KV.REWIND":
		h.handleRewind(conn, args, id)
	case "KV.GET":
		h.handleGet(conn, args, id)
	case "KV.STATS":
		h.handleStats(conn, args, id)
	case "KV.DUMP":
		h.handleDump(conn, args, id)
	default:
		_ = WriteError(conn.bw, "ERR unknown command '"+cmdName+"'")
	}
}

// clientKey strips the port so all connections from one host share a bucket.
func clientKey(addr net.Addr) string {
	if addr == nil {
		return "local"
	}
	s := addr.String()
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	if s == "" || s == "@" {
		return "local"
	}
	return s
}

func wrongArgs(conn *Conn, cmd string) {
	_ = WriteError(conn.bw, "ERR wrong number of arguments for '"+cmd+"' command")
}

// joinPayload rebuilds "<key> <value>" from the arguments after the command.
// Inline clients split values on spaces, so every argument is kept.
func joinPayload(args [][]byte) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = string(a)
	}
	return strings.Join(parts, " ")
}

func parseDirectionArg(args [][]byte) (vault.Direction, bool) {
	switch len(args) {
	case 1:
		return vault.Forward, true
	case 2:
		switch normalizeCommandName(args[1]) {
		case "FORWARD", "FWD":
			return vault.Forward, true
		case "REVERSE", "REV":
			return vault.Reverse, true
		}
	}
	return vault.Forward, false
}

func (h *CommandHandler) handlePing(conn *Conn, args [][]byte) {
	if len(args) > 1 {
		_ = WriteBulk(conn.bw, args[1])
		return
	}
	_ = WriteSimpleString(conn.bw, "PONG")
}

// handleAuth handles AUTH <principal> [secret]. A successful AUTH opens a
// device session for the resolved user and releases any previous one.
func (h *CommandHandler) handleAuth(ctx context.Context, conn *Conn, args [][]byte) {
	var name, secret string
	switch len(args) {
	case 2:
		name = string(args[1])
	case 3:
		name, secret = string(args[1]), string(args[2])
	default:
		wrongArgs(conn, "AUTH")
		return
	}

	user, err := h.resolver.Resolve(ctx, name, secret)
	if err != nil {
		h.observer.AuthFailed()
		logger.L(ctx).Warn("auth rejected", "principal", name, "error", err)
		_ = WriteError(conn.bw, formatRedisError(err))
		return
	}

	session, err := h.device.Open(ctx, user)
	if err != nil {
		_ = WriteError(conn.bw, formatRedisError(err))
		return
	}

	if prev := conn.GetState(); prev.SessionID != "" {
		h.device.Close(prev.SessionID)
	}
	conn.SetState(ConnState{
		Authenticated: true,
		Principal:     name,
		User:          user,
		SessionID:     session.ID,
	})
	logger.L(ctx).Debug("auth accepted", "principal", name, "user", user, "session_id", session.ID)

	_ = WriteSimpleString(conn.bw, "OK")
}

func (h *CommandHandler) handleQuit(conn *Conn, _ [][]byte) {
	_ = WriteSimpleString(conn.bw, "OK")
	_ = conn.bw.Flush()
	_ = conn.Close()
}

// KV.READ / KV.RREAD: bulk "<key> <value>", null at end of vault.
func (h *CommandHandler) handleRead(conn *Conn, args [][]byte, id string, read func(string) (string, error)) {
	if len(args) != 1 {
		wrongArgs(conn, normalizeCommandName(args[0]))
		return
	}
	line, err := read(id)
	if errors.Is(err, domain.ErrEndOfVault) {
		_ = WriteNullBulk(conn.bw)
		return
	}
	if err != nil {
		_ = WriteError(conn.bw, formatRedisError(err))
		return
	}
	_ = WriteBulkString(conn.bw, line)
}

// KV.WRITE [key value]: integer bytes consumed.
func (h *CommandHandler) handleWrite(conn *Conn, args [][]byte, id string) {
	n, err := h.device.Write(id, joinPayload(args[1:]))
	if err != nil {
		_ = WriteError(conn.bw, formatRedisError(err))
		return
	}
	_ = WriteInteger(conn.bw, int64(n))
}

// KV.SEEK key value: 1 when found, 0 otherwise.
func (h *CommandHandler) handleSeek(conn *Conn, args [][]byte, id string) {
	if len(args) < 2 {
		wrongArgs(conn, "KV.SEEK")
		return
	}
	found, err := h.device.Seek(id, joinPayload(args[1:]))
	if err != nil {
		_ = WriteError(conn.bw, formatRedisError(err))
		return
	}
	if found {
		_ = WriteInteger(conn.bw, 1)
		return
	}
	_ = WriteInteger(conn.bw, 0)
}

func (h *CommandHandler) handleRewind(conn *Conn, args [][]byte, id string) {
	dir, ok := parseDirectionArg(args)
	if !ok {
		_ = WriteError(conn.bw, "ERR syntax error, expected FORWARD or REVERSE")
		return
	}
	if err := h.device.Rewind(id, dir); err != nil {
		_ = WriteError(conn.bw, formatRedisError(err))
		return
	}
	_ = WriteSimpleString(conn.bw, "OK")
}

// KV.GET key: array of values, empty when the key is absent.
func (h *CommandHandler) handleGet(conn *Conn, args [][]byte, id string) {
	if len(args) != 2 {
		wrongArgs(conn, "KV.GET")
		return
	}
	values, err := h.device.Get(id, string(args[1]))
	if err != nil {
		_ = WriteError(conn.bw, formatRedisError(err))
		return
	}
	_ = WriteStrings(conn.bw, values)
}

// KV.STATS: flat array of field/integer pairs.
func (h *CommandHandler) handleStats(conn *Conn, args [][]byte, id string) {
	if len(args) != 1 {
		wrongArgs(conn, "KV.STATS")
		return
	}
	st, err := h.device.SessionStats(id)
	if err != nil {
		_ = WriteError(conn.bw, formatRedisError(err))
		return
	}
	fields := []struct {
		name string
		val  int
	}{
		{"user", st.User},
		{"keys", st.Keys},
		{"pairs", st.Pairs},
		{"remaining", st.Remaining},
	}
	_ = WriteArrayHeader(conn.bw, 2*len(fields))
	for _, f := range fields {
		_ = WriteBulkString(conn.bw, f.name)
		_ = WriteInteger(conn.bw, int64(f.val))
	}
}

// KV.DUMP [FORWARD|REVERSE]: array of "<key> <value>" for the caller's user.
func (h *CommandHandler) handleDump(conn *Conn, args [][]byte, id string) {
	dir, ok := parseDirectionArg(args)
	if !ok {
		_ = WriteError(conn.bw, "ERR syntax error, expected FORWARD or REVERSE")
		return
	}
	pairs, err := h.device.DumpSession(id, dir)
	if err != nil {
		_ = WriteError(conn.bw, formatRedisError(err))
		return
	}
	lines := make([]string, len(pairs))
	for i, p := range pairs {
		lines[i] = p.String()
	}
	_ = WriteStrings(conn.bw, lines)
}
