package redisserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Protocol limits to prevent DoS attacks.
const (
	// MaxArrayLen limits the number of elements in a RESP array.
	// KV.WRITE takes at most a key and a value; inline payloads may split
	// a value on spaces.
	MaxArrayLen = 256

	// MaxBulkLen limits the size of a single bulk string (64KB).
	// Pairs are bounded by the vault limits and far smaller.
	MaxBulkLen = 64 * 1024

	// MaxInlineLen limits inline command line length (4KB).
	MaxInlineLen = 4 * 1024
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// ReadCommand reads one client command, either a RESP array of bulk
// strings or an inline line split on whitespace.
func ReadCommand(r *bufio.Reader) ([][]byte, error) {
	b, err := r.Peek(1)
	if err != nil {
		return nil, err
	}

	if b[0] == '*' {
		return readArrayCommand(r)
	}

	// Inline command: "KV.READ\r\n"
	line, err := readLine(r, MaxInlineLen)
	if err != nil {
		return nil, err
	}
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil, nil
	}
	if len(parts) > MaxArrayLen {
		return nil, fmt.Errorf("%w: inline argument count %d exceeds limit %d", ErrLimitExceeded, len(parts), MaxArrayLen)
	}
	out := make([][]byte, 0, len(parts))
	for _, p := range parts {
		out = append(out, []byte(p))
	}
	return out, nil
}

func readArrayCommand(r *bufio.Reader) ([][]byte, error) {
	n, err := readLength(r, '*')
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	if n > MaxArrayLen {
		return nil, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, MaxArrayLen)
	}

	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := readBulkString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

// readLength reads a "<prefix><n>\r\n" header.
func readLength(r *bufio.Reader, prefix byte) (int, error) {
	line, err := readLine(r, 64)
	if err != nil {
		return 0, err
	}
	if len(line) < 2 || line[0] != prefix {
		return 0, fmt.Errorf("%w: expected '%c'", ErrProtocol, prefix)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return 0, fmt.Errorf("%w: invalid length %q", ErrProtocol, line[1:])
	}
	return n, nil
}

func readBulkString(r *bufio.Reader) ([]byte, error) {
	n, err := readLength(r, '$')
	if err != nil {
		return nil, err
	}
	return readBulkBody(r, n)
}

func readBulkBody(r *bufio.Reader, n int) ([]byte, error) {
	if n == -1 {
		return nil, nil
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
	}
	if n > MaxBulkLen {
		return nil, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, MaxBulkLen)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	return buf[:n], nil
}

func readLine(r *bufio.Reader, maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > maxLen {
			return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return "", err
	}

	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(buf[:len(buf)-2]), nil
}

func WriteSimpleString(w *bufio.Writer, s string) error {
	_, err := w.WriteString("+" + s + "\r\n")
	return err
}

func WriteError(w *bufio.Writer, s string) error {
	_, err := w.WriteString("-" + s + "\r\n")
	return err
}

func WriteInteger(w *bufio.Writer, n int64) error {
	_, err := w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
	return err
}

func WriteNullBulk(w *bufio.Writer) error {
	_, err := w.WriteString("$-1\r\n")
	return err
}

func WriteBulk(w *bufio.Writer, b []byte) error {
	if b == nil {
		return WriteNullBulk(w)
	}
	if _, err := w.WriteString("$" + strconv.Itoa(len(b)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

func WriteBulkString(w *bufio.Writer, s string) error {
	_, err := w.WriteString("$" + strconv.Itoa(len(s)) + "\r\n" + s + "\r\n")
	return err
}

func WriteArrayHeader(w *bufio.Writer, n int) error {
	_, err := w.WriteString("*" + strconv.Itoa(n) + "\r\n")
	return err
}

// WriteStrings writes ss as an array of bulk strings.
func WriteStrings(w *bufio.Writer, ss []string) error {
	if err := WriteArrayHeader(w, len(ss)); err != nil {
		return err
	}
	for _, s := range ss {
		if err := WriteBulkString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// WriteCommand encodes args as a RESP array of bulk strings. Clients use it
// to talk to the server.
func WriteCommand(w *bufio.Writer, args ...string) error {
	return WriteStrings(w, args)
}

// Reply is one decoded server reply.
type Reply struct {
	// Kind is the RESP type byte: '+', '-', ':', '$' or '*'.
	Kind  byte
	Str   string
	Int   int64
	Null  bool
	Elems []Reply
}

// Err returns the reply as an error when it is an error reply.
func (r Reply) Err() error {
	if r.Kind != '-' {
		return nil
	}
	return &ReplyError{Message: r.Str}
}

// ReplyError is an error reply sent by the server.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string { return e.Message }

// Code returns the KV error code of an "ERR <code> <message>" reply, or "".
func (e *ReplyError) Code() string {
	fields := strings.Fields(e.Message)
	if len(fields) >= 2 && fields[0] == "ERR" && strings.HasPrefix(fields[1], "KV-") {
		return fields[1]
	}
	return ""
}

// ReadReply decodes one reply.
func ReadReply(r *bufio.Reader) (Reply, error) {
	return readReply(r, 0)
}

func readReply(r *bufio.Reader, depth int) (Reply, error) {
	if depth > 4 {
		return Reply{}, fmt.Errorf("%w: reply nesting too deep", ErrLimitExceeded)
	}
	b, err := r.Peek(1)
	if err != nil {
		return Reply{}, err
	}

	switch kind := b[0]; kind {
	case '+', '-':
		line, err := readLine(r, MaxInlineLen)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Kind: kind, Str: line[1:]}, nil
	case ':':
		line, err := readLine(r, 64)
		if err != nil {
			return Reply{}, err
		}
		n, err := strconv.ParseInt(line[1:], 10, 64)
		if err != nil {
			return Reply{}, fmt.Errorf("%w: invalid integer", ErrProtocol)
		}
		return Reply{Kind: kind, Int: n}, nil
	case '$':
		n, err := readLength(r, '$')
		if err != nil {
			return Reply{}, err
		}
		body, err := readBulkBody(r, n)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Kind: kind, Str: string(body), Null: body == nil}, nil
	case '*':
		n, err := readLength(r, '*')
		if err != nil {
			return Reply{}, err
		}
		if n < 0 {
			return Reply{Kind: kind, Null: true}, nil
		}
		if n > MaxArrayLen*MaxArrayLen {
			return Reply{}, fmt.Errorf("%w: array length %d", ErrLimitExceeded, n)
		}
		out := Reply{Kind: kind, Elems: make([]Reply, 0, n)}
		for i := 0; i < n; i++ {
			e, err := readReply(r, depth+1)
			if err != nil {
				return Reply{}, err
			}
			out.Elems = append(out.Elems, e)
		}
		return out, nil
	default:
		return Reply{}, fmt.Errorf("%w: unexpected reply type %q", ErrProtocol, kind)
	}
}

func normalizeCommandName(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	// Uppercase ASCII without allocating for already uppercased tokens.
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(string(b))
	}
	return string(b)
}
