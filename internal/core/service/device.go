package service

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/keyvault-go/internal/core/domain"
	"github.com/yndnr/keyvault-go/internal/core/vault"
	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
	"github.com/yndnr/keyvault-go/pkg/cmap"
)

// Device operation names reported to the Observer.
const (
	OpOpen    = "open"
	OpRead    = "read"
	OpRRead   = "rread"
	OpWrite   = "write"
	OpSeek    = "seek"
	OpRewind  = "rewind"
	OpGet     = "get"
	OpDump    = "dump"
	OpRelease = "release"
)

// OutcomeOK is the outcome label of a successful operation.
const OutcomeOK = "ok"

// Observer receives one call per device operation.
type Observer interface {
	ObserveOp(op, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveOp(string, string, time.Duration) {}

// Outcome returns the label an Observer sees for err: "ok", the domain error
// code, or "error".
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := domain.GetErrorCode(err); code != "" {
		return code
	}
	return "error"
}

// Session is one open handle on a user's sequence.
// The cursor is only touched under the owning Device's lock.
type Session struct {
	ID       string
	User     int
	OpenedAt time.Time

	cursor *vault.Node
}

// UserStats reports one user's counters.
type UserStats struct {
	User      int `json:"user" yaml:"user"`
	Keys      int `json:"keys" yaml:"keys"`
	Pairs     int `json:"pairs" yaml:"pairs"`
	Remaining int `json:"remaining" yaml:"remaining"`
}

// Totals reports vault-wide counters.
type Totals struct {
	Users    int `json:"users" yaml:"users"`
	Keys     int `json:"keys" yaml:"keys"`
	Pairs    int `json:"pairs" yaml:"pairs"`
	Sessions int `json:"sessions" yaml:"sessions"`
}

// Snapshot is a consistent view of every user's counters.
type Snapshot struct {
	Totals Totals
	Users  []UserStats
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithObserver sets the operation observer.
func WithObserver(o Observer) DeviceOption {
	return func(d *Device) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithLogger sets the device logger.
func WithLogger(l logger.Logger) DeviceOption {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}

// Device exposes a Vault as a byte-stream device: open, read, write, seek,
// rewind and release, each under a single mutex.
type Device struct {
	mu       sync.Mutex
	vault    *vault.Vault
	closed   bool
	sessions *cmap.Map[string, *Session]
	observer Observer
	log      logger.Logger
}

// NewDevice wraps v. The Device takes ownership and closes v on Shutdown.
func NewDevice(v *vault.Vault, opts ...DeviceOption) *Device {
	d := &Device{
		vault:    v,
		sessions: cmap.New[string, *Session](),
		observer: nopObserver{},
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Limits returns the capacities of the underlying vault.
func (d *Device) Limits() vault.Limits {
	return d.vault.Limits()
}

func (d *Device) observe(op string, start time.Time, err error) {
	d.observer.ObserveOp(op, Outcome(err), time.Since(start))
}

// session looks up id and reconciles its cursor. Caller holds d.mu.
func (d *Device) session(id string) (*Session, error) {
	if d.closed {
		return nil, domain.ErrDeviceClosed
	}
	s, ok := d.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound.WithDetails("session " + id)
	}
	if s.cursor != nil && s.cursor.Detached() {
		// The pair under the cursor was deleted through another session.
		s.cursor = d.vault.First(s.User)
	}
	return s, nil
}

// Open creates a session for user with the cursor on the user's first pair.
func (d *Device) Open(ctx context.Context, user int) (s *Session, err error) {
	start := time.Now()
	defer func() { d.observe(OpOpen, start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, domain.ErrDeviceClosed
	}
	if _, err := d.vault.KeyCount(user); err != nil {
		return nil, err
	}

	id, err := ulid.New(ulid.Timestamp(start), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return nil, domain.ErrAllocation.WithCause(err)
	}

	s = &Session{
		ID:       id.String(),
		User:     user,
		OpenedAt: start,
		cursor:   d.vault.First(user),
	}
	d.sessions.Set(s.ID, s)
	d.log.Debug("session opened", "session_id", s.ID, "user", user)
	return s, nil
}

// Close releases a session. Releasing an unknown session is not an error.
func (d *Device) Close(sessionID string) {
	start := time.Now()
	if _, ok := d.sessions.Pop(sessionID); ok {
		d.log.Debug("session released", "session_id", sessionID)
	}
	d.observe(OpRelease, start, nil)
}

// Read returns the pair at the cursor as "<key> <value>" and advances the
// cursor. It returns ErrEndOfVault when the sequence is exhausted.
func (d *Device) Read(sessionID string) (string, error) {
	return d.read(sessionID, vault.Forward)
}

// ReadReverse is Read moving the cursor backwards.
func (d *Device) ReadReverse(sessionID string) (string, error) {
	return d.read(sessionID, vault.Reverse)
}

func (d *Device) read(sessionID string, dir vault.Direction) (line string, err error) {
	op := OpRead
	if dir == vault.Reverse {
		op = OpRRead
	}
	start := time.Now()
	defer func() { d.observe(op, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.session(sessionID)
	if err != nil {
		return "", err
	}
	if s.cursor == nil {
		return "", domain.ErrEndOfVault
	}
	line = s.cursor.Pair().String()
	s.cursor = d.vault.Step(s.User, s.cursor, dir)
	return line, nil
}

// Write applies payload at the session's cursor and returns the number of
// bytes consumed.
//
// An empty payload deletes the pair under the cursor; the cursor moves to
// the following pair first. A non-empty payload must be "<key> <value>"; the
// pair is inserted and the cursor moved onto it.
func (d *Device) Write(sessionID, payload string) (n int, err error) {
	start := time.Now()
	defer func() { d.observe(OpWrite, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.session(sessionID)
	if err != nil {
		return 0, err
	}

	if payload == "" {
		if s.cursor == nil {
			return 0, domain.ErrEndOfVault
		}
		victim := s.cursor
		s.cursor = d.vault.Next(s.User, victim)
		if _, err := d.vault.Remove(s.User, victim); err != nil {
			return 0, err
		}
		return 0, nil
	}

	key, value, err := ParsePair(payload)
	if err != nil {
		return 0, err
	}
	if err := d.vault.Insert(s.User, key, value); err != nil {
		return 0, err
	}
	if node := d.vault.FindPair(s.User, key, value); node != nil {
		s.cursor = node
	}
	return len(payload), nil
}

// Seek moves the cursor to the first pair matching payload. A miss leaves
// the cursor where it was.
func (d *Device) Seek(sessionID, payload string) (found bool, err error) {
	start := time.Now()
	defer func() { d.observe(OpSeek, start, err) }()

	key, value, err := ParsePair(payload)
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.session(sessionID)
	if err != nil {
		return false, err
	}
	node := d.vault.FindPair(s.User, key, value)
	if node == nil {
		return false, nil
	}
	s.cursor = node
	return true, nil
}

// Rewind puts the cursor on the first (Forward) or last (Reverse) pair.
func (d *Device) Rewind(sessionID string, dir vault.Direction) (err error) {
	start := time.Now()
	defer func() { d.observe(OpRewind, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.session(sessionID)
	if err != nil {
		return err
	}
	s.cursor = d.vault.Start(s.User, dir)
	return nil
}

// Get returns the values stored under key for the session's user.
func (d *Device) Get(sessionID, key string) (values []string, err error) {
	start := time.Now()
	defer func() { d.observe(OpGet, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.session(sessionID)
	if err != nil {
		return nil, err
	}
	return d.vault.RetrieveValues(s.User, key), nil
}

// SessionStats reports the counters of the session's user.
func (d *Device) SessionStats(sessionID string) (UserStats, error) {
	d.mu.Lock()
	s, err := d.session(sessionID)
	d.mu.Unlock()
	if err != nil {
		return UserStats{}, err
	}
	return d.Stats(s.User)
}

// Stats reports the counters of user.
func (d *Device) Stats(user int) (UserStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return UserStats{}, domain.ErrDeviceClosed
	}
	return d.userStats(user)
}

func (d *Device) userStats(user int) (UserStats, error) {
	keys, err := d.vault.KeyCount(user)
	if err != nil {
		return UserStats{}, err
	}
	pairs, _ := d.vault.PairCount(user)
	remaining, _ := d.vault.RemainingCapacity(user)
	return UserStats{User: user, Keys: keys, Pairs: pairs, Remaining: remaining}, nil
}

// Totals reports vault-wide counters.
func (d *Device) Totals() (Totals, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Totals{}, domain.ErrDeviceClosed
	}
	return d.totals(), nil
}

func (d *Device) totals() Totals {
	return Totals{
		Users:    d.vault.Users(),
		Keys:     d.vault.TotalKeyCount(),
		Pairs:    d.vault.TotalPairCount(),
		Sessions: d.sessions.Count(),
	}
}

// Snapshot reads every user's counters under one lock acquisition.
func (d *Device) Snapshot() (Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Snapshot{}, domain.ErrDeviceClosed
	}
	snap := Snapshot{
		Totals: d.totals(),
		Users:  make([]UserStats, 0, d.vault.Users()),
	}
	for user := 1; user <= d.vault.Users(); user++ {
		st, _ := d.userStats(user)
		snap.Users = append(snap.Users, st)
	}
	return snap, nil
}

// Dump returns every non-empty user's pairs in the given direction.
func (d *Device) Dump(dir vault.Direction) (dump []vault.UserPairs, err error) {
	start := time.Now()
	defer func() { d.observe(OpDump, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, domain.ErrDeviceClosed
	}
	return d.vault.Dump(dir), nil
}

// DumpSession returns the pairs of the session's user in the given
// direction. The cursor does not move.
func (d *Device) DumpSession(sessionID string, dir vault.Direction) (pairs []vault.Pair, err error) {
	start := time.Now()
	defer func() { d.observe(OpDump, start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.session(sessionID)
	if err != nil {
		return nil, err
	}
	d.vault.Walk(s.User, dir, func(p vault.Pair) bool {
		pairs = append(pairs, p)
		return true
	})
	return pairs, nil
}

// Sessions returns the number of open sessions.
func (d *Device) Sessions() int {
	return d.sessions.Count()
}

// Shutdown drops every session and closes the vault. Later calls fail with
// ErrDeviceClosed. Shutdown is idempotent.
func (d *Device) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	dropped := d.sessions.Clear()
	d.vault.Close()
	d.log.Info("device shut down", "sessions_dropped", len(dropped))
}

// ParsePair splits a "<key> <value>" payload on its first space. Both parts
// must be non-empty.
func ParsePair(payload string) (key, value string, err error) {
	key, value, ok := strings.Cut(payload, " ")
	if !ok || key == "" || value == "" {
		return "", "", domain.ErrMalformedPair.WithDetails("want \"<key> <value>\"")
	}
	return key, value, nil
}
