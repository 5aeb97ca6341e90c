package localserver

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/keyvault-go/internal/core/domain"
	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/core/vault"
	"github.com/yndnr/keyvault-go/internal/infra/buildinfo"
)

// Admin is the device surface exposed over the local socket.
// *service.Device satisfies it.
type Admin interface {
	Stats(user int) (service.UserStats, error)
	Totals() (service.Totals, error)
	Dump(dir vault.Direction) ([]vault.UserPairs, error)
	Sessions() int
}

// Status is the reply to the status command.
type Status struct {
	buildinfo.Info
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
}

// Handler handles local management commands.
type Handler struct {
	admin   Admin
	started time.Time
	now     func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(admin Admin) *Handler {
	return &Handler{admin: admin, started: time.Now(), now: time.Now}
}

// Execute executes a local management command and writes one reply line.
func (h *Handler) Execute(w io.Writer, cmd string, args []string) error {
	var (
		reply any
		err   error
	)
	switch strings.ToLower(cmd) {
	case "status":
		reply = h.status()
	case "stats":
		reply, err = h.stats(args)
	case "totals":
		reply, err = h.admin.Totals()
	case "dump":
		reply, err = h.dump(args)
	default:
		err = domain.ErrInvalidArgument.WithDetails("unknown command: " + cmd)
	}
	if err != nil {
		return writeError(w, err)
	}
	return writeJSON(w, reply)
}

func (h *Handler) status() Status {
	return Status{
		Info:     buildinfo.Get(),
		Uptime:   h.now().Sub(h.started).Round(time.Second).String(),
		Sessions: h.admin.Sessions(),
	}
}

func (h *Handler) stats(args []string) (service.UserStats, error) {
	if len(args) != 1 {
		return service.UserStats{}, domain.ErrMissingArgument.WithDetails("usage: stats <user>")
	}
	user, err := strconv.Atoi(args[0])
	if err != nil {
		return service.UserStats{}, domain.ErrInvalidUser.WithDetails(args[0])
	}
	return h.admin.Stats(user)
}

func (h *Handler) dump(args []string) ([]vault.UserPairs, error) {
	dir := vault.Forward
	if len(args) > 0 {
		dir = vault.ParseDirection(args[0])
	}
	dump, err := h.admin.Dump(dir)
	if err != nil {
		return nil, err
	}
	if dump == nil {
		dump = []vault.UserPairs{}
	}
	return dump, nil
}

func writeJSON(w io.Writer, v any) error {
	// Encode terminates the document with a newline.
	return json.NewEncoder(w).Encode(v)
}

func writeError(w io.Writer, err error) error {
	var de *domain.DomainError
	line := "ERR " + err.Error()
	if errors.As(err, &de) {
		line = "ERR " + de.Code + " " + de.Message
		if de.Details != "" {
			line += ": " + de.Details
		}
	}
	_, werr := io.WriteString(w, strings.ReplaceAll(line, "\n", " ")+"\n")
	return werr
}
