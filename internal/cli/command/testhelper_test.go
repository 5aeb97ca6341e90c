package command

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/keyvault-go/internal/core/domain"
	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/core/vault"
	"github.com/yndnr/keyvault-go/internal/server/localserver"
	"github.com/yndnr/keyvault-go/internal/server/redisserver"
)

// testServer runs the RESP and admin socket servers over one device.
type testServer struct {
	device      *service.Device
	addr        string
	adminSocket string
	configPath  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	v, err := vault.New(3, vault.WithLimits(vault.Limits{KeySize: 16, ValueSize: 32, MaxKeys: 4}))
	require.NoError(t, err)
	dev := service.NewDevice(v)
	t.Cleanup(dev.Shutdown)

	hash, err := domain.HashSecret("s3cret")
	require.NoError(t, err)
	resolver, err := service.NewIdentityResolver(3, service.IdentityConfig{
		Principals: []service.Principal{
			{Name: "alice", User: 1, SecretHash: hash},
			{Name: "bob", User: 2},
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rs := redisserver.New(&redisserver.Config{}, dev, resolver)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	rs.Serve(ctx, ln)

	dir, err := os.MkdirTemp("", "kvcmd")
	require.NoError(t, err)
	admin := localserver.New(filepath.Join(dir, "admin.sock"), dev)
	require.NoError(t, admin.Start(ctx))

	t.Cleanup(func() {
		cancel()
		_ = rs.Shutdown(context.Background())
		_ = admin.Shutdown(context.Background())
		_ = os.RemoveAll(dir)
	})

	return &testServer{
		device:      dev,
		addr:        ln.Addr().String(),
		adminSocket: admin.Path(),
		configPath:  filepath.Join(t.TempDir(), "cli.yaml"),
	}
}

// run executes the CLI with connection flags pointing at the test server
// and returns stdout.
func (s *testServer) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)

	full := []string{"kvault-cli",
		"--config", s.configPath,
		"--addr", s.addr,
		"--admin-socket", s.adminSocket,
	}
	full = append(full, args...)
	err := app.RunContext(context.Background(), full)
	return out.String(), err
}
