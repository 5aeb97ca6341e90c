package connection

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/keyvault-go/internal/core/domain"
	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/core/vault"
	"github.com/yndnr/keyvault-go/internal/server/redisserver"
)

// newPipeClient serves one in-memory connection with a fresh vault of three
// users and returns a client for it.
func newPipeClient(t *testing.T) *VaultClient {
	t.Helper()
	v, err := vault.New(3, vault.WithLimits(vault.Limits{KeySize: 8, ValueSize: 8, MaxKeys: 2}))
	require.NoError(t, err)
	dev := service.NewDevice(v)
	t.Cleanup(dev.Shutdown)

	hash, err := domain.HashSecret("pw")
	require.NoError(t, err)
	resolver, err := service.NewIdentityResolver(3, service.IdentityConfig{
		Principals: []service.Principal{{Name: "alice", User: 1, SecretHash: hash}},
	})
	require.NoError(t, err)

	srv := redisserver.New(&redisserver.Config{}, dev, resolver)
	srvConn, cliConn := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(context.Background(), srvConn)
	}()
	c := NewVaultClient(cliConn)
	t.Cleanup(func() {
		_ = c.Close()
		<-done
	})
	return c
}

func replyCode(t *testing.T, err error) string {
	t.Helper()
	var re *redisserver.ReplyError
	require.ErrorAs(t, err, &re)
	return re.Code()
}

func TestVaultClient_Auth(t *testing.T) {
	ctx := t.Context()
	c := newPipeClient(t)

	require.NoError(t, c.Ping(ctx))

	_, err := c.Stats(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOAUTH")

	assert.Equal(t, "KV-AUTH-4010", replyCode(t, c.Auth(ctx, "alice", "wrong")))
	require.NoError(t, c.Auth(ctx, "alice", "pw"))

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.UserStats{User: 1, Keys: 0, Pairs: 0, Remaining: 2}, st)
}

func TestVaultClient_ReadWrite(t *testing.T) {
	ctx := t.Context()
	c := newPipeClient(t)
	require.NoError(t, c.Auth(ctx, "alice", "pw"))

	n, err := c.Write(ctx, "a", "1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = c.Write(ctx, "a", "2")
	require.NoError(t, err)
	_, err = c.Write(ctx, "b", "3")
	require.NoError(t, err)

	assert.Equal(t, "KV-VALT-4290", replyCode(t, func() error { _, err := c.Write(ctx, "c", "4"); return err }()))

	values, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, values)

	values, err = c.Get(ctx, "zz")
	require.NoError(t, err)
	assert.Empty(t, values)

	require.NoError(t, c.Rewind(ctx, vault.Forward))
	var got []vault.Pair
	for {
		p, ok, err := c.Read(ctx, vault.Forward)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, p)
	}
	assert.Equal(t, []vault.Pair{{Key: "a", Value: "1"}, {Key: "a", Value: "2"}, {Key: "b", Value: "3"}}, got)

	dump, err := c.Dump(ctx, vault.Reverse)
	require.NoError(t, err)
	assert.Equal(t, []vault.Pair{{Key: "b", Value: "3"}, {Key: "a", Value: "2"}, {Key: "a", Value: "1"}}, dump)
}

func TestVaultClient_SeekDelete(t *testing.T) {
	ctx := t.Context()
	c := newPipeClient(t)
	require.NoError(t, c.Auth(ctx, "alice", "pw"))

	for _, p := range []vault.Pair{{Key: "a", Value: "1"}, {Key: "a", Value: "2"}} {
		_, err := c.Write(ctx, p.Key, p.Value)
		require.NoError(t, err)
	}

	found, err := c.Seek(ctx, "a", "9")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = c.Seek(ctx, "a", "2")
	require.NoError(t, err)
	require.True(t, found)

	_, err = c.Delete(ctx)
	require.NoError(t, err)

	values, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, values)
}

func TestDialVault_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = DialVault(t.Context(), "tcp", addr)
	require.Error(t, err)
}
