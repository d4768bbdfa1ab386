package app

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jsonsig/internal/config"
	"jsonsig/internal/domain"
	"jsonsig/internal/infra/keys/grpcstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func newTestApp(t *testing.T, cfg config.Config) (*App, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	a, err := New(context.Background(), cfg, Options{LogOutput: &logs})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, &logs
}

func TestNewMemoryBackend(t *testing.T) {
	a, logs := newTestApp(t, config.Config{LogLevel: "debug"})

	assert.Equal(t, config.KeyStoreMemory, a.Backend.Name)
	assert.Nil(t, a.Limiter)
	assert.Contains(t, logs.String(), "key store opened")

	key, err := a.Engine.GenerateKeyPair(context.Background(), "")
	require.NoError(t, err)
	obj, err := a.Engine.Sign(context.Background(), key.ID, map[string]int{"n": 1})
	require.NoError(t, err)
	assert.True(t, a.Engine.Verify(context.Background(), *obj, key.ID).OK())
}

func TestNewRedisSharesLimiterConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	a, _ := newTestApp(t, config.Config{
		KeyStoreBackend:        config.KeyStoreRedis,
		RedisAddr:              mr.Addr(),
		RateLimitRequests:      1,
		RateLimitWindowSeconds: 60,
	})
	require.NotNil(t, a.Backend.Redis)
	require.NotNil(t, a.Limiter)

	ctx := context.Background()
	decision, err := a.Limiter.Allow(ctx, "client", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	decision, err = a.Limiter.Allow(ctx, "client", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestNewMemoryLimiter(t *testing.T) {
	a, _ := newTestApp(t, config.Config{RateLimitRequests: 5, RateLimitWindowSeconds: 60})
	require.NotNil(t, a.Limiter)
}

func TestNewLoadsSigningPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.rego")
	policy := `package jsonsig.policy

import rego.v1

default allow := false

deny contains {"code": "ALGORITHM_NOT_ALLOWED", "message": "only EdDSA"} if input.algorithm != "EdDSA"

allow if count(deny) == 0

result := {"allow": allow, "deny": deny}
`
	require.NoError(t, os.WriteFile(path, []byte(policy), 0o600))

	a, _ := newTestApp(t, config.Config{SigningPolicyPath: path})
	ctx := context.Background()

	_, err := a.Engine.GenerateKeyPair(ctx, domain.AlgES256)
	require.ErrorIs(t, err, domain.ErrPolicyDenied)
	_, err = a.Engine.GenerateKeyPair(ctx, domain.AlgEdDSA)
	require.NoError(t, err)
}

func TestNewFailsOnMissingPolicy(t *testing.T) {
	_, err := New(context.Background(), config.Config{
		SigningPolicyPath: filepath.Join(t.TempDir(), "missing.rego"),
	}, Options{LogOutput: &bytes.Buffer{}})
	require.Error(t, err)
}

func TestNewRejectsUnknownAlgorithm(t *testing.T) {
	_, err := New(context.Background(), config.Config{DefaultAlgorithm: "HS256"}, Options{LogOutput: &bytes.Buffer{}})
	require.ErrorIs(t, err, domain.ErrUnsupportedAlgorithm)
}

func TestServeKeyStoreRequiresAdminKey(t *testing.T) {
	a, _ := newTestApp(t, config.Config{})
	err := a.ServeKeyStore(context.Background(), "127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_API_KEY")
}

func TestServeKeyStore(t *testing.T) {
	a, _ := newTestApp(t, config.Config{AdminAPIKey: "admin-secret"})
	opts, err := a.keyStoreServerOptions()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())

	lis := bufconn.Listen(1024 * 1024)
	done := make(chan error, 1)
	go func() { done <- a.serveKeyStore(ctx, lis, opts...) }()

	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	remote := grpcstore.NewClient(cc)
	defer remote.Close()

	key, err := a.Engine.GenerateKeyPair(context.Background(), domain.AlgES256)
	require.NoError(t, err)

	_, _, err = remote.Get(context.Background(), key.ID)
	require.ErrorIs(t, err, grpcstore.ErrUnauthenticated)

	remote.AdminKey = "admin-secret"
	pair, ok, err := remote.Get(context.Background(), key.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.AlgES256, pair.Algorithm)
	assert.True(t, pair.HasPrivate())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "key store server did not stop")
	}
}
