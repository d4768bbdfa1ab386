package grpcstore

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"
	"jsonsig/internal/infra/keys/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testAdminKey = "s3cret"

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*domain.KeyPair, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingStore) Set(context.Context, string, domain.KeyPair) error {
	return errors.New("disk on fire")
}

func newBufconnClient(t *testing.T, store domain.KeyStore, serverKey, clientKey string) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(grpc.UnaryInterceptor(RequireAdminKey(serverKey)))
	RegisterKeyStoreServer(srv, &Server{Store: store})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	client := NewClient(cc)
	client.Timeout = 2 * time.Second
	client.AdminKey = clientKey
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPCStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	client := newBufconnClient(t, backend, testAdminKey, testAdminKey)

	pair, err := crypto.GenerateKeyPair(domain.AlgEdDSA)
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, "kid-1", pair))
	assert.Equal(t, 1, backend.Len())

	got, ok, err := client.Get(ctx, "kid-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.HasPrivate())
	assert.Equal(t, domain.AlgEdDSA, got.Algorithm)
}

func TestGRPCStore_MissingKey(t *testing.T) {
	client := newBufconnClient(t, memory.NewStore(), testAdminKey, testAdminKey)
	pair, ok, err := client.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, pair)
}

func TestGRPCStore_BackendErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	client := newBufconnClient(t, failingStore{}, testAdminKey, testAdminKey)

	_, _, err := client.Get(ctx, "k")
	assert.Error(t, err)
	pair, err := crypto.GenerateKeyPair(domain.AlgES256)
	require.NoError(t, err)
	assert.Error(t, client.Set(ctx, "k", pair))
}

func TestGRPCStore_RejectsWrongAdminKey(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	pair, err := crypto.GenerateKeyPair(domain.AlgES256)
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, "victim", pair))

	for name, clientKey := range map[string]string{"missing": "", "wrong": "guess"} {
		t.Run(name, func(t *testing.T) {
			client := newBufconnClient(t, backend, testAdminKey, clientKey)

			got, ok, err := client.Get(ctx, "victim")
			require.ErrorIs(t, err, ErrUnauthenticated)
			assert.False(t, ok)
			assert.Nil(t, got)

			other, err := crypto.GenerateKeyPair(domain.AlgES256)
			require.NoError(t, err)
			require.ErrorIs(t, client.Set(ctx, "victim", other), ErrUnauthenticated)
		})
	}

	stored, ok, err := backend.Get(ctx, "victim")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.PrivateKey != nil && stored.Algorithm == domain.AlgES256)
}

func TestGRPCStore_EmptyServerKeyRejectsEverything(t *testing.T) {
	client := newBufconnClient(t, memory.NewStore(), "", "")
	_, _, err := client.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequireAdminKey(t *testing.T) {
	interceptor := RequireAdminKey(testAdminKey)
	handler := func(context.Context, interface{}) (interface{}, error) { return "ok", nil }

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(AdminKeyHeader, testAdminKey))
	reply, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{}, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)

	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGRPCStore_ServerRejectsMalformedSet(t *testing.T) {
	srv := &Server{Store: memory.NewStore()}
	_, err := srv.Set(context.Background(), nil)
	assert.Error(t, err)
}
