package grpcstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ErrUnauthenticated is returned when the server rejects the admin key.
var ErrUnauthenticated = errors.New("key store rejected admin key")

// Client implements domain.KeyStore against a remote key store service.
type Client struct {
	cc     *grpc.ClientConn
	client KeyStoreClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
	// AdminKey is sent as x-admin-key metadata on every call.
	AdminKey string
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
	// AdminKey authenticates the client to the key store server.
	AdminKey string
	// CAFile enables TLS, trusting the PEM certificates it holds. The
	// connection is plaintext when empty.
	CAFile string
}

func Dial(target string, opts DialOptions) (*Client, error) {
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	creds := insecure.NewCredentials()
	if opts.CAFile != "" {
		tlsCreds, err := credentials.NewClientTLSFromFile(opts.CAFile, "")
		if err != nil {
			return nil, fmt.Errorf("load key store CA: %w", err)
		}
		creds = tlsCreds
	}
	cc, err := grpc.DialContext(ctx, target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, err
	}
	client := NewClient(cc)
	client.AdminKey = opts.AdminKey
	return client, nil
}

// NewClient wraps an established connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewKeyStoreClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Get(ctx context.Context, id string) (*domain.KeyPair, bool, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(id))
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound:
			return nil, false, nil
		case codes.Unauthenticated:
			return nil, false, fmt.Errorf("remote get: %w", ErrUnauthenticated)
		}
		return nil, false, fmt.Errorf("remote get: %w", err)
	}
	pair, err := crypto.UnmarshalKeyPair(reply.GetValue())
	if err != nil {
		return nil, false, fmt.Errorf("decode key record %q: %w", id, err)
	}
	return &pair, true, nil
}

func (c *Client) Set(ctx context.Context, id string, pair domain.KeyPair) error {
	record, err := crypto.MarshalKeyPair(pair)
	if err != nil {
		return err
	}
	body, err := json.Marshal(setRequest{ID: id, Record: record})
	if err != nil {
		return err
	}

	ctx, cancel := c.ctx(ctx)
	defer cancel()
	if _, err := c.client.Set(ctx, wrapperspb.Bytes(body)); err != nil {
		switch status.Code(err) {
		case codes.InvalidArgument:
			return fmt.Errorf("%w: %s", domain.ErrInvalidKey, status.Convert(err).Message())
		case codes.Unauthenticated:
			return fmt.Errorf("remote set: %w", ErrUnauthenticated)
		}
		return fmt.Errorf("remote set: %w", err)
	}
	return nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.AdminKey != "" {
		parent = metadata.AppendToOutgoingContext(parent, AdminKeyHeader, c.AdminKey)
	}
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}

var _ domain.KeyStore = (*Client)(nil)
