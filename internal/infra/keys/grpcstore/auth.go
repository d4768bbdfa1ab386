package grpcstore

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AdminKeyHeader carries the shared admin key on every key store call.
const AdminKeyHeader = "x-admin-key"

// RequireAdminKey rejects calls whose x-admin-key metadata does not match
// adminKey. An empty adminKey rejects every call.
func RequireAdminKey(adminKey string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !adminKeyMatches(ctx, adminKey) {
			return nil, status.Error(codes.Unauthenticated, "admin key required")
		}
		return handler(ctx, req)
	}
}

func adminKeyMatches(ctx context.Context, adminKey string) bool {
	if adminKey == "" {
		return false
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return false
	}
	for _, value := range md.Get(AdminKeyHeader) {
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(value)), []byte(adminKey)) == 1 {
			return true
		}
	}
	return false
}
