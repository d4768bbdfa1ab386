package grpcstore

import (
	"context"
	"encoding/json"
	"errors"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// setRequest is the payload of a Set call.
type setRequest struct {
	ID     string          `json:"id"`
	Record json.RawMessage `json:"record"`
}

// Server exposes a domain.KeyStore over the key store gRPC service.
type Server struct {
	UnimplementedKeyStoreServer
	Store domain.KeyStore
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing key store")
	}
	id := in.GetValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "kid is required")
	}
	pair, ok, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if !ok {
		return nil, status.Error(codes.NotFound, domain.ErrKeyNotFound.Error())
	}
	record, err := crypto.MarshalKeyPair(*pair)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(record), nil
}

func (s *Server) Set(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing key store")
	}
	var req setRequest
	if err := json.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed set request")
	}
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "kid is required")
	}
	pair, err := crypto.UnmarshalKeyPair(req.Record)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.Store.Set(ctx, req.ID, pair); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidKey):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
