// Package app wires configuration, logging, the key store and the signature
// engine into the long-running servers used by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"jsonsig/internal/config"
	"jsonsig/internal/domain"
	httpinfra "jsonsig/internal/infra/http"
	"jsonsig/internal/infra/keys"
	"jsonsig/internal/infra/keys/grpcstore"
	"jsonsig/internal/infra/policyopa"
	"jsonsig/internal/infra/ratelimit"
	"jsonsig/internal/logging"
	"jsonsig/internal/usecase"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

type App struct {
	Config  config.Config
	Logger  zerolog.Logger
	Backend *keys.Backend
	Engine  *usecase.Engine
	Limiter domain.RateLimiter

	logCloser io.Closer
}

// Options override the defaults New derives from the configuration.
type Options struct {
	LogOutput io.Writer
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	output := opts.LogOutput
	if output == nil {
		output = os.Stderr
	}
	logger, logCloser, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Output: output,
	})
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, logCloser: logCloser}

	a.Backend, err = keys.Open(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	logger.Info().Str("backend", a.Backend.Name).Msg("key store opened")

	engineOpts := []usecase.Option{
		usecase.WithLogger(logger),
		usecase.WithDefaultAlgorithm(domain.Algorithm(cfg.DefaultAlgorithm)),
	}
	if len(cfg.UnpinnedAlgorithms) > 0 {
		algs := make([]domain.Algorithm, 0, len(cfg.UnpinnedAlgorithms))
		for _, alg := range cfg.UnpinnedAlgorithms {
			algs = append(algs, domain.Algorithm(strings.TrimSpace(alg)))
		}
		engineOpts = append(engineOpts, usecase.WithUnpinnedAlgorithms(algs...))
	}
	if cfg.SigningPolicyPath != "" {
		policy, err := policyopa.NewEngineFromPath(ctx, cfg.SigningPolicyPath)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("load signing policy: %w", err)
		}
		engineOpts = append(engineOpts, usecase.WithPolicy(policy))
		logger.Info().Str("path", cfg.SigningPolicyPath).Msg("signing policy loaded")
	}
	a.Engine, err = usecase.NewEngine(a.Backend.Store, engineOpts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.RateLimitRequests > 0 {
		a.Limiter, err = newLimiter(cfg, a.Backend)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

// newLimiter shares the key store's Redis connection when there is one, so
// that limits hold across replicas.
func newLimiter(cfg config.Config, backend *keys.Backend) (domain.RateLimiter, error) {
	if backend.Redis != nil {
		return ratelimit.NewRedisLimiter(backend.Redis, ratelimit.DefaultRedisPrefix, nil)
	}
	return ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys}), nil
}

func (a *App) Close() error {
	var errs []error
	if a.Backend != nil {
		errs = append(errs, a.Backend.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}

// Serve runs the HTTP API, plus the gRPC key store when GRPC_ADDR is set,
// until ctx is cancelled or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	server, err := httpinfra.NewServer(a.Config, httpinfra.ServerDeps{
		Engine:       a.Engine,
		Logger:       a.Logger,
		KeyStoreName: a.Backend.Name,
		RateLimiter:  a.Limiter,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	if a.Config.GRPCAddr != "" {
		g.Go(func() error {
			return a.ServeKeyStore(ctx, a.Config.GRPCAddr)
		})
	}
	return g.Wait()
}

// ServeKeyStore exposes the configured key store over gRPC on addr. Every
// call must present ADMIN_API_KEY, and TLS is used when a certificate pair
// is configured.
func (a *App) ServeKeyStore(ctx context.Context, addr string) error {
	opts, err := a.keyStoreServerOptions()
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return a.serveKeyStore(ctx, lis, opts...)
}

func (a *App) keyStoreServerOptions() ([]grpc.ServerOption, error) {
	if a.Config.AdminAPIKey == "" {
		return nil, errors.New("ADMIN_API_KEY is required to serve the key store")
	}
	opts := []grpc.ServerOption{grpc.UnaryInterceptor(grpcstore.RequireAdminKey(a.Config.AdminAPIKey))}
	if a.Config.GRPCTLSCertFile != "" {
		creds, err := credentials.NewServerTLSFromFile(a.Config.GRPCTLSCertFile, a.Config.GRPCTLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load key store TLS: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		a.Logger.Warn().Msg("grpc key store serving without TLS")
	}
	return opts, nil
}

func (a *App) serveKeyStore(ctx context.Context, lis net.Listener, opts ...grpc.ServerOption) error {
	srv := grpc.NewServer(opts...)
	grpcstore.RegisterKeyStoreServer(srv, &grpcstore.Server{Store: a.Backend.Store})

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			srv.GracefulStop()
		case <-stopped:
		}
	}()
	defer close(stopped)

	a.Logger.Info().Str("addr", lis.Addr().String()).Msg("grpc key store listening")
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
