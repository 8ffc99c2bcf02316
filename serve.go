package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	mathrand "math/rand/v2"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"loan-portal/config"
	"loan-portal/domain"
	httpLayer "loan-portal/http"
	"loan-portal/observability"
	"loan-portal/repository"
	"loan-portal/service"
)

const demoPassword = "password"

// app is the wired portal: services, the router and everything that must
// be released on shutdown.
type app struct {
	handler http.Handler
	limiter *httpLayer.RateLimiter
	closers []io.Closer
}

func (a *app) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("cache", "memory", "cache driver (memory, redis, sqlite)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("cache.driver", cmd.Flags().Lookup("cache"))
	return cmd
}

func newCache(ctx context.Context, c config.CacheConfig, logger *slog.Logger) (repository.CacheRepository, io.Closer, error) {
	switch c.Driver {
	case "redis":
		cache := repository.NewRedisCache(c.RedisAddr, c.RedisPassword, c.RedisDB, c.KeyPrefix, logger)
		if err := cache.Ping(ctx); err != nil {
			_ = cache.Close()
			return nil, nil, err
		}
		return cache, cache, nil
	case "sqlite":
		cache, err := repository.NewSQLiteCache(c.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return cache, cache, nil
	default:
		return repository.NewMemoryCache(), nil, nil
	}
}

// resolveSeed keeps a configured seed and otherwise derives one from the
// clock, so unseeded runs differ.
func resolveSeed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return uint64(time.Now().UnixNano())
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	cache, closer, err := newCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	a := &app{}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	seed := resolveSeed(cfg.Mock.Seed)
	latency := service.NewLatency(cfg.Mock.LatencyMin, cfg.Mock.LatencyMax,
		mathrand.New(mathrand.NewPCG(seed, seed>>1)))

	secret := cfg.Auth.Secret
	if secret == "" {
		if secret, err = randomSecret(); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		logger.Warn("auth.secret not set; sessions will not survive a restart")
	}
	tokens, err := service.NewTokenService(secret, cfg.Auth.Issuer, cfg.Auth.Expiration)
	if err != nil {
		return nil, err
	}

	policy, err := service.PolicyByName(cfg.Lending.EligibilityPolicy)
	if err != nil {
		return nil, err
	}

	store := repository.NewMemoryStore()
	loans := service.NewLoanService(cache, latency, logger)
	eligibility := service.NewEligibilityService(policy, latency, logger)
	offers := service.NewOfferService(decimal.NewFromFloat(cfg.Lending.BaseRate), latency)
	scores := service.NewCreditScoreService(service.NewSeededScoreSimulator(seed), cache, latency, logger)
	auth := service.NewAuthService(store, cache, tokens, latency, logger)
	applications := service.NewApplicationService(store, eligibility, offers, scores, latency, logger)

	if cfg.Auth.SeedDemoUser {
		demo, err := auth.SeedUser(ctx, domain.User{
			Name:        "John Doe",
			Email:       "user@example.com",
			Phone:       "(555) 123-4567",
			Address:     "123 Main St, Anytown, CA 12345",
			CreditScore: service.DefaultCreditScore,
			KYCStatus:   "Verified",
		}, demoPassword)
		if err != nil {
			return nil, fmt.Errorf("seed demo user: %w", err)
		}
		logger.Info("demo user available", "email", demo.Email)
	}

	a.limiter = httpLayer.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
	a.handler = httpLayer.NewRouter(httpLayer.Services{
		Auth:         auth,
		Loans:        loans,
		Eligibility:  eligibility,
		Offers:       offers,
		Applications: applications,
	}, a.limiter, observability.NewMetrics(), logger)
	return a, nil
}

func serve(ctx context.Context) error {
	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("loan portal listening", "addr", cfg.Server.Addr, "cache", cfg.Cache.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}
