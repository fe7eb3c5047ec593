// Copyright 2026 The Opendesk Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opendesk/opendesk/internal/audit"
	"github.com/opendesk/opendesk/internal/config"
	"github.com/opendesk/opendesk/internal/identity"
	"github.com/opendesk/opendesk/internal/observability/logger"
	"github.com/opendesk/opendesk/internal/observability/metrics"
	"github.com/opendesk/opendesk/internal/observability/tracing"
	"github.com/opendesk/opendesk/internal/ratelimit"
	"github.com/opendesk/opendesk/internal/store/postgres"
	"github.com/opendesk/opendesk/internal/ticket"
	"github.com/opendesk/opendesk/internal/token"
	transport "github.com/opendesk/opendesk/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to shut down tracer", logger.Error(err))
		}
	}()

	meter, err := metrics.New(ctx, metrics.Config{Enabled: cfg.Observability.OTELEnabled}, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("migrations applied")
		return nil
	}

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to build token issuer: %w", err)
	}

	hasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	auditLogger := audit.NewSlogLogger()

	users := postgres.NewUserRepository(db)
	roles := postgres.NewRoleRepository(db)
	departments := postgres.NewDepartmentRepository(db)
	tickets := postgres.NewTicketRepository(db)

	identityService := identity.NewService(users, roles, departments, hasher, auditLogger)
	ticketService := ticket.NewService(tickets, auditLogger)

	if err := identityService.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap initial admin: %w", err)
	}

	loginLimiter, uploadLimiter := buildLimiters(cfg)

	handler := transport.NewHandler(transport.HandlerConfig{
		Identity: identityService,
		Tickets:  ticketService,
		Issuer:   issuer,
		Meter:    meter,
		Audit:    auditLogger,
		Cookies: transport.CookieConfig{
			Domain:     cfg.Auth.CookieDomain,
			Secure:     cfg.Auth.CookieSecure,
			AccessTTL:  cfg.Auth.AccessTTL,
			RefreshTTL: cfg.Auth.RefreshTTL,
		},
		LoginLimiter:  loginLimiter,
		UploadLimiter: uploadLimiter,
	})

	router := transport.NewRouter(handler, transport.RouterConfig{
		APILimit:  cfg.RateLimit.APILimit,
		APIWindow: cfg.RateLimit.APIWindow,
		Tracing:   cfg.Observability.OTELEnabled,
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildLimiters picks the limiter backend. With a Redis address configured
// the login and upload windows are shared across instances; otherwise each
// instance counts on its own.
func buildLimiters(cfg *config.Config) (login, upload ratelimit.Limiter) {
	if cfg.RateLimit.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		login = ratelimit.NewRedis(client, "login", cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow)
		upload = ratelimit.NewRedis(client, "upload", cfg.RateLimit.UploadLimit, cfg.RateLimit.UploadWindow)
		return login, upload
	}
	login = ratelimit.NewMemory(cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow)
	upload = ratelimit.NewMemory(cfg.RateLimit.UploadLimit, cfg.RateLimit.UploadWindow)
	return login, upload
}
