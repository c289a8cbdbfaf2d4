package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"identity/internal/artifact"
	"identity/internal/config"
	"identity/internal/jwtsigner"
	"identity/internal/limiter"
	"identity/internal/mail"
	"identity/internal/observability/logging"
	"identity/internal/observability/metrics"
	"identity/internal/service"
	impl "identity/internal/service/impl"
	"identity/internal/store"
	httpx "identity/internal/transport/http"
	"identity/pkg/db"
)

const serviceName = "identity"

func main() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: serviceName,
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	logger.Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 1) DB
	gdb, err := db.Open(db.Config{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		return err
	}
	st := store.New(gdb)
	if err := st.AutoMigrate(ctx); err != nil {
		return err
	}

	metrics.MustRegister(prometheus.DefaultRegisterer, serviceName)

	// 2) Collaborators
	signer, err := jwtsigner.New(cfg.SigningAlg, cfg.SigningKey, cfg.Ed25519KeyB64, cfg.SigningKeyID, cfg.Issuer)
	if err != nil {
		return err
	}

	var storage artifact.Storage = artifact.NewFileStorage(cfg.ArtifactDir)
	if cfg.ArtifactBackend == "s3" {
		storage, err = artifact.NewS3Storage(ctx, artifact.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
		if err != nil {
			return err
		}
	}

	var mailer service.EmailSender = mail.Disabled{}
	if cfg.SMTPAddr != "" {
		mailer = mail.NewSMTPSender(mail.Config{
			Addr:     cfg.SMTPAddr,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		logger.Warn("SMTP_ADDR not set; email codes will not be delivered")
	}

	var attempts service.AttemptLimiter
	if cfg.RedisURL != "" {
		client, err := limiter.Open(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		attempts = limiter.NewRedisLimiter(client, cfg.VerifyMaxAttempts, cfg.VerifyCooldown)
	}

	// 3) Services
	pw := impl.NewPasswordServiceArgon2id()
	ts := impl.NewTokenService(impl.TokenConfig{
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		RevokeOnReuse: cfg.RevokeOnReuse,
	}, st, signer)
	authn := impl.NewAuthenticatorService(impl.AuthenticatorConfig{
		OtpIssuer:    cfg.OtpIssuer,
		EmailCodeTTL: cfg.EmailCodeTTL,
	}, st, artifact.NewQRRenderer(storage), mailer, attempts)
	claims := impl.NewClaimsService(st)
	as := impl.NewAuthServiceImpl(st, pw, ts, authn)

	// 4) HTTP
	router := httpx.NewRouter(httpx.Deps{
		Auth:           as,
		Authenticators: authn,
		Tokens:         ts,
		Claims:         claims,
		Signer:         signer,
		Logger:         logger,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimit:      100,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("identity service listening", "addr", srv.Addr, "issuer", cfg.Issuer, "alg", signer.Alg())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server exited properly")
	return nil
}
