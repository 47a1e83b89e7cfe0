package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-persistence-bun"
	users "github.com/goliatone/go-users"
	"github.com/goliatone/go-users/middleware/jwtware"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newZapLogger(cfg.IsProduction(), "usersd")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("usersd exited with error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, logger *zapLogger) error {
	repo, err := setupPersistence(ctx, cfg)
	if err != nil {
		return err
	}

	notifier, wait := setupNotifier(cfg, logger)
	defer wait()

	service := users.NewAccountService(repo, cfg).
		WithLogger(logger).
		WithNotifier(notifier)

	controller := users.NewAccountController(
		users.WithControllerService(service),
		users.WithControllerLogger(logger),
		users.WithControllerDebug(cfg.Debug),
		users.WithControllerContextKey(cfg.GetContextKey()),
	)

	app := fiber.New(fiber.Config{
		AppName:      "usersd",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	controller.RegisterPublicRoutes(app)

	app.Use("/users", jwtware.New(jwtware.Config{
		ContextKey:     cfg.GetContextKey(),
		TokenLookup:    cfg.GetTokenLookup(),
		AuthScheme:     cfg.GetAuthScheme(),
		SigningKey:     jwtware.SigningKey{JWTAlg: cfg.GetSigningMethod(), Key: []byte(cfg.GetSigningKey())},
		TokenValidator: tokenValidatorAdapter{service.TokenService()},
	}))
	controller.RegisterProtectedRoutes(app)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("usersd listening on %s", cfg.ServerAddr)
		errCh <- app.Listen(cfg.ServerAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

func setupPersistence(ctx context.Context, cfg *Config) (users.RepositoryManager, error) {
	db, err := sql.Open(sqliteshim.ShimName, cfg.Persistence.DSN)
	if err != nil {
		return nil, err
	}

	persistence.RegisterModel((*users.Account)(nil))

	client, err := persistence.New(cfg.GetPersistence(), db, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	migrationsFS, err := fs.Sub(users.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return users.NewRepositoryManager(client.DB()), nil
}

// setupNotifier wires SMTP delivery when a host is configured; the returned
// func blocks until in-flight deliveries finish.
func setupNotifier(cfg *Config, logger *zapLogger) (users.Notifier, func()) {
	if cfg.SMTP.Host == "" {
		logger.Warn("SMTP_HOST not set, transactional email is disabled")
		return nil, func() {}
	}

	sender := users.NewSMTPSender(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)

	mailer, err := users.NewMailer(sender, users.WithMailerLogger(logger))
	if err != nil {
		logger.Error("failed to initialize mailer, transactional email is disabled: %v", err)
		return nil, func() {}
	}

	async := users.NewAsyncNotifier(mailer, users.WithAsyncNotifierLogger(logger))
	return async, async.Wait
}

// tokenValidatorAdapter bridges the users token service to the middleware's
// import-cycle-free interface.
type tokenValidatorAdapter struct {
	service users.TokenService
}

func (a tokenValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := a.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
