package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/food-checkout/internal/domain/auth"
	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/handler"
	"github.com/xenking/food-checkout/internal/storage/postgres"
)

type options struct {
	databaseURL  string
	apiKey       string
	apiKeyPepper string
	jwtSecret    string
	devUser      string
	devTokenTTL  time.Duration
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.apiKey, "api-key", "", "payment-intent API key to seed (or FOODCART_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or FOODCART_API_KEY_PEPPER env)")
	flag.StringVar(&opts.jwtSecret, "jwt-secret", "", "print a bearer token signed with this secret (or FOODCART_AUTH_JWT_SECRET env)")
	flag.StringVar(&opts.devUser, "dev-user", "dev-user", "subject of the printed bearer token")
	flag.DurationVar(&opts.devTokenTTL, "dev-token-ttl", 24*time.Hour, "lifetime of the printed bearer token")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("FOODCART_SEED_API_KEY")
	}
	if opts.apiKey == "" {
		slog.Error("API key is required: set --api-key or FOODCART_SEED_API_KEY")
		os.Exit(1)
	}
	if opts.apiKeyPepper == "" {
		opts.apiKeyPepper = os.Getenv("FOODCART_API_KEY_PEPPER")
	}
	if opts.jwtSecret == "" {
		opts.jwtSecret = os.Getenv("FOODCART_AUTH_JWT_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedDiscounts(ctx, postgres.NewDiscountRepository(pool)); err != nil {
		return errors.Wrap(err, "seed discounts")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), opts.apiKey, opts.apiKeyPepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	if opts.jwtSecret != "" {
		tok, err := handler.SignToken([]byte(opts.jwtSecret), opts.devUser, opts.devTokenTTL)
		if err != nil {
			return errors.Wrap(err, "sign dev token")
		}
		slog.Info("issued dev bearer token", slog.String("user", opts.devUser), slog.Duration("ttl", opts.devTokenTTL))
		fmt.Println(tok)
	}

	return nil
}

func seedDiscounts(ctx context.Context, repo *postgres.DiscountRepository) error {
	slog.Info("seeding discount codes", slog.Int("count", len(discount.DefaultCodes)))

	for _, c := range discount.DefaultCodes {
		if err := repo.Upsert(ctx, c); err != nil {
			return err
		}

		slog.Info("upserted discount code", slog.String("code", c.Code), slog.String("amount", c.Amount.String()))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	k := auth.APIKey{
		ID:      "default",
		KeyHash: auth.HashAPIKey([]byte(pepper), apiKey),
		Name:    "Checkout client key",
		Scopes:  []string{auth.ScopeCreateIntent},
	}
	if err := repo.Upsert(ctx, k); err != nil {
		return err
	}

	slog.Info("upserted API key", slog.String("id", k.ID), slog.String("name", k.Name))

	return nil
}
