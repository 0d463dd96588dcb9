package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/settle-idm/pkg/config"
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/db"
	"github.com/tendant/settle-idm/pkg/twofa"
)

type Config struct {
	Database  config.DatabaseConfig
	TwoFactor config.TwoFactorConfig
}

func main() {
	// Parse command line arguments
	name := flag.String("name", "", "Display name of the user (required)")
	email := flag.String("email", "", "Email for the new user (required)")
	password := flag.String("password", "", "Password for the new user (required)")
	roleName := flag.String("role", "customer", "Role: customer, seller or admin")
	phone := flag.String("phone", "", "Phone number, with or without country code")
	twoFactor := flag.Bool("2fa", false, "Enable two-factor authentication")
	method := flag.String("2fa-method", "email", "Two-factor channel: email or sms")
	flag.Parse()

	if *name == "" || *password == "" || *email == "" {
		fmt.Println("Error: name, email and password are required")
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	role, err := credential.ParseRole(*roleName)
	if err != nil {
		slog.Error("Invalid role", "role", *roleName, "error", err)
		os.Exit(1)
	}
	m, err := twofa.ParseMethod(*method)
	if err != nil {
		slog.Error("Invalid 2FA method", "method", *method, "error", err)
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.ToDatabaseURL())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", cfg.Database.Database, "host", cfg.Database.Host, "port", cfg.Database.Port, "user", cfg.Database.User, "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	users, err := credential.NewService(credential.NewPostgresRepository(pool),
		credential.WithCountryCode(cfg.TwoFactor.DefaultCountryCode))
	if err != nil {
		slog.Error("Failed to create credential service", "error", err)
		os.Exit(1)
	}

	u, err := users.CreateUser(ctx, credential.NewUser{
		Name:             *name,
		Email:            *email,
		Phone:            *phone,
		Password:         *password,
		Role:             role,
		TwoFactorEnabled: *twoFactor,
		TwoFactorMethod:  m,
	})
	if err != nil {
		slog.Error("Failed to create user", "email", *email, "error", err)
		os.Exit(1)
	}

	slog.Info("User created successfully", "email", u.Email, "role", u.Role, "user_id", u.ID,
		"two_factor_enabled", u.TwoFactorEnabled, "two_factor_method", u.TwoFactorMethod)
}
