package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/settle-idm/pkg/config"
	"github.com/tendant/settle-idm/pkg/credential"
	"github.com/tendant/settle-idm/pkg/db"
)

type Config struct {
	Database config.DatabaseConfig
}

func main() {
	email := flag.String("email", "", "Email of the user to delete (required)")
	flag.Parse()

	if *email == "" {
		fmt.Println("Error: email is required")
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.ToDatabaseURL())
	if err != nil {
		slog.Error("Failed creating dbpool", "db", cfg.Database.Database, "host", cfg.Database.Host, "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	users, err := credential.NewService(credential.NewPostgresRepository(pool))
	if err != nil {
		slog.Error("Failed to create credential service", "error", err)
		os.Exit(1)
	}

	u, err := users.GetUserByEmail(ctx, *email)
	if err != nil {
		if errors.Is(err, credential.ErrUserNotFound) {
			slog.Error("No user with this email", "email", *email)
		} else {
			slog.Error("Failed to look up user", "email", *email, "error", err)
		}
		os.Exit(1)
	}

	// OTP rows go with the user through ON DELETE CASCADE
	if err := users.DeleteUser(ctx, u.ID); err != nil {
		slog.Error("Failed to delete user", "user_id", u.ID, "error", err)
		os.Exit(1)
	}
	slog.Info("User deleted", "email", u.Email, "user_id", u.ID)
}
