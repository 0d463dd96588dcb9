package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	settle "github.com/tendant/settle-idm/pkg/app"
)

type Config struct {
	Settle settle.Config
}

// loadEnvFile loads .env from the working directory, then from the executable's
// directory. Variables already set in the environment win.
func loadEnvFile() {
	candidates := []string{".env"}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), ".env"))
	}
	for _, envFile := range candidates {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			slog.Error("Failed to load .env file", "error", err, "path", envFile)
			return
		}
		slog.Info("Configuration loaded from .env file", "path", envFile)
		return
	}
}

func main() {
	// Create a logger with source enabled
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	config := Config{}
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(-1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := settle.New(ctx, config.Settle)
	if err != nil {
		slog.Error("Failed to initialize login service", "error", err)
		os.Exit(-1)
	}
	defer svc.Close()

	if err := svc.BootstrapAdmin(ctx, os.Stdout); err != nil {
		slog.Error("Failed to bootstrap admin", "error", err)
		os.Exit(-1)
	}

	go svc.RunPurge(ctx)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	svc.Routes(server.R)

	slog.Info("API endpoint prefixes configured",
		"auth", svc.Config.Prefix.Auth,
		"signup", svc.Config.Prefix.Signup,
		"account", svc.Config.Prefix.Account)

	server.Run()
}
