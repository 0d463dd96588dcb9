package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/settle-idm/pkg/config"
	"github.com/tendant/settle-idm/pkg/db"
)

type Config struct {
	Database config.DatabaseConfig
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s up|down\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	direction := flag.Arg(0)

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

	if err := db.Migrate(cfg.Database.ToDatabaseURL(), direction); err != nil {
		slog.Error("Migration failed", "direction", direction, "db", cfg.Database.Database, "host", cfg.Database.Host, "error", err)
		os.Exit(1)
	}
	slog.Info("Migration complete", "direction", direction, "db", cfg.Database.Database)
}
