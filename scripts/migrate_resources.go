package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bookwise/internal/config"
	"bookwise/internal/database"
	"bookwise/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type ResourcesConfig struct {
	Resources []models.Resource `yaml:"resources"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		resourcesPath = flag.String("resources", "configs/resources.yaml", "path to resources.yaml")
		dbPath        = flag.String("db", "./data/engine.db", "path to sqlite db")
		companyID     = flag.Int64("company", 1, "company id for seeded resources")
	)
	flag.Parse()

	data, err := os.ReadFile(*resourcesPath)
	if err != nil {
		return fmt.Errorf("read resources: %w", err)
	}
	var cfg ResourcesConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse resources: %w", err)
	}
	if len(cfg.Resources) == 0 {
		return fmt.Errorf("no resources in yaml")
	}
	if err = config.ValidateResources(cfg.Resources); err != nil {
		return fmt.Errorf("validate resources: %w", err)
	}

	for i := range cfg.Resources {
		if cfg.Resources[i].CompanyID == 0 {
			cfg.Resources[i].CompanyID = *companyID
		}
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err = db.SyncResources(ctx, cfg.Resources); err != nil {
		return fmt.Errorf("sync resources: %w", err)
	}

	fmt.Printf("done: synced=%d\n", len(cfg.Resources))
	return nil
}
