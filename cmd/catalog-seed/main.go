package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/internal/repository"
	"github.com/noah-isme/compliance-docs-api/internal/service"
	"github.com/noah-isme/compliance-docs-api/pkg/catalog"
	"github.com/noah-isme/compliance-docs-api/pkg/config"
	"github.com/noah-isme/compliance-docs-api/pkg/database"
	"github.com/noah-isme/compliance-docs-api/pkg/logger"
)

func main() {
	var (
		path    string
		dryRun  bool
		timeout time.Duration
	)
	flag.StringVar(&path, "catalog", "config/categories.yaml", "Path to the category catalog YAML")
	flag.BoolVar(&dryRun, "dry-run", false, "Validate the catalog without writing")
	flag.DurationVar(&timeout, "timeout", time.Minute, "Overall timeout")
	flag.Parse()

	file, err := catalog.Load(path)
	if err != nil {
		log.Fatalf("invalid catalog: %v", err)
	}
	if dryRun {
		log.Printf("catalog %s is valid: %d categories", path, len(file.Categories))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	categories := service.NewCategoryService(
		repository.NewCategoryRepository(db),
		repository.NewAuditRepository(db),
		nil,
		validator.New(),
		logr,
	)
	result, err := categories.ImportCatalog(ctx, file)
	if err != nil {
		logr.Fatal("catalog import failed", zap.Error(err))
	}
	logr.Info("catalog imported",
		zap.String("path", path),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
	)
}
